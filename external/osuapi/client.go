package osuapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/platform/logging"
	"github.com/kfcrebrand/registration/internal/platform/resilience"
	"github.com/kfcrebrand/registration/internal/usecase"
)

const (
	defaultBaseURL   = "https://osu.ppy.sh"
	defaultGameMode  = "osu"
	tokenFlightKey   = "osuapi:token"
	tokenExpirySkew  = 30 * time.Second
	maxResponseBytes = 2 << 20
)

var errOsuTransient = crerr.New("osu api transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	ClientID       string
	ClientSecret   string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the osu! v2 API with an application (client credentials)
// token. It implements usecase.OsuProfileFetcher.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	clientID       string
	clientSecret   string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ usecase.OsuProfileFetcher = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		clientID:       strings.TrimSpace(cfg.ClientID),
		clientSecret:   strings.TrimSpace(cfg.ClientSecret),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type userEnvelope struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	CountryCode string `json:"country_code"`
	Statistics  struct {
		GlobalRank *int64 `json:"global_rank"`
	} `json:"statistics"`
	Badges []badgeItem `json:"badges"`
}

type badgeItem struct {
	Description string `json:"description"`
	AwardedAt   string `json:"awarded_at"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	ImageURL2x  string `json:"image@2x_url"`
}

func (c *Client) FetchUser(ctx context.Context, osuUserID int64) (usecase.OsuIdentity, error) {
	if osuUserID <= 0 {
		return usecase.OsuIdentity{}, fmt.Errorf("osu user id must be greater than zero")
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "osu api circuit breaker rejected request", "state", c.breaker.State())
			return usecase.OsuIdentity{}, fmt.Errorf("%w: osu profile provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	token, err := c.token(ctx)
	if err != nil {
		if c.circuitEnabled {
			c.breaker.RecordFailure()
		}
		return usecase.OsuIdentity{}, err
	}

	path := fmt.Sprintf("/api/v2/users/%d/%s?key=id", osuUserID, defaultGameMode)
	raw, err := c.executeRequest(ctx, http.MethodGet, c.baseURL+path, "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errOsuTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return usecase.OsuIdentity{}, fmt.Errorf("fetch osu user id=%d: %w", osuUserID, err)
	}

	var envelope userEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return usecase.OsuIdentity{}, fmt.Errorf("decode osu user payload: %w", err)
	}
	if envelope.ID <= 0 {
		return usecase.OsuIdentity{}, fmt.Errorf("%w: osu user id=%d", usecase.ErrNotFound, osuUserID)
	}

	return usecase.OsuIdentity{
		ID:          envelope.ID,
		Username:    envelope.Username,
		CountryCode: strings.ToUpper(strings.TrimSpace(envelope.CountryCode)),
		GlobalRank:  envelope.Statistics.GlobalRank,
		Badges:      mapBadges(envelope.Badges),
	}, nil
}

func mapBadges(items []badgeItem) []player.Badge {
	out := make([]player.Badge, 0, len(items))
	for _, item := range items {
		awardedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(item.AwardedAt))
		if err != nil {
			continue
		}
		out = append(out, player.Badge{
			Description: strings.TrimSpace(item.Description),
			AwardedAt:   awardedAt.UTC(),
			URL:         strings.TrimSpace(item.URL),
			ImageURL:    strings.TrimSpace(item.ImageURL),
			ImageURL2x:  strings.TrimSpace(item.ImageURL2x),
		})
	}
	return out
}

// token returns the cached application token, refreshing it through a
// single flight when it is close to expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && time.Until(c.tokenExpiry) > tokenExpirySkew {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	out, err, _ := c.flight.Do(tokenFlightKey, func() (any, error) {
		return c.refreshToken(ctx)
	})
	if err != nil {
		return "", err
	}

	token, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token payload type %T", out)
	}
	return token, nil
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "public")

	raw, err := c.executeRequest(ctx, http.MethodPost, c.baseURL+"/oauth/token", form.Encode(), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if err != nil {
		return "", fmt.Errorf("request osu application token: %w", err)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode osu token payload: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", fmt.Errorf("osu token response missing access_token")
	}

	c.mu.Lock()
	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return payload.AccessToken, nil
}

func (c *Client) executeRequest(ctx context.Context, method, fullURL, body string, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reqBody io.Reader
		if body != "" {
			reqBody = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errOsuTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errOsuTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, usecase.ErrNotFound
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d", errOsuTransient, resp.StatusCode)
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "osu api request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if c.clientSecret != "" {
		value = strings.ReplaceAll(value, c.clientSecret, "REDACTED")
	}
	return value
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
