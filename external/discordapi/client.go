package discordapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/kfcrebrand/registration/internal/platform/logging"
	"github.com/kfcrebrand/registration/internal/platform/resilience"
	"github.com/kfcrebrand/registration/internal/usecase"
)

const (
	defaultBaseURL   = "https://discord.com/api/v10"
	maxResponseBytes = 1 << 20
)

var errDiscordTransient = crerr.New("discord api transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client covers the two Discord OAuth pieces this service's collaborators
// need: authorization-code exchange and resolving a user token to the
// account identity. The redirect flow itself lives in the bridge bot.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	clientID       string
	clientSecret   string
	redirectURI    string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

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
		redirectURI:    strings.TrimSpace(cfg.RedirectURI),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// Token is the relevant subset of a Discord OAuth token response.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Scope        string
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	if strings.TrimSpace(code) == "" {
		return Token{}, fmt.Errorf("authorization code is required")
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)

	raw, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/oauth2/token", form.Encode(), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if err != nil {
		return Token{}, fmt.Errorf("exchange discord authorization code: %w", err)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return Token{}, fmt.Errorf("decode discord token payload: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return Token{}, fmt.Errorf("discord token response missing access_token")
	}

	return Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
		Scope:        payload.Scope,
	}, nil
}

// FetchSelf resolves a user access token to the identity it belongs to.
func (c *Client) FetchSelf(ctx context.Context, accessToken string) (usecase.DiscordIdentity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return usecase.DiscordIdentity{}, fmt.Errorf("discord access token is required")
	}

	raw, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/users/@me", "", map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return usecase.DiscordIdentity{}, fmt.Errorf("fetch discord identity: %w", err)
	}

	var payload struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		Discriminator string `json:"discriminator"`
	}
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return usecase.DiscordIdentity{}, fmt.Errorf("decode discord identity payload: %w", err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return usecase.DiscordIdentity{}, fmt.Errorf("discord identity response missing id")
	}

	return usecase.DiscordIdentity{
		ID:            payload.ID,
		Username:      payload.Username,
		Discriminator: payload.Discriminator,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, fullURL, body string, headers map[string]string) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "discord api circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: discord api is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	raw, err := c.executeRequest(ctx, method, fullURL, body, headers)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errDiscordTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return raw, err
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
			lastErr = fmt.Errorf("%w: send request: %s", errDiscordTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errDiscordTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusUnauthorized:
				return nil, fmt.Errorf("%w: discord rejected the provided token", usecase.ErrUnauthorized)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d", errDiscordTransient, resp.StatusCode)
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
	c.logger.WarnContext(ctx, "discord api request failed", "url", fullURL, "error", lastErr)
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
