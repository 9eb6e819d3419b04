package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kfcrebrand/registration/internal/domain/registration"
	"github.com/kfcrebrand/registration/internal/platform/resilience"
)

type WebhookPublisherConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
	Breaker resilience.CircuitBreakerConfig
}

// WebhookPublisher delivers registration events to the Discord bridge
// over a plain HTTP webhook. The bridge consumes the envelope
// {"type": ..., "message": ...} and fans it out to its gateway session.
type WebhookPublisher struct {
	client  *http.Client
	url     string
	token   string
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewWebhookPublisher(cfg WebhookPublisherConfig, logger *slog.Logger) *WebhookPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	var breaker *resilience.CircuitBreaker
	if cfg.Breaker.Enabled {
		normalized := resilience.NormalizeCircuitBreakerConfig(cfg.Breaker)
		breaker = resilience.NewCircuitBreaker(
			normalized.FailureThreshold,
			normalized.OpenTimeout,
			normalized.HalfOpenMaxReq,
		)
	}

	return &WebhookPublisher{
		client:  &http.Client{Timeout: timeout},
		url:     strings.TrimSpace(cfg.URL),
		token:   strings.TrimSpace(cfg.Token),
		breaker: breaker,
		logger:  logger,
	}
}

type eventEnvelope struct {
	Type    string             `json:"type"`
	Message registration.Event `json:"message"`
}

func (p *WebhookPublisher) Publish(ctx context.Context, event registration.Event) error {
	if p.url == "" {
		return errors.New("webhook url is not configured")
	}

	if p.breaker != nil {
		if err := p.breaker.Allow(); err != nil {
			return errors.Wrap(err, "webhook breaker rejected publish")
		}
	}

	err := p.publish(ctx, event)
	if p.breaker != nil {
		if err != nil {
			p.breaker.RecordFailure()
		} else {
			p.breaker.RecordSuccess()
		}
	}

	return err
}

func (p *WebhookPublisher) publish(ctx context.Context, event registration.Event) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	body, err := sonic.Marshal(eventEnvelope{
		Type:    event.EventType(),
		Message: event,
	})
	if err != nil {
		return errors.Wrap(err, "marshal event envelope")
	}
	if _, err := buf.Write(body); err != nil {
		return errors.Wrap(err, "buffer event envelope")
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("webhook.event_type", event.EventType()),
			attribute.Int("webhook.payload_bytes", buf.Len()),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(buf.String()))
	if err != nil {
		return errors.Wrap(err, "create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Token "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post webhook event")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Newf("webhook event rejected status=%d body=%s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	p.logger.InfoContext(ctx, "registration event published",
		"event_type", event.EventType(),
	)

	return nil
}

var _ registration.EventSink = (*WebhookPublisher)(nil)
