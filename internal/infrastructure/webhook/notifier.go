package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/rs/zerolog"
	"gopkg.in/resty.v1"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
	sendTimeout       = 10 * time.Second
)

// Notifier delivers events to the configured endpoints.
type Notifier struct {
	endpoints  []Endpoint
	client     *resty.Client
	deadLetter *DeadLetterStore
	logger     zerolog.Logger
	now        func() time.Time
}

// NewNotifier creates a notifier. deadLetter may be nil.
func NewNotifier(endpoints []Endpoint, deadLetter *DeadLetterStore, logger zerolog.Logger) *Notifier {
	return &Notifier{
		endpoints:  endpoints,
		client:     resty.New().SetTimeout(sendTimeout),
		deadLetter: deadLetter,
		logger:     logger,
		now:        time.Now,
	}
}

// Active reports whether any endpoint is enabled.
func (n *Notifier) Active() bool {
	if n == nil {
		return false
	}
	for _, ep := range n.endpoints {
		if ep.Enabled {
			return true
		}
	}
	return false
}

// Notify sends data to every enabled endpoint whose filters match
// eventType and returns once all deliveries have finished. Deliveries that
// exhaust their retries are written to the dead letter store.
func (n *Notifier) Notify(ctx context.Context, eventType string, data any) {
	if !n.Active() {
		return
	}

	body, err := json.Marshal(Payload{
		EventType: eventType,
		Timestamp: n.now().UTC(),
		Data:      data,
	})
	if err != nil {
		n.logger.Error().Err(err).Str("event", eventType).Msg("encode webhook payload")
		return
	}

	var wg sync.WaitGroup
	for _, ep := range n.endpoints {
		if !ep.Enabled || !matchesFilter(ep, eventType) {
			continue
		}
		wg.Add(1)
		go func(ep Endpoint) {
			defer wg.Done()
			n.deliver(ctx, ep, eventType, body)
		}(ep)
	}
	wg.Wait()
}

func matchesFilter(ep Endpoint, eventType string) bool {
	if len(ep.EventFilters) == 0 {
		return true
	}
	for _, f := range ep.EventFilters {
		if f == eventType {
			return true
		}
	}
	return false
}

func (n *Notifier) deliver(ctx context.Context, ep Endpoint, eventType string, body []byte) {
	attempts := ep.MaxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	delay := ep.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	log := n.logger.With().Str("webhook", ep.Name).Str("event", eventType).Logger()

	r := retry.New[int](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
	})
	status, err := r.Do(ctx, func(ctx context.Context) (int, error) {
		return n.send(ctx, ep, body)
	})
	if err == nil {
		log.Debug().Int("status", status).Msg("webhook delivered")
		return
	}

	log.Warn().Err(err).Int("attempts", attempts).Msg("webhook delivery failed")
	if n.deadLetter == nil {
		return
	}
	dl := DeadLetter{
		Timestamp:   n.now().UTC(),
		WebhookName: ep.Name,
		URL:         ep.URL,
		EventType:   eventType,
		Payload:     string(body),
		Error:       err.Error(),
		Attempts:    attempts,
	}
	if err := n.deadLetter.Append(dl); err != nil {
		log.Error().Err(err).Msg("record dead letter")
	}
}

func (n *Notifier) send(ctx context.Context, ep Endpoint, body []byte) (int, error) {
	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "prscore-webhook/1.0").
		SetBody(body)
	if ep.Secret != "" {
		req.SetHeader(SignatureHeader, Sign(body, ep.Secret))
	}

	resp, err := req.Post(ep.URL)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return resp.StatusCode(), fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return resp.StatusCode(), nil
}

// Sign computes the HMAC-SHA256 of payload with secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
