package commandless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgError "github.com/GMOnyx/Commandlessapp-sub000/pkg/error"
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/msgworker"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.commandless.app"

	EventsPath   = "/v1/relay/events"
	ConfigPath   = "/v1/relay/config"
	RegisterPath = "/v1/relay/register"

	HeaderAPIKey      = "x-commandless-key"
	HeaderIdempotency = "x-idempotency-key"
	HeaderSignature   = "x-signature"

	maxResponseBytes = 1 << 20
	maxErrorBody     = 512
)

var errMalformedResponse = errors.New("malformed response")

// Client talks to the Commandless relay API. The platform token is never handed
// to it; only the API key and the signed event payload leave the process.
type Client struct {
	baseURL    string
	apiKey     APIKey
	hmacSecret string
	userAgent  string

	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration
	limiter     *rate.Limiter

	queueSize    int
	queueWorkers int
	queue        *msgworker.Queue
}

// New creates a client for baseURL. The api key must have the id:secret form.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	key, err := ParseAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid service url %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       key,
		userAgent:    "commandless-relay-go",
		httpClient:   &http.Client{},
		timeout:      DefaultTimeout,
		maxAttempts:  DefaultMaxAttempts,
		backoffBase:  DefaultBackoffBase,
		backoffMax:   DefaultBackoffMax,
		queueSize:    DefaultQueueSize,
		queueWorkers: DefaultQueueWorkers,
	}
	for _, o := range opts {
		o(c)
	}
	c.queue = msgworker.NewQueue(c.queueSize, c.queueWorkers)
	return c, nil
}

// BaseURL returns the service url without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Start launches the send queue workers.
func (c *Client) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Close stops the send queue. Pending events are discarded; a send already in
// progress finishes on its own retry budget.
func (c *Client) Close() {
	c.queue.Stop()
}

// QueueStats reports the send queue counters.
func (c *Client) QueueStats() msgworker.QueueStats {
	return c.queue.Stats()
}

// SendEvent delivers ev and returns the decision. Transient failures are retried
// with the same idempotency key. The returned decision is nil whenever err is set.
func (c *Client) SendEvent(ctx context.Context, ev domain.Event) (*domain.Decision, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, pkgError.DeliveryError(fmt.Sprintf("failed to marshal event: %v", err))
	}

	var decision domain.Decision
	key := IdempotencyKey(ev)
	if err := c.doWithRetry(ctx, c.maxAttempts, http.MethodPost, EventsPath, body, key, &decision); err != nil {
		return nil, err
	}
	if err := decision.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid decision: %w", pkgError.DeliveryError("delivery failed"), err)
	}
	return &decision, nil
}

// Enqueue schedules ev for background delivery and returns immediately. Failures
// are logged. When the queue is full the oldest pending event is dropped.
// It returns false after Close.
func (c *Client) Enqueue(ev domain.Event) bool {
	return c.queue.TryEnqueue(msgworker.Job{
		Key: string(ev.Kind) + ":" + ev.ID,
		Handler: func(ctx context.Context) error {
			_, err := c.SendEvent(ctx, ev)
			return err
		},
	})
}

// FetchConfig loads the bot's policy snapshot. It makes a single attempt; the
// cache refresh loop is the retry.
func (c *Client) FetchConfig(ctx context.Context, botID string) (*domain.BotConfig, error) {
	var raw json.RawMessage
	path := ConfigPath + "?botId=" + url.QueryEscape(botID)
	if err := c.doWithRetry(ctx, 1, http.MethodGet, path, nil, "", &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: empty config", errMalformedResponse)
	}

	var cfg domain.BotConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedResponse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid config: %w", errMalformedResponse, err)
	}
	if cfg.BotID == "" {
		cfg.BotID = botID
	}
	return &cfg, nil
}

// RegisterRequest identifies the bot process to the backend on first start.
type RegisterRequest struct {
	Platform      domain.Platform `json:"platform"`
	ApplicationID string          `json:"applicationId"`
	Name          string          `json:"name,omitempty"`
	InstanceID    string          `json:"instanceId,omitempty"`
}

type registerResponse struct {
	BotID string `json:"botId"`
}

// RegisterBot obtains a bot id for this application. Repeated calls for the same
// application reuse the idempotency key.
func (c *Client) RegisterBot(ctx context.Context, req RegisterRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	key := uuid.NewSHA1(idempotencyNamespace, []byte("register|"+string(req.Platform)+"|"+req.ApplicationID)).String()

	var out registerResponse
	if err := c.doWithRetry(ctx, c.maxAttempts, http.MethodPost, RegisterPath, body, key, &out); err != nil {
		return "", err
	}
	if out.BotID == "" {
		return "", fmt.Errorf("%w: register response without botId", errMalformedResponse)
	}
	return out.BotID, nil
}

func (c *Client) doWithRetry(ctx context.Context, attempts int, method, path string, body []byte, idemKey string, out any) error {
	var lastErr error
	var attempt int
	for attempt = 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("request pacing: %w", err)
			}
		}

		lastErr = c.do(ctx, method, path, body, idemKey, out)
		if lastErr == nil {
			if attempt > 1 {
				logrus.Infof("[RELAY_CLIENT] %s %s succeeded on attempt %d", method, path, attempt)
			}
			return nil
		}
		if !isRetryable(ctx, lastErr) || attempt == attempts {
			break
		}

		delay := c.backoff(attempt)
		logrus.WithError(lastErr).Warnf("[RELAY_CLIENT] attempt %d/%d for %s %s failed, retrying in %v", attempt, attempts, method, path, delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", pkgError.DeliveryError("delivery cancelled"), ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w: %s %s after %d attempts: %w", pkgError.DeliveryError("delivery failed"), method, path, attempt, lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idemKey string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderAPIKey, c.apiKey.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		if c.hmacSecret != "" {
			req.Header.Set(HeaderSignature, Sign(c.hmacSecret, body))
		}
	}
	if idemKey != "" {
		req.Header.Set(HeaderIdempotency, idemKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &pkgError.APIError{Status: resp.StatusCode, Body: msg}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", errMalformedResponse, err)
	}
	return nil
}

// backoff returns base * 2^(attempt-1), capped.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.backoffMax {
			return c.backoffMax
		}
	}
	if d > c.backoffMax {
		return c.backoffMax
	}
	return d
}

// isRetryable decides whether another attempt can help. Status-based decisions
// come from APIError; anything else that is not a bad payload or a cancelled
// caller is a transport failure.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *pkgError.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, errMalformedResponse) {
		return false
	}
	return true
}
