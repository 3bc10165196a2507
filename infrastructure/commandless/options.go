package commandless

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMaxAttempts  = 4
	DefaultBackoffBase  = 250 * time.Millisecond
	DefaultBackoffMax   = 4 * time.Second
	DefaultTimeout      = 10 * time.Second
	DefaultQueueSize    = 256
	DefaultQueueWorkers = 1
)

// Option configures the client.
type Option func(*Client)

// WithHMACSecret enables the x-signature header.
func WithHMACSecret(secret string) Option {
	return func(c *Client) { c.hmacSecret = secret }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxAttempts caps the number of attempts per request, first one included.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and its cap. The delay doubles per attempt.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
		if maxDelay > 0 {
			c.backoffMax = maxDelay
		}
	}
}

// WithRequestRate paces outgoing requests. rps <= 0 disables pacing.
func WithRequestRate(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithQueue sizes the fire-and-forget send queue.
func WithQueue(size, workers int) Option {
	return func(c *Client) {
		if size > 0 {
			c.queueSize = size
		}
		if workers > 0 {
			c.queueWorkers = workers
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
