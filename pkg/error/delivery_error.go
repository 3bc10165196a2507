package error

import (
	"errors"
	"fmt"
	"net/http"
)

// DeliveryError is returned when an event could not be delivered to the decision service.
type DeliveryError string

func (err DeliveryError) Error() string {
	return string(err)
}

func (err DeliveryError) ErrCode() string {
	return "DELIVERY_ERROR"
}

func (err DeliveryError) StatusCode() int {
	return http.StatusBadGateway
}

// APIError is a non-2xx response from the Commandless backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("commandless api error: status %d", e.Status)
	}
	return fmt.Sprintf("commandless api error: status %d: %s", e.Status, e.Body)
}

func (e *APIError) ErrCode() string {
	return "API_ERROR"
}

func (e *APIError) StatusCode() int {
	return e.Status
}

// Retryable reports whether the same request may succeed if sent again.
// 409 means the idempotency key is still being processed by another attempt.
func (e *APIError) Retryable() bool {
	switch {
	case e.Status >= 500:
		return true
	case e.Status == http.StatusRequestTimeout, e.Status == http.StatusConflict:
		return true
	}
	return false
}

// IsRetryable reports whether err, or something it wraps, is a retryable APIError.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}
