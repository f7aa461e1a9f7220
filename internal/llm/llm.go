// Package llm adapts third-party text generation services to a single
// Generator interface. Backends classify failures so callers can decide
// what is worth retrying.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Generator sends one system/user instruction pair and returns the raw reply text.
type Generator interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrEmptyResponse means the service answered without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// AuthError is returned when the service rejects the credentials. Not retryable.
type AuthError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError covers network failures, rate limiting, timeouts and 5xx replies.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: transport: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RequestError is a client-side rejection other than auth or rate limiting,
// such as an unknown model or an oversized request. Not retryable.
type RequestError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: request rejected (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsRequestError(err error) bool {
	var target *RequestError
	return errors.As(err, &target)
}

// classify wraps err according to the HTTP status the service replied with.
func classify(provider string, status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Provider: provider, StatusCode: status, Err: err}
	case status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests:
		return &RequestError{Provider: provider, StatusCode: status, Err: err}
	default:
		return &TransportError{Provider: provider, StatusCode: status, Err: err}
	}
}

// Config selects and configures a backend.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: %s api key is empty", cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
