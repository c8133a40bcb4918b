// Package generation talks to the text-generation service.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/marker-finder/markersum/pkg/config"
	"github.com/marker-finder/markersum/pkg/models"
)

// Generator sends one non-streaming generation request.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error)
}

// TransportError is a failure to get a 2xx reply: network errors,
// timeouts and non-2xx statuses. These are the failures worth retrying.
type TransportError struct {
	// StatusCode is 0 when no response was received.
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("generation service returned status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("generation service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("generation request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// New builds the client selected by cfg.Backend.
func New(cfg config.GenerationConfig) (Generator, error) {
	switch cfg.Backend {
	case config.BackendOllama, "":
		return NewOllama(cfg.URL), nil
	case config.BackendOpenAI:
		return NewOpenAI(cfg.URL, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.Backend)
	}
}

// Option configures a client.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func buildOptions(opts []Option) options {
	o := options{httpClient: http.DefaultClient}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NewLimiter spaces requests evenly at perMinute per minute, burst 1.
// perMinute <= 0 returns nil, which callers treat as unthrottled.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
