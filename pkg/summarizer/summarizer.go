// Package summarizer turns inscription text into a short summary. It never
// fails: every outcome, including errors, is a string that can go in a row.
package summarizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/marker-finder/markersum/pkg/cache"
	"github.com/marker-finder/markersum/pkg/config"
	"github.com/marker-finder/markersum/pkg/errors"
	"github.com/marker-finder/markersum/pkg/generation"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/models"
	"github.com/marker-finder/markersum/pkg/retry"
)

// Auditor records generation calls. *audit.Logger implements it.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditEntry) error
}

// Config controls a Client.
type Config struct {
	Model          string
	Backend        string
	Timeout        time.Duration
	StripReasoning bool
	Retry          retry.Policy
	// Limiter, when set, paces requests to the service. Its wait is not
	// part of Timeout.
	Limiter *rate.Limiter
}

// ConfigFrom derives a Client Config from the loaded configuration.
// Only transport failures are retried.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Model:          cfg.Generation.Model,
		Backend:        cfg.Generation.Backend,
		Timeout:        cfg.Generation.Timeout,
		StripReasoning: cfg.Generation.StripReasoning,
		Retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		},
		Limiter: generation.NewLimiter(cfg.Generation.RequestsPerMinute),
	}
}

// Result is the outcome of one Summarize call.
type Result struct {
	Summary  string
	Source   models.SummarySource
	Attempts int
	// Err is the failure behind a SourceError summary.
	Err error
}

// Client generates summaries through a Generator, consulting and filling
// the cache when an identifier is given.
type Client struct {
	gen     generation.Generator
	cache   *cache.BestEffort
	cfg     Config
	auditor Auditor
	runID   string
}

// Option configures a Client.
type Option func(*Client)

// WithAuditor records every generation call.
func WithAuditor(a Auditor) Option {
	return func(c *Client) { c.auditor = a }
}

// WithRunID tags audit entries with the batch run they belong to.
func WithRunID(id string) Option {
	return func(c *Client) { c.runID = id }
}

// New creates a Client. A nil store disables caching.
func New(gen generation.Generator, store cache.Store, cfg Config, opts ...Option) *Client {
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = generation.IsTransport
	}
	c := &Client{
		gen:   gen,
		cache: cache.NewBestEffort(store),
		cfg:   cfg,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate returns the summary for text. See Summarize.
func (c *Client) Generate(ctx context.Context, text string, identifier *string, force bool) string {
	return c.Summarize(ctx, text, identifier, force).Summary
}

// Summarize resolves text to a summary:
//   - identifier set and !force: a cached summary wins
//   - text too short: Placeholder, uncached
//   - otherwise the service is asked, with transport failures retried;
//     a success is normalized and cached under identifier, a failure
//     comes back as ErrorPrefix plus the error and is not cached.
func (c *Client) Summarize(ctx context.Context, text string, identifier *string, force bool) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("panic during generation: %v", r)
			logger.Logger.Errorw("Unexpected error generating summary", "marker_id", idOf(identifier), "error", fmt.Sprintf("%+v", err))
			res = Result{Summary: ErrorPrefix + err.Error(), Source: models.SourceError, Attempts: res.Attempts, Err: err}
		}
	}()

	if identifier != nil && !force {
		if summary, ok := c.cache.Get(ctx, *identifier); ok {
			logger.Logger.Debugw("Using cached summary", "marker_id", *identifier)
			return Result{Summary: summary, Source: models.SourceCache}
		}
	}

	if TooShort(text) {
		return Result{Summary: Placeholder, Source: models.SourcePlaceholder}
	}

	prompt := BuildPrompt(text)
	req := models.GenerationRequest{Model: c.cfg.Model, Prompt: prompt}

	policy := c.cfg.Retry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Logger.Warnw("Generation attempt failed, retrying",
			"marker_id", idOf(identifier),
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
	}

	start := time.Now()
	var resp *models.GenerationResponse
	attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if c.cfg.Limiter != nil {
			if err := c.cfg.Limiter.Wait(ctx); err != nil {
				return errors.Wrap(err, "rate limit wait")
			}
		}
		actx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		r, err := c.gen.Generate(actx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	res.Attempts = attempts
	latency := time.Since(start)

	if err != nil {
		if generation.IsTransport(err) {
			logger.Logger.Errorw("Generation failed after retries", "marker_id", idOf(identifier), "attempts", attempts, "error", err)
		} else {
			logger.Logger.Errorw("Unexpected error generating summary", "marker_id", idOf(identifier), "error", fmt.Sprintf("%+v", errors.WithStack(err)))
		}
		c.audit(ctx, identifier, prompt, "", err, attempts, latency)
		return Result{Summary: ErrorPrefix + err.Error(), Source: models.SourceError, Attempts: attempts, Err: err}
	}

	raw := resp.Response
	if c.cfg.StripReasoning {
		raw = StripReasoning(raw)
	}
	summary := Normalize(raw)

	// an empty entry reads back as a miss, so there is nothing to store
	if identifier != nil && summary != "" {
		c.cache.Put(ctx, *identifier, summary)
	}
	c.audit(ctx, identifier, prompt, summary, nil, attempts, latency)

	logger.Logger.Debugw("Generated summary", "marker_id", idOf(identifier), "attempts", attempts, "latency", latency)
	return Result{Summary: summary, Source: models.SourceGenerated, Attempts: attempts}
}

func (c *Client) audit(ctx context.Context, identifier *string, prompt, response string, genErr error, attempts int, latency time.Duration) {
	if c.auditor == nil {
		return
	}
	entry := models.AuditEntry{
		RequestID:  uuid.NewString(),
		RunID:      c.runID,
		Identifier: idOf(identifier),
		Model:      c.cfg.Model,
		Backend:    c.cfg.Backend,
		Prompt:     prompt,
		Response:   response,
		StatusCode: 200,
		Attempts:   attempts,
		LatencyMs:  latency.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if genErr != nil {
		entry.Error = genErr.Error()
		if generation.IsTransport(genErr) {
			entry.StatusCode = generation.StatusCode(genErr)
		}
	}
	if err := c.auditor.Log(context.WithoutCancel(ctx), entry); err != nil {
		logger.Logger.Warnw("Error writing audit entry", "request_id", entry.RequestID, "error", err)
	}
}

func idOf(identifier *string) string {
	if identifier == nil {
		return ""
	}
	return *identifier
}
