// Package probe checks that the generation service answers before a batch
// is started against it.
package probe

import (
	"context"
	"time"

	"github.com/marker-finder/markersum/pkg/generation"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/models"
)

// Prompt is the fixed request sent by Check.
const Prompt = "Say hello in one word."

// Probe sends a single short request to the service.
type Probe struct {
	gen     generation.Generator
	model   string
	timeout time.Duration
}

// New creates a Probe. A non-positive timeout means no timeout beyond ctx.
func New(gen generation.Generator, model string, timeout time.Duration) *Probe {
	return &Probe{gen: gen, model: model, timeout: timeout}
}

// Check reports whether the service returned a 2xx reply with a usable
// payload. Failures are logged, never returned.
func (p *Probe) Check(ctx context.Context) bool {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.gen.Generate(ctx, models.GenerationRequest{Model: p.model, Prompt: Prompt})
	if err != nil {
		logger.Logger.Errorw("Generation service check failed",
			"model", p.model,
			"status", generation.StatusCode(err),
			"error", err,
		)
		return false
	}
	logger.Logger.Infow("Generation service is reachable", "model", p.model, "reply", resp.Response)
	return true
}
