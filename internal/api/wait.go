package api

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// DefaultPollInterval is the pace of engine status polling.
const DefaultPollInterval = 5 * time.Second

// WaitForEngine polls the engine until it reaches one of targets.
// FAILED is terminal unless it is itself a target.
func (c *Client) WaitForEngine(
	ctx context.Context,
	name string,
	interval time.Duration,
	targets ...domain.EngineStatus,
) (*domain.Engine, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for engine %q: %w", name, err)
		}
		engine, err := c.GetEngine(ctx, name)
		if err != nil {
			return nil, err
		}
		if engine.Status.OneOf(targets...) {
			return engine, nil
		}
		if engine.Status == domain.EngineStatusFailed {
			return engine, fmt.Errorf("engine %q entered status %s", name, engine.Status)
		}
	}
}
