package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// ListEngines returns every engine in the account.
func (c *Client) ListEngines(ctx context.Context) ([]domain.Engine, error) {
	var out engineList
	if err := c.doJSON(ctx, http.MethodGet, c.accountPath("engines"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Engines, nil
}

// GetEngine returns one engine by name.
func (c *Client) GetEngine(ctx context.Context, name string) (*domain.Engine, error) {
	var out domain.Engine
	if err := c.doJSON(ctx, http.MethodGet, c.accountPath("engines", name), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEngine creates an engine. Unset settings take the service defaults.
func (c *Client) CreateEngine(ctx context.Context, settings domain.EngineSettings) (*domain.Engine, error) {
	var out domain.Engine
	if err := c.doJSON(ctx, http.MethodPost, c.accountPath("engines"), nil, settings, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEngine changes the set fields of settings on an existing engine.
func (c *Client) UpdateEngine(ctx context.Context, name string, settings domain.EngineSettings) (*domain.Engine, error) {
	var out domain.Engine
	if err := c.doJSON(ctx, http.MethodPatch, c.accountPath("engines", name), nil, settings, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEngine drops an engine.
func (c *Client) DeleteEngine(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, c.accountPath("engines", name), nil, nil, nil)
}

// EngineAction is a lifecycle operation on an engine.
type EngineAction string

// Engine actions.
const (
	ActionStart   EngineAction = "start"
	ActionStop    EngineAction = "stop"
	ActionRestart EngineAction = "restart"
)

// RunEngineAction requests start, stop, or restart and returns the engine as reported afterwards.
func (c *Client) RunEngineAction(ctx context.Context, name string, action EngineAction) (*domain.Engine, error) {
	switch action {
	case ActionStart, ActionStop, ActionRestart:
	default:
		return nil, fmt.Errorf("unknown engine action %q", action)
	}
	var out domain.Engine
	if err := c.doJSON(ctx, http.MethodPost, c.accountPath("engines", name, string(action)), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveEngineEndpoint returns the query endpoint for engineName, which may already be a URL.
// An empty engineName selects the database's default engine. The engine must be running.
func (c *Client) ResolveEngineEndpoint(ctx context.Context, engineName, database string) (string, error) {
	if strings.Contains(engineName, "://") || strings.Contains(engineName, ".") {
		return engineName, nil
	}
	if engineName == "" {
		if database == "" {
			return "", domain.ErrValidation("either an engine name or a database name is required")
		}
		db, err := c.GetDatabase(ctx, database)
		if err != nil {
			return "", err
		}
		if db.DefaultEngine == "" {
			return "", domain.ErrNotFound("database %q has no default engine; pass --engine-name", database)
		}
		engineName = db.DefaultEngine
	}

	engine, err := c.GetEngine(ctx, engineName)
	if err != nil {
		return "", err
	}
	if engine.Status != domain.EngineStatusRunning {
		return "", domain.ErrValidation("engine %q is not running (status %s); start it with 'firebolt engine start %s'",
			engine.Name, engine.Status, engine.Name)
	}
	if engine.Endpoint == "" {
		return "", fmt.Errorf("engine %q has no endpoint", engine.Name)
	}
	return engine.Endpoint, nil
}
