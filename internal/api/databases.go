package api

import (
	"context"
	"net/http"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// CreateDatabaseRequest is the body of a database create call.
type CreateDatabaseRequest struct {
	Name        string `json:"name"`
	Region      string `json:"region,omitempty"`
	Description string `json:"description,omitempty"`
}

type databaseList struct {
	Databases []domain.Database `json:"databases"`
}

type engineList struct {
	Engines []domain.Engine `json:"engines"`
}

// ListDatabases returns every database in the account.
func (c *Client) ListDatabases(ctx context.Context) ([]domain.Database, error) {
	var out databaseList
	if err := c.doJSON(ctx, http.MethodGet, c.accountPath("databases"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Databases, nil
}

// GetDatabase returns one database by name.
func (c *Client) GetDatabase(ctx context.Context, name string) (*domain.Database, error) {
	var out domain.Database
	if err := c.doJSON(ctx, http.MethodGet, c.accountPath("databases", name), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDatabase creates a database.
func (c *Client) CreateDatabase(ctx context.Context, req CreateDatabaseRequest) (*domain.Database, error) {
	var out domain.Database
	if err := c.doJSON(ctx, http.MethodPost, c.accountPath("databases"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDatabase changes a database description.
func (c *Client) UpdateDatabase(ctx context.Context, name, description string) (*domain.Database, error) {
	var out domain.Database
	body := map[string]string{"description": description}
	if err := c.doJSON(ctx, http.MethodPatch, c.accountPath("databases", name), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDatabase drops a database.
func (c *Client) DeleteDatabase(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, c.accountPath("databases", name), nil, nil, nil)
}

// ListDatabaseEngines returns the engines attached to a database.
func (c *Client) ListDatabaseEngines(ctx context.Context, name string) ([]domain.Engine, error) {
	var out engineList
	if err := c.doJSON(ctx, http.MethodGet, c.accountPath("databases", name, "engines"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Engines, nil
}

// AttachEngine attaches an engine to a database, optionally as its default engine.
func (c *Client) AttachEngine(ctx context.Context, database, engine string, isDefault bool) error {
	body := map[string]interface{}{"engine": engine, "default": isDefault}
	return c.doJSON(ctx, http.MethodPost, c.accountPath("databases", database, "engines"), nil, body, nil)
}
