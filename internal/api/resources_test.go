package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebolt-db/firebolt-cli/internal/api/apitest"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t)
	auth := NewClientCredentials(srv.URL, apitest.ClientID, apitest.ClientSecret, "")
	return NewClient(srv.URL, apitest.Account, auth), srv
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestDatabases_CRUD(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestClient(t)

	db, err := c.CreateDatabase(ctx, CreateDatabaseRequest{Name: "sales", Region: "us-east-1", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "sales", db.Name)

	_, err = c.CreateDatabase(ctx, CreateDatabaseRequest{Name: "sales"})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	list, err := c.ListDatabases(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "us-east-1", list[0].Region)

	updated, err := c.UpdateDatabase(ctx, "sales", "new description")
	require.NoError(t, err)
	assert.Equal(t, "new description", updated.Description)

	require.NoError(t, c.DeleteDatabase(ctx, "sales"))
	_, err = c.GetDatabase(ctx, "sales")
	assert.True(t, IsNotFound(err))

	assert.Contains(t, srv.Requests, "DELETE /v1/accounts/acme/databases/sales")
}

func TestEngines_CreateAttachAndUpdate(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestClient(t)
	srv.AddDatabase(domain.Database{Name: "sales"})

	e, err := c.CreateEngine(ctx, domain.EngineSettings{
		Name: "sales_rw", Region: "us-east-1", Spec: strPtr("B2"), Scale: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EngineStatusStopped, e.Status)
	assert.Equal(t, "B2", e.Spec)

	require.NoError(t, c.AttachEngine(ctx, "sales", "sales_rw", true))
	db, err := c.GetDatabase(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, "sales_rw", db.DefaultEngine)

	attached, err := c.ListDatabaseEngines(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, attached, 1)

	e, err = c.UpdateEngine(ctx, "sales_rw", domain.EngineSettings{AutoStop: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, e.AutoStop)
	assert.Equal(t, 2, e.Scale, "unset fields are unchanged")

	all, err := c.ListEngines(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, c.DeleteEngine(ctx, "sales_rw"))
	_, err = c.GetEngine(ctx, "sales_rw")
	assert.True(t, IsNotFound(err))
}

func TestRunEngineAction(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestClient(t)
	srv.AddEngine(domain.Engine{Name: "e1", Status: domain.EngineStatusStopped})

	e, err := c.RunEngineAction(ctx, "e1", ActionStart)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineStatusStarting, e.Status)

	_, err = c.RunEngineAction(ctx, "e1", "explode")
	require.Error(t, err)
}

func TestWaitForEngine(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestClient(t)
	srv.AddEngine(domain.Engine{Name: "e1", Status: domain.EngineStatusStarting})
	srv.QueueStatus("e1", domain.EngineStatusStarting, domain.EngineStatusStarting, domain.EngineStatusRunning)

	e, err := c.WaitForEngine(ctx, "e1", time.Millisecond, domain.EngineStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineStatusRunning, e.Status)

	t.Run("failed_is_terminal", func(t *testing.T) {
		srv.QueueStatus("e1", domain.EngineStatusFailed)
		_, err := c.WaitForEngine(ctx, "e1", time.Millisecond, domain.EngineStatusRunning)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FAILED")
	})

	t.Run("context_deadline", func(t *testing.T) {
		srv.QueueStatus("e1", domain.EngineStatusStarting, domain.EngineStatusStarting, domain.EngineStatusStarting)
		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := c.WaitForEngine(ctx, "e1", time.Hour, domain.EngineStatusStopped)
		require.Error(t, err)
	})
}

func TestResolveEngineEndpoint(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestClient(t)
	srv.AddDatabase(domain.Database{Name: "sales", DefaultEngine: "sales_rw"})
	srv.AddDatabase(domain.Database{Name: "empty"})
	srv.AddEngine(domain.Engine{Name: "sales_rw", Status: domain.EngineStatusRunning})
	srv.AddEngine(domain.Engine{Name: "idle", Status: domain.EngineStatusStopped})

	ep, err := c.ResolveEngineEndpoint(ctx, "", "sales")
	require.NoError(t, err)
	assert.Equal(t, srv.QueryEndpoint(), ep)

	ep, err = c.ResolveEngineEndpoint(ctx, "https://engine.example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "https://engine.example.com", ep)

	_, err = c.ResolveEngineEndpoint(ctx, "idle", "sales")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not running")

	_, err = c.ResolveEngineEndpoint(ctx, "", "empty")
	assert.True(t, IsNotFound(err))

	_, err = c.ResolveEngineEndpoint(ctx, "", "")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}
