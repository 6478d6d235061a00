package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebolt-db/firebolt-cli/internal/api/apitest"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

func TestQueryClient_Execute(t *testing.T) {
	c, srv := newTestClient(t)
	var gotDatabase string
	srv.QueryFn = func(database, sql string) (int, string) {
		gotDatabase = database
		switch sql {
		case "SELECT id, name FROM t":
			return http.StatusOK, `{"meta":[{"name":"id","type":"int"},{"name":"name","type":"text"}],
				"data":[[1,"a"],[2,"b"]],"rows":2,"statistics":{"elapsed":0.01}}`
		case "INSERT INTO t VALUES (3, 'c')":
			return http.StatusOK, ""
		default:
			return http.StatusInternalServerError, "syntax error near 'SELEC'"
		}
	}
	q := NewQueryClient(c, srv.QueryEndpoint(), "sales")

	res, err := q.Execute(context.Background(), "SELECT id, name FROM t")
	require.NoError(t, err)
	assert.Equal(t, "sales", gotDatabase)
	assert.Equal(t, []string{"id", "name"}, res.ColumnNames())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, json.Number("2"), res.Rows[1][0])
	assert.Equal(t, "b", res.Rows[1][1])

	res, err = q.Execute(context.Background(), "INSERT INTO t VALUES (3, 'c')")
	require.NoError(t, err)
	assert.False(t, res.HasRows())

	_, err = q.Execute(context.Background(), "SELEC 1")
	require.Error(t, err)
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "SELEC 1", re.Statement)
	assert.Contains(t, err.Error(), "syntax error")

	assert.Equal(t, []string{"SELECT id, name FROM t", "INSERT INTO t VALUES (3, 'c')", "SELEC 1"}, srv.Queries)
}

func TestQueryClient_StatementOutlivesResourceTimeout(t *testing.T) {
	c, srv := newTestClient(t)
	c.HTTPClient.Timeout = 50 * time.Millisecond
	srv.QueryFn = func(_, _ string) (int, string) {
		time.Sleep(300 * time.Millisecond)
		return http.StatusOK, ""
	}
	q := NewQueryClient(c, srv.QueryEndpoint(), "sales")
	assert.Zero(t, q.HTTPClient.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := q.Execute(ctx, "INSERT INTO f SELECT * FROM ex_f")
	require.NoError(t, err)
}

func TestQueryClient_ContextDeadline(t *testing.T) {
	c, srv := newTestClient(t)
	srv.QueryFn = func(_, _ string) (int, string) {
		time.Sleep(500 * time.Millisecond)
		return http.StatusOK, ""
	}
	q := NewQueryClient(c, srv.QueryEndpoint(), "sales")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := q.Execute(ctx, "TRUNCATE TABLE f")
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "TRUNCATE TABLE f", re.Statement)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueryClient_TransportFailure(t *testing.T) {
	q := NewQueryClient(NewClient("http://127.0.0.1:1", apitest.Account, nil), "http://127.0.0.1:1", "db")
	_, err := q.Execute(context.Background(), "SELECT 1")
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
}

func TestDecodeQueryResponse(t *testing.T) {
	_, err := decodeQueryResponse([]byte(`{"meta":[{"name":"a"}],"data":[[1,2]]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0 has 2 values")

	_, err = decodeQueryResponse([]byte(`not json`))
	require.Error(t, err)

	res, err := decodeQueryResponse([]byte("  \n"))
	require.NoError(t, err)
	assert.False(t, res.HasRows())
}
