package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// === NewClient ===

func TestNewClient_TrailingSlash(t *testing.T) {
	c := NewClient("http://localhost:8080/", "acme", nil)
	assert.Equal(t, "http://localhost:8080", c.BaseURL)
}

func TestNewClient_AddsScheme(t *testing.T) {
	c := NewClient("api.app.firebolt.io", "acme", nil)
	assert.Equal(t, "https://api.app.firebolt.io", c.BaseURL)
}

func TestNewClient_SetsTimeout(t *testing.T) {
	c := NewClient("http://localhost:8080", "acme", nil)
	require.NotNil(t, c.HTTPClient)
	assert.Equal(t, 30*time.Second, c.HTTPClient.Timeout)
}

// === Client.Do ===

func TestDo_URLConstruction(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "acme", nil)
	resp, err := c.Do(context.Background(), http.MethodGet, c.accountPath("databases", "my db"), nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "/v1/accounts/acme/databases/my db", gotPath)
}

func TestDo_QueryParams(t *testing.T) {
	var gotRawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRawQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "acme", nil)
	q := url.Values{}
	q.Set("limit", "10")

	resp, err := c.Do(context.Background(), http.MethodGet, "/items", q, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "limit=10", gotRawQuery)
}

func TestDo_HeadersAndBody(t *testing.T) {
	var (
		gotContentType string
		gotAccept      string
		gotAuth        string
		gotRequestID   string
		gotBody        []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "acme", StaticToken("tok"))
	resp, err := c.Do(context.Background(), http.MethodPost, "/things", nil, map[string]string{"name": "x"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "Bearer tok", gotAuth)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err, "request id should be a uuid")

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &parsed))
	assert.Equal(t, "x", parsed["name"])
}

func TestDo_NoAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "acme", nil)
	resp, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotAuth)
}

func TestDo_ConnectionRefused(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "acme", nil)
	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute request")
}

// === CheckError ===

func TestCheckError_SuccessRange(t *testing.T) {
	for _, code := range []int{200, 201, 204} {
		resp := &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}
		assert.NoError(t, CheckError(resp))
	}
}

func TestCheckError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{name: "structured", status: 403, body: `{"code":403,"message":"forbidden"}`, wantMsg: "API error (HTTP 403): forbidden", wantCode: "403"},
		{name: "error_field", status: 401, body: `{"error":"access_denied"}`, wantMsg: "API error (HTTP 401): access_denied"},
		{name: "string_code", status: 409, body: `{"code":"ALREADY_EXISTS","message":"exists"}`, wantMsg: "exists", wantCode: "ALREADY_EXISTS"},
		{name: "raw_body", status: 500, body: "Internal Server Error", wantMsg: "API error (HTTP 500): Internal Server Error"},
		{name: "empty_body", status: 500, body: "", wantMsg: "API error (HTTP 500): "},
		{name: "empty_message", status: 400, body: `{"code":400,"message":""}`, wantMsg: `{"code":400,"message":""}`, wantCode: "400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Body: io.NopCloser(strings.NewReader(tt.body)), Header: http.Header{}}
			err := CheckError(resp)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestAPIError_MapsToDomainErrors(t *testing.T) {
	var nf *domain.NotFoundError
	assert.ErrorAs(t, &APIError{HTTPStatus: 404, Message: "no such engine"}, &nf)
	assert.True(t, IsNotFound(&APIError{HTTPStatus: 404}))

	var conflict *domain.ConflictError
	assert.ErrorAs(t, &APIError{HTTPStatus: 409}, &conflict)

	var ve *domain.ValidationError
	assert.ErrorAs(t, &APIError{HTTPStatus: 400}, &ve)

	assert.False(t, IsNotFound(&APIError{HTTPStatus: 500}))
}

// === ReadBody ===

type spyReadCloser struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (s *spyReadCloser) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestReadBody_ReadsAndCloses(t *testing.T) {
	spy := &spyReadCloser{Reader: strings.NewReader("hello, world")}
	data, err := ReadBody(&http.Response{Body: spy})
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))
	assert.True(t, spy.closed)
}
