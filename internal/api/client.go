// Package api is the HTTP client for the service's resource, authentication, and query endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// DefaultTimeout bounds resource and authentication requests unless the caller's context
// is shorter. Query statements are bounded by their context only.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies bearer tokens for API requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client talks to the resource API.
type Client struct {
	BaseURL    string
	Account    string
	HTTPClient *http.Client
	Auth       TokenSource
	UserAgent  string
}

// NewClient creates a new Client. A nil auth sends unauthenticated requests.
func NewClient(baseURL, account string, auth TokenSource) *Client {
	return &Client{
		BaseURL:    normalizeBaseURL(baseURL),
		Account:    account,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Auth:       auth,
		UserAgent:  "firebolt-cli",
	}
}

func normalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	if u != "" && !strings.Contains(u, "://") {
		u = "https://" + u
	}
	return u
}

// APIError is a non-2xx response from the service.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.HTTPStatus, e.Message)
}

// Unwrap maps well-known statuses to domain errors.
func (e *APIError) Unwrap() error {
	switch e.HTTPStatus {
	case http.StatusNotFound:
		return &domain.NotFoundError{Message: e.Message}
	case http.StatusConflict:
		return &domain.ConflictError{Message: e.Message}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &domain.ValidationError{Message: e.Message}
	default:
		return nil
	}
}

// Do sends a request to /v1<path>. body, when non-nil, is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	u := c.BaseURL + "/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(ctx, req)
}

// send sets the shared headers and executes req with c.HTTPClient.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.sendWith(ctx, c.HTTPClient, req)
}

// sendWith is send with an explicit HTTP client.
func (c *Client) sendWith(ctx context.Context, hc *http.Client, req *http.Request) (*http.Response, error) {
	if c.Auth != nil {
		token, err := c.Auth.Token(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// CheckError returns an *APIError for non-2xx responses and closes their body.
func CheckError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{HTTPStatus: resp.StatusCode, RequestID: resp.Header.Get("X-Request-Id")}

	var structured struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if json.Unmarshal(body, &structured) == nil {
		apiErr.Code = strings.Trim(string(structured.Code), `"`)
		apiErr.Message = structured.Message
		if apiErr.Message == "" {
			apiErr.Message = structured.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

// doJSON sends a request and decodes a 2xx JSON response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	resp, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if err := CheckError(resp); err != nil {
		return err
	}
	data, err := ReadBody(resp)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) accountPath(parts ...string) string {
	var b strings.Builder
	b.WriteString("/accounts/")
	b.WriteString(url.PathEscape(c.Account))
	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

// IsNotFound reports whether err is a 404 from the API or a domain NotFoundError.
func IsNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
