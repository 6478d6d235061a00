package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// Compile-time check.
var _ domain.Executor = (*QueryClient)(nil)

// QueryClient runs SQL statements against one engine endpoint and database.
type QueryClient struct {
	// HTTPClient carries no timeout: a statement runs until its context is done.
	HTTPClient *http.Client

	client   *Client
	endpoint string
	database string
}

// NewQueryClient creates a QueryClient that reuses c's credentials and transport.
func NewQueryClient(c *Client, endpoint, database string) *QueryClient {
	hc := &http.Client{}
	if c.HTTPClient != nil {
		hc.Transport = c.HTTPClient.Transport
	}
	return &QueryClient{
		HTTPClient: hc,
		client:     c,
		endpoint:   normalizeBaseURL(endpoint),
		database:   database,
	}
}

// queryResponse is the JSON body returned by the query endpoint.
type queryResponse struct {
	Meta       []domain.ResultColumn `json:"meta"`
	Data       [][]any               `json:"data"`
	Rows       int64                 `json:"rows"`
	Statistics json.RawMessage       `json:"statistics"`
}

// Execute sends one statement and waits for its result.
// Every failure, transport or remote, is returned as a *domain.RemoteError.
func (q *QueryClient) Execute(ctx context.Context, sql string) (*domain.QueryResult, error) {
	params := url.Values{}
	if q.database != "" {
		params.Set("database", q.database)
	}
	params.Set("output_format", "JSON_Compact")
	u := q.endpoint + "/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(sql))
	if err != nil {
		return nil, domain.WrapRemote(sql, err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	resp, err := q.client.sendWith(ctx, q.HTTPClient, req)
	if err != nil {
		return nil, domain.WrapRemote(sql, err)
	}
	if err := CheckError(resp); err != nil {
		return nil, domain.WrapRemote(sql, err)
	}
	data, err := ReadBody(resp)
	if err != nil {
		return nil, domain.WrapRemote(sql, err)
	}
	result, err := decodeQueryResponse(data)
	if err != nil {
		return nil, domain.WrapRemote(sql, err)
	}
	return result, nil
}

// decodeQueryResponse parses a JSON_Compact body. Statements without a result set
// return an empty body. Numbers are kept as json.Number.
func decodeQueryResponse(data []byte) (*domain.QueryResult, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &domain.QueryResult{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var qr queryResponse
	if err := dec.Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	result := &domain.QueryResult{Columns: qr.Meta, Rows: qr.Data, RowsAffected: qr.Rows}
	for i, row := range result.Rows {
		if len(row) != len(result.Columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(result.Columns))
		}
	}
	return result, nil
}
