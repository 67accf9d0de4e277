// Package remote talks to the hosted record API. Records are addressed by
// table name; fetches return {success, message, data} and mutations return
// {success, message, results:[{success, message, data}]}.
package remote

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"property-browser/internal/common/config"
	"property-browser/internal/common/errors"
	commonhttp "property-browser/internal/common/http"
	"property-browser/internal/common/logger"
)

const (
	Backend = "remote"

	TableProperty      = "property"
	TableSavedProperty = "saved_property"

	headerProjectID = "X-Project-Id"
	headerPublicKey = "X-Public-Key"
)

// Where operators understood by the record API.
const (
	OpGreaterThanOrEqualTo = "GreaterThanOrEqualTo"
	OpLessThanOrEqualTo    = "LessThanOrEqualTo"
	OpExactMatch           = "ExactMatch"
	OpContains             = "Contains"
	OpEqualTo              = "EqualTo"
)

type FieldName struct {
	Name string `json:"Name"`
}

type Field struct {
	Field FieldName `json:"field"`
}

// Fields builds a field list from column names.
func Fields(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = Field{Field: FieldName{Name: n}}
	}
	return out
}

type Condition struct {
	FieldName string   `json:"FieldName"`
	Operator  string   `json:"Operator"`
	Values    []string `json:"Values"`
}

type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

// FetchParams is the body of a fetch call.
type FetchParams struct {
	Fields  []Field     `json:"fields,omitempty"`
	Where   []Condition `json:"where,omitempty"`
	OrderBy []OrderBy   `json:"orderBy,omitempty"`
}

type fetchResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

type getResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type mutationResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type mutationResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Results []mutationResult `json:"results"`
}

// Client is shared by the property and saved-property stores.
type Client struct {
	http    *commonhttp.Client
	baseURL string
	logger  logger.Logger
}

// NewClient builds a client from config. rt may be nil.
func NewClient(cfg config.RemoteConfig, rt http.RoundTripper, log logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base url is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid remote base url: %w", err)
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := []commonhttp.Option{
		commonhttp.WithHeader(headerProjectID, cfg.ProjectID),
		commonhttp.WithHeader(headerPublicKey, cfg.PublicKey),
	}
	if rt != nil {
		opts = append(opts, commonhttp.WithTransport(rt))
	}

	return &Client{
		http:    commonhttp.NewClient(timeout, opts...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger.ForComponent(log, "remote-client"),
	}, nil
}

func (c *Client) tableURL(table string, suffix ...string) string {
	parts := append([]string{c.baseURL, "records", url.PathEscape(table)}, suffix...)
	return strings.Join(parts, "/")
}

// Fetch returns the raw records of table matching params.
func (c *Client) Fetch(ctx context.Context, table string, params FetchParams) ([]json.RawMessage, error) {
	var resp fetchResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.tableURL(table, "fetch"), params, &resp); err != nil {
		return nil, c.transportError(table, "fetch", err)
	}
	if !resp.Success {
		return nil, errors.NewBackendFailureError(Backend, "fetch "+table, fmt.Errorf("%s", orDefault(resp.Message, "Failed to fetch records")))
	}
	return resp.Data, nil
}

// Get returns a single raw record. Only a 404, a successful envelope without
// data or a not-found message are reported as NOT_FOUND; any other
// unsuccessful envelope is a retryable BACKEND_FAILURE.
func (c *Client) Get(ctx context.Context, table string, id int) (json.RawMessage, error) {
	var resp getResponse
	err := c.http.DoJSON(ctx, http.MethodGet, c.tableURL(table, strconv.Itoa(id)), nil, &resp)
	var statusErr *commonhttp.StatusError
	if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFoundError(table, id)
	}
	if err != nil {
		return nil, c.transportError(table, "get", err)
	}
	if !resp.Success {
		if isNotFoundMessage(resp.Message) {
			return nil, errors.NewNotFoundError(table, id)
		}
		c.logger.Warn("record lookup failed", map[string]interface{}{
			"table":   table,
			"id":      id,
			"message": resp.Message,
		})
		return nil, errors.NewBackendFailureError(Backend, "get "+table, fmt.Errorf("%s", orDefault(resp.Message, "Failed to get record")))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, errors.NewNotFoundError(table, id)
	}
	return resp.Data, nil
}

func isNotFoundMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// Create inserts records and returns the first result's data.
func (c *Client) Create(ctx context.Context, table string, record interface{}) (json.RawMessage, error) {
	return c.mutate(ctx, http.MethodPost, table, "create", map[string]interface{}{
		"records": []interface{}{record},
	})
}

// Update patches records; record must carry its Id.
func (c *Client) Update(ctx context.Context, table string, record interface{}) (json.RawMessage, error) {
	return c.mutate(ctx, http.MethodPatch, table, "update", map[string]interface{}{
		"records": []interface{}{record},
	})
}

// Delete removes records by id.
func (c *Client) Delete(ctx context.Context, table string, ids ...int) error {
	_, err := c.mutate(ctx, http.MethodDelete, table, "delete", map[string]interface{}{
		"RecordIds": ids,
	})
	return err
}

func (c *Client) mutate(ctx context.Context, method, table, op string, body interface{}) (json.RawMessage, error) {
	var resp mutationResponse
	if err := c.http.DoJSON(ctx, method, c.tableURL(table), body, &resp); err != nil {
		return nil, c.transportError(table, op, err)
	}
	if !resp.Success {
		return nil, errors.NewBackendFailureError(Backend, op+" "+table, fmt.Errorf("%s", orDefault(resp.Message, "Failed to "+op+" record")))
	}
	if len(resp.Results) == 0 {
		if op == "delete" {
			return nil, nil
		}
		return nil, errors.NewBackendFailureError(Backend, op+" "+table, fmt.Errorf("no data returned from %s operation", op))
	}

	first := resp.Results[0]
	if !first.Success {
		c.logger.Warn("record mutation rejected", map[string]interface{}{
			"table":     table,
			"operation": op,
			"message":   first.Message,
		})
		return nil, errors.NewBackendFailureError(Backend, op+" "+table, fmt.Errorf("%s", orDefault(first.Message, "Failed to "+op+" record")))
	}
	return first.Data, nil
}

func (c *Client) transportError(table, op string, err error) error {
	c.logger.Error("record api call failed", map[string]interface{}{
		"table":     table,
		"operation": op,
		"error":     err,
	})
	return errors.Backend(Backend, op+" "+table, err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
