// Package client talks to the factboard API over HTTP. Client satisfies
// board.Store so a board can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"factboard/api/internal/category"
	"factboard/api/internal/search"
	"factboard/api/internal/store"
)

const DefaultBaseURL = "http://localhost:8787"

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s: %s", e.Code, e.Message)
}

// Unwrap lets callers match the store sentinels the server reported.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound && e.Code == "NOT_FOUND":
		return store.ErrNotFound
	case e.Code == "UNKNOWN_COLUMN":
		return store.ErrUnknownColumn
	}
	return nil
}

const defaultTimeout = 15 * time.Second

type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    *time.Duration
}

type Option func(*Client)

// WithHTTPClient sends requests through hc. A nil hc keeps the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. It applies to a copy of the HTTP client
// so a shared client, http.DefaultClient included, is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = &d
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout != nil {
		hc := *c.httpClient
		hc.Timeout = *c.timeout
		c.httpClient = &hc
	}
	return c
}

func (c *Client) Categories(ctx context.Context) ([]category.Category, error) {
	var payload struct {
		Categories []category.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

func (c *Client) FetchFacts(ctx context.Context, q store.FactQuery) ([]store.Fact, error) {
	params := url.Values{}
	if q.Filtered() {
		params.Set("category", q.Category)
	}
	params.Set("limit", strconv.Itoa(q.EffectiveLimit()))

	var payload struct {
		Facts []store.Fact `json:"facts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/facts?"+params.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	if payload.Facts == nil {
		payload.Facts = []store.Fact{}
	}
	return payload.Facts, nil
}

func (c *Client) InsertFact(ctx context.Context, item store.NewFact) (store.Fact, error) {
	body := map[string]string{
		"text":     item.Text,
		"source":   item.Source,
		"category": item.Category,
	}
	var payload struct {
		Fact store.Fact `json:"fact"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/facts", body, &payload); err != nil {
		return store.Fact{}, err
	}
	return payload.Fact, nil
}

func (c *Client) IncrementVote(ctx context.Context, id int64, column store.VoteColumn) (store.Fact, error) {
	if !column.Valid() {
		return store.Fact{}, fmt.Errorf("%w: %q", store.ErrUnknownColumn, column)
	}
	path := fmt.Sprintf("/api/facts/%d/votes/%s", id, url.PathEscape(string(column)))
	var payload struct {
		Fact store.Fact `json:"fact"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return store.Fact{}, err
	}
	return payload.Fact, nil
}

func (c *Client) Search(ctx context.Context, q search.Query) (search.Response, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.Category != "" && q.Category != category.All {
		params.Set("category", q.Category)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var resp search.Response
	if err := c.do(ctx, http.MethodGet, "/api/facts/search?"+params.Encode(), nil, &resp); err != nil {
		return search.Response{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil && json.Unmarshal(data, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
