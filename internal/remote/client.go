// Package remote is the HTTP client for the manager API. It implements the
// list controller's Remote and the option loader's Fetcher.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matthewbaird/streamconsole/internal/crud"
	"github.com/matthewbaird/streamconsole/internal/options"
	"github.com/matthewbaird/streamconsole/internal/types"
)

// Envelope is the response wrapper of every manager API call.
type Envelope struct {
	Success bool            `json:"success"`
	ErrMsg  string          `json:"errMsg,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StatusError is a non-2xx response or an envelope with success=false.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Client calls the manager API under a base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	logger  *slog.Logger
	maxBody int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for baseURL, e.g. "http://manager:8083/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		maxBody: 10 * 1024 * 1024,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// List fetches one page of kind.
func (c *Client) List(ctx context.Context, kind string, q types.ListQuery) (types.ListResult, error) {
	q = q.Normalize()
	params := url.Values{}
	params.Set("pageNum", strconv.Itoa(q.PageNum))
	params.Set("pageSize", strconv.Itoa(q.PageSize))
	addParams(params, q.Filters)
	if q.Sort != nil {
		params.Set("sortField", q.Sort.Field)
		params.Set("sortOrder", string(q.Sort.Order))
	}

	var res types.ListResult
	if err := c.do(ctx, http.MethodGet, "/"+kind+"/list", params, nil, &res); err != nil {
		return types.ListResult{}, crud.Classify("list "+kind, 0, err)
	}
	if res.List == nil {
		res.List = []types.Record{}
	}
	return res, nil
}

// Create saves a new record and returns its id.
func (c *Client) Create(ctx context.Context, kind string, payload map[string]any) (int64, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/"+kind+"/save", nil, payload, &raw); err != nil {
		return 0, crud.Classify("create "+kind, 0, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, crud.Classify("create "+kind, 0, fmt.Errorf("decode id: %w", err))
	}
	id, err := types.ToInt64(v)
	if err != nil || id == 0 {
		return 0, crud.Classify("create "+kind, 0, fmt.Errorf("bad id %s", raw))
	}
	return id, nil
}

// Update replaces the stored values of id.
func (c *Client) Update(ctx context.Context, kind string, id int64, payload map[string]any) error {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["id"] = id
	path := fmt.Sprintf("/%s/update/%d", kind, id)
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return crud.Classify("update "+kind, id, err)
	}
	return nil
}

// Delete removes id. params travel as query parameters.
func (c *Client) Delete(ctx context.Context, kind string, id int64, params map[string]any) error {
	q := url.Values{}
	addParams(q, params)
	path := fmt.Sprintf("/%s/delete/%d", kind, id)
	if err := c.do(ctx, http.MethodDelete, path, q, nil, nil); err != nil {
		return crud.Classify("delete "+kind, id, err)
	}
	return nil
}

// FetchOptions performs an option source request and returns the envelope
// data unparsed. GET sources send params in the query, POST sources in a
// JSON body.
func (c *Client) FetchOptions(ctx context.Context, req options.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	var err error
	if strings.EqualFold(req.Method, http.MethodPost) {
		err = c.do(ctx, http.MethodPost, req.URL, nil, req.Params, &raw)
	} else {
		q := url.Values{}
		addParams(q, req.Params)
		err = c.do(ctx, http.MethodGet, req.URL, q, nil, &raw)
	}
	if err != nil {
		return nil, crud.Classify("options "+req.URL, 0, err)
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("remote call",
		slog.String("method", method),
		slog.String("url", u.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)))

	var env Envelope
	envErr := json.Unmarshal(data, &env)

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: %s", types.ErrNotFound, (&StatusError{Status: resp.StatusCode, Message: env.ErrMsg}).Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: env.ErrMsg}
	}
	if envErr != nil {
		return fmt.Errorf("decode envelope: %w", envErr)
	}
	if !env.Success {
		return &StatusError{Status: resp.StatusCode, Message: env.ErrMsg}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = env.Data
		return nil
	}
	if len(env.Data) == 0 {
		return errors.New("empty response data")
	}
	return json.Unmarshal(env.Data, out)
}

// addParams flattens filter values into query parameters. Slices become
// repeated keys; nil values are skipped.
func addParams(q url.Values, params map[string]any) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []any:
			for _, item := range v {
				q.Add(k, paramText(item))
			}
		case []string:
			for _, item := range v {
				q.Add(k, item)
			}
		default:
			q.Set(k, paramText(v))
		}
	}
}

// paramText renders a param value. JSON numbers decode as float64 and
// must not reach the wire in exponent form.
func paramText(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
