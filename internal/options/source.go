// Package options loads option lists for select-like fields whose choices
// come from a remote source. Responses are tagged with the dependent key that
// was active when the fetch was issued and are dropped if the key moved on.
package options

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Pair is one selectable option.
type Pair struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// FormatFunc turns a raw response payload into options.
type FormatFunc func(raw json.RawMessage) ([]Pair, error)

// Source describes where a field's options come from.
type Source struct {
	URL    string         `json:"url"`
	Method string         `json:"method,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	// KeyParam is the request parameter the dependent key is sent as.
	KeyParam     string        `json:"keyParam,omitempty"`
	RequestAuto  bool          `json:"requestAuto,omitempty"`
	Debounce     time.Duration `json:"debounce,omitempty"`
	FormatResult FormatFunc    `json:"-"`
}

// Request is what a Fetcher receives for one option fetch.
type Request struct {
	URL    string
	Method string
	Params map[string]any
}

// Fetcher performs the remote call for an option source.
type Fetcher interface {
	FetchOptions(ctx context.Context, req Request) (json.RawMessage, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (json.RawMessage, error)

func (f FetcherFunc) FetchOptions(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

func (s Source) request(key string) Request {
	params := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		params[k] = v
	}
	if s.KeyParam != "" && key != "" {
		params[s.KeyParam] = key
	}
	method := s.Method
	if method == "" {
		method = "GET"
	}
	return Request{URL: s.URL, Method: method, Params: params}
}

func (s Source) format(raw json.RawMessage) ([]Pair, error) {
	if s.FormatResult == nil {
		return []Pair{}, nil
	}
	pairs, err := s.FormatResult(raw)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", s.URL, err)
	}
	if pairs == nil {
		pairs = []Pair{}
	}
	return pairs, nil
}

// fetchKey identifies a fetch by source URL, method and dependent key.
func fetchKey(s Source, key string) string {
	return s.Method + " " + s.URL + "\x00" + key
}

// ListField formats payloads shaped like {"list": [...]} by reading labelKey
// and valueKey from every element.
func ListField(labelKey, valueKey string) FormatFunc {
	return func(raw json.RawMessage) ([]Pair, error) {
		var page struct {
			List []map[string]any `json:"list"`
		}
		if len(raw) == 0 || string(raw) == "null" {
			return []Pair{}, nil
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, err
		}
		return pairsFrom(page.List, labelKey, valueKey), nil
	}
}

// ArrayField formats payloads that are a bare JSON array of objects.
func ArrayField(labelKey, valueKey string) FormatFunc {
	return func(raw json.RawMessage) ([]Pair, error) {
		var items []map[string]any
		if len(raw) == 0 || string(raw) == "null" {
			return []Pair{}, nil
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return pairsFrom(items, labelKey, valueKey), nil
	}
}

func pairsFrom(items []map[string]any, labelKey, valueKey string) []Pair {
	pairs := make([]Pair, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, Pair{
			Label: fmt.Sprint(item[labelKey]),
			Value: item[valueKey],
		})
	}
	return pairs
}
