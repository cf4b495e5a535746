package options

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// ErrStale is returned by Field.Load when the dependent key changed while the
// fetch was in flight. The response has already been discarded.
var ErrStale = errors.New("options: stale response")

// Loader fetches option lists. Concurrent fetches for the same (source, key)
// share one remote call, and completed lists may be cached for a short TTL.
type Loader struct {
	fetcher  Fetcher
	logger   *slog.Logger
	group    singleflight.Group
	cache    *expirable.LRU[string, []Pair]
	debounce time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithCache enables an LRU cache of formatted option lists. A size or ttl of
// zero leaves caching off.
func WithCache(size int, ttl time.Duration) LoaderOption {
	return func(ld *Loader) {
		if size > 0 && ttl > 0 {
			ld.cache = expirable.NewLRU[string, []Pair](size, nil, ttl)
		}
	}
}

// WithDefaultDebounce sets the debounce used by fields whose source does not
// specify one.
func WithDefaultDebounce(d time.Duration) LoaderOption {
	return func(ld *Loader) { ld.debounce = d }
}

// NewLoader returns a Loader backed by f.
func NewLoader(f Fetcher, opts ...LoaderOption) *Loader {
	ld := &Loader{fetcher: f, logger: slog.Default()}
	for _, o := range opts {
		o(ld)
	}
	return ld
}

// Load fetches and formats the options of src for key. It performs no
// staleness checks; use Field for tracked, debounced loading.
func (ld *Loader) Load(ctx context.Context, src Source, key string) ([]Pair, error) {
	ck := fetchKey(src, key)
	if ld.cache != nil {
		if pairs, ok := ld.cache.Get(ck); ok {
			return pairs, nil
		}
	}

	v, err, _ := ld.group.Do(ck, func() (any, error) {
		raw, err := ld.fetcher.FetchOptions(ctx, src.request(key))
		if err != nil {
			return nil, err
		}
		return src.format(raw)
	})
	if err != nil {
		return []Pair{}, err
	}
	pairs := v.([]Pair)
	if ld.cache != nil {
		ld.cache.Add(ck, pairs)
	}
	return pairs, nil
}

// Purge drops every cached option list.
func (ld *Loader) Purge() {
	if ld.cache != nil {
		ld.cache.Purge()
	}
}

// Field returns a tracked option field for src.
func (ld *Loader) Field(name string, src Source) *Field {
	d := src.Debounce
	if d <= 0 {
		d = ld.debounce
	}
	return &Field{
		name:     name,
		src:      src,
		loader:   ld,
		debounce: d,
		options:  []Pair{},
	}
}
