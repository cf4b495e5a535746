package options

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// FieldState is a snapshot of one option field.
type FieldState struct {
	Key     string `json:"key"`
	Options []Pair `json:"options"`
	Loading bool   `json:"loading"`
	Err     error  `json:"-"`
}

// Field tracks the option list of a single form field. Every fetch is tagged
// with the dependent key and a sequence number at issue time; a response is
// applied only if both still match when it arrives.
type Field struct {
	name     string
	src      Source
	loader   *Loader
	debounce time.Duration

	mu        sync.Mutex
	key       string
	seq       uint64
	options   []Pair
	loading   bool
	err       error
	timer     *time.Timer
	listeners []func(FieldState)
}

// Name returns the form field this list belongs to.
func (f *Field) Name() string { return f.name }

// OnChange registers fn to receive a snapshot after every applied change.
func (f *Field) OnChange(fn func(FieldState)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// State returns the current snapshot.
func (f *Field) State() FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// SetKey records a new dependent key. When the source requests automatic
// loading, a fetch is triggered: immediately if no debounce is configured,
// otherwise as a single trailing fetch once the key has been stable for the
// debounce interval. Setting the current key again does nothing.
func (f *Field) SetKey(ctx context.Context, key string) error {
	f.mu.Lock()
	if key == f.key && f.seq > 0 {
		f.mu.Unlock()
		return nil
	}
	f.key = key
	// a key change supersedes whatever is in flight
	f.seq++
	seq := f.seq
	superseded := f.loading
	f.loading = false
	state, listeners := f.snapshotLocked(), f.listeners
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	auto, debounce := f.src.RequestAuto, f.debounce
	if auto && debounce > 0 {
		f.timer = time.AfterFunc(debounce, func() {
			if ctx.Err() != nil {
				return
			}
			err := f.loadIfCurrent(ctx, key, seq)
			if err != nil && !errors.Is(err, ErrStale) {
				f.loader.logger.Warn("option fetch failed",
					slog.String("field", f.name),
					slog.String("key", key),
					slog.Any("error", err))
			}
		})
	}
	f.mu.Unlock()

	if superseded {
		emit(state, listeners)
	}
	if auto && debounce <= 0 {
		return f.loadIfCurrent(ctx, key, seq)
	}
	return nil
}

// Clear drops the key and the options, superseding any pending or in-flight
// fetch. A dependent field is cleared when the field it depends on empties.
func (f *Field) Clear() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.key == "" && len(f.options) == 0 && !f.loading && f.err == nil {
		f.mu.Unlock()
		return
	}
	f.key = ""
	f.seq++
	f.options = []Pair{}
	f.loading = false
	f.err = nil
	state, listeners := f.snapshotLocked(), f.listeners
	f.mu.Unlock()
	emit(state, listeners)
}

// Load fetches options for key, making it the current key. If the key has
// changed or a newer fetch was issued by the time the response arrives, the
// response is discarded and ErrStale is returned. A fetch error empties the
// option list and is returned; it is not retried.
func (f *Field) Load(ctx context.Context, key string) error {
	f.mu.Lock()
	return f.loadLocked(ctx, key)
}

// loadIfCurrent loads key only if no key change happened since seq was
// issued.
func (f *Field) loadIfCurrent(ctx context.Context, key string, seq uint64) error {
	f.mu.Lock()
	if f.seq != seq || f.key != key {
		f.mu.Unlock()
		return ErrStale
	}
	return f.loadLocked(ctx, key)
}

// loadLocked is entered with f.mu held and releases it.
func (f *Field) loadLocked(ctx context.Context, key string) error {
	f.key = key
	f.seq++
	seq := f.seq
	f.loading = true
	state, listeners := f.snapshotLocked(), f.listeners
	f.mu.Unlock()
	emit(state, listeners)

	pairs, err := f.loader.Load(ctx, f.src, key)

	f.mu.Lock()
	if f.key != key || f.seq != seq {
		f.mu.Unlock()
		return ErrStale
	}
	f.loading = false
	if err != nil {
		f.options = []Pair{}
		f.err = err
	} else {
		f.options = pairs
		f.err = nil
	}
	state, listeners = f.snapshotLocked(), f.listeners
	f.mu.Unlock()
	emit(state, listeners)
	return err
}

// Refresh reloads the options for the current key.
func (f *Field) Refresh(ctx context.Context) error {
	f.mu.Lock()
	key := f.key
	f.mu.Unlock()
	return f.Load(ctx, key)
}

// Stop cancels a pending debounced fetch.
func (f *Field) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Field) snapshotLocked() FieldState {
	opts := make([]Pair, len(f.options))
	copy(opts, f.options)
	return FieldState{Key: f.key, Options: opts, Loading: f.loading, Err: f.err}
}

// emit runs outside the lock so listeners may call back into the field.
func emit(state FieldState, listeners []func(FieldState)) {
	for _, fn := range listeners {
		fn(state)
	}
}
