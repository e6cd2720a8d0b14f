// Package dedupe tracks keys that must stay unique, such as team names.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Deduper records seen keys. Keys are normalized before comparison, so with
// the default normalizer "Vector Vipers" and "VECTOR vipers" collide.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Seen reports whether key was recorded, without recording it.
	Seen(ctx context.Context, key string) bool

	// Unrecord removes a key, e.g. to roll back a write that failed later on.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Normalizer maps a key to its comparison form.
type Normalizer func(string) string

// LowerCase compares keys by their lowercase form. Full case folding is
// avoided: "Straße" and "STRASSE" are different names.
func LowerCase(s string) string {
	return cases.Lower(language.Und).String(s)
}

// inMemoryDeduper implements Deduper with a map guarded by a RWMutex.
type inMemoryDeduper struct {
	mu        sync.RWMutex
	seen      map[string]struct{}
	normalize Normalizer
	size      atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:      make(map[string]struct{}),
		normalize: LowerCase,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	k := d.normalize(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		return true
	}
	d.seen[k] = struct{}{}
	d.size.Add(1)
	return false
}

// Seen reports whether key was recorded.
func (d *inMemoryDeduper) Seen(_ context.Context, key string) bool {
	k := d.normalize(key)

	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.seen[k]
	return exists
}

// Unrecord removes key if present.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	k := d.normalize(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		delete(d.seen, k)
		d.size.Add(-1)
	}
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
