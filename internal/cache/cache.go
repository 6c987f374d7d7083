// Package cache is the in-memory response store shared by the dashboard.
//
// Entries never expire on their own. Readers decide freshness with the
// threshold of the entry's key class, so a stale value is still available
// to callers that want it (cache-status, last-resort display).
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// KeyClass groups keys that share a freshness threshold.
type KeyClass string

const (
	ClassAccount   KeyClass = "account"
	ClassPositions KeyClass = "positions"
	ClassOrders    KeyClass = "orders"
	ClassHistory   KeyClass = "history"
	ClassBars      KeyClass = "bars"
	ClassUnknown   KeyClass = "unknown"
)

const (
	DefaultBarsTTL = 7 * 24 * time.Hour
	DefaultTTL     = 5 * time.Minute
)

// DefaultThresholds: historical bars rarely change, account state does.
func DefaultThresholds() map[KeyClass]time.Duration {
	return map[KeyClass]time.Duration{
		ClassAccount:   DefaultTTL,
		ClassPositions: DefaultTTL,
		ClassOrders:    DefaultTTL,
		ClassHistory:   DefaultTTL,
		ClassBars:      DefaultBarsTTL,
		ClassUnknown:   DefaultTTL,
	}
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Store is safe for concurrent use. Writes are last-write-wins per key.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	thresholds map[KeyClass]time.Duration
	now        func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithThresholds overrides the thresholds of the given classes.
func WithThresholds(t map[KeyClass]time.Duration) Option {
	return func(s *Store) {
		for k, v := range t {
			s.thresholds[k] = v
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]entry),
		thresholds: DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put replaces the whole entry for key and stamps it with the current time.
func (s *Store) Put(key string, value any) {
	s.mu.Lock()
	s.entries[key] = entry{value: value, fetchedAt: s.now()}
	s.mu.Unlock()
}

// Get returns the stored value and its age regardless of freshness.
func (s *Store) Get(key string) (any, time.Duration, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	return e.value, s.now().Sub(e.fetchedAt), true
}

// Fresh returns the value only if it is younger than its class threshold.
func (s *Store) Fresh(key string) (any, bool) {
	v, age, ok := s.Get(key)
	if !ok || age >= s.Threshold(ClassOf(key)) {
		return nil, false
	}
	return v, true
}

// Threshold is the freshness window for a key class; unknown classes use the
// ClassUnknown entry.
func (s *Store) Threshold(c KeyClass) time.Duration {
	if d, ok := s.thresholds[c]; ok {
		return d
	}
	return s.thresholds[ClassUnknown]
}

// Delete drops a key. Used when a forced refresh must bypass a fresh entry.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Lookup is Fresh with a type assertion.
func Lookup[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Fresh(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// EntryStatus describes one key for the cache-status view.
type EntryStatus struct {
	Key       string        `json:"key"`
	Class     KeyClass      `json:"class"`
	Age       time.Duration `json:"age_ns"`
	AgeText   string        `json:"age"`
	Threshold time.Duration `json:"threshold_ns"`
	Valid     bool          `json:"valid"`
}

// Summary lists every entry sorted by key.
func (s *Store) Summary() []EntryStatus {
	now := s.now()
	s.mu.RLock()
	out := make([]EntryStatus, 0, len(s.entries))
	for k, e := range s.entries {
		class := ClassOf(k)
		age := now.Sub(e.fetchedAt)
		th := s.Threshold(class)
		out = append(out, EntryStatus{
			Key:       k,
			Class:     class,
			Age:       age,
			AgeText:   age.Truncate(time.Second).String(),
			Threshold: th,
			Valid:     age < th,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ClassOf classifies a key by its prefix.
func ClassOf(key string) KeyClass {
	switch {
	case strings.HasPrefix(key, barsPrefix):
		return ClassBars
	case strings.HasPrefix(key, string(ClassAccount)):
		return ClassAccount
	case strings.HasPrefix(key, string(ClassPositions)):
		return ClassPositions
	case strings.HasPrefix(key, string(ClassOrders)):
		return ClassOrders
	case strings.HasPrefix(key, string(ClassHistory)):
		return ClassHistory
	}
	return ClassUnknown
}
