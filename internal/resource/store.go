// Package resource is the read-through cache that screens read their data
// from. Entries are keyed by API path. Fetches happen on first access and on
// explicit invalidation only.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/igormartsekha/saas-starter-kit/internal/logging"
)

type Fetcher interface {
	Fetch(ctx context.Context, key string) (json.RawMessage, error)
}

type FetcherFunc func(ctx context.Context, key string) (json.RawMessage, error)

func (f FetcherFunc) Fetch(ctx context.Context, key string) (json.RawMessage, error) {
	return f(ctx, key)
}

// Snapshot is a point-in-time copy of a cache entry. Err is the last fetch
// error; Data is the last good value and survives failed refetches.
type Snapshot struct {
	Data      json.RawMessage
	IsLoading bool
	Err       error
	Stale     bool
}

func (s Snapshot) HasData() bool { return s.Data != nil }

type entry struct {
	data    json.RawMessage
	loading bool
	err     error
	stale   bool
	subs    map[int]func(Snapshot)
	nextSub int
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{Data: e.data, IsLoading: e.loading, Err: e.err, Stale: e.stale}
}

type Store struct {
	fetcher Fetcher
	logger  *slog.Logger
	group   singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
}

func NewStore(fetcher Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{fetcher: fetcher, logger: logger, entries: map[string]*entry{}}
}

// Get returns the cached value for key, fetching it when absent or stale.
// Concurrent callers for one key share a single fetch.
func (s *Store) Get(ctx context.Context, key string) Snapshot {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && e.data != nil && !e.stale {
		snap := e.snapshot()
		s.mu.Unlock()
		return snap
	}
	s.mu.Unlock()
	return s.fetch(ctx, key)
}

// Peek returns the cached snapshot without fetching.
func (s *Store) Peek(key string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(), true
}

// Subscribe registers fn to receive a snapshot whenever key is refetched.
// The returned function removes the subscription.
func (s *Store) Subscribe(key string, fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key)
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if cur, ok := s.entries[key]; ok && cur == e {
				delete(e.subs, id)
			}
		})
	}
}

// Invalidate marks key stale. An entry nobody subscribes to is dropped and
// refetched lazily on the next Get; otherwise it is refetched now and every
// subscriber is notified. A failed refetch keeps the last good value.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	s.group.Forget(key)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if len(e.subs) == 0 {
		delete(s.entries, key)
		s.mu.Unlock()
		return nil
	}
	e.stale = true
	s.mu.Unlock()

	snap := s.fetch(ctx, key)
	return snap.Err
}

func (s *Store) fetch(ctx context.Context, key string) Snapshot {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.loading = true
	s.mu.Unlock()

	_, err, _ := s.group.Do(key, func() (any, error) {
		data, err := s.fetcher.Fetch(ctx, key)

		s.mu.Lock()
		cur := s.entryLocked(key)
		cur.loading = false
		if err != nil {
			cur.err = err
		} else {
			if data == nil {
				data = json.RawMessage("null")
			}
			cur.data = data
			cur.err = nil
			cur.stale = false
		}
		snap := cur.snapshot()
		subs := make([]func(Snapshot), 0, len(cur.subs))
		for _, fn := range cur.subs {
			subs = append(subs, fn)
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("resource fetch failed", "key", key, "err", err)
		}
		for _, fn := range subs {
			fn(snap)
		}
		return nil, err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.entryLocked(key).snapshot()
	if err != nil {
		snap.Err = err
	}
	return snap
}

func (s *Store) entryLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{subs: map[int]func(Snapshot){}}
		s.entries[key] = e
	}
	return e
}

var ErrNoData = errors.New("resource: no data")

// Load fetches key through s and decodes it into T.
func Load[T any](ctx context.Context, s *Store, key string) (T, error) {
	var out T
	snap := s.Get(ctx, key)
	if snap.Err != nil && !snap.HasData() {
		return out, snap.Err
	}
	if !snap.HasData() {
		return out, ErrNoData
	}
	if err := json.Unmarshal(snap.Data, &out); err != nil {
		return out, fmt.Errorf("resource: decode %s: %w", key, err)
	}
	return out, nil
}
