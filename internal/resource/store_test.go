package resource

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	data  map[string]string
	err   error
	gate  chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: map[string]int{}, data: map[string]string{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, key string) (json.RawMessage, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.data[key]), nil
}

func (f *fakeFetcher) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeFetcher) set(key, value string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.err = err
}

func TestGetCachesAfterFirstFetch(t *testing.T) {
	f := newFakeFetcher()
	f.set("/api/teams", `[{"slug":"acme"}]`, nil)
	s := NewStore(f, nil)

	first := s.Get(context.Background(), "/api/teams")
	require.NoError(t, first.Err)
	second := s.Get(context.Background(), "/api/teams")

	assert.JSONEq(t, `[{"slug":"acme"}]`, string(second.Data))
	assert.Equal(t, 1, f.count("/api/teams"))
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	f := newFakeFetcher()
	f.set("/api/users", `{"id":1}`, nil)
	f.gate = make(chan struct{})
	s := NewStore(f, nil)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if snap := s.Get(context.Background(), "/api/users"); snap.Err == nil && snap.HasData() {
				ok.Add(1)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, int32(8), ok.Load())
	assert.Equal(t, 1, f.count("/api/users"))
}

func TestInvalidateRefetchesForSubscribers(t *testing.T) {
	f := newFakeFetcher()
	f.set("/api/teams", `[]`, nil)
	s := NewStore(f, nil)

	var got []string
	unsubscribe := s.Subscribe("/api/teams", func(snap Snapshot) { got = append(got, string(snap.Data)) })
	defer unsubscribe()
	s.Get(context.Background(), "/api/teams")

	f.set("/api/teams", `[{"slug":"acme"}]`, nil)
	require.NoError(t, s.Invalidate(context.Background(), "/api/teams"))

	assert.Equal(t, 2, f.count("/api/teams"))
	require.Len(t, got, 2)
	assert.JSONEq(t, `[{"slug":"acme"}]`, got[1])

	teams, err := Load[[]map[string]string](context.Background(), s, "/api/teams")
	require.NoError(t, err)
	assert.Equal(t, "acme", teams[0]["slug"])
	assert.Equal(t, 2, f.count("/api/teams"))
}

func TestInvalidateWithoutSubscribersDropsEntry(t *testing.T) {
	f := newFakeFetcher()
	f.set("/api/users", `{"id":1}`, nil)
	s := NewStore(f, nil)
	s.Get(context.Background(), "/api/users")

	require.NoError(t, s.Invalidate(context.Background(), "/api/users"))
	_, ok := s.Peek("/api/users")
	assert.False(t, ok)
	assert.Equal(t, 1, f.count("/api/users"))

	s.Get(context.Background(), "/api/users")
	assert.Equal(t, 2, f.count("/api/users"))
}

func TestFailedRefetchKeepsLastGoodValue(t *testing.T) {
	f := newFakeFetcher()
	f.set("/api/teams/acme/api-keys", `[{"id":"k1"}]`, nil)
	s := NewStore(f, nil)
	unsubscribe := s.Subscribe("/api/teams/acme/api-keys", func(Snapshot) {})
	defer unsubscribe()
	s.Get(context.Background(), "/api/teams/acme/api-keys")

	f.set("/api/teams/acme/api-keys", "", errors.New("offline"))
	err := s.Invalidate(context.Background(), "/api/teams/acme/api-keys")
	require.EqualError(t, err, "offline")

	snap, ok := s.Peek("/api/teams/acme/api-keys")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"k1"}]`, string(snap.Data))
	assert.EqualError(t, snap.Err, "offline")
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	f := newFakeFetcher()
	f.set("/api/teams", `[]`, nil)
	s := NewStore(f, nil)

	var calls int
	unsubscribe := s.Subscribe("/api/teams", func(Snapshot) { calls++ })
	s.Get(context.Background(), "/api/teams")
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.Invalidate(context.Background(), "/api/teams"))
	assert.Equal(t, 1, calls)
}

func TestLoadReturnsFetchError(t *testing.T) {
	f := newFakeFetcher()
	f.set("/api/users", "", errors.New("Unauthorized"))
	s := NewStore(f, nil)

	_, err := Load[map[string]any](context.Background(), s, "/api/users")
	require.EqualError(t, err, "Unauthorized")
}
