package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/badgekeeper/pkg/model"
)

type memCache struct {
	mu   sync.Mutex
	data map[string]model.RemoteStats
	err  error
}

func newCache() *memCache { return &memCache{data: map[string]model.RemoteStats{}} }

func (m *memCache) RemoteStats(userID string) model.RemoteStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[userID]
}

func (m *memCache) SaveRemoteStats(userID string, r model.RemoteStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[userID] = r
	return nil
}

type stubGateway struct {
	calls atomic.Int32
	stats model.RemoteStats
	err   error
}

func (g *stubGateway) Fetch(ctx context.Context, userID string) (model.RemoteStats, error) {
	g.calls.Add(1)
	return g.stats, g.err
}

func TestHTTPGateway_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/alice/stats", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"songs_shared":12,"playlists_shared":3,"friends_count":7,"max_vibestreak":30,"reactions_received":101}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL+"/", "s3cret", time.Second)
	got, err := g.Fetch(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, model.RemoteStats{
		SongsShared:       12,
		PlaylistsShared:   3,
		FriendsCount:      7,
		MaxVibestreak:     30,
		ReactionsReceived: 101,
	}, got)
}

func TestHTTPGateway_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}, "status 502"},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"songs_shared":`))
		}, "decode stats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewHTTPGateway(srv.URL, "", time.Second).Fetch(context.Background(), "alice")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRefresh_CachesOnSuccess(t *testing.T) {
	cache := newCache()
	gw := &stubGateway{stats: model.RemoteStats{FriendsCount: 4}}
	r := NewRefresher(gw, cache, 0, nil)
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	got, ok := r.Refresh(context.Background(), "alice")
	require.True(t, ok)
	assert.EqualValues(t, 4, got.FriendsCount)
	assert.Equal(t, fixed, got.FetchedAt)
	assert.Equal(t, got, r.Cached("alice"))
}

func TestRefresh_FailureKeepsStaleCache(t *testing.T) {
	cache := newCache()
	stale := model.RemoteStats{SongsShared: 9}
	cache.data["alice"] = stale
	gw := &stubGateway{err: errors.New("offline")}
	r := NewRefresher(gw, cache, 0, nil)
	var failures []string
	r.OnFailure = func(userID string, err error) { failures = append(failures, userID) }

	got, ok := r.Refresh(context.Background(), "alice")
	assert.False(t, ok)
	assert.Equal(t, stale, got)
	assert.Equal(t, stale, cache.data["alice"])
	assert.Equal(t, []string{"alice"}, failures)
}

func TestRefresh_SaveErrorStillReturnsFetched(t *testing.T) {
	cache := newCache()
	cache.err = errors.New("read-only")
	r := NewRefresher(&stubGateway{stats: model.RemoteStats{FriendsCount: 2}}, cache, 0, nil)
	got, ok := r.Refresh(context.Background(), "alice")
	assert.True(t, ok)
	assert.EqualValues(t, 2, got.FriendsCount)
}

func TestRefresh_RateLimitedPerUser(t *testing.T) {
	gw := &stubGateway{stats: model.RemoteStats{FriendsCount: 1}}
	r := NewRefresher(gw, newCache(), time.Hour, nil)

	_, ok := r.Refresh(context.Background(), "alice")
	assert.True(t, ok)
	got, ok := r.Refresh(context.Background(), "alice")
	assert.False(t, ok, "second call inside the interval is skipped")
	assert.EqualValues(t, 1, got.FriendsCount, "skipped call returns the cache")
	_, ok = r.Refresh(context.Background(), "bob")
	assert.True(t, ok, "limits are per user")
	assert.EqualValues(t, 2, gw.calls.Load())
}

func TestRefresh_NoUserOrGateway(t *testing.T) {
	gw := &stubGateway{}
	_, ok := NewRefresher(gw, newCache(), 0, nil).Refresh(context.Background(), "")
	assert.False(t, ok)
	assert.Zero(t, gw.calls.Load())

	_, ok = NewRefresher(nil, newCache(), 0, nil).Refresh(context.Background(), "alice")
	assert.False(t, ok)
}

func TestRefreshAsync(t *testing.T) {
	gw := &stubGateway{stats: model.RemoteStats{MaxVibestreak: 14}}
	r := NewRefresher(gw, newCache(), 0, nil)
	results := make(chan model.RemoteStats, 1)
	r.RefreshAsync(context.Background(), "alice", func(s model.RemoteStats, ok bool) {
		assert.True(t, ok)
		results <- s
	})
	r.Wait()
	assert.EqualValues(t, 14, (<-results).MaxVibestreak)
	assert.EqualValues(t, 14, r.Cached("alice").MaxVibestreak)
}

type gatedGateway struct {
	started chan struct{}
	release chan struct{}
	stats   model.RemoteStats
}

func (g *gatedGateway) Fetch(ctx context.Context, userID string) (model.RemoteStats, error) {
	close(g.started)
	<-g.release
	return g.stats, nil
}

func TestRefresh_InvalidateDropsInflightResult(t *testing.T) {
	gw := &gatedGateway{
		started: make(chan struct{}),
		release: make(chan struct{}),
		stats:   model.RemoteStats{FriendsCount: 42},
	}
	cache := newCache()
	r := NewRefresher(gw, cache, 0, nil)

	var fetched atomic.Bool
	r.RefreshAsync(context.Background(), "alice", func(_ model.RemoteStats, ok bool) {
		fetched.Store(ok)
	})
	<-gw.started
	r.Invalidate("alice")
	close(gw.release)
	r.Wait()

	assert.False(t, fetched.Load())
	assert.Zero(t, cache.RemoteStats("alice").FriendsCount)

	// Later fetches are unaffected.
	gw.started = make(chan struct{})
	stats, ok := r.Refresh(context.Background(), "alice")
	require.True(t, ok)
	assert.EqualValues(t, 42, stats.FriendsCount)
	assert.EqualValues(t, 42, cache.RemoteStats("alice").FriendsCount)
}
