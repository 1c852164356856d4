// Package remote fetches aggregate stats that cannot be observed locally
// (friends, lifetime shares, longest streak, reactions received) and caches
// them in the store.
//
// Fetching is best effort. A failed fetch is logged and the previously
// cached values stay in place; nothing is surfaced to the user and
// evaluation never waits on the network.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/daviddao/badgekeeper/pkg/model"
	"github.com/daviddao/badgekeeper/pkg/store"
)

// Gateway supplies remote aggregate stats for a user.
type Gateway interface {
	Fetch(ctx context.Context, userID string) (model.RemoteStats, error)
}

// HTTPGateway fetches stats as JSON from GET {BaseURL}/users/{id}/stats.
type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
	Token   string
}

// NewHTTPGateway returns a gateway with a client using timeout.
func NewHTTPGateway(baseURL, token string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		Token:   token,
	}
}

type statsResponse struct {
	SongsShared       int64 `json:"songs_shared"`
	PlaylistsShared   int64 `json:"playlists_shared"`
	FriendsCount      int64 `json:"friends_count"`
	MaxVibestreak     int64 `json:"max_vibestreak"`
	ReactionsReceived int64 `json:"reactions_received"`
}

// Fetch implements Gateway.
func (g *HTTPGateway) Fetch(ctx context.Context, userID string) (model.RemoteStats, error) {
	endpoint := g.BaseURL + "/users/" + url.PathEscape(userID) + "/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.RemoteStats{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return model.RemoteStats{}, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.RemoteStats{}, fmt.Errorf("fetch stats: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return model.RemoteStats{}, fmt.Errorf("decode stats: %w", err)
	}
	return model.RemoteStats{
		SongsShared:       r.SongsShared,
		PlaylistsShared:   r.PlaylistsShared,
		FriendsCount:      r.FriendsCount,
		MaxVibestreak:     r.MaxVibestreak,
		ReactionsReceived: r.ReactionsReceived,
	}, nil
}

// Refresher pulls from a Gateway into a store.RemoteCache, at most once per
// MinInterval per user.
type Refresher struct {
	gateway  Gateway
	cache    store.RemoteCache
	logger   *log.Logger
	interval time.Duration
	now      func() time.Time

	// OnFailure, if set, is called after every failed fetch.
	OnFailure func(userID string, err error)

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	inflight sync.WaitGroup

	// saveMu orders cache writes against Invalidate.
	saveMu sync.Mutex
	gen    map[string]uint64
}

// NewRefresher returns a refresher. minInterval <= 0 disables rate limiting.
func NewRefresher(gw Gateway, cache store.RemoteCache, minInterval time.Duration, logger *log.Logger) *Refresher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Refresher{
		gateway:  gw,
		cache:    cache,
		logger:   logger,
		interval: minInterval,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
		gen:      make(map[string]uint64),
	}
}

// Invalidate drops the results of every fetch for userID that is still in
// flight. Call it before wiping the user's cached stats so a late response
// cannot write them back.
func (r *Refresher) Invalidate(userID string) {
	r.saveMu.Lock()
	r.gen[userID]++
	r.saveMu.Unlock()
}

func (r *Refresher) generation(userID string) uint64 {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	return r.gen[userID]
}

func (r *Refresher) limiter(userID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(r.interval), 1)
		r.limiters[userID] = l
	}
	return l
}

// Cached returns the last stored stats without touching the network.
func (r *Refresher) Cached(userID string) model.RemoteStats {
	return r.cache.RemoteStats(userID)
}

// Refresh fetches and caches stats for userID. It returns the freshest
// stats available: the new values on success, the cached ones on failure
// or when rate limited. fetched reports whether a fetch succeeded.
func (r *Refresher) Refresh(ctx context.Context, userID string) (stats model.RemoteStats, fetched bool) {
	if userID == "" || r.gateway == nil {
		return model.RemoteStats{}, false
	}
	if r.interval > 0 && !r.limiter(userID).Allow() {
		return r.cache.RemoteStats(userID), false
	}

	gen := r.generation(userID)
	got, err := r.gateway.Fetch(ctx, userID)
	if err != nil {
		r.logger.Printf("remote: fetch stats for %s: %v (keeping cached values)", userID, err)
		if r.OnFailure != nil {
			r.OnFailure(userID, err)
		}
		return r.cache.RemoteStats(userID), false
	}
	got.FetchedAt = r.now().UTC()

	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	if r.gen[userID] != gen {
		r.logger.Printf("remote: dropping stale stats for %s", userID)
		return model.RemoteStats{}, false
	}
	if err := r.cache.SaveRemoteStats(userID, got); err != nil {
		r.logger.Printf("remote: cache stats for %s: %v", userID, err)
	}
	return got, true
}

// RefreshAsync runs Refresh on its own goroutine and calls done (if non-nil)
// with the result. It returns immediately.
func (r *Refresher) RefreshAsync(ctx context.Context, userID string, done func(model.RemoteStats, bool)) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		stats, ok := r.Refresh(ctx, userID)
		if done != nil {
			done(stats, ok)
		}
	}()
}

// Wait blocks until every RefreshAsync call has finished.
func (r *Refresher) Wait() { r.inflight.Wait() }
