// Package engine ties the stat store, evaluator, unlock detector, remote
// refresher and banner queue together behind one service object.
//
// Callers mutate stats and then call CheckUnlocks (or use the Record
// helpers, which do both). Every operation acts on the current user set by
// SetCurrentUser; with no user set reads are empty and writes fail with
// store.ErrNoUser.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/daviddao/badgekeeper/pkg/achievement"
	"github.com/daviddao/badgekeeper/pkg/banner"
	"github.com/daviddao/badgekeeper/pkg/catalog"
	"github.com/daviddao/badgekeeper/pkg/model"
	"github.com/daviddao/badgekeeper/pkg/remote"
	"github.com/daviddao/badgekeeper/pkg/store"
	"github.com/daviddao/badgekeeper/pkg/unlock"
)

// Options configures New. Store is required; nil fields get defaults.
type Options struct {
	Store     store.StatsStore
	Catalog   *catalog.Catalog
	Queue     *banner.Queue
	Refresher *remote.Refresher
	Metrics   *Metrics
	Logger    *log.Logger
}

// Engine is safe for concurrent use. Unlock checks are serialised so two
// callers cannot both see the same id as new.
type Engine struct {
	store     store.StatsStore
	eval      *achievement.Evaluator
	detector  *unlock.Detector
	queue     *banner.Queue
	ownsQueue bool
	refresher *remote.Refresher
	metrics   *Metrics
	logger    *log.Logger

	checkMu sync.Mutex

	userMu sync.RWMutex
	user   string
}

// New builds an engine. Without a Queue it creates one on the real clock
// and closes it in Close.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	e := &Engine{
		store:     opts.Store,
		queue:     opts.Queue,
		refresher: opts.Refresher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	e.eval = achievement.NewEvaluator(cat)
	e.detector = unlock.NewDetector(opts.Store, e.logger)
	if e.queue == nil {
		e.queue = banner.New(nil, banner.Config{})
		e.ownsQueue = true
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.refresher != nil {
		prev := e.refresher.OnFailure
		e.refresher.OnFailure = func(userID string, err error) {
			e.metrics.RemoteFailures.Inc()
			if prev != nil {
				prev(userID, err)
			}
		}
	}
	return e, nil
}

// Close releases the queue if the engine created it. The store is the
// caller's to close.
func (e *Engine) Close() {
	if e.ownsQueue {
		e.queue.Close()
	}
}

// Catalog returns the catalog being evaluated.
func (e *Engine) Catalog() *catalog.Catalog { return e.eval.Catalog() }

// Queue returns the banner queue.
func (e *Engine) Queue() *banner.Queue { return e.queue }

// Metrics returns the engine's instruments.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// SetCurrentUser switches the namespace every later call acts on. It must
// be called on sign-in before any read or write. "" signs out without
// clearing anything.
func (e *Engine) SetCurrentUser(id string) {
	e.userMu.Lock()
	e.user = id
	e.userMu.Unlock()
}

// CurrentUser returns the active user id, "" if none.
func (e *Engine) CurrentUser() string {
	e.userMu.RLock()
	defer e.userMu.RUnlock()
	return e.user
}

// ClearUserData deletes the current user's stats, flags, baseline and
// cached remote stats, and flushes the banner queue. Other users are
// untouched. The user stays signed in with an empty namespace.
func (e *Engine) ClearUserData() error {
	e.checkMu.Lock()
	defer e.checkMu.Unlock()

	user := e.CurrentUser()
	if _, err := e.queue.Flush(); err != nil && !errors.Is(err, banner.ErrClosed) {
		return fmt.Errorf("flush banners: %w", err)
	}
	if e.refresher != nil {
		e.refresher.Invalidate(user)
	}
	if err := e.store.ClearUser(user); err != nil {
		return fmt.Errorf("clear user %q: %w", user, err)
	}
	e.logger.Printf("engine: cleared data for %s", user)
	return nil
}

// --- Mutations ---

// IncrementCounter adds delta to a counter and returns the new value.
func (e *Engine) IncrementCounter(key model.StatKey, delta int64) (int64, error) {
	return e.store.IncrementCounter(e.CurrentUser(), key, delta)
}

// SetCounter overwrites a counter, e.g. a streak length reported elsewhere.
func (e *Engine) SetCounter(key model.StatKey, value int64) error {
	return e.store.SetCounter(e.CurrentUser(), key, value)
}

// AddToSet adds member to a distinct-value set and reports whether it was new.
func (e *Engine) AddToSet(key model.StatKey, member string) (bool, error) {
	return e.store.AddSetMember(e.CurrentUser(), key, member)
}

// SetFlag marks a secret moment as having happened.
func (e *Engine) SetFlag(id string) error {
	if e.eval.Catalog().Source(id).Kind != catalog.SourceFlag {
		return fmt.Errorf("%q is not a moment achievement", id)
	}
	return e.store.SetFlag(e.CurrentUser(), id)
}

// RecordIncrement increments a counter and checks for unlocks.
func (e *Engine) RecordIncrement(key model.StatKey, delta int64) ([]string, error) {
	if _, err := e.IncrementCounter(key, delta); err != nil {
		return nil, err
	}
	return e.CheckUnlocks(), nil
}

// RecordSet overwrites a counter and checks for unlocks.
func (e *Engine) RecordSet(key model.StatKey, value int64) ([]string, error) {
	if err := e.SetCounter(key, value); err != nil {
		return nil, err
	}
	return e.CheckUnlocks(), nil
}

// RecordMember adds a set member and checks for unlocks.
func (e *Engine) RecordMember(key model.StatKey, member string) ([]string, error) {
	if _, err := e.AddToSet(key, member); err != nil {
		return nil, err
	}
	return e.CheckUnlocks(), nil
}

// RecordMoment sets a moment flag and checks for unlocks.
func (e *Engine) RecordMoment(id string) ([]string, error) {
	if err := e.SetFlag(id); err != nil {
		return nil, err
	}
	return e.CheckUnlocks(), nil
}

// --- Evaluation ---

// Snapshot reads the current user's stats with cached remote values merged.
func (e *Engine) Snapshot() model.StatSnapshot {
	user := e.CurrentUser()
	return e.store.Snapshot(user).WithRemote(e.store.RemoteStats(user))
}

// CheckUnlocks evaluates the current user's stats, enqueues one banner per
// newly unlocked achievement in catalog order and returns their ids. The
// first check for a user only records a baseline and returns nothing.
// With a refresher configured, the baseline waits for the first successful
// remote fetch so a returning user's history is not announced as new.
func (e *Engine) CheckUnlocks() []string {
	e.checkMu.Lock()
	defer e.checkMu.Unlock()

	user := e.CurrentUser()
	if user == "" {
		return nil
	}
	remoteStats := e.store.RemoteStats(user)
	if e.refresher != nil && remoteStats.FetchedAt.IsZero() && e.detector.State(user) == unlock.Uninitialized {
		e.logger.Printf("engine: deferring baseline for %s until remote stats arrive", user)
		return nil
	}
	start := time.Now()
	defer func() { e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds()) }()
	e.metrics.Evaluations.Inc()

	snap := e.store.Snapshot(user).WithRemote(remoteStats)
	fresh := e.detector.Diff(user, e.eval.Evaluate(snap))

	cat := e.eval.Catalog()
	for _, id := range fresh {
		e.metrics.Unlocks.WithLabelValues(id).Inc()
		def, _ := cat.Definition(id)
		if _, err := e.queue.Enqueue(model.Banner{
			AchievementID: id,
			Title:         def.Title,
			Description:   def.Description,
		}); err != nil {
			e.logger.Printf("engine: enqueue banner for %s: %v", id, err)
			continue
		}
		e.metrics.BannersEnqueued.Inc()
	}
	if len(fresh) > 0 {
		e.logger.Printf("engine: %s unlocked %v", user, fresh)
	}
	return fresh
}

// BuildAchievements evaluates the current user's stats and returns every
// definition with its progress, in catalog order. It does not touch the
// baseline or the queue.
func (e *Engine) BuildAchievements() []model.AchievementView {
	return e.eval.Views(e.eval.Evaluate(e.Snapshot()))
}

// --- Remote ---

// Refresh fetches remote stats for the current user, then checks unlocks
// against them. Without a refresher it only checks.
func (e *Engine) Refresh(ctx context.Context) (model.RemoteStats, []string) {
	user := e.CurrentUser()
	var stats model.RemoteStats
	if e.refresher != nil && user != "" {
		stats, _ = e.refresher.Refresh(ctx, user)
	}
	return stats, e.CheckUnlocks()
}

// RefreshAsync starts a background fetch for the current user and checks
// unlocks when it lands, if that user is still signed in. It returns
// immediately.
func (e *Engine) RefreshAsync(ctx context.Context) {
	user := e.CurrentUser()
	if e.refresher == nil || user == "" {
		return
	}
	e.refresher.RefreshAsync(ctx, user, func(_ model.RemoteStats, fetched bool) {
		if fetched && e.CurrentUser() == user {
			e.CheckUnlocks()
		}
	})
}
