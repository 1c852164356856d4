package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daviddao/badgekeeper/pkg/banner"
	"github.com/daviddao/badgekeeper/pkg/catalog"
	"github.com/daviddao/badgekeeper/pkg/clock"
	"github.com/daviddao/badgekeeper/pkg/config"
	"github.com/daviddao/badgekeeper/pkg/engine"
	"github.com/daviddao/badgekeeper/pkg/model"
	"github.com/daviddao/badgekeeper/pkg/remote"
	"github.com/daviddao/badgekeeper/pkg/store"
)

// app holds shared state for all CLI subcommands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	eng      *engine.Engine
	queue    *banner.Queue
	registry *prometheus.Registry
	logger   *log.Logger
	remote   bool
}

// newApp loads configuration and opens the database.
func newApp() (*app, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	var logger *log.Logger
	if envOr("BADGEKEEPER_VERBOSE", "") != "" {
		logger = log.New(os.Stderr, "bk: ", log.LstdFlags)
	}
	return newAppWith(cfg, logger)
}

// newAppWith builds the app from a resolved config. Creates the database
// directory when it does not exist. A nil logger discards engine output.
func newAppWith(cfg *config.Config, logger *log.Logger) (*app, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if dir := filepath.Dir(cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	s, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", cfg.DB, err)
	}

	var ref *remote.Refresher
	if cfg.Remote.URL != "" {
		gw := remote.NewHTTPGateway(cfg.Remote.URL, cfg.Remote.Token, cfg.RemoteTimeout())
		ref = remote.NewRefresher(gw, s, cfg.RemoteInterval(), logger)
	}

	q := banner.New(clock.Real{}, banner.Config{ShowFor: cfg.ShowFor(), HideFor: cfg.HideFor()})
	reg := prometheus.NewRegistry()
	eng, err := engine.New(engine.Options{
		Store:     s,
		Catalog:   catalog.Default(),
		Queue:     q,
		Refresher: ref,
		Metrics:   engine.NewMetrics(reg),
		Logger:    logger,
	})
	if err != nil {
		q.Close()
		s.Close()
		return nil, err
	}
	return &app{
		cfg:      cfg,
		store:    s,
		eng:      eng,
		queue:    q,
		registry: reg,
		logger:   logger,
		remote:   ref != nil,
	}, nil
}

// Close stops the banner queue and releases the database connection.
func (a *app) Close() {
	a.queue.Close()
	a.store.Close()
}

// resolveUser returns the user ID from the flag (if non-empty), falling
// back to the configured default user.
func (a *app) resolveUser(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if a.cfg.User != "" {
		return a.cfg.User, nil
	}
	return "", fmt.Errorf("no user ID: pass --user or set BADGEKEEPER_USER")
}

// signIn resolves the user and makes it current on the engine. A user seen
// for the first time gets a baseline before anything changes, so the
// command's own change is reported. With a remote configured the baseline
// includes the user's remote stats. Errors are printed; the bool reports
// success.
func (a *app) signIn(flagVal string) (string, bool) {
	userID, err := a.resolveUser(flagVal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: %v\n", err)
		return "", false
	}
	a.eng.SetCurrentUser(userID)
	if _, ok, err := a.store.Baseline(userID); err == nil && !ok {
		if a.remote {
			ctx, cancel := a.remoteContext()
			a.eng.Refresh(ctx)
			cancel()
		} else {
			a.eng.CheckUnlocks()
		}
	}
	return userID, true
}

func (a *app) remoteContext() (context.Context, context.CancelFunc) {
	if d := a.cfg.RemoteTimeout(); d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

// printUnlocks prints one line per newly unlocked achievement.
func (a *app) printUnlocks(ids []string) {
	cat := a.eng.Catalog()
	for _, id := range ids {
		def, _ := cat.Definition(id)
		fmt.Printf("unlocked: %s (%s) - %s\n", def.Title, id, def.Description)
	}
}

// unlockResult is the JSON shape of every mutation command.
type unlockResult struct {
	User     string      `json:"user"`
	Stat     string      `json:"stat,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	Unlocked []string    `json:"unlocked"`
}

func (a *app) report(jsonOut bool, r unlockResult) {
	if r.Unlocked == nil {
		r.Unlocked = []string{}
	}
	if jsonOut {
		printJSON(r)
		return
	}
	if r.Stat != "" {
		fmt.Printf("%s %s=%v\n", r.User, r.Stat, r.Value)
	}
	a.printUnlocks(r.Unlocked)
}

// parseStat checks that name is a known counter (or set, when wantSet).
func parseStat(name string, wantSet bool) (model.StatKey, error) {
	k := model.StatKey(name)
	switch {
	case wantSet && model.IsSet(k), !wantSet && model.IsCounter(k):
		return k, nil
	case wantSet:
		return "", fmt.Errorf("unknown set %q (want one of %v)", name, model.SetKeys)
	default:
		return "", fmt.Errorf("unknown counter %q (want one of %v)", name, model.CounterKeys)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
