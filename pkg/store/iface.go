// iface.go defines the StatsStore interface for dependency injection and testing.
//
// The concrete *Store type satisfies it. The engine, the unlock detector and
// the remote refresher accept the narrower interfaces they need, so tests
// can swap in failing or in-memory stores.
package store

import "github.com/daviddao/badgekeeper/pkg/model"

// StatsStore defines the full set of store operations. Every method takes
// the user id explicitly; "" is the inert namespace.
type StatsStore interface {
	// Close closes the database connection.
	Close() error

	// --- Counters ---

	// Counter returns a counter value (0 if unset).
	Counter(userID string, key model.StatKey) int64

	// SetCounter overwrites a counter.
	SetCounter(userID string, key model.StatKey, value int64) error

	// IncrementCounter adds delta and returns the new value.
	IncrementCounter(userID string, key model.StatKey, delta int64) (int64, error)

	// --- Flags ---

	// Flag reports whether a moment flag is set.
	Flag(userID, id string) bool

	// SetFlag sets a write-once moment flag.
	SetFlag(userID, id string) error

	// --- String sets ---

	// AddSetMember adds a member; reports whether it was new.
	AddSetMember(userID string, key model.StatKey, member string) (bool, error)

	// SetMembers returns the sorted members of a set.
	SetMembers(userID string, key model.StatKey) []string

	// SetSize returns the cardinality of a set.
	SetSize(userID string, key model.StatKey) int64

	// Snapshot reads all of a user's stats at once.
	Snapshot(userID string) model.StatSnapshot

	// --- Baseline ---
	BaselineStore

	// --- Remote cache ---
	RemoteCache

	// ClearUser deletes everything in a user's namespace.
	ClearUser(userID string) error
}

// BaselineStore persists the unlocked-id baseline.
type BaselineStore interface {
	Baseline(userID string) (ids []string, ok bool, err error)
	SaveBaseline(userID string, ids []string) error
}

// RemoteCache persists the latest remote aggregate stats.
type RemoteCache interface {
	RemoteStats(userID string) model.RemoteStats
	SaveRemoteStats(userID string, r model.RemoteStats) error
}

// Compile-time check that *Store implements StatsStore.
var _ StatsStore = (*Store)(nil)
