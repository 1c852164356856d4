// Package store manages all SQLite persistence for badgekeeper.
//
// Every row is keyed by user id first. The empty user id is the inert
// namespace used while nobody is signed in: reads return zero values and
// writes fail with ErrNoUser, so nothing can ever be written under it or
// read back from it.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daviddao/badgekeeper/pkg/model"

	_ "modernc.org/sqlite"
)

// ErrNoUser is returned by writes made without a signed-in user.
var ErrNoUser = errors.New("store: no user signed in")

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention wraps retryOp from retry.go with the default config.
// All store write operations go through it.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS counters (
		user_id    TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, key)
	);

	CREATE TABLE IF NOT EXISTS flags (
		user_id TEXT NOT NULL,
		id      TEXT NOT NULL,
		set_at  TEXT NOT NULL,
		PRIMARY KEY (user_id, id)
	);

	CREATE TABLE IF NOT EXISTS set_members (
		user_id  TEXT NOT NULL,
		key      TEXT NOT NULL,
		member   TEXT NOT NULL,
		added_at TEXT NOT NULL,
		PRIMARY KEY (user_id, key, member)
	);
	CREATE INDEX IF NOT EXISTS idx_set_members_key ON set_members(user_id, key);

	CREATE TABLE IF NOT EXISTS baselines (
		user_id    TEXT PRIMARY KEY,
		ids        TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS remote_stats (
		user_id            TEXT PRIMARY KEY,
		songs_shared       INTEGER NOT NULL DEFAULT 0,
		playlists_shared   INTEGER NOT NULL DEFAULT 0,
		friends_count      INTEGER NOT NULL DEFAULT 0,
		max_vibestreak     INTEGER NOT NULL DEFAULT 0,
		reactions_received INTEGER NOT NULL DEFAULT 0,
		fetched_at         TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// ---------------------------------------------------------------------------
// Counters
// ---------------------------------------------------------------------------

// Counter returns a counter value, or 0 if unset or unreadable.
func (s *Store) Counter(userID string, key model.StatKey) int64 {
	if userID == "" {
		return 0
	}
	var v int64
	if err := s.db.QueryRow(
		`SELECT value FROM counters WHERE user_id = ? AND key = ?`, userID, string(key),
	).Scan(&v); err != nil {
		return 0
	}
	return v
}

// SetCounter overwrites a counter. Last write wins.
func (s *Store) SetCounter(userID string, key model.StatKey, value int64) error {
	if userID == "" {
		return ErrNoUser
	}
	ts := now()
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO counters (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, key) DO UPDATE SET
			   value = excluded.value,
			   updated_at = excluded.updated_at`,
			userID, string(key), value, ts,
		)
		return err
	})
}

// IncrementCounter adds delta to a counter and returns the new value.
func (s *Store) IncrementCounter(userID string, key model.StatKey, delta int64) (int64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	ts := now()
	var v int64
	err := retryOnContention(func() error {
		return s.db.QueryRow(
			`INSERT INTO counters (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, key) DO UPDATE SET
			   value = counters.value + excluded.value,
			   updated_at = excluded.updated_at
			 RETURNING value`,
			userID, string(key), delta, ts,
		).Scan(&v)
	})
	return v, err
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

// Flag reports whether a moment flag is set.
func (s *Store) Flag(userID, id string) bool {
	if userID == "" {
		return false
	}
	var one int
	if err := s.db.QueryRow(
		`SELECT 1 FROM flags WHERE user_id = ? AND id = ?`, userID, id,
	).Scan(&one); err != nil {
		return false
	}
	return true
}

// SetFlag sets a moment flag. Flags are write-once-true: setting one again
// keeps the original set_at, and only ClearUser removes it.
func (s *Store) SetFlag(userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	ts := now()
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO flags (user_id, id, set_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id, id) DO NOTHING`,
			userID, id, ts,
		)
		return err
	})
}

// ---------------------------------------------------------------------------
// String sets
// ---------------------------------------------------------------------------

// AddSetMember adds member to a string set. Reports whether it was new.
func (s *Store) AddSetMember(userID string, key model.StatKey, member string) (bool, error) {
	if userID == "" {
		return false, ErrNoUser
	}
	ts := now()
	var added bool
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`INSERT INTO set_members (user_id, key, member, added_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, key, member) DO NOTHING`,
			userID, string(key), member, ts,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		added = n > 0
		return err
	})
	return added, err
}

// SetMembers returns the members of a string set, sorted.
func (s *Store) SetMembers(userID string, key model.StatKey) []string {
	if userID == "" {
		return nil
	}
	rows, err := s.db.Query(
		`SELECT member FROM set_members WHERE user_id = ? AND key = ? ORDER BY member`,
		userID, string(key),
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil
		}
		members = append(members, m)
	}
	if rows.Err() != nil {
		return nil
	}
	return members
}

// SetSize returns the cardinality of a string set.
func (s *Store) SetSize(userID string, key model.StatKey) int64 {
	if userID == "" {
		return 0
	}
	var n int64
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM set_members WHERE user_id = ? AND key = ?`, userID, string(key),
	).Scan(&n); err != nil {
		return 0
	}
	return n
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// Snapshot reads every counter, set size and flag for a user. Individual
// read failures leave the affected values at zero.
func (s *Store) Snapshot(userID string) model.StatSnapshot {
	if userID == "" {
		return model.StatSnapshot{}
	}
	counters := make(map[model.StatKey]int64)
	if rows, err := s.db.Query(`SELECT key, value FROM counters WHERE user_id = ?`, userID); err == nil {
		for rows.Next() {
			var k string
			var v int64
			if rows.Scan(&k, &v) == nil {
				counters[model.StatKey(k)] = v
			}
		}
		rows.Close()
	}

	sets := make(map[model.StatKey]int64)
	if rows, err := s.db.Query(
		`SELECT key, COUNT(*) FROM set_members WHERE user_id = ? GROUP BY key`, userID,
	); err == nil {
		for rows.Next() {
			var k string
			var n int64
			if rows.Scan(&k, &n) == nil {
				sets[model.StatKey(k)] = n
			}
		}
		rows.Close()
	}

	flags := make(map[string]bool)
	if rows, err := s.db.Query(`SELECT id FROM flags WHERE user_id = ?`, userID); err == nil {
		for rows.Next() {
			var id string
			if rows.Scan(&id) == nil {
				flags[id] = true
			}
		}
		rows.Close()
	}

	return model.NewStatSnapshot(counters, sets, flags)
}

// ---------------------------------------------------------------------------
// Baseline
// ---------------------------------------------------------------------------

// Baseline returns the unlocked-id set recorded by the last evaluation.
// ok is false when no baseline has ever been saved for the user.
func (s *Store) Baseline(userID string) (ids []string, ok bool, err error) {
	if userID == "" {
		return nil, false, nil
	}
	var raw string
	err = s.db.QueryRow(`SELECT ids FROM baselines WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read baseline for %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, false, fmt.Errorf("decode baseline for %s: %w", userID, err)
	}
	return ids, true, nil
}

// SaveBaseline replaces the user's baseline. It never merges with the
// previous value.
func (s *Store) SaveBaseline(userID string, ids []string) error {
	if userID == "" {
		return ErrNoUser
	}
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	ts := now()
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO baselines (user_id, ids, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   ids = excluded.ids,
			   updated_at = excluded.updated_at`,
			userID, string(raw), ts,
		)
		return err
	})
}

// ---------------------------------------------------------------------------
// Remote stats cache
// ---------------------------------------------------------------------------

// RemoteStats returns the cached remote aggregates, or the zero value.
func (s *Store) RemoteStats(userID string) model.RemoteStats {
	var r model.RemoteStats
	if userID == "" {
		return r
	}
	var fetched string
	if err := s.db.QueryRow(
		`SELECT songs_shared, playlists_shared, friends_count, max_vibestreak,
		        reactions_received, fetched_at
		 FROM remote_stats WHERE user_id = ?`, userID,
	).Scan(&r.SongsShared, &r.PlaylistsShared, &r.FriendsCount, &r.MaxVibestreak,
		&r.ReactionsReceived, &fetched); err != nil {
		return model.RemoteStats{}
	}
	if t, err := time.Parse(time.RFC3339Nano, fetched); err == nil {
		r.FetchedAt = t
	}
	return r
}

// SaveRemoteStats replaces the cached remote aggregates.
func (s *Store) SaveRemoteStats(userID string, r model.RemoteStats) error {
	if userID == "" {
		return ErrNoUser
	}
	fetched := r.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO remote_stats (user_id, songs_shared, playlists_shared, friends_count,
			                           max_vibestreak, reactions_received, fetched_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   songs_shared = excluded.songs_shared,
			   playlists_shared = excluded.playlists_shared,
			   friends_count = excluded.friends_count,
			   max_vibestreak = excluded.max_vibestreak,
			   reactions_received = excluded.reactions_received,
			   fetched_at = excluded.fetched_at`,
			userID, r.SongsShared, r.PlaylistsShared, r.FriendsCount,
			r.MaxVibestreak, r.ReactionsReceived, fetched.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// ---------------------------------------------------------------------------
// Teardown
// ---------------------------------------------------------------------------

// ClearUser deletes every row in the user's namespace in one transaction.
// Other users are untouched.
func (s *Store) ClearUser(userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	return retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		for _, table := range []string{"counters", "flags", "set_members", "baselines", "remote_stats"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return tx.Commit()
	})
}

// Users returns every user id with at least one stored counter, flag or set
// member, ordered by id.
func (s *Store) Users() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT user_id FROM counters
		 UNION SELECT user_id FROM flags
		 UNION SELECT user_id FROM set_members
		 ORDER BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
