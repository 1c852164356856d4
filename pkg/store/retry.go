// retry.go retries writes that fail because another connection holds the
// database lock.
//
// The CLI and a running `bk serve` share one WAL database. busy_timeout
// absorbs most lock waits at the connection level; a write that still comes
// back SQLITE_BUSY or SQLITE_LOCKED is retried with exponential backoff and
// jitter. Anything else is returned at once.
package store

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  25 * time.Millisecond,
	maxDelay:   400 * time.Millisecond,
}

// isLockContention reports whether err means the database was locked by
// another writer. Driver errors are classified by primary result code;
// wrapped or stringified errors fall back to the driver's message text.
func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// retryOp runs fn until it succeeds, fails for a reason other than lock
// contention, or the retry budget is spent. The last error is returned.
func retryOp(cfg retryConfig, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || !isLockContention(err) {
			return err
		}
		if attempt >= cfg.maxRetries {
			return err
		}
		time.Sleep(backoffDelay(cfg, attempt))
	}
}

// backoffDelay is min(baseDelay*2^attempt, maxDelay) plus jitter in [0, baseDelay).
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(cfg.baseDelay)))
}
