// Package unlock detects which achievements became unlocked since the last
// evaluation.
//
// A user with no stored baseline is uninitialized: the first diff records
// everything currently unlocked and reports nothing, so a reinstall does not
// replay every historic unlock. After that each diff reports current minus
// baseline and then replaces the baseline with current. The baseline is
// overwritten, not merged: an achievement whose stat drops below threshold
// leaves the baseline and fires again when it re-crosses.
package unlock

import (
	"io"
	"log"

	"github.com/daviddao/badgekeeper/pkg/achievement"
	"github.com/daviddao/badgekeeper/pkg/model"
	"github.com/daviddao/badgekeeper/pkg/store"
)

// State is the detector state for one user.
type State int

const (
	Uninitialized State = iota
	Initialized
)

func (s State) String() string {
	if s == Initialized {
		return "initialized"
	}
	return "uninitialized"
}

// Detector diffs evaluations against a persisted baseline.
type Detector struct {
	baselines store.BaselineStore
	logger    *log.Logger
}

// NewDetector returns a detector persisting through baselines. A nil logger
// discards output.
func NewDetector(baselines store.BaselineStore, logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Detector{baselines: baselines, logger: logger}
}

// State reports whether userID has a baseline. Read errors count as
// Uninitialized.
func (d *Detector) State(userID string) State {
	if _, ok, err := d.baselines.Baseline(userID); err == nil && ok {
		return Initialized
	}
	return Uninitialized
}

// Diff returns the ids unlocked in achievements but absent from the
// baseline, in the order achievements lists them, and saves the new
// baseline. The first call for a user returns nil.
//
// A baseline that cannot be read is treated as absent. A baseline that
// cannot be saved is logged and the diff is still returned, so a banner is
// never lost to a storage error.
func (d *Detector) Diff(userID string, achievements []model.Achievement) []string {
	if userID == "" {
		return nil
	}
	current := achievement.UnlockedIDs(achievements)

	previous, ok, err := d.baselines.Baseline(userID)
	if err != nil {
		d.logger.Printf("unlock: read baseline for %s: %v (treating as first run)", userID, err)
		ok = false
	}

	var fresh []string
	if ok {
		known := make(map[string]bool, len(previous))
		for _, id := range previous {
			known[id] = true
		}
		for _, id := range current {
			if !known[id] {
				fresh = append(fresh, id)
			}
		}
	} else {
		d.logger.Printf("unlock: establishing baseline for %s with %d unlocked", userID, len(current))
	}

	if err := d.baselines.SaveBaseline(userID, current); err != nil {
		d.logger.Printf("unlock: save baseline for %s: %v", userID, err)
	}
	return fresh
}
