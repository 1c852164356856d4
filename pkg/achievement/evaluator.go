// Package achievement evaluates the catalog against a stat snapshot.
//
// Evaluation runs in three passes so meta achievements see final counts:
//
//  1. non-secret, non-meta entries; count how many are unlocked
//  2. secret, non-meta entries (moment flags); count how many are unlocked
//  3. meta entries, using the two counts
//
// Metas only ever count non-meta entries, so one pass of each is enough and
// Completionist unlocks in the same evaluation that completes the set.
package achievement

import (
	"github.com/daviddao/badgekeeper/pkg/catalog"
	"github.com/daviddao/badgekeeper/pkg/model"
)

// Evaluator is a pure function of (snapshot, catalog). Safe for concurrent use.
type Evaluator struct {
	cat *catalog.Catalog
}

// NewEvaluator returns an evaluator for cat.
func NewEvaluator(cat *catalog.Catalog) *Evaluator {
	return &Evaluator{cat: cat}
}

// Catalog returns the catalog being evaluated.
func (e *Evaluator) Catalog() *catalog.Catalog { return e.cat }

// Evaluate returns one Achievement per definition, in catalog order.
func (e *Evaluator) Evaluate(snap model.StatSnapshot) []model.Achievement {
	entries := e.cat.Entries()
	out := make([]model.Achievement, len(entries))

	var nonMetaUnlocked int64
	for i, en := range entries {
		if en.Meta || en.Secret {
			continue
		}
		out[i] = evaluateStat(en, snap)
		if out[i].Unlocked {
			nonMetaUnlocked++
		}
	}

	var secretUnlocked int64
	for i, en := range entries {
		if en.Meta || !en.Secret {
			continue
		}
		out[i] = evaluateStat(en, snap)
		if out[i].Unlocked {
			secretUnlocked++
		}
	}

	for i, en := range entries {
		if !en.Meta {
			continue
		}
		var progress int64
		switch en.Source.Meta {
		case catalog.MetaCollector, catalog.MetaCompletionist:
			progress = nonMetaUnlocked
		case catalog.MetaSecretKeeper:
			progress = secretUnlocked
		default:
			out[i] = model.Achievement{ID: en.ID}
			continue
		}
		out[i] = model.Achievement{ID: en.ID, Progress: progress, Unlocked: progress >= en.Requirement}
	}
	return out
}

// evaluateStat reads a non-meta entry's progress from the snapshot.
// Unmapped entries stay locked at zero.
func evaluateStat(en catalog.Entry, snap model.StatSnapshot) model.Achievement {
	var progress int64
	switch en.Source.Kind {
	case catalog.SourceCounter:
		progress = snap.Counter(en.Source.Stat)
	case catalog.SourceSetSize:
		progress = snap.SetSize(en.Source.Stat)
	case catalog.SourceFlag:
		if snap.Flag(en.ID) {
			progress = 1
		}
	default:
		return model.Achievement{ID: en.ID}
	}
	if progress < 0 {
		progress = 0
	}
	return model.Achievement{ID: en.ID, Progress: progress, Unlocked: progress >= en.Requirement}
}

// UnlockedIDs returns the ids of unlocked achievements, preserving order.
func UnlockedIDs(achievements []model.Achievement) []string {
	var ids []string
	for _, a := range achievements {
		if a.Unlocked {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Views joins achievements with their definitions. Achievements whose id is
// not in the catalog are skipped.
func (e *Evaluator) Views(achievements []model.Achievement) []model.AchievementView {
	views := make([]model.AchievementView, 0, len(achievements))
	for _, a := range achievements {
		def, ok := e.cat.Definition(a.ID)
		if !ok {
			continue
		}
		views = append(views, model.AchievementView{Definition: def, Progress: a.Progress, Unlocked: a.Unlocked})
	}
	return views
}

// Visible drops super-secret entries that are still locked. Listings call
// this; Evaluate never does.
func Visible(views []model.AchievementView) []model.AchievementView {
	out := make([]model.AchievementView, 0, len(views))
	for _, v := range views {
		if v.SuperSecret && !v.Unlocked {
			continue
		}
		out = append(out, v)
	}
	return out
}
