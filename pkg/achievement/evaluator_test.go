package achievement

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/badgekeeper/pkg/catalog"
	"github.com/daviddao/badgekeeper/pkg/model"
)

func byID(as []model.Achievement) map[string]model.Achievement {
	m := make(map[string]model.Achievement, len(as))
	for _, a := range as {
		m[a.ID] = a
	}
	return m
}

// maxedSnapshot satisfies every counter and set entry in the catalog, and
// sets the flags listed.
func maxedSnapshot(cat *catalog.Catalog, flags ...string) model.StatSnapshot {
	counters := map[model.StatKey]int64{}
	sets := map[model.StatKey]int64{}
	for _, e := range cat.Entries() {
		switch e.Source.Kind {
		case catalog.SourceCounter:
			if e.Requirement > counters[e.Source.Stat] {
				counters[e.Source.Stat] = e.Requirement
			}
		case catalog.SourceSetSize:
			if e.Requirement > sets[e.Source.Stat] {
				sets[e.Source.Stat] = e.Requirement
			}
		}
	}
	f := map[string]bool{}
	for _, id := range flags {
		f[id] = true
	}
	return model.NewStatSnapshot(counters, sets, f)
}

func TestEvaluate_CoversCatalogInOrder(t *testing.T) {
	cat := catalog.Default()
	got := NewEvaluator(cat).Evaluate(model.StatSnapshot{})
	require.Len(t, got, cat.Len())
	for i, d := range cat.Definitions() {
		assert.Equal(t, d.ID, got[i].ID)
		assert.False(t, got[i].Unlocked, d.ID)
		assert.Zero(t, got[i].Progress, d.ID)
	}
}

func TestEvaluate_FirstShare(t *testing.T) {
	ev := NewEvaluator(catalog.Default())
	got := byID(ev.Evaluate(model.NewStatSnapshot(map[model.StatKey]int64{model.StatSongsShared: 1}, nil, nil)))
	assert.True(t, got["first_share"].Unlocked)
	assert.EqualValues(t, 1, got["first_share"].Progress)
	assert.False(t, got["share_5"].Unlocked)
	assert.EqualValues(t, 1, got["share_5"].Progress)
}

func TestEvaluate_ThresholdInclusive(t *testing.T) {
	ev := NewEvaluator(catalog.Default())
	tests := []struct {
		shared int64
		want   bool
	}{{9, false}, {10, true}, {11, true}}
	for _, tt := range tests {
		got := byID(ev.Evaluate(model.NewStatSnapshot(map[model.StatKey]int64{model.StatSongsShared: tt.shared}, nil, nil)))
		assert.Equal(t, tt.want, got["share_10"].Unlocked, "songs_shared=%d", tt.shared)
	}
}

func TestEvaluate_ProgressNotClampedToRequirement(t *testing.T) {
	ev := NewEvaluator(catalog.Default())
	got := byID(ev.Evaluate(model.NewStatSnapshot(map[model.StatKey]int64{model.StatSongsShared: 1234}, nil, nil)))
	assert.EqualValues(t, 1234, got["share_1000"].Progress)
	assert.EqualValues(t, 1234, got["first_share"].Progress)
}

func TestEvaluate_NegativeCounterClamped(t *testing.T) {
	ev := NewEvaluator(catalog.Default())
	got := byID(ev.Evaluate(model.NewStatSnapshot(map[model.StatKey]int64{model.StatFriendsCount: -3}, nil, nil)))
	assert.Zero(t, got["first_friend"].Progress)
	assert.False(t, got["first_friend"].Unlocked)
}

func TestEvaluate_SetSizeAndFlags(t *testing.T) {
	ev := NewEvaluator(catalog.Default())
	snap := model.NewStatSnapshot(nil,
		map[model.StatKey]int64{model.StatGenresShared: 3},
		map[string]bool{"night_owl": true})
	got := byID(ev.Evaluate(snap))
	assert.True(t, got["genres_3"].Unlocked)
	assert.EqualValues(t, 1, got["night_owl"].Progress)
	assert.True(t, got["night_owl"].Unlocked)
	assert.Zero(t, got["early_bird"].Progress)
}

func TestEvaluate_UnlockedIffProgressMeetsRequirement(t *testing.T) {
	cat := catalog.Default()
	ev := NewEvaluator(cat)
	keys := []model.StatKey{
		model.StatSongsShared, model.StatPlaylistsShared, model.StatFriendsCount,
		model.StatMaxVibestreak, model.StatReactionsReceived, model.StatReactionsSent,
		model.StatMessagesSent, model.StatPreviewPlays, model.StatBlendsCreated, model.StatSongsSaved,
	}
	setKeys := []model.StatKey{model.StatArtistsShared, model.StatGenresShared, model.StatFriendsMessaged}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		counters := map[model.StatKey]int64{}
		for _, k := range keys {
			counters[k] = rng.Int63n(1200) - 50
		}
		sets := map[model.StatKey]int64{}
		for _, k := range setKeys {
			sets[k] = rng.Int63n(300)
		}
		flags := map[string]bool{}
		for _, e := range cat.Entries() {
			if e.Source.Kind == catalog.SourceFlag && rng.Intn(2) == 0 {
				flags[e.ID] = true
			}
		}
		got := ev.Evaluate(model.NewStatSnapshot(counters, sets, flags))
		for i, e := range cat.Entries() {
			a := got[i]
			assert.GreaterOrEqual(t, a.Progress, int64(0), e.ID)
			if !e.Meta {
				assert.Equal(t, a.Progress >= e.Requirement, a.Unlocked, "%s progress=%d req=%d", e.ID, a.Progress, e.Requirement)
			}
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	ev := NewEvaluator(catalog.Default())
	snap := maxedSnapshot(catalog.Default(), "night_owl", "echo")
	assert.Equal(t, ev.Evaluate(snap), ev.Evaluate(snap))
}

func TestEvaluate_CompletionistSamePass(t *testing.T) {
	cat := catalog.Default()
	got := byID(NewEvaluator(cat).Evaluate(maxedSnapshot(cat)))

	assert.Equal(t, cat.TotalNonSecret(), got["completionist"].Progress)
	assert.True(t, got["completionist"].Unlocked)
	assert.True(t, got["collector"].Unlocked)
	assert.False(t, got["secret_keeper"].Unlocked)
}

func TestEvaluate_CompletionistOneShort(t *testing.T) {
	cat := catalog.Default()
	// Everything maxed except the top friends tier.
	snap := model.NewStatSnapshot(map[model.StatKey]int64{
		model.StatSongsShared: 1000, model.StatPlaylistsShared: 50, model.StatFriendsCount: 49,
		model.StatMaxVibestreak: 365, model.StatReactionsReceived: 500, model.StatReactionsSent: 500,
		model.StatMessagesSent: 1000, model.StatPreviewPlays: 1000, model.StatBlendsCreated: 25,
		model.StatSongsSaved: 100,
	}, map[model.StatKey]int64{
		model.StatArtistsShared: 250, model.StatGenresShared: 20, model.StatFriendsMessaged: 25,
	}, nil)
	got := byID(NewEvaluator(cat).Evaluate(snap))
	assert.Equal(t, cat.TotalNonSecret()-1, got["completionist"].Progress)
	assert.False(t, got["completionist"].Unlocked)
	assert.True(t, got["collector"].Unlocked)
}

func TestEvaluate_CollectorBoundary(t *testing.T) {
	cat := catalog.Default()
	ev := NewEvaluator(cat)

	// Build snapshots that unlock exactly n non-secret entries by walking
	// the catalog and raising one stat at a time.
	unlockN := func(n int) model.StatSnapshot {
		counters := map[model.StatKey]int64{}
		sets := map[model.StatKey]int64{}
		count := 0
		for _, e := range cat.Entries() {
			if count == n {
				break
			}
			switch e.Source.Kind {
			case catalog.SourceCounter:
				counters[e.Source.Stat] = e.Requirement
				count++
			case catalog.SourceSetSize:
				sets[e.Source.Stat] = e.Requirement
				count++
			}
		}
		return model.NewStatSnapshot(counters, sets, nil)
	}

	got := byID(ev.Evaluate(unlockN(catalog.CollectorRequirement - 1)))
	assert.EqualValues(t, catalog.CollectorRequirement-1, got["collector"].Progress)
	assert.False(t, got["collector"].Unlocked)

	got = byID(ev.Evaluate(unlockN(catalog.CollectorRequirement)))
	assert.True(t, got["collector"].Unlocked)
}

func TestEvaluate_SecretKeeper(t *testing.T) {
	cat := catalog.Default()
	var flags []string
	for _, e := range cat.Entries() {
		if e.Source.Kind == catalog.SourceFlag {
			flags = append(flags, e.ID)
		}
	}
	ev := NewEvaluator(cat)

	got := byID(ev.Evaluate(maxedSnapshot(cat, flags[1:]...)))
	assert.False(t, got["secret_keeper"].Unlocked)
	assert.Equal(t, cat.TotalSecretExcludingKeeper()-1, got["secret_keeper"].Progress)

	got = byID(ev.Evaluate(maxedSnapshot(cat, flags...)))
	assert.True(t, got["secret_keeper"].Unlocked)
	// Secrets never count toward Completionist.
	assert.Equal(t, cat.TotalNonSecret(), got["completionist"].Progress)
}

func TestEvaluate_UnmappedEntryDefaultsToLocked(t *testing.T) {
	cat, err := catalog.New([]catalog.Entry{
		{Definition: model.Definition{ID: "orphan", Requirement: 1}},
		{Definition: model.Definition{ID: "real", Requirement: 1},
			Source: catalog.Source{Kind: catalog.SourceCounter, Stat: model.StatSongsShared}},
	})
	require.NoError(t, err)
	got := NewEvaluator(cat).Evaluate(model.NewStatSnapshot(map[model.StatKey]int64{model.StatSongsShared: 5}, nil, nil))
	assert.Equal(t, model.Achievement{ID: "orphan"}, got[0])
	assert.True(t, got[1].Unlocked)
}

func TestUnlockedIDs_PreservesOrder(t *testing.T) {
	ids := UnlockedIDs([]model.Achievement{
		{ID: "b", Unlocked: true}, {ID: "a"}, {ID: "c", Unlocked: true},
	})
	assert.Equal(t, []string{"b", "c"}, ids)
}

func TestViewsAndVisible(t *testing.T) {
	cat := catalog.Default()
	ev := NewEvaluator(cat)
	views := ev.Views(ev.Evaluate(model.NewStatSnapshot(nil, nil, map[string]bool{"echo": true})))
	require.Len(t, views, cat.Len())

	visible := Visible(views)
	ids := map[string]bool{}
	for _, v := range visible {
		ids[v.ID] = true
	}
	assert.True(t, ids["echo"], "unlocked super-secret is listed")
	assert.False(t, ids["soulmate_blend"], "locked super-secret is hidden")
	assert.True(t, ids["night_owl"], "locked plain secret is listed")
	assert.Equal(t, cat.Len()-3, len(visible))
}
