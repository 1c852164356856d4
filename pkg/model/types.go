// Package model defines the core domain types for badgekeeper.
//
// Badgekeeper tracks per-user behavioral stats and turns them into
// achievements:
//
//   - Stats are integer counters, string sets (only their cardinality
//     matters) and write-once boolean "moment" flags, all namespaced by the
//     signed-in user id.
//
//   - Definitions form a static catalog. Evaluating the catalog against a
//     StatSnapshot yields one Achievement per definition. Achievements are
//     never persisted; only the set of unlocked ids (the baseline) is, and
//     only to tell which unlocks are new.
package model

import (
	"slices"
	"time"
)

// StatKey names a counter or a string set in the stats store.
type StatKey string

const (
	StatSongsShared       StatKey = "songs_shared"
	StatPlaylistsShared   StatKey = "playlists_shared"
	StatFriendsCount      StatKey = "friends_count"
	StatMaxVibestreak     StatKey = "max_vibestreak"
	StatReactionsReceived StatKey = "reactions_received"
	StatReactionsSent     StatKey = "reactions_sent"
	StatMessagesSent      StatKey = "messages_sent"
	StatPreviewPlays      StatKey = "preview_plays"
	StatBlendsCreated     StatKey = "blends_created"
	StatSongsSaved        StatKey = "songs_saved"

	// String sets.
	StatArtistsShared   StatKey = "artists_shared"
	StatGenresShared    StatKey = "genres_shared"
	StatFriendsMessaged StatKey = "friends_messaged"
)

var (
	// CounterKeys lists every integer counter.
	CounterKeys = []StatKey{
		StatSongsShared, StatPlaylistsShared, StatFriendsCount, StatMaxVibestreak,
		StatReactionsReceived, StatReactionsSent, StatMessagesSent,
		StatPreviewPlays, StatBlendsCreated, StatSongsSaved,
	}
	// SetKeys lists every string set.
	SetKeys = []StatKey{StatArtistsShared, StatGenresShared, StatFriendsMessaged}
)

// IsCounter reports whether k names a counter.
func IsCounter(k StatKey) bool { return slices.Contains(CounterKeys, k) }

// IsSet reports whether k names a string set.
func IsSet(k StatKey) bool { return slices.Contains(SetKeys, k) }

// Category groups definitions for display.
type Category string

const (
	CategorySharing   Category = "sharing"
	CategoryPlaylists Category = "playlists"
	CategoryFriends   Category = "friends"
	CategoryStreaks   Category = "streaks"
	CategoryReactions Category = "reactions"
	CategoryChat      Category = "chat"
	CategoryListening Category = "listening"
	CategoryDiscovery Category = "discovery"
	CategoryBlends    Category = "blends"
	CategoryMoments   Category = "moments"
	CategoryMeta      Category = "meta"
)

// Definition is an immutable catalog entry.
//
// Secret hides title and description until unlocked. SuperSecret also hides
// the entry's existence from listings until unlocked; it implies Secret.
type Definition struct {
	ID                 string   `json:"id" yaml:"id"`
	Category           Category `json:"category" yaml:"category"`
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description" yaml:"description"`
	Requirement        int64    `json:"requirement" yaml:"requirement"`
	Secret             bool     `json:"secret" yaml:"secret"`
	SuperSecret        bool     `json:"super_secret" yaml:"super_secret"`
	ShowsProgressCount bool     `json:"shows_progress_count" yaml:"shows_progress_count"`
	Meta               bool     `json:"meta" yaml:"meta"`
}

// Achievement is the result of evaluating one definition.
type Achievement struct {
	ID       string `json:"id"`
	Progress int64  `json:"progress"`
	Unlocked bool   `json:"unlocked"`
}

// AchievementView joins an Achievement with its Definition for display.
type AchievementView struct {
	Definition
	Progress int64 `json:"progress"`
	Unlocked bool  `json:"unlocked"`
}

// DisplayTitle returns the title, or a placeholder while a secret is locked.
func (v AchievementView) DisplayTitle() string {
	if v.Secret && !v.Unlocked {
		return "???"
	}
	return v.Title
}

// DisplayDescription returns the description, or a hint while a secret is locked.
func (v AchievementView) DisplayDescription() string {
	if v.Secret && !v.Unlocked {
		return "Keep vibing to discover this one."
	}
	return v.Description
}

// RemoteStats are aggregate counts supplied by the backend. FetchedAt is the
// zero time when nothing has been fetched yet.
type RemoteStats struct {
	SongsShared       int64     `json:"songs_shared"`
	PlaylistsShared   int64     `json:"playlists_shared"`
	FriendsCount      int64     `json:"friends_count"`
	MaxVibestreak     int64     `json:"max_vibestreak"`
	ReactionsReceived int64     `json:"reactions_received"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// Counters returns the remote values keyed by the local stat they back.
func (r RemoteStats) Counters() map[StatKey]int64 {
	return map[StatKey]int64{
		StatSongsShared:       r.SongsShared,
		StatPlaylistsShared:   r.PlaylistsShared,
		StatFriendsCount:      r.FriendsCount,
		StatMaxVibestreak:     r.MaxVibestreak,
		StatReactionsReceived: r.ReactionsReceived,
	}
}

// Banner is one queued unlock notification.
type Banner struct {
	ID            string    `json:"id"`
	AchievementID string    `json:"achievement_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}
