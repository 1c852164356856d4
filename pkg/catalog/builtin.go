package catalog

import "github.com/daviddao/badgekeeper/pkg/model"

// CollectorRequirement is how many non-secret achievements Collector needs.
const CollectorRequirement = 50

func counter(id string, cat model.Category, title, desc string, stat model.StatKey, req int64) Entry {
	return Entry{
		Definition: model.Definition{
			ID: id, Category: cat, Title: title, Description: desc,
			Requirement: req, ShowsProgressCount: req > 1,
		},
		Source: Source{Kind: SourceCounter, Stat: stat},
	}
}

func set(id string, cat model.Category, title, desc string, stat model.StatKey, req int64) Entry {
	e := counter(id, cat, title, desc, stat, req)
	e.Source.Kind = SourceSetSize
	return e
}

func moment(id, title, desc string) Entry {
	return Entry{
		Definition: model.Definition{
			ID: id, Category: model.CategoryMoments, Title: title, Description: desc,
			Requirement: 1, Secret: true,
		},
		Source: Source{Kind: SourceFlag},
	}
}

func hiddenMoment(id, title, desc string) Entry {
	e := moment(id, title, desc)
	e.SuperSecret = true
	return e
}

func meta(id, title, desc string, rule MetaRule, req int64, secret bool) Entry {
	return Entry{
		Definition: model.Definition{
			ID: id, Category: model.CategoryMeta, Title: title, Description: desc,
			Requirement: req, Secret: secret, ShowsProgressCount: true, Meta: true,
		},
		Source: Source{Kind: SourceMeta, Meta: rule},
	}
}

// builtin is the shipped catalog, in display order.
var builtin = []Entry{
	// Sharing
	counter("first_share", model.CategorySharing, "First Drop", "Share your first song.", model.StatSongsShared, 1),
	counter("share_5", model.CategorySharing, "Warming Up", "Share 5 songs.", model.StatSongsShared, 5),
	counter("share_10", model.CategorySharing, "On Rotation", "Share 10 songs.", model.StatSongsShared, 10),
	counter("share_25", model.CategorySharing, "Tastemaker", "Share 25 songs.", model.StatSongsShared, 25),
	counter("share_50", model.CategorySharing, "Selector", "Share 50 songs.", model.StatSongsShared, 50),
	counter("share_100", model.CategorySharing, "Resident DJ", "Share 100 songs.", model.StatSongsShared, 100),
	counter("share_250", model.CategorySharing, "Broadcaster", "Share 250 songs.", model.StatSongsShared, 250),
	counter("share_500", model.CategorySharing, "Pirate Radio", "Share 500 songs.", model.StatSongsShared, 500),
	counter("share_1000", model.CategorySharing, "Hall of Sound", "Share 1000 songs.", model.StatSongsShared, 1000),

	// Playlists
	counter("first_playlist", model.CategoryPlaylists, "Mixtape", "Share your first playlist.", model.StatPlaylistsShared, 1),
	counter("playlist_5", model.CategoryPlaylists, "Curator", "Share 5 playlists.", model.StatPlaylistsShared, 5),
	counter("playlist_10", model.CategoryPlaylists, "Archivist", "Share 10 playlists.", model.StatPlaylistsShared, 10),
	counter("playlist_25", model.CategoryPlaylists, "Librarian", "Share 25 playlists.", model.StatPlaylistsShared, 25),
	counter("playlist_50", model.CategoryPlaylists, "Record Store", "Share 50 playlists.", model.StatPlaylistsShared, 50),

	// Friends
	counter("first_friend", model.CategoryFriends, "Duet", "Add your first friend.", model.StatFriendsCount, 1),
	counter("friends_5", model.CategoryFriends, "Band Practice", "Have 5 friends.", model.StatFriendsCount, 5),
	counter("friends_10", model.CategoryFriends, "Listening Party", "Have 10 friends.", model.StatFriendsCount, 10),
	counter("friends_25", model.CategoryFriends, "House Show", "Have 25 friends.", model.StatFriendsCount, 25),
	counter("friends_50", model.CategoryFriends, "Festival Crowd", "Have 50 friends.", model.StatFriendsCount, 50),

	// Streaks
	counter("streak_3", model.CategoryStreaks, "Three-Peat", "Reach a 3-day vibestreak.", model.StatMaxVibestreak, 3),
	counter("streak_7", model.CategoryStreaks, "Week on Repeat", "Reach a 7-day vibestreak.", model.StatMaxVibestreak, 7),
	counter("streak_14", model.CategoryStreaks, "Fortnight Flow", "Reach a 14-day vibestreak.", model.StatMaxVibestreak, 14),
	counter("streak_30", model.CategoryStreaks, "Monthly Rhythm", "Reach a 30-day vibestreak.", model.StatMaxVibestreak, 30),
	counter("streak_60", model.CategoryStreaks, "Steady Tempo", "Reach a 60-day vibestreak.", model.StatMaxVibestreak, 60),
	counter("streak_100", model.CategoryStreaks, "Triple Digits", "Reach a 100-day vibestreak.", model.StatMaxVibestreak, 100),
	counter("streak_365", model.CategoryStreaks, "Year-Long Loop", "Reach a 365-day vibestreak.", model.StatMaxVibestreak, 365),

	// Reactions received
	counter("first_reaction_received", model.CategoryReactions, "Heard", "Receive your first reaction.", model.StatReactionsReceived, 1),
	counter("reactions_received_10", model.CategoryReactions, "Crowd Pleaser", "Receive 10 reactions.", model.StatReactionsReceived, 10),
	counter("reactions_received_50", model.CategoryReactions, "Encore", "Receive 50 reactions.", model.StatReactionsReceived, 50),
	counter("reactions_received_100", model.CategoryReactions, "Standing Ovation", "Receive 100 reactions.", model.StatReactionsReceived, 100),
	counter("reactions_received_500", model.CategoryReactions, "Headliner", "Receive 500 reactions.", model.StatReactionsReceived, 500),

	// Reactions sent
	counter("first_reaction_sent", model.CategoryReactions, "Nod Along", "React to a friend's song.", model.StatReactionsSent, 1),
	counter("reactions_sent_25", model.CategoryReactions, "Hype Person", "Send 25 reactions.", model.StatReactionsSent, 25),
	counter("reactions_sent_100", model.CategoryReactions, "Front Row", "Send 100 reactions.", model.StatReactionsSent, 100),
	counter("reactions_sent_500", model.CategoryReactions, "Mosh Pit", "Send 500 reactions.", model.StatReactionsSent, 500),

	// Chat
	counter("first_message", model.CategoryChat, "Liner Notes", "Send your first message.", model.StatMessagesSent, 1),
	counter("messages_50", model.CategoryChat, "Call and Response", "Send 50 messages.", model.StatMessagesSent, 50),
	counter("messages_100", model.CategoryChat, "Backstage Talk", "Send 100 messages.", model.StatMessagesSent, 100),
	counter("messages_500", model.CategoryChat, "Green Room", "Send 500 messages.", model.StatMessagesSent, 500),
	counter("messages_1000", model.CategoryChat, "Talk Show", "Send 1000 messages.", model.StatMessagesSent, 1000),
	set("chatted_3", model.CategoryChat, "Small Circle", "Message 3 different friends.", model.StatFriendsMessaged, 3),
	set("chatted_10", model.CategoryChat, "Social Butterfly", "Message 10 different friends.", model.StatFriendsMessaged, 10),
	set("chatted_25", model.CategoryChat, "Switchboard", "Message 25 different friends.", model.StatFriendsMessaged, 25),

	// Listening
	counter("first_preview", model.CategoryListening, "Sound Check", "Play your first preview.", model.StatPreviewPlays, 1),
	counter("previews_50", model.CategoryListening, "Crate Digger", "Play 50 previews.", model.StatPreviewPlays, 50),
	counter("previews_250", model.CategoryListening, "Deep Listener", "Play 250 previews.", model.StatPreviewPlays, 250),
	counter("previews_1000", model.CategoryListening, "Golden Ears", "Play 1000 previews.", model.StatPreviewPlays, 1000),
	counter("saved_10", model.CategoryListening, "Keeper", "Save 10 songs from friends.", model.StatSongsSaved, 10),
	counter("saved_100", model.CategoryListening, "Collector's Shelf", "Save 100 songs from friends.", model.StatSongsSaved, 100),

	// Discovery
	set("artists_10", model.CategoryDiscovery, "Eclectic", "Share songs by 10 different artists.", model.StatArtistsShared, 10),
	set("artists_50", model.CategoryDiscovery, "Wide Range", "Share songs by 50 different artists.", model.StatArtistsShared, 50),
	set("artists_100", model.CategoryDiscovery, "Encyclopedia", "Share songs by 100 different artists.", model.StatArtistsShared, 100),
	set("artists_250", model.CategoryDiscovery, "Walking Discography", "Share songs by 250 different artists.", model.StatArtistsShared, 250),
	set("genres_3", model.CategoryDiscovery, "Crossover", "Share songs from 3 genres.", model.StatGenresShared, 3),
	set("genres_10", model.CategoryDiscovery, "Genre Fluid", "Share songs from 10 genres.", model.StatGenresShared, 10),
	set("genres_20", model.CategoryDiscovery, "No Labels", "Share songs from 20 genres.", model.StatGenresShared, 20),

	// Blends
	counter("first_blend", model.CategoryBlends, "Harmony", "Create your first blend.", model.StatBlendsCreated, 1),
	counter("blends_10", model.CategoryBlends, "Mashup Artist", "Create 10 blends.", model.StatBlendsCreated, 10),
	counter("blends_25", model.CategoryBlends, "Studio Regular", "Create 25 blends.", model.StatBlendsCreated, 25),

	// Moments (secret, flag-backed)
	moment("night_owl", "Night Owl", "Share a song at midnight."),
	moment("early_bird", "Early Bird", "Share a song before 6am."),
	moment("same_wavelength", "Same Wavelength", "Share the same song as a friend within 24 hours."),
	moment("perfect_blend", "Perfect Blend", "Create a blend that is 90% or more compatible."),
	moment("opposites_attract", "Opposites Attract", "Create a blend under 10% compatible."),
	moment("weekend_warrior", "Weekend Warrior", "Share a song every day of a weekend."),
	moment("new_year_drop", "Countdown", "Share a song in the first minute of the new year."),
	moment("throwback", "Throwback", "Share a song released over 30 years ago."),
	moment("deep_cut", "Deep Cut", "Share a song with almost no plays."),
	moment("speed_reactor", "Quick Draw", "React to a friend's song within a minute of it landing."),
	moment("marathon", "Marathon", "Play 10 previews in a row without stopping."),
	moment("genre_hopper", "Genre Hopper", "Share 5 different genres in one day."),
	moment("chain_reaction", "Chain Reaction", "Get 5 reactions on one share within an hour."),
	hiddenMoment("soulmate_blend", "Soulmates", "Create a 100% compatible blend."),
	hiddenMoment("echo", "Echo", "Have a friend reshare a song you shared."),
	hiddenMoment("full_circle", "Full Circle", "Share back the first song a friend ever sent you."),
	hiddenMoment("anniversary", "Anniversary", "Share a song exactly one year after your first."),

	// Meta
	meta("collector", "Collector", "Unlock 50 achievements.", MetaCollector, CollectorRequirement, false),
	meta("completionist", "Completionist", "Unlock every non-secret achievement.", MetaCompletionist, 1, false),
	meta("secret_keeper", "Secret Keeper", "Unlock every secret achievement.", MetaSecretKeeper, 1, true),
}

var defaultCatalog = MustNew(builtin)

// Default returns the shipped catalog.
func Default() *Catalog { return defaultCatalog }
