package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/daviddao/badgekeeper/pkg/catalog"
	"github.com/daviddao/badgekeeper/pkg/model"
)

// userStatus is the JSON shape of 'bk status'.
type userStatus struct {
	User     string            `json:"user"`
	Counters map[string]int64  `json:"counters"`
	Sets     map[string]int64  `json:"sets"`
	Moments  []string          `json:"moments"`
	Unlocked int               `json:"unlocked"`
	Total    int               `json:"total"`
	Baseline bool              `json:"baseline"`
	Remote   model.RemoteStats `json:"remote"`
	Banner   string            `json:"banner_state"`
}

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	userID, err := a.resolveUser(*user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: %v\n", err)
		return 1
	}
	a.eng.SetCurrentUser(userID)

	st := a.collectStatus(userID)
	if *jsonOut {
		printJSON(st)
		return 0
	}

	fmt.Printf("user: %s\n", st.User)
	fmt.Printf("achievements: %d/%d unlocked\n", st.Unlocked, st.Total)
	if !st.Baseline {
		fmt.Println("baseline: none yet (next check records one)")
	}
	fmt.Println("counters:")
	for _, k := range model.CounterKeys {
		fmt.Printf("  %-20s %d\n", k, st.Counters[string(k)])
	}
	fmt.Println("sets:")
	for _, k := range model.SetKeys {
		fmt.Printf("  %-20s %d\n", k, st.Sets[string(k)])
	}
	if len(st.Moments) > 0 {
		fmt.Printf("moments: %v\n", st.Moments)
	}
	if st.Remote.FetchedAt.IsZero() {
		fmt.Println("remote: never fetched")
	} else {
		fmt.Printf("remote: fetched %s ago\n", time.Since(st.Remote.FetchedAt).Round(time.Second))
	}
	return 0
}

func (a *app) collectStatus(userID string) userStatus {
	st := userStatus{
		User:     userID,
		Counters: make(map[string]int64),
		Sets:     make(map[string]int64),
		Moments:  []string{},
		Remote:   a.store.RemoteStats(userID),
		Banner:   a.queue.State().String(),
	}
	for _, k := range model.CounterKeys {
		st.Counters[string(k)] = a.store.Counter(userID, k)
	}
	for _, k := range model.SetKeys {
		st.Sets[string(k)] = a.store.SetSize(userID, k)
	}
	cat := a.eng.Catalog()
	for _, en := range cat.Entries() {
		if en.Source.Kind == catalog.SourceFlag && a.store.Flag(userID, en.ID) {
			st.Moments = append(st.Moments, en.ID)
		}
	}
	views := a.eng.BuildAchievements()
	st.Total = len(views)
	for _, v := range views {
		if v.Unlocked {
			st.Unlocked++
		}
	}
	_, st.Baseline, _ = a.store.Baseline(userID)
	return st
}
