package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/daviddao/badgekeeper/pkg/model"
)

func (a *app) cmdCheck(args []string) int {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	userID, ok := a.signIn(*user)
	if !ok {
		return 1
	}
	ids := a.eng.CheckUnlocks()
	if !*jsonOut && len(ids) == 0 {
		fmt.Println("no new achievements")
		return 0
	}
	a.report(*jsonOut, unlockResult{User: userID, Unlocked: ids})
	return 0
}

func (a *app) cmdRefresh(args []string) int {
	flags := flag.NewFlagSet("refresh", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	timeout := flags.Duration("timeout", 10*time.Second, "overall deadline")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if !a.remote {
		fmt.Fprintln(os.Stderr, "bk: refresh: no remote configured (set BADGEKEEPER_REMOTE_URL)")
		return 1
	}
	userID, ok := a.signIn(*user)
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	stats, ids := a.eng.Refresh(ctx)
	if *jsonOut {
		if ids == nil {
			ids = []string{}
		}
		printJSON(map[string]interface{}{"user": userID, "remote": stats, "unlocked": ids})
		return 0
	}
	if stats.FetchedAt.IsZero() {
		fmt.Printf("%s: no remote stats yet\n", userID)
	} else {
		fmt.Printf("%s: remote stats as of %s\n", userID, stats.FetchedAt.Local().Format(time.DateTime))
		byKey := stats.Counters()
		for _, k := range model.CounterKeys {
			if v, ok := byKey[k]; ok {
				fmt.Printf("  %-20s %d\n", k, v)
			}
		}
	}
	a.printUnlocks(ids)
	return 0
}
