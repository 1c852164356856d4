package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdUser(args []string) int {
	flags := flag.NewFlagSet("user", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	// Best-effort resolution; listing works without one.
	userID, _ := a.resolveUser(*user)
	users, err := a.store.Users()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: user: %v\n", err)
		return 1
	}

	if *jsonOut {
		if users == nil {
			users = []string{}
		}
		printJSON(map[string]interface{}{"current": userID, "known": users})
		return 0
	}
	if userID == "" {
		fmt.Println("current: (none) - pass --user or set BADGEKEEPER_USER")
	} else {
		fmt.Printf("current: %s\n", userID)
	}
	if len(users) == 0 {
		fmt.Println("known users: none")
		return 0
	}
	fmt.Println("known users:")
	for _, u := range users {
		marker := ""
		if u == userID {
			marker = " <-- you"
		}
		fmt.Printf("  %s%s\n", u, marker)
	}
	return 0
}

func (a *app) cmdClear(args []string) int {
	flags := flag.NewFlagSet("clear", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	yes := flags.Bool("yes", false, "confirm deletion")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	userID, err := a.resolveUser(*user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: %v\n", err)
		return 1
	}
	if !*yes {
		fmt.Fprintf(os.Stderr, "bk: clear deletes every stat, flag and baseline for %s; rerun with --yes\n", userID)
		return 1
	}
	a.eng.SetCurrentUser(userID)
	if err := a.eng.ClearUserData(); err != nil {
		fmt.Fprintf(os.Stderr, "bk: clear: %v\n", err)
		return 1
	}
	fmt.Printf("cleared %s\n", userID)
	return 0
}
