package main

import (
	"flag"
	"fmt"

	"github.com/daviddao/badgekeeper/pkg/achievement"
	"github.com/daviddao/badgekeeper/pkg/model"
)

func (a *app) cmdList(args []string) int {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	all := flags.Bool("all", false, "include hidden achievements")
	unlockedOnly := flags.Bool("unlocked", false, "only unlocked achievements")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if _, ok := a.signIn(*user); !ok {
		return 1
	}

	views := a.eng.BuildAchievements()
	if !*all {
		views = achievement.Visible(views)
	}
	if *unlockedOnly {
		kept := views[:0]
		for _, v := range views {
			if v.Unlocked {
				kept = append(kept, v)
			}
		}
		views = kept
	}

	if *jsonOut {
		printJSON(views)
		return 0
	}
	var category model.Category
	for _, v := range views {
		if v.Category != category {
			category = v.Category
			fmt.Printf("%s:\n", category)
		}
		fmt.Printf("  %s %-24s %s\n", unlockMark(v), v.DisplayTitle(), progressText(v))
	}
	return 0
}

func unlockMark(v model.AchievementView) string {
	if v.Unlocked {
		return "[x]"
	}
	return "[ ]"
}

// progressText renders "n/req" for count-style entries and the description
// otherwise.
func progressText(v model.AchievementView) string {
	if v.ShowsProgressCount && !v.Unlocked {
		return fmt.Sprintf("%d/%d  %s", v.Progress, v.Requirement, v.DisplayDescription())
	}
	return v.DisplayDescription()
}

func (a *app) cmdCatalog(args []string) int {
	flags := flag.NewFlagSet("catalog", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	cat := a.eng.Catalog()
	if *jsonOut {
		printJSON(cat.Definitions())
		return 0
	}
	for _, en := range cat.Entries() {
		kind := en.Source.Kind.String()
		if en.Source.Stat != "" {
			kind += ":" + string(en.Source.Stat)
		}
		marker := ""
		switch {
		case en.SuperSecret:
			marker = " (hidden)"
		case en.Secret:
			marker = " (secret)"
		}
		fmt.Printf("%-26s %-10s req=%-5d %-26s %s%s\n",
			en.ID, en.Category, en.Requirement, kind, en.Title, marker)
	}
	fmt.Printf("%d achievements (%d non-secret, %d secret moments)\n",
		cat.Len(), cat.TotalNonSecret(), cat.TotalSecretExcludingKeeper())
	return 0
}
