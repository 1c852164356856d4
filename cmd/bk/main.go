// Command bk is the badgekeeper CLI: record listening-app activity, check
// for newly unlocked achievements and serve the engine to a UI.
package main

import (
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("bk", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	os.Exit(a.run(os.Args[1], os.Args[2:]))
}

// run dispatches one subcommand and returns its exit code.
func (a *app) run(cmd string, args []string) int {
	switch cmd {
	// Stats
	case "inc":
		return a.cmdInc(args)
	case "set":
		return a.cmdSet(args)
	case "add":
		return a.cmdAdd(args)
	case "flag":
		return a.cmdFlag(args)

	// Achievements
	case "check":
		return a.cmdCheck(args)
	case "list", "ls":
		return a.cmdList(args)
	case "catalog":
		return a.cmdCatalog(args)
	case "status":
		return a.cmdStatus(args)
	case "refresh":
		return a.cmdRefresh(args)

	// Users
	case "user":
		return a.cmdUser(args)
	case "clear":
		return a.cmdClear(args)

	case "serve":
		return a.cmdServe(args)

	default:
		fmt.Fprintf(os.Stderr, "bk: unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'bk --help' for usage.")
		return 1
	}
}

func printUsage() {
	fmt.Print(`bk - achievement tracking and unlock notifications

Counters, sets and moment flags per user in SQLite. Every change is checked
against the achievement catalog; new unlocks are printed (or streamed to a
UI by 'bk serve') one banner at a time.

Usage:
  bk <command> [flags]

Stats:
  inc <stat> [n]            Add n (default 1) to a counter
  set <stat> <value>        Overwrite a counter
  add <set> <member>        Add a distinct member to a set
  flag <moment>             Record a secret moment

Achievements:
  check                     Report unlocks since the last check
  list [--all]              Achievements with progress
  catalog                   Every definition, secrets included
  status                    Stats, baseline and remote cache for a user
  refresh                   Fetch remote stats, then check

Users:
  user                      Show the resolved user and all known users
  clear --yes               Delete the user's data (sign-out teardown)

Server:
  serve [--addr A]          HTTP + websocket API for a UI shell

Aliases:
  ls = list

Environment:
  BADGEKEEPER_DB       SQLite database path (default: .badgekeeper/badgekeeper.db)
  BADGEKEEPER_USER     Default user ID (avoids passing --user every time)
  BADGEKEEPER_CONFIG   YAML config file
  BADGEKEEPER_REMOTE_URL  Remote stats endpoint base URL
  BADGEKEEPER_VERBOSE  Log engine activity to stderr

All user commands support --user <id> to override BADGEKEEPER_USER.
Read commands support --json for machine-readable output.
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "bk: "+format+"\n", args...)
	os.Exit(1)
}
