package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

func (a *app) cmdInc(args []string) int {
	flags := flag.NewFlagSet("inc", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 || flags.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "bk: usage: bk inc <stat> [n]")
		return 1
	}
	key, err := parseStat(flags.Arg(0), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: %v\n", err)
		return 1
	}
	delta := int64(1)
	if flags.NArg() == 2 {
		if delta, err = strconv.ParseInt(flags.Arg(1), 10, 64); err != nil {
			fmt.Fprintf(os.Stderr, "bk: invalid amount %q\n", flags.Arg(1))
			return 1
		}
	}

	userID, ok := a.signIn(*user)
	if !ok {
		return 1
	}
	value, err := a.eng.IncrementCounter(key, delta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: inc: %v\n", err)
		return 1
	}
	a.report(*jsonOut, unlockResult{User: userID, Stat: string(key), Value: value, Unlocked: a.eng.CheckUnlocks()})
	return 0
}

func (a *app) cmdSet(args []string) int {
	flags := flag.NewFlagSet("set", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "bk: usage: bk set <stat> <value>")
		return 1
	}
	key, err := parseStat(flags.Arg(0), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: %v\n", err)
		return 1
	}
	value, err := strconv.ParseInt(flags.Arg(1), 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: invalid value %q\n", flags.Arg(1))
		return 1
	}

	userID, ok := a.signIn(*user)
	if !ok {
		return 1
	}
	ids, err := a.eng.RecordSet(key, value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: set: %v\n", err)
		return 1
	}
	a.report(*jsonOut, unlockResult{User: userID, Stat: string(key), Value: value, Unlocked: ids})
	return 0
}

func (a *app) cmdAdd(args []string) int {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 2 || flags.Arg(1) == "" {
		fmt.Fprintln(os.Stderr, "bk: usage: bk add <set> <member>")
		return 1
	}
	key, err := parseStat(flags.Arg(0), true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: %v\n", err)
		return 1
	}

	userID, ok := a.signIn(*user)
	if !ok {
		return 1
	}
	if _, err := a.eng.AddToSet(key, flags.Arg(1)); err != nil {
		fmt.Fprintf(os.Stderr, "bk: add: %v\n", err)
		return 1
	}
	size := a.store.SetSize(userID, key)
	a.report(*jsonOut, unlockResult{User: userID, Stat: string(key), Value: size, Unlocked: a.eng.CheckUnlocks()})
	return 0
}

func (a *app) cmdFlag(args []string) int {
	flags := flag.NewFlagSet("flag", flag.ContinueOnError)
	user := flags.String("user", "", "user ID (overrides BADGEKEEPER_USER)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "bk: usage: bk flag <moment>")
		return 1
	}

	userID, ok := a.signIn(*user)
	if !ok {
		return 1
	}
	ids, err := a.eng.RecordMoment(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bk: flag: %v\n", err)
		return 1
	}
	a.report(*jsonOut, unlockResult{User: userID, Stat: flags.Arg(0), Value: true, Unlocked: ids})
	return 0
}
