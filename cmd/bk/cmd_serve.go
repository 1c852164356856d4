package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/daviddao/badgekeeper/pkg/server"
)

func (a *app) cmdServe(args []string) int {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := flags.String("addr", a.cfg.Server.Addr, "listen address")
	user := flags.String("user", "", "sign this user in at startup")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if *user != "" || a.cfg.User != "" {
		if _, ok := a.signIn(*user); !ok {
			return 1
		}
		a.eng.RefreshAsync(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	srv := server.New(a.eng, a.registry, logger)
	fmt.Fprintf(os.Stderr, "serving on http://%s (ctrl-c to stop)\n", *addr)
	if err := srv.ListenAndServe(ctx, *addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "bk: serve: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "\nstopped")
	return 0
}
