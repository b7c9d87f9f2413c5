package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"stratolift/internal/api"
	"stratolift/internal/config"
	"stratolift/internal/log"
	"stratolift/internal/session"
	"stratolift/internal/store"
)

const usage = `usage: stratolift <command> [flags]

commands:
  login      sign in and remember the session
  logout     forget the session
  whoami     show the signed-in user
  profile    edit the profile shown for this session
  register   create an account
  tasks      list tasks
  task       show one task
  request    submit a maintenance, service or SOS request
  status     move a task to a new status (technicians)
  clock-in   start a shift (technicians)
  clock-out  end the active shift (technicians)
  upload     upload a photo or video attachment
  watch      sign out automatically when the token expires
`

type app struct {
	cfg     *config.AppConfig
	log     zerolog.Logger
	session *session.Manager
	client  *api.Client
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, apiErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.New(cfg.Environment)

	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("close session store")
		}
	}()

	a := &app{cfg: cfg, log: logger, out: os.Stdout}
	authClient := api.NewFromConfig(cfg.API, log.Component(logger, "api"))
	a.session = session.New(st, authClient, session.WithLogger(log.Component(logger, "session")))
	a.client = api.NewFromConfig(cfg.API, log.Component(logger, "api"), api.WithTokenSource(a.session))

	if err := a.session.Initialize(ctx); err != nil {
		return err
	}
	return cmd(ctx, a, args)
}
