package cmd

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/journal/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr     string
	cacheTTL time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the journal over HTTP" }
func (*serveCmd) Usage() string {
	return `tj serve [-addr <host:port>] [-cache <duration>]

  Serves the metrics and positions of every account, and accepts imports.

    GET  /accounts
    GET  /accounts/{account}/metrics?period=&on=&quote=&assets=&cash=
    GET  /accounts/{account}/positions?closed=&on=&quote=&assets=
    POST /accounts/{account}/imports?mode=&assets=&dry_run=

  Add format=markdown to get the report instead of JSON.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Address to listen on. Overrides TJ_ADDR.")
	f.DurationVar(&c.cacheTTL, "cache", 5*time.Minute, "How long computed metrics are cached.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		return failf(subcommands.ExitFailure, "Error: %v", err)
	}
	defer e.store.Close()

	addr := e.cfg.Addr
	if c.addr != "" {
		addr = c.addr
	}
	srv := server.New(server.Config{
		Addr:     addr,
		Log:      e.log,
		Store:    e.store,
		Settings: e.cfg.Settings,
		CacheTTL: c.cacheTTL,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return failf(subcommands.ExitFailure, "Error: %v", err)
		}
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			e.log.Error().Err(err).Msg("Server forced to shutdown")
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
