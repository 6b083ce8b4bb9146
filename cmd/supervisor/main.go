// Command supervisor is the nanobot supervisor process (spec.md §4.7,
// C7): it owns every IRC network connection and the worker's
// lifecycle, and talks to the worker over the RPC bridge.
//
// Flag/logger bootstrap ported from core/bgpipe.go's NewBgpipe: a
// ConsoleWriter logger until the config's log_file is known, pflag
// for CLI flags, koanf for merging the config file with flag
// overrides.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/nanonyme/nanobot/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	f := pflag.NewFlagSet("supervisor", pflag.ExitOnError)
	f.SortFlags = false
	configPath := f.String("config", "config.json", "path to the supervisor's config.json")
	logLevel := f.String("log-level", "info", "log level (debug/info/warn/error/disabled)")
	workerPath := f.String("worker", "worker", "path to the worker binary")
	rpcTransport := f.String("rpc-transport", "stdio", "RPC transport: stdio or tcp (SPEC_FULL.md §6.6)")
	rpcListen := f.String("rpc-listen", "127.0.0.1:0", "listen address when --rpc-transport=tcp")
	adminListen := f.String("admin-listen", "", "loopback address to serve /healthz and /metrics on; empty disables it (SPEC_FULL.md §6.5)")
	if err := f.Parse(os.Args[1:]); err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)

	cfg, err := supervisor.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Core.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Core.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log_file: %w", err)
		}
		defer logFile.Close()
		log = zerolog.New(logFile).With().Timestamp().Logger()
	}

	ensureConfigEnv(*configPath)

	opts := supervisor.Options{
		Config:        cfg,
		WorkerPath:    *workerPath,
		RPCTransport:  *rpcTransport,
		RPCListenAddr: *rpcListen,
		AdminListen:   *adminListen,
	}
	s := supervisor.New(log, opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return s.Run(ctx)
}

// ensureConfigEnv sets CONFIG so the spawned worker reads the same
// document (spec.md §6): exec.Cmd inherits os.Environ() when Env is
// left nil, so this alone is enough to hand the path down.
func ensureConfigEnv(path string) {
	os.Setenv("CONFIG", path)
}
