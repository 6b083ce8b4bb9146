// Command worker is the nanobot worker process (spec.md §4.8, C8): it
// registers once with the supervisor over the RPC channel and runs
// every plugin (admin, eval, title) against routed IRC messages.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/nanonyme/nanobot/internal/config"
	"github.com/nanonyme/nanobot/internal/plugin"
	"github.com/nanonyme/nanobot/internal/plugins/admin"
	evalplugin "github.com/nanonyme/nanobot/internal/plugins/eval"
	"github.com/nanonyme/nanobot/internal/plugins/title"
	"github.com/nanonyme/nanobot/internal/roledb"
	"github.com/nanonyme/nanobot/internal/rpcbridge"
	"github.com/nanonyme/nanobot/internal/titlefetch"
	"github.com/nanonyme/nanobot/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	f := pflag.NewFlagSet("worker", pflag.ExitOnError)
	f.SortFlags = false
	logLevel := f.String("log-level", "info", "log level (debug/info/warn/error/disabled)")
	if err := f.Parse(os.Args[1:]); err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)

	// The worker's config path comes from the CONFIG environment
	// variable (spec.md §6), not a flag: the supervisor and worker
	// read the same document without needing to pass it on argv.
	configPath := os.Getenv("CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	transport, err := openTransport()
	if err != nil {
		return fmt.Errorf("opening rpc transport: %w", err)
	}
	defer transport.Close()

	peer := rpcbridge.NewPeer(log, transport)

	registry := plugin.New(log)
	db := roledb.Open(cfg.Core.DB)
	registry.AddFactory("admin", admin.NewFactory(log, db, processRestarter{}))
	registry.AddFactory("eval", evalplugin.NewFactory(log, cfg.Core.Nickname))

	pipeline := titlefetch.NewPipeline(log)
	registry.AddFactory("title", title.NewFactory(log, pipeline))

	if err := registry.Load(toPluginDescriptors(cfg.Plugins)); err != nil {
		return fmt.Errorf("loading plugins: %w", err)
	}
	defer registry.Unload()

	api := worker.New(log, registry, peer, cfg.Core.Nickname)
	if err := api.Boot(); err != nil {
		return fmt.Errorf("registering with supervisor: %w", err)
	}

	return peer.Serve()
}

// openTransport picks the stdio or tcp RPC carrier, matching whichever
// the supervisor selected (SPEC_FULL.md §6.6). WORKER_RPC_ADDR is set
// by the supervisor only when it started the worker in tcp mode.
func openTransport() (rpcbridge.Transport, error) {
	if addr := os.Getenv("WORKER_RPC_ADDR"); addr != "" {
		return rpcbridge.Dial(addr)
	}
	return rpcbridge.NewStdioTransport(), nil
}

// toPluginDescriptors adapts config.PluginDescriptor (which tracks
// "enabled" as a *bool so a missing key defaults to true) to the
// registry's plain-bool PluginDescriptor.
func toPluginDescriptors(in []config.PluginDescriptor) []plugin.PluginDescriptor {
	out := make([]plugin.PluginDescriptor, len(in))
	for i, d := range in {
		out[i] = plugin.PluginDescriptor{
			Name:    d.Name,
			Module:  d.Module,
			Enabled: d.IsEnabled(),
			Config:  d.Config,
		}
	}
	return out
}

// processRestarter implements admin.Restarter by exiting the process
// so the supervisor's respawn loop brings up a fresh worker
// (spec.md §6 "reincarnate"; worker exit code is irrelevant to the
// supervisor per spec.md §6).
type processRestarter struct{}

func (processRestarter) Restart() {
	os.Exit(0)
}
