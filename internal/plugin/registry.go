// Package plugin implements the plugin registry (spec.md §4.4, C4):
// named plugins, per-event handler lists, and fault-isolated dispatch
// in registration order.
//
// Ported from original_source/plugin.py's PluginRegistry/Plugin,
// restructured as a closed enumeration the way bgpfix-bgpipe's
// core/bgpipe.go registers stage constructors in a
// map[string]NewStage: nanobot ships a fixed set of plugins built at
// process start (spec.md §9 — no hot reload).
package plugin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Event is the payload delivered to a handler. Message is empty for
// non-message events.
type Event struct {
	Kind    string // e.g. "privmsg"
	Conn    Connection
	User    string
	Channel string
	Message string
	MaxLen  int // conservative IRC line budget for any reply (spec.md §4.5)
}

// Connection is the subset of a live IRC connection a plugin needs;
// implemented by internal/ircsession.RemoteProtocolRef.
type Connection interface {
	Msg(ctx context.Context, target, text string) error
	Join(ctx context.Context, channel, key string) error
	Leave(ctx context.Context, channel, reason string) error
}

// Handler processes one event. A non-nil error is logged and does not
// stop other handlers for the same event (spec.md §4.4).
type Handler func(ctx context.Context, ev Event) error

// Factory builds a Plugin instance given its registry and descriptor
// config, analogous to a Python plugin module's load(registry, config).
type Factory func(r *Registry, name string, config map[string]any) (Plugin, error)

// Plugin is the interface every shipped plugin implements.
type Plugin interface {
	// Load registers the plugin's handlers with the registry and
	// performs any setup.
	Load() error
	// Unload releases resources. Plugins with nothing to clean up may
	// embed NopUnloader.
	Unload() error
}

// NopUnloader satisfies Plugin.Unload for plugins with no cleanup.
type NopUnloader struct{}

func (NopUnloader) Unload() error { return nil }

// Registry maps plugin name to instance and event kind to its
// ordered handler list (spec.md §3).
type Registry struct {
	log zerolog.Logger

	factories map[string]Factory
	plugins   map[string]Plugin
	handlers  map[string][]Handler
}

// New creates an empty Registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		log:       log.With().Str("component", "plugin-registry").Logger(),
		factories: make(map[string]Factory),
		plugins:   make(map[string]Plugin),
		handlers:  make(map[string][]Handler),
	}
}

// AddFactory registers a plugin module under module name, mirroring
// stages.Repo's map[string]NewStage.
func (r *Registry) AddFactory(module string, f Factory) {
	r.factories[module] = f
}

// RegisterHandler appends handler to the ordered list for eventKind.
// Handler order within an event kind is insertion order (spec.md §3
// invariant); a failing handler never removes or skips others.
func (r *Registry) RegisterHandler(eventKind string, handler Handler) {
	r.handlers[eventKind] = append(r.handlers[eventKind], handler)
}

// PluginDescriptor mirrors config.PluginDescriptor without importing
// the config package, to keep this package dependency-free of config.
type PluginDescriptor struct {
	Name    string
	Module  string
	Enabled bool
	Config  map[string]any
}

// Load instantiates every enabled descriptor's plugin, in order,
// calling its Load() to register handlers (spec.md §4.4).
func (r *Registry) Load(descriptors []PluginDescriptor) error {
	for _, d := range descriptors {
		if !d.Enabled {
			r.log.Info().Str("plugin", d.Name).Msg("plugin disabled, skipping")
			continue
		}
		factory, ok := r.factories[d.Module]
		if !ok {
			return fmt.Errorf("plugin %s: no such module %q", d.Name, d.Module)
		}
		p, err := factory(r, d.Name, d.Config)
		if err != nil {
			return fmt.Errorf("plugin %s: constructing: %w", d.Name, err)
		}
		if err := p.Load(); err != nil {
			return fmt.Errorf("plugin %s: loading: %w", d.Name, err)
		}
		r.plugins[d.Name] = p
		r.log.Info().Str("plugin", d.Name).Msg("plugin loaded")
	}
	return nil
}

// Unload calls Unload on every registered plugin and drops its entry.
func (r *Registry) Unload() {
	for name, p := range r.plugins {
		if err := p.Unload(); err != nil {
			r.log.Warn().Err(err).Str("plugin", name).Msg("plugin unload failed")
		}
		delete(r.plugins, name)
	}
}

// Dispatch invokes all handlers registered for ev.Kind, in
// registration order, catching and logging any per-handler panic or
// error without aborting the sequence (spec.md §4.4, §7 PluginError).
func (r *Registry) Dispatch(ctx context.Context, ev Event) {
	for _, h := range r.handlers[ev.Kind] {
		r.callHandler(ctx, h, ev)
	}
}

func (r *Registry) callHandler(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Interface("panic", rec).
				Str("event", ev.Kind).
				Msg("plugin handler panicked")
		}
	}()

	if err := h(ctx, ev); err != nil {
		r.log.Warn().Err(err).Str("event", ev.Kind).Msg("plugin handler failed")
	}
}
