// Package title wires internal/titlefetch's URL-fetch pipeline to the
// privmsg handler (spec.md §4.3, §5).
package title

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/plugin"
	"github.com/nanonyme/nanobot/internal/titlefetch"
)

// defaultMaxLen is used only when an event arrives with no caller-
// supplied budget (e.g. in tests); production events always carry the
// IRC session's computed LineBudget.
const defaultMaxLen = 200

// Plugin announces page titles for URLs posted in a channel.
type Plugin struct {
	log      zerolog.Logger
	registry *plugin.Registry
	pipeline *titlefetch.Pipeline
}

// New constructs the title plugin around an existing pipeline, shared
// across every connection the plugin observes (spec.md §4.3: the
// cache and throttle are process-wide, not per-channel).
func New(r *plugin.Registry, log zerolog.Logger, pipeline *titlefetch.Pipeline) *Plugin {
	return &Plugin{log: log.With().Str("plugin", "title").Logger(), registry: r, pipeline: pipeline}
}

// NewFactory builds a plugin.Factory bound to an existing pipeline.
func NewFactory(log zerolog.Logger, pipeline *titlefetch.Pipeline) plugin.Factory {
	return func(r *plugin.Registry, name string, config map[string]any) (plugin.Plugin, error) {
		return New(r, log, pipeline), nil
	}
}

// Load registers the privmsg handler.
func (p *Plugin) Load() error {
	p.registry.RegisterHandler("privmsg", p.onPrivmsg)
	return nil
}

// Unload closes the shared pipeline's caches.
func (p *Plugin) Unload() error {
	p.pipeline.Close()
	return nil
}

func (p *Plugin) onPrivmsg(ctx context.Context, ev plugin.Event) error {
	target := ev.Channel
	announce := func(ctx context.Context, text string) error {
		return ev.Conn.Msg(ctx, target, text)
	}
	maxLen := ev.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	p.pipeline.HandleMessage(ctx, ev.Message, maxLen, announce)
	return nil
}
