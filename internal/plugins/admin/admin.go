// Package admin wires role-gated "!reincarnate", "!join", and "!leave"
// commands to the configured role database (spec.md §4.5, §5).
//
// Ported from original_source/plugins/admin_plugin.py's AdminPlugin.
package admin

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/plugin"
	"github.com/nanonyme/nanobot/internal/roledb"
)

const (
	roleSuperadmin = "superadmin"
	roleIgnored    = "ignored"
)

// Restarter requests that the owning process terminate so its
// supervisor respawns it (spec.md §6 "reincarnate").
type Restarter interface {
	Restart()
}

// Plugin implements the admin command set.
type Plugin struct {
	plugin.NopUnloader

	log       zerolog.Logger
	registry  *plugin.Registry
	db        *roledb.DB
	restarter Restarter
}

// New constructs the admin plugin against db (may be a DB opened on an
// empty path, which resolves every mask to no roles) and restarter.
func New(r *plugin.Registry, log zerolog.Logger, db *roledb.DB, restarter Restarter) *Plugin {
	return &Plugin{log: log.With().Str("plugin", "admin").Logger(), registry: r, db: db, restarter: restarter}
}

// NewFactory builds a plugin.Factory bound to db and restarter.
func NewFactory(log zerolog.Logger, db *roledb.DB, restarter Restarter) plugin.Factory {
	return func(r *plugin.Registry, name string, config map[string]any) (plugin.Plugin, error) {
		return New(r, log, db, restarter), nil
	}
}

// Load registers the privmsg handler.
func (p *Plugin) Load() error {
	p.registry.RegisterHandler("privmsg", p.onPrivmsg)
	return nil
}

func (p *Plugin) onPrivmsg(ctx context.Context, ev plugin.Event) error {
	if !strings.HasPrefix(ev.Message, "!") {
		return nil
	}

	command, _, suffix := strings.Cut(ev.Message[1:], " ")
	switch command {
	case "reincarnate", "join", "leave":
	default:
		return nil
	}

	roles, err := p.db.Roles(ctx, ev.User)
	if err != nil {
		return err
	}
	if roledb.HasRole(roles, roleIgnored) {
		return nil
	}
	if !roledb.HasRole(roles, roleSuperadmin) {
		p.log.Info().Str("user", ev.User).Str("command", command).Msg("user lacks superadmin role")
		return nil
	}

	switch command {
	case "reincarnate":
		p.log.Info().Msg("restarting process")
		p.restarter.Restart()
	case "join":
		channel, _, _ := strings.Cut(suffix, " ")
		key := strings.TrimPrefix(suffix, channel)
		key = strings.TrimPrefix(key, " ")
		return ev.Conn.Join(ctx, channel, key)
	case "leave":
		channel, _, reason := strings.Cut(suffix, " ")
		return ev.Conn.Leave(ctx, channel, reason)
	}
	return nil
}
