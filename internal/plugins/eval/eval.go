// Package eval wires internal/eval's boolean expression engine to the
// "!eval" IRC command (spec.md §4.1, §5).
//
// Ported from original_source/plugins/eval_plugin.py's EvalPlugin.
package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/eval"
	"github.com/nanonyme/nanobot/internal/plugin"
)

const commandPrefix = "!eval "

// Plugin answers "!eval t1,t2,...:expr" with "Result: <bool>", or the
// evaluator's error text, replying to the channel or, for private
// messages, to the sender's nick.
type Plugin struct {
	plugin.NopUnloader

	log      zerolog.Logger
	registry *plugin.Registry
	nickname string
}

// New constructs the eval plugin. nickname is the bot's own nick, used
// to detect a private message (spec.md §4.1: channel == nickname).
func New(r *plugin.Registry, log zerolog.Logger, nickname string) *Plugin {
	return &Plugin{log: log.With().Str("plugin", "eval").Logger(), registry: r, nickname: nickname}
}

// NewFactory builds a plugin.Factory bound to nickname, for registration
// in the worker's plugin registry alongside the other built-ins.
func NewFactory(log zerolog.Logger, nickname string) plugin.Factory {
	return func(r *plugin.Registry, name string, config map[string]any) (plugin.Plugin, error) {
		return New(r, log, nickname), nil
	}
}

// Load registers the privmsg handler.
func (p *Plugin) Load() error {
	p.registry.RegisterHandler("privmsg", p.onPrivmsg)
	return nil
}

func (p *Plugin) onPrivmsg(ctx context.Context, ev plugin.Event) error {
	if !strings.HasPrefix(ev.Message, commandPrefix) {
		return nil
	}

	suffix := ev.Message[len(commandPrefix):]
	target := ev.Channel
	if target == p.nickname {
		target = strings.SplitN(ev.User, "!", 2)[0]
	}

	truthPart, _, expr := strings.Cut(suffix, ":")
	truths := eval.TruthSet(strings.Split(truthPart, ","))

	result, err := eval.EvalBool(expr, truths)
	if err != nil {
		return ev.Conn.Msg(ctx, target, err.Error())
	}
	word := "False"
	if result {
		word = "True"
	}
	return ev.Conn.Msg(ctx, target, fmt.Sprintf("Result: %s", word))
}
