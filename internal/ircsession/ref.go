package ircsession

import (
	"context"
	"fmt"

	"github.com/lrstanley/girc"
)

// ErrStaleRef is returned (and silently swallowed by callers that
// don't care) when a call targets a RemoteProtocolRef whose
// connection has since been replaced (spec.md §3: "calls on a stale
// ref are dropped silently").
var ErrStaleRef = fmt.Errorf("stale remote protocol ref")

// RemoteProtocolRef is the transferable handle the worker is given
// for exactly one active IRC connection (spec.md §3). Only the
// capabilities the shipped plugins use are implemented; the others
// spec.md lists (topic, mode, kick, invite, notice, describe, away,
// back, quit) follow the same pattern and are added as the admin
// surface grows.
type RemoteProtocolRef struct {
	client     *girc.Client
	generation uint64
	owner      *Session
}

func (r *RemoteProtocolRef) stale() bool {
	current := r.owner.ref.Load()
	return current == nil || current.generation != r.generation
}

// Msg sends a PRIVMSG to target.
func (r *RemoteProtocolRef) Msg(ctx context.Context, target, text string) error {
	if r.stale() {
		return nil
	}
	r.client.Cmd.Message(target, text)
	return nil
}

// Join joins channel, with key if non-empty.
func (r *RemoteProtocolRef) Join(ctx context.Context, channel, key string) error {
	if r.stale() {
		return nil
	}
	if key != "" {
		r.client.Cmd.JoinKey(channel, key)
	} else {
		r.client.Cmd.Join(channel)
	}
	return nil
}

// Leave parts channel, with reason if non-empty.
func (r *RemoteProtocolRef) Leave(ctx context.Context, channel, reason string) error {
	if r.stale() {
		return nil
	}
	if reason != "" {
		r.client.Cmd.PartMessage(channel, reason)
	} else {
		r.client.Cmd.Part(channel)
	}
	return nil
}
