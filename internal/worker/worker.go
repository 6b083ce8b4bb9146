// Package worker implements the worker process (spec.md §4.8, C8): it
// receives routed messages over the RPC channel, runs the staleness
// gate, and dispatches into the plugin registry, issuing IRC actions
// through remote calls back to the supervisor.
//
// Ported from original_source/app.py's API class
// (remote_handlePublicMessage/remote_handlePrivateMessage), restated
// against the newer plugin-based admin/eval/title split.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/plugin"
	"github.com/nanonyme/nanobot/internal/rpcbridge"
)

// ErrStale reports a routed message dropped by the 24h staleness gate
// (spec.md §4.4, §7 StaleMessage).
var ErrStale = errors.New("stale message")

// staleAfter bounds how long a queued message may sit before the
// worker discards it unprocessed on reconnect/catch-up (spec.md §4.4).
const staleAfter = 24 * time.Hour

// API is the worker's single RPC-exposed object, registered once with
// the supervisor (spec.md §4.8).
type API struct {
	log      zerolog.Logger
	registry *plugin.Registry
	peer     *rpcbridge.Peer
	nickname string
}

// New constructs the worker API around registry, wired to issue IRC
// actions via peer.
func New(log zerolog.Logger, registry *plugin.Registry, peer *rpcbridge.Peer, nickname string) *API {
	return &API{
		log:      log.With().Str("component", "worker").Logger(),
		registry: registry,
		peer:     peer,
		nickname: nickname,
	}
}

// Boot registers the worker's handlers with peer and sends the
// one-time registration frame (spec.md §4.8 "register(api) once").
func (a *API) Boot() error {
	a.peer.Handle("handlePublicMessage", a.handlePublicMessageFrame)
	a.peer.Handle("handlePrivateMessage", a.handlePrivateMessageFrame)
	return a.peer.Register()
}

func (a *API) handlePublicMessageFrame(frame rpcbridge.Frame) (any, error) {
	args := frame.Args
	if len(args) < 5 {
		return nil, fmt.Errorf("handlePublicMessage: expected 5 args, got %d", len(args))
	}
	network, _ := args[0].(string)
	channel, _ := args[1].(string)
	user, _ := args[2].(string)
	message, _ := args[3].(string)
	maxLen := toInt(args[4])

	a.handlePublicMessage(context.Background(), frame.EnqueuedAt, network, channel, user, message, maxLen)
	return true, nil
}

func (a *API) handlePrivateMessageFrame(frame rpcbridge.Frame) (any, error) {
	args := frame.Args
	if len(args) < 4 {
		return nil, fmt.Errorf("handlePrivateMessage: expected 4 args, got %d", len(args))
	}
	network, _ := args[0].(string)
	user, _ := args[1].(string)
	message, _ := args[2].(string)
	maxLen := toInt(args[3])

	// Rewrite channel to the sender's nick, then handle as public
	// (spec.md §4.8: "split the user mask at !").
	channel := strings.SplitN(user, "!", 2)[0]
	a.handlePublicMessage(context.Background(), frame.EnqueuedAt, network, channel, user, message, maxLen)
	return true, nil
}

// handlePublicMessage runs the staleness gate then dispatches into
// the plugin registry, with a top-level recover so no plugin failure
// ever escapes a handler (spec.md §4.8, §7 propagation policy).
func (a *API) handlePublicMessage(ctx context.Context, enqueuedAt int64, network, channel, user, message string, maxLen int) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("message handler panicked")
		}
	}()

	if enqueuedAt > 0 {
		age := time.Since(time.Unix(enqueuedAt, 0))
		if age > staleAfter {
			a.log.Info().Dur("age", age).Str("network", network).Msg("dropping stale message")
			return
		}
	}

	conn := &remoteConn{peer: a.peer, network: network}
	a.registry.Dispatch(ctx, plugin.Event{
		Kind:    "privmsg",
		Conn:    conn,
		User:    user,
		Channel: channel,
		Message: message,
		MaxLen:  maxLen,
	})
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// remoteConn implements plugin.Connection by issuing calls back to
// the supervisor over the same RPC channel (spec.md §1 "bidirectional
// remote-object RPC").
type remoteConn struct {
	peer    *rpcbridge.Peer
	network string
}

func (c *remoteConn) Msg(ctx context.Context, target, text string) error {
	_, err := c.peer.Call("msg", c.network, target, text)
	return err
}

func (c *remoteConn) Join(ctx context.Context, channel, key string) error {
	_, err := c.peer.Call("join", c.network, channel, key)
	return err
}

func (c *remoteConn) Leave(ctx context.Context, channel, reason string) error {
	_, err := c.peer.Call("leave", c.network, channel, reason)
	return err
}
