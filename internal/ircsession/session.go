// Package ircsession implements the per-network reconnecting IRC
// client (spec.md §4.5, C5): connection lifecycle, channel
// auto-join, the line-length budget, and the RemoteProtocolRef
// capability handle exposed to the worker.
//
// Reconnect loop ported from stages/websocket.go's prepareClient dial
// retry loop, with the jittered backoff replaced by Backoff
// (spec.md §3 mandates exact, jitter-free parameters).
package ircsession

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lrstanley/girc"
	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/config"
)

// ircMaxLine is the IRC protocol's safe maximum line length (512
// bytes including the trailing CRLF, per RFC 2812); the budget
// computation in LineBudget starts from this the way spec.md §4.5
// describes "the protocol's safe maximum line length".
const ircMaxLine = 512

// lineSafetyMargin is subtracted after the PRIVMSG header, absorbing
// encoding slack the way spec.md §4.5 requires.
const lineSafetyMargin = 50

// Enqueuer is the subset of *rpcbridge.Bridge the session needs: queue
// an outbound call to the worker.
type Enqueuer interface {
	Enqueue(method string, args ...any)
}

// Session owns one reconnecting girc.Client for a NetworkConfig.
type Session struct {
	log      zerolog.Logger
	network  config.NetworkConfig
	bridge   Enqueuer
	nickname string
	realname string

	client     *girc.Client
	generation atomic.Uint64
	ref        atomic.Pointer[RemoteProtocolRef]
}

// New constructs a Session for network, forwarding routed messages to
// bridge. nickname/realname come from config.CoreConfig, which is
// process-wide rather than per-network.
func New(log zerolog.Logger, network config.NetworkConfig, bridge Enqueuer, nickname, realname string) *Session {
	return &Session{
		log:      log.With().Str("component", "ircsession").Str("network", network.Name).Logger(),
		network:  network,
		bridge:   bridge,
		nickname: nickname,
		realname: realname,
	}
}

// Run dials the network, reconnecting with Backoff on every
// disconnect, until ctx is canceled.
func (s *Session) Run(ctx context.Context) {
	backoff := NewBackoff()
	try := 0

	for {
		if ctx.Err() != nil {
			return
		}

		client := s.newClient()
		s.client = client

		err := client.Connect()
		s.ref.Store(nil)

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warn().Err(err).Int("try", try).Msg("connection failed")
		} else {
			// Connect returned cleanly: the peer closed the session.
			try = 0
		}

		delay := backoff.Delay(try)
		s.log.Info().Dur("delay", delay).Msg("reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		try++
	}
}

func (s *Session) newClient() *girc.Client {
	client := girc.New(girc.Config{
		Server: s.network.Hostname,
		Port:   s.network.PortOrDefault(),
		Nick:   s.nickname,
		User:   s.nickname,
		Name:   s.realname,
		SSL:    s.network.TLS,
	})

	client.Handlers.Add(girc.CONNECTED, s.onConnected)
	client.Handlers.Add(girc.RPL_WELCOME, s.onSignedOn)
	client.Handlers.Add(girc.PRIVMSG, s.onPrivmsg)

	return client
}

func (s *Session) onConnected(c *girc.Client, e girc.Event) {
	gen := s.generation.Add(1)
	ref := &RemoteProtocolRef{client: c, generation: gen, owner: s}
	s.ref.Store(ref)
	s.log.Info().Msg("connection made")
}

func (s *Session) onSignedOn(c *girc.Client, e girc.Event) {
	for _, ch := range s.network.Channels {
		if ch.Key != "" {
			c.Cmd.JoinKey(ch.Name, ch.Key)
		} else {
			c.Cmd.Join(ch.Name)
		}
	}
	s.log.Info().Msg("signed on, joined configured channels")
}

func (s *Session) onPrivmsg(c *girc.Client, e girc.Event) {
	if len(e.Params) == 0 {
		return
	}
	target := e.Params[0]
	text := e.Last()
	user := e.Source.Name + "!" + e.Source.Ident + "@" + e.Source.Host
	budget := s.LineBudget(target)

	if strings.EqualFold(target, c.GetNick()) {
		s.bridge.Enqueue("handlePrivateMessage", s.network.Name, user, text, budget)
	} else {
		s.bridge.Enqueue("handlePublicMessage", s.network.Name, target, user, text, budget)
	}
}

// LineBudget computes the conservative per-message byte budget
// (spec.md §4.5): protocol max minus the "PRIVMSG <target> :" header
// minus a safety margin.
func (s *Session) LineBudget(target string) int {
	header := fmt.Sprintf("PRIVMSG %s :", target)
	budget := ircMaxLine - len(header) - lineSafetyMargin
	if budget < 0 {
		return 0
	}
	return budget
}

// Ref returns the current RemoteProtocolRef, or nil if disconnected.
func (s *Session) Ref() *RemoteProtocolRef {
	return s.ref.Load()
}
