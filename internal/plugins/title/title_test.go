package title

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/plugin"
	"github.com/nanonyme/nanobot/internal/titlefetch"
)

type stubConn struct{ target, text string }

func (s *stubConn) Msg(ctx context.Context, target, text string) error {
	s.target, s.text = target, text
	return nil
}
func (s *stubConn) Join(ctx context.Context, channel, key string) error     { return nil }
func (s *stubConn) Leave(ctx context.Context, channel, reason string) error { return nil }

func TestOnPrivmsg_NoURLIsNoOp(t *testing.T) {
	r := plugin.New(zerolog.Nop())
	pipeline := titlefetch.NewPipeline(zerolog.Nop())
	defer pipeline.Close()
	p := New(r, zerolog.Nop(), pipeline)
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind: "privmsg", Conn: conn, Channel: "#chan", Message: "just chatting, no link here",
	})

	if conn.text != "" {
		t.Fatalf("expected no announcement, got %q", conn.text)
	}
}
