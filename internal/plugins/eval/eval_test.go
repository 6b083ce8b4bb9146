package eval

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/plugin"
)

type stubConn struct{ target, text string }

func (s *stubConn) Msg(ctx context.Context, target, text string) error {
	s.target, s.text = target, text
	return nil
}
func (s *stubConn) Join(ctx context.Context, channel, key string) error     { return nil }
func (s *stubConn) Leave(ctx context.Context, channel, reason string) error { return nil }

func TestOnPrivmsg_ResultToChannel(t *testing.T) {
	r := plugin.New(zerolog.Nop())
	p := New(r, zerolog.Nop(), "nanobot")
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind:    "privmsg",
		Conn:    conn,
		User:    "alice!a@host",
		Channel: "#chan",
		Message: "!eval foo,bar:foo & bar",
	})

	if conn.target != "#chan" {
		t.Fatalf("expected reply to channel, got %q", conn.target)
	}
	if conn.text != "Result: True" {
		t.Fatalf("got %q", conn.text)
	}
}

func TestOnPrivmsg_PrivateMessageRepliesToNick(t *testing.T) {
	r := plugin.New(zerolog.Nop())
	p := New(r, zerolog.Nop(), "nanobot")
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind:    "privmsg",
		Conn:    conn,
		User:    "alice!a@host",
		Channel: "nanobot",
		Message: "!eval foo:foo",
	})

	if conn.target != "alice" {
		t.Fatalf("expected reply to nick, got %q", conn.target)
	}
}

func TestOnPrivmsg_SyntaxErrorReplied(t *testing.T) {
	r := plugin.New(zerolog.Nop())
	p := New(r, zerolog.Nop(), "nanobot")
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind:    "privmsg",
		Conn:    conn,
		Channel: "#chan",
		Message: "!eval :a&&b",
	})

	if conn.text == "" {
		t.Fatal("expected an error reply")
	}
}

func TestOnPrivmsg_IgnoresOtherCommands(t *testing.T) {
	r := plugin.New(zerolog.Nop())
	p := New(r, zerolog.Nop(), "nanobot")
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind:    "privmsg",
		Conn:    conn,
		Channel: "#chan",
		Message: "hello there",
	})

	if conn.text != "" {
		t.Fatal("expected no reply for non-command message")
	}
}
