package ircsession

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/config"
)

type recordingEnqueuer struct {
	method string
	args   []any
}

func (e *recordingEnqueuer) Enqueue(method string, args ...any) {
	e.method, e.args = method, args
}

func TestLineBudget_SubtractsHeaderAndMargin(t *testing.T) {
	s := New(zerolog.Nop(), config.NetworkConfig{Name: "net1"}, &recordingEnqueuer{}, "bot", "Bot")
	got := s.LineBudget("#channel")
	want := ircMaxLine - len("PRIVMSG #channel :") - lineSafetyMargin
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestRef_StaleAfterReplacement(t *testing.T) {
	s := New(zerolog.Nop(), config.NetworkConfig{Name: "net1"}, &recordingEnqueuer{}, "bot", "Bot")

	first := &RemoteProtocolRef{generation: 1, owner: s}
	s.ref.Store(first)
	s.generation.Store(1)

	if first.stale() {
		t.Fatal("expected current ref to be live")
	}

	second := &RemoteProtocolRef{generation: 2, owner: s}
	s.ref.Store(second)
	s.generation.Store(2)

	if !first.stale() {
		t.Fatal("expected replaced ref to be stale")
	}
	if second.stale() {
		t.Fatal("expected current ref to be live")
	}

	if err := first.Join(context.Background(), "#chan", ""); err != nil {
		t.Fatalf("stale ref call should be a silent no-op, got error %v", err)
	}
}
