package admin

import (
	"context"
	"path/filepath"
	"testing"

	"database/sql"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/nanonyme/nanobot/internal/plugin"
	"github.com/nanonyme/nanobot/internal/roledb"
)

type stubConn struct {
	joined, left string
	key, reason  string
}

func (s *stubConn) Msg(ctx context.Context, target, text string) error { return nil }
func (s *stubConn) Join(ctx context.Context, channel, key string) error {
	s.joined, s.key = channel, key
	return nil
}
func (s *stubConn) Leave(ctx context.Context, channel, reason string) error {
	s.left, s.reason = channel, reason
	return nil
}

type stubRestarter struct{ called bool }

func (r *stubRestarter) Restart() { r.called = true }

func seedSuperadmin(t *testing.T, path, mask string) {
	t.Helper()
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	stmts := []string{
		`create table roles (oid integer primary key, name text)`,
		`create table users (oid integer primary key)`,
		`create table usermask (oid integer, mask text)`,
		`create table userroles (oid integer, roid integer)`,
		`insert into users (oid) values (1)`,
		`insert into roles (oid, name) values (1, 'superadmin')`,
		`insert into userroles (oid, roid) values (1, 1)`,
	}
	for _, s := range stmts {
		if _, err := conn.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := conn.Exec(`insert into usermask (oid, mask) values (1, ?)`, mask); err != nil {
		t.Fatal(err)
	}
}

func TestOnPrivmsg_ReincarnateRequiresSuperadmin(t *testing.T) {
	r := plugin.New(zerolog.Nop())
	restarter := &stubRestarter{}
	p := New(r, zerolog.Nop(), roledb.Open(""), restarter)
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind: "privmsg", Conn: conn, User: "nobody!x@host", Message: "!reincarnate",
	})

	if restarter.called {
		t.Fatal("unprivileged user should not trigger restart")
	}
}

func TestOnPrivmsg_ReincarnateBySuperadmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.db")
	seedSuperadmin(t, path, "root!r@host")

	r := plugin.New(zerolog.Nop())
	restarter := &stubRestarter{}
	p := New(r, zerolog.Nop(), roledb.Open(path), restarter)
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind: "privmsg", Conn: conn, User: "root!r@host", Message: "!reincarnate",
	})

	if !restarter.called {
		t.Fatal("expected superadmin reincarnate to restart")
	}
}

func TestOnPrivmsg_JoinBySuperadmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.db")
	seedSuperadmin(t, path, "root!r@host")

	r := plugin.New(zerolog.Nop())
	p := New(r, zerolog.Nop(), roledb.Open(path), &stubRestarter{})
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind: "privmsg", Conn: conn, User: "root!r@host", Message: "!join #newchan secret",
	})

	if conn.joined != "#newchan" || conn.key != "secret" {
		t.Fatalf("got join=%q key=%q", conn.joined, conn.key)
	}
}

func TestOnPrivmsg_IgnoredRoleBlocksEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.db")
	conn0, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`create table roles (oid integer primary key, name text)`,
		`create table users (oid integer primary key)`,
		`create table usermask (oid integer, mask text)`,
		`create table userroles (oid integer, roid integer)`,
		`insert into users (oid) values (1)`,
		`insert into roles (oid, name) values (1, 'ignored')`,
		`insert into userroles (oid, roid) values (1, 1)`,
		`insert into usermask (oid, mask) values (1, 'pest!p@host')`,
	}
	for _, s := range stmts {
		if _, err := conn0.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	conn0.Close()

	r := plugin.New(zerolog.Nop())
	restarter := &stubRestarter{}
	p := New(r, zerolog.Nop(), roledb.Open(path), restarter)
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	conn := &stubConn{}
	r.Dispatch(context.Background(), plugin.Event{
		Kind: "privmsg", Conn: conn, User: "pest!p@host", Message: "!reincarnate",
	})

	if restarter.called {
		t.Fatal("ignored user should never trigger a command")
	}
}
