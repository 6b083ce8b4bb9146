package supervisor

import (
	"context"
	"net"
	"net/http"

	"github.com/nanonyme/nanobot/internal/rpcbridge"
)

// listenRPC binds the TCP/websocket RPC listener used when
// --rpc-transport=tcp (SPEC_FULL.md §6.6). It returns the bound
// address immediately; serveRPC then accepts worker connections for
// the life of ctx, attaching each one to the bridge the way Attach
// wires a freshly spawned stdio worker. Both transports converge on
// the same Bridge.Attach/Disconnect state machine, so FIFO and
// restart semantics (spec.md §4.6) hold regardless of which was
// chosen.
func (s *Supervisor) listenRPC(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func (s *Supervisor) serveRPC(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		t, err := rpcbridge.Upgrade(w, r)
		if err != nil {
			s.log.Warn().Err(err).Msg("rpc upgrade failed")
			return
		}
		s.log.Info().Str("remote", r.RemoteAddr).Msg("worker dialed in over tcp rpc transport")
		s.bridge.Attach(t)
	})

	server := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	err := server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
