package supervisor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nanonyme/nanobot/internal/metrics"
)

// serveAdmin runs the optional loopback-only admin HTTP surface
// (SPEC_FULL.md §6.5): /healthz and /metrics. It carries no state the
// worker depends on and never influences IRC-facing behavior.
func (s *Supervisor) serveAdmin(ctx context.Context, listen string) error {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", s.handleMetrics)

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); !ok || !addr.IP.IsLoopback() {
		ln.Close()
		return &net.AddrError{Err: "admin listen address is not loopback", Addr: ln.Addr().String()}
	}
	s.log.Info().Str("addr", ln.Addr().String()).Msg("admin http surface listening")

	server := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	err = server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Supervisor) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pid := 0
	if s.worker != nil {
		pid = s.worker.Pid()
	}
	s.mu.Unlock()

	body := map[string]any{
		"bridge_state": s.bridge.State().String(),
		"worker_pid":   pid,
		"networks":     len(s.sessions),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (s *Supervisor) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.BridgeQueueDepth.Set(float64(s.bridge.QueueDepth()))
	metrics.WritePrometheus(w)
}
