// Package supervisor implements the supervisor process (spec.md §4.7,
// C7): owns configuration, the IRC sessions, the RPC bridge, and the
// worker child process lifecycle.
//
// Ported from core/bgpipe.go's NewBgpipe/Run and
// original_source/nanobot.py's NanoBot, with worker process
// management ported from stages/exec.go's command lifecycle.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nanonyme/nanobot/internal/config"
	"github.com/nanonyme/nanobot/internal/ircsession"
	"github.com/nanonyme/nanobot/internal/metrics"
	"github.com/nanonyme/nanobot/internal/rpcbridge"
)

// respawnDelay prevents tight restart loops on startup crashes
// (spec.md §4.6).
const respawnDelay = time.Second

// Options configures a Supervisor.
type Options struct {
	Config        *config.Config
	WorkerPath    string
	WorkerArgs    []string
	RPCTransport  string // "stdio" (default) or "tcp"
	RPCListenAddr string // used when RPCTransport == "tcp"
	AdminListen   string // empty disables the admin HTTP surface
}

// Supervisor owns every long-lived supervisor-side resource.
type Supervisor struct {
	log  zerolog.Logger
	opts Options

	bridge   *rpcbridge.Bridge
	sessions []*ircsession.Session

	mu      sync.Mutex
	worker  *rpcbridge.WorkerProcess
	exiting bool
	rpcAddr string // bound tcp rpc listener address, set once at Run (tcp transport only)
}

// New constructs a Supervisor from opts, building one Session per
// configured network (core/bgpipe.go's AddStage-per-config pattern,
// applied to networks instead of pipeline stages).
func New(log zerolog.Logger, opts Options) *Supervisor {
	s := &Supervisor{
		log:  log.With().Str("component", "supervisor").Logger(),
		opts: opts,
	}
	s.bridge = rpcbridge.New(s.log, nil)

	for _, net := range opts.Config.Networks {
		session := ircsession.New(s.log, net, s.bridge, opts.Config.Core.Nickname, opts.Config.Core.Realname)
		s.sessions = append(s.sessions, session)
	}

	return s
}

// Run starts every IRC session and the worker supervision loop,
// blocking until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if s.opts.RPCTransport == "tcp" {
		ln, err := s.listenRPC(s.opts.RPCListenAddr)
		if err != nil {
			return fmt.Errorf("rpc listener: %w", err)
		}
		s.mu.Lock()
		s.rpcAddr = ln.Addr().String()
		s.mu.Unlock()
		s.log.Info().Str("addr", s.rpcAddr).Msg("rpc tcp transport listening")

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.serveRPC(ctx, ln); err != nil {
				s.log.Warn().Err(err).Msg("rpc listener stopped")
			}
		}()
	}

	for _, session := range s.sessions {
		wg.Add(1)
		go func(sess *ircsession.Session) {
			defer wg.Done()
			sess.Run(ctx)
		}(session)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.superviseWorker(ctx)
	}()

	if s.opts.AdminListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.serveAdmin(ctx, s.opts.AdminListen); err != nil {
				s.log.Warn().Err(err).Msg("admin http surface stopped")
			}
		}()
	}

	<-ctx.Done()
	s.Shutdown()
	wg.Wait()
	return nil
}

// superviseWorker waits respawnDelay, spawns the worker, waits for it
// to exit, and repeats, until ctx is canceled
// (spec.md §4.6 "on startup and on every worker exit, wait 1s and
// respawn").
func (s *Supervisor) superviseWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(respawnDelay):
		}
		if ctx.Err() != nil || s.isExiting() {
			return
		}

		proc, err := rpcbridge.StartWorkerProcess(ctx, s.opts.WorkerPath, s.opts.WorkerArgs, s.workerEnv())
		if err != nil {
			s.log.Error().Err(err).Msg("failed to start worker")
		} else {
			s.mu.Lock()
			s.worker = proc
			s.mu.Unlock()

			go s.copyStderr(proc)

			if s.opts.RPCTransport != "tcp" {
				s.bridge.Attach(proc.Transport())
			}
			metrics.WorkerRespawns.Inc()

			waitErr := proc.Wait()
			s.log.Info().Err(waitErr).Int("pid", proc.Pid()).Msg("worker exited")
			s.bridge.Disconnect()
		}
	}
}

// workerEnv builds the extra environment passed to a freshly spawned
// worker: WORKER_RPC_ADDR when the tcp transport is selected, so the
// worker dials the listener bound in Run instead of inheriting stdio
// (SPEC_FULL.md §6.6).
func (s *Supervisor) workerEnv() []string {
	if s.opts.RPCTransport != "tcp" {
		return nil
	}
	s.mu.Lock()
	addr := s.rpcAddr
	s.mu.Unlock()
	return []string{"WORKER_RPC_ADDR=" + addr}
}

func (s *Supervisor) copyStderr(proc *rpcbridge.WorkerProcess) {
	buf := make([]byte, 4096)
	for {
		n, err := proc.Stderr().Read(buf)
		if n > 0 {
			s.log.Info().Str("worker_stderr", string(buf[:n])).Msg("worker log")
		}
		if err != nil {
			return
		}
	}
}

func (s *Supervisor) isExiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exiting
}

// Shutdown marks the supervisor as exiting and kills the current
// worker (spec.md §4.7 "set exiting=true, send KILL to the worker").
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.exiting = true
	worker := s.worker
	s.mu.Unlock()

	if worker != nil {
		if err := worker.Kill(); err != nil {
			s.log.Warn().Err(err).Msg("failed to kill worker on shutdown")
		}
	}
}

// Bridge exposes the bridge for plugin-facing enqueue calls that
// originate outside an IRC event (currently unused, reserved for
// future admin-triggered broadcasts).
func (s *Supervisor) Bridge() *rpcbridge.Bridge { return s.bridge }

// LoadConfig reads and validates the supervisor's config file
// (spec.md §6 "a fixed config.json for the supervisor").
func LoadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("supervisor config: %w", err)
	}
	return config.Load(path, nil)
}
