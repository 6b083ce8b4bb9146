package rpcbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrRPC reports a remote call that failed because the worker exited
// mid-call (spec.md §7 RPCError). Never retried.
var ErrRPC = errors.New("rpc error")

// State is the bridge's connection state (spec.md §4.6).
type State int

const (
	Idle State = iota
	Connected
	Draining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

// QueuedCall is one outbound remote call awaiting delivery
// (spec.md §3).
type QueuedCall struct {
	EnqueuedAt time.Time
	Method     string
	Args       []any
	result     chan callResult
}

type callResult struct {
	raw json.RawMessage
	err error
}

// Bridge is the supervisor-side RPC channel to the worker: a FIFO of
// QueuedCall plus a cooperative, strictly serial drain loop
// (spec.md §4.6).
type Bridge struct {
	log zerolog.Logger

	mu        sync.Mutex
	state     State
	transport Transport
	queue     []*QueuedCall
	drainWake chan struct{}
	nextID    uint64

	inFlightMu sync.Mutex
	inFlight   *QueuedCall

	registered func()

	dispatchMu sync.Mutex
	dispatch   map[string]RemoteCallHandler
}

// RemoteCallHandler answers a call the worker issues back to the
// supervisor against a RemoteProtocolRef (msg/join/leave), completing
// the bidirectional half of the channel spec.md §1 describes.
type RemoteCallHandler func(args []any) (any, error)

// HandleRemoteCall registers the handler invoked when the worker
// issues a "call" frame for method (e.g. "msg", "join", "leave").
func (b *Bridge) HandleRemoteCall(method string, h RemoteCallHandler) {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()
	if b.dispatch == nil {
		b.dispatch = make(map[string]RemoteCallHandler)
	}
	b.dispatch[method] = h
}

// New creates an idle Bridge. onRegister, if non-nil, is invoked each
// time the worker registers (spec.md §4.6 "register(app)").
func New(log zerolog.Logger, onRegister func()) *Bridge {
	return &Bridge{
		log:        log.With().Str("component", "rpc-bridge").Logger(),
		state:      Idle,
		drainWake:  make(chan struct{}, 1),
		registered: onRegister,
	}
}

// State returns the bridge's current state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// QueueDepth returns the number of calls waiting to be drained.
func (b *Bridge) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Enqueue appends a call to the FIFO, stamped with the current time,
// and wakes the drain loop if a worker is connected. Calls enqueued
// while Idle persist until a worker next registers (spec.md §4.6).
func (b *Bridge) Enqueue(method string, args ...any) {
	b.mu.Lock()
	b.queue = append(b.queue, &QueuedCall{
		EnqueuedAt: time.Now(),
		Method:     method,
		Args:       args,
	})
	b.mu.Unlock()
	b.wakeDrain()
}

func (b *Bridge) wakeDrain() {
	select {
	case b.drainWake <- struct{}{}:
	default:
	}
}

// Attach binds a freshly started worker's Transport to the bridge and
// starts the read loop. The bridge stays Idle until the worker sends
// a register frame (spec.md §4.6 register(app)).
func (b *Bridge) Attach(t Transport) {
	b.mu.Lock()
	b.transport = t
	b.mu.Unlock()

	go b.readLoop(t)
}

// Disconnect clears the current worker reference (spec.md §4.6
// disconnect()). Any in-flight call fails and is logged but not
// re-queued.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	b.transport = nil
	b.state = Idle
	b.mu.Unlock()
}

func (b *Bridge) readLoop(t Transport) {
	for {
		line, err := t.ReadFrame()
		if err != nil {
			b.log.Info().Err(err).Msg("worker transport closed")
			b.failInFlight(fmt.Errorf("%w: %v", ErrRPC, err))
			b.Disconnect()
			return
		}

		kind, err := PeekKind(line)
		if err != nil {
			b.log.Warn().Err(err).Msg("malformed frame, dropping")
			continue
		}

		switch kind {
		case KindRegister:
			b.onRegister()
		case KindResult:
			frame, err := Decode(line)
			if err != nil {
				b.log.Warn().Err(err).Msg("malformed result frame")
				continue
			}
			b.deliverResult(frame)
		case KindCall:
			frame, err := Decode(line)
			if err != nil {
				b.log.Warn().Err(err).Msg("malformed call frame")
				continue
			}
			go b.serveRemoteCall(t, frame)
		default:
			b.log.Warn().Str("kind", string(kind)).Msg("unexpected frame kind")
		}
	}
}

// serveRemoteCall answers a call frame the worker sent against a
// RemoteProtocolRef capability (spec.md §3), writing back a result
// frame on the same transport.
func (b *Bridge) serveRemoteCall(t Transport, frame Frame) {
	b.dispatchMu.Lock()
	h := b.dispatch[frame.Method]
	b.dispatchMu.Unlock()

	result := Frame{Kind: KindResult, ID: frame.ID}
	if h == nil {
		result.Error = fmt.Sprintf("no such remote method %q", frame.Method)
	} else if v, err := h(frame.Args); err != nil {
		result.Error = err.Error()
	} else if raw, err := json.Marshal(v); err != nil {
		result.Error = err.Error()
	} else {
		result.Result = raw
	}

	line, err := Encode(result)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to encode remote call result")
		return
	}
	if err := t.WriteFrame(line); err != nil {
		b.log.Warn().Err(err).Msg("failed to write remote call result")
	}
}

func (b *Bridge) onRegister() {
	b.mu.Lock()
	b.state = Draining
	b.mu.Unlock()

	b.log.Info().Msg("worker registered")
	if b.registered != nil {
		b.registered()
	}
	go b.drainLoop()
}

func (b *Bridge) deliverResult(frame Frame) {
	b.inFlightMu.Lock()
	call := b.inFlight
	b.inFlight = nil
	b.inFlightMu.Unlock()

	if call == nil {
		b.log.Warn().Msg("result frame with no in-flight call")
		return
	}
	var err error
	if frame.Error != "" {
		err = fmt.Errorf("%w: %s", ErrRPC, frame.Error)
	}
	call.result <- callResult{raw: frame.Result, err: err}
}

func (b *Bridge) failInFlight(err error) {
	b.inFlightMu.Lock()
	call := b.inFlight
	b.inFlight = nil
	b.inFlightMu.Unlock()

	if call != nil {
		call.result <- callResult{err: err}
	}
}

// drainLoop pops the queue one call at a time, writing it to the
// transport and blocking for its result before popping the next
// (spec.md §4.6 "single-threaded cooperative loop").
func (b *Bridge) drainLoop() {
	for {
		b.mu.Lock()
		if b.state != Draining || b.transport == nil {
			b.mu.Unlock()
			return
		}
		if len(b.queue) == 0 {
			b.mu.Unlock()
			<-b.drainWake
			continue
		}
		call := b.queue[0]
		b.queue = b.queue[1:]
		t := b.transport
		b.mu.Unlock()

		call.result = make(chan callResult, 1)
		id := b.allocID()

		frame := Frame{Kind: KindCall, ID: id, Method: call.Method, Args: call.Args, EnqueuedAt: call.EnqueuedAt.Unix()}
		line, err := Encode(frame)
		if err != nil {
			b.log.Error().Err(err).Str("method", call.Method).Msg("failed to encode call")
			continue
		}

		b.inFlightMu.Lock()
		b.inFlight = call
		b.inFlightMu.Unlock()

		if err := t.WriteFrame(line); err != nil {
			b.log.Warn().Err(err).Str("method", call.Method).Msg("call write failed")
			b.failInFlight(fmt.Errorf("%w: %v", ErrRPC, err))
			return
		}

		res := <-call.result
		if res.err != nil {
			b.log.Warn().Err(res.err).Str("method", call.Method).Msg("call failed")
		}
	}
}

func (b *Bridge) allocID() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}
