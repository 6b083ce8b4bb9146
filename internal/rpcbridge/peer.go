package rpcbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// CallHandler answers an incoming "call" frame (spec.md §4.8
// handlePublicMessage/handlePrivateMessage) and returns the value to
// encode into the matching result frame.
type CallHandler func(frame Frame) (any, error)

// Peer is the worker-side half of the bidirectional RPC channel: it
// serves inbound calls from the supervisor and can itself issue calls
// back (msg/join/leave against a RemoteProtocolRef), tracked by id in
// pending so results route back to the right caller even though, on
// this side, more than one ref call may be outstanding at once.
type Peer struct {
	log       zerolog.Logger
	transport Transport

	handlers map[string]CallHandler

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan Frame
}

// NewPeer wraps transport as a worker-side RPC peer.
func NewPeer(log zerolog.Logger, transport Transport) *Peer {
	return &Peer{
		log:       log.With().Str("component", "rpc-peer").Logger(),
		transport: transport,
		handlers:  make(map[string]CallHandler),
		pending:   make(map[uint64]chan Frame),
	}
}

// Handle registers the handler for an inbound method name.
func (p *Peer) Handle(method string, h CallHandler) {
	p.handlers[method] = h
}

// Register sends the one-time registration frame (spec.md §4.8
// "calls the supervisor's register(api) once").
func (p *Peer) Register() error {
	line, err := Encode(Frame{Kind: KindRegister})
	if err != nil {
		return err
	}
	return p.transport.WriteFrame(line)
}

// Serve runs the read loop until the transport closes. Call after
// Register.
func (p *Peer) Serve() error {
	for {
		line, err := p.transport.ReadFrame()
		if err != nil {
			return err
		}

		kind, err := PeekKind(line)
		if err != nil {
			p.log.Warn().Err(err).Msg("malformed frame, dropping")
			continue
		}

		switch kind {
		case KindCall:
			frame, err := Decode(line)
			if err != nil {
				p.log.Warn().Err(err).Msg("malformed call frame")
				continue
			}
			go p.serveCall(frame)
		case KindResult:
			frame, err := Decode(line)
			if err != nil {
				p.log.Warn().Err(err).Msg("malformed result frame")
				continue
			}
			p.deliver(frame)
		default:
			p.log.Warn().Str("kind", string(kind)).Msg("unexpected frame kind")
		}
	}
}

func (p *Peer) serveCall(frame Frame) {
	h, ok := p.handlers[frame.Method]
	result := Frame{Kind: KindResult, ID: frame.ID}

	if !ok {
		result.Error = fmt.Sprintf("no such method %q", frame.Method)
	} else if v, err := h(frame); err != nil {
		result.Error = err.Error()
	} else if raw, err := json.Marshal(v); err != nil {
		result.Error = err.Error()
	} else {
		result.Result = raw
	}

	line, err := Encode(result)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to encode result")
		return
	}
	if err := p.transport.WriteFrame(line); err != nil {
		p.log.Warn().Err(err).Msg("failed to write result")
	}
}

func (p *Peer) deliver(frame Frame) {
	p.mu.Lock()
	ch, ok := p.pending[frame.ID]
	if ok {
		delete(p.pending, frame.ID)
	}
	p.mu.Unlock()

	if ok {
		ch <- frame
	}
}

// Call issues method back to the supervisor (e.g. "msg", "join",
// "leave" against a RemoteProtocolRef) and blocks for its result.
func (p *Peer) Call(method string, args ...any) (json.RawMessage, error) {
	id := p.nextID.Add(1)
	ch := make(chan Frame, 1)

	p.mu.Lock()
	p.pending[id] = ch
	p.mu.Unlock()

	line, err := Encode(Frame{Kind: KindCall, ID: id, Method: method, Args: args})
	if err != nil {
		return nil, err
	}
	if err := p.transport.WriteFrame(line); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRPC, err)
	}

	result := <-ch
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRPC, result.Error)
	}
	return result.Result, nil
}
