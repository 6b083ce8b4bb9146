// Package rpcbridge implements both halves of the
// worker<->supervisor remote call channel (spec.md §4.6, C6): on the
// supervisor side, a FIFO of enqueued calls, a cooperative
// single-in-flight drain loop, and the registration handshake the
// worker performs once on boot; on the worker side, Peer.
//
// Wire codec ported from stages/exec.go's bufio.Scanner +
// newline-delimited JSON framing; frame-kind peeking ported from
// stages/ris-live.go's jsonparser field peek before a full decode.
package rpcbridge

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// Kind discriminates the three frame shapes carried on the channel.
type Kind string

const (
	KindRegister Kind = "register"
	KindCall     Kind = "call"
	KindResult   Kind = "result"
)

// Frame is one line of the wire protocol, always terminated by '\n'
// once marshaled.
type Frame struct {
	Kind       Kind            `json:"kind"`
	ID         uint64          `json:"id,omitempty"`
	Method     string          `json:"method,omitempty"`
	Args       []any           `json:"args,omitempty"`
	EnqueuedAt int64           `json:"enqueued_at,omitempty"` // unix seconds, for the worker's staleness gate
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Encode marshals f with a trailing newline, ready to write to a
// Transport.
func Encode(f Frame) ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// PeekKind extracts the "kind" field without a full unmarshal, the
// way ris-live.go checks includeRaw before decoding the rest of a
// message.
func PeekKind(line []byte) (Kind, error) {
	v, err := jsonparser.GetString(line, "kind")
	if err != nil {
		return "", fmt.Errorf("peek frame kind: %w", err)
	}
	return Kind(v), nil
}

// Decode fully unmarshals line into a Frame.
func Decode(line []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(line, &f)
	return f, err
}
