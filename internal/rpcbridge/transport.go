package rpcbridge

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sync"
)

// Transport is the wire-level carrier for frames: either the worker's
// stdio pipes or a TCP/websocket connection (spec.md §4.6, §9 Open
// Question — both are shipped, selected by supervisor flag).
type Transport interface {
	// ReadFrame blocks for the next frame. Returns an error when the
	// peer has gone away (io.EOF for the line-scanner transport).
	ReadFrame() ([]byte, error)
	// WriteFrame writes one already-newline-terminated frame.
	WriteFrame(line []byte) error
	Close() error
}

// scannerTransport adapts a bufio.Scanner-based reader and a plain
// writer to Transport, the way stages/exec.go scans stdout line by
// line and writes to stdin directly.
type scannerTransport struct {
	mu     sync.Mutex
	reader *bufio.Scanner
	writer io.Writer
	closer io.Closer
}

func newScannerTransport(r io.Reader, w io.Writer, c io.Closer) *scannerTransport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &scannerTransport{reader: scanner, writer: w, closer: c}
}

func (t *scannerTransport) ReadFrame() ([]byte, error) {
	if !t.reader.Scan() {
		if err := t.reader.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := bytes.TrimSpace(t.reader.Bytes())
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

func (t *scannerTransport) WriteFrame(line []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.writer.Write(line)
	return err
}

func (t *scannerTransport) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// NewStdioTransport wraps the process's own stdin/stdout as a
// Transport: the worker's default RPC carrier, inherited from the
// supervisor's exec.Cmd pipes (spec.md §4.6 "the worker treats them
// as a single framed remote-object channel").
func NewStdioTransport() Transport {
	return newScannerTransport(os.Stdin, os.Stdout, os.Stdin)
}
