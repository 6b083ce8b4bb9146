package titlefetch

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestCappedReader_TruncatesExactly(t *testing.T) {
	// Invariant 5: after streaming N>2MiB bytes, exactly the limit is fed.
	const limit = 10
	src := strings.Repeat("x", 100)
	cr := newCappedReader(strings.NewReader(src), limit)

	var buf bytes.Buffer
	_, err := io.Copy(&buf, cr)
	if err != nil && err != io.EOF {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != limit {
		t.Fatalf("got %d bytes, want %d", buf.Len(), limit)
	}
}

func TestCappedReader_ShortBodyPassesThrough(t *testing.T) {
	src := "short"
	cr := newCappedReader(strings.NewReader(src), 2*1024*1024)
	out, err := io.ReadAll(cr)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != src {
		t.Fatalf("got %q, want %q", out, src)
	}
}

func TestExtractTitle_TruncatedStillFindsTitle(t *testing.T) {
	// S7: a response truncated at the body cap still yields the title
	// if the <title> element appeared before the cut.
	html := `<html><head><title>Hello World</title></head><body>` + strings.Repeat("z", 1000)
	title, err := extractTitle(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if title != "Hello World" {
		t.Fatalf("got %q", title)
	}
}

func TestExtractTitle_NoTitle(t *testing.T) {
	title, err := extractTitle(strings.NewReader(`<html><body>hi</body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	if title != "" {
		t.Fatalf("expected empty title, got %q", title)
	}
}
