package titlefetch

import "io"

// cappedReader stops feeding bytes to the wrapped reader once limit
// bytes have been delivered, truncating the final chunk to the exact
// limit rather than discarding it wholesale (spec.md §4.3 body cap,
// invariant 5).
type cappedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func newCappedReader(r io.Reader, limit int64) *cappedReader {
	return &cappedReader{r: r, limit: limit}
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.read >= c.limit {
		return 0, io.EOF
	}
	remaining := c.limit - c.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read >= c.limit && err == nil {
		err = io.EOF
	}
	return n, err
}
