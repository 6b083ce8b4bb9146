package ttlcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_TTLBoundary(t *testing.T) {
	// Invariant 3: update at t=0 with expiration E; fetch returns v for
	// all t<E and absent for t>=E, regardless of the reaper.
	c := New[string](10 * time.Second)
	base := time.Unix(0, 0)
	c.now = func() time.Time { return base }

	c.Update("k", "v")

	c.now = func() time.Time { return base.Add(9 * time.Second) }
	v, ok := c.Fetch("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	c.now = func() time.Time { return base.Add(10 * time.Second) }
	_, ok = c.Fetch("k")
	assert.False(t, ok)
}

func TestHas(t *testing.T) {
	c := New[string](time.Minute)
	assert.False(t, c.Has("x"))
	c.Update("x", "y")
	assert.True(t, c.Has("x"))
}

func TestEnableDisable_Idempotent(t *testing.T) {
	c := New[int](time.Millisecond)
	c.Enable()
	c.Enable() // no panic, no second goroutine leak
	c.Disable()
	c.Disable()
}

func TestReap_DropsExpired(t *testing.T) {
	c := New[string](5 * time.Millisecond)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Update("stale", "v")

	c.now = func() time.Time { return base.Add(time.Second) }
	c.reap()

	_, found := c.db.Load("stale")
	assert.False(t, found)
}
