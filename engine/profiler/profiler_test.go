package profiler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProfiler_MeasureRecordsPassTime(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Hour))

	errBoom := errors.New("boom")
	err := p.Measure("ray march", func() error {
		clock.advance(4 * time.Millisecond)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	require.NoError(t, p.Measure("ray march", func() error {
		clock.advance(2 * time.Millisecond)
		return nil
	}))

	assert.False(t, p.Tick())
	assert.False(t, p.Tick())
	assert.Equal(t, 3*time.Millisecond, p.PassAverage("ray march"))
	assert.Zero(t, p.PassAverage("unknown"))
}

func TestProfiler_TickResetsAfterInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Second))

	p.Record("geometry", time.Millisecond)
	clock.advance(500 * time.Millisecond)
	assert.False(t, p.Tick())

	clock.advance(600 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Zero(t, p.PassAverage("geometry"))
}
