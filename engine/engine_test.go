package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/engine/profiler"
)

func TestEngine_RunStopsOnQuit(t *testing.T) {
	var e Engine
	e = NewEngine(WithRenderCallback(func(ctx context.Context, dt float32) error {
		if e.Frames() == 4 {
			e.Quit()
		}
		return nil
	}))

	require.NoError(t, e.Run(context.Background()))
	assert.GreaterOrEqual(t, e.Frames(), uint64(5))
	assert.Nil(t, e.Window())
}

func TestEngine_RunReportsRenderError(t *testing.T) {
	errLost := errors.New("device lost")
	var calls atomic.Int32
	e := NewEngine(WithRenderCallback(func(ctx context.Context, dt float32) error {
		if calls.Add(1) == 3 {
			return errLost
		}
		return nil
	}))

	err := e.Run(context.Background())
	require.ErrorIs(t, err, errLost)
	assert.Equal(t, uint64(2), e.Frames())
	assert.Equal(t, int32(3), calls.Load())
}

func TestEngine_RunRecoversRenderPanic(t *testing.T) {
	e := NewEngine(WithRenderCallback(func(ctx context.Context, dt float32) error {
		panic("boom")
	}))
	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestEngine_ContextCancellationIsCleanShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	e := NewEngine(
		WithRenderFrameLimit(200),
		WithRenderCallback(func(ctx context.Context, dt float32) error {
			return ctx.Err()
		}),
	)
	require.NoError(t, e.Run(ctx))
}

func TestEngine_TicksAndProfiles(t *testing.T) {
	clock := time.Unix(0, 0)
	p := profiler.NewProfiler(profiler.WithClock(func() time.Time { return clock }), profiler.WithInterval(time.Hour))

	var ticks atomic.Int32
	e := NewEngine(WithProfiler(p), WithProfiling(true), WithTickRate(500), WithRenderFrameLimit(1000))
	assert.Same(t, p, e.Profiler())

	e.SetTickCallback(func(dt float32) {
		if ticks.Add(1) >= 3 {
			e.Quit()
		}
	})
	e.SetRenderCallback(func(ctx context.Context, dt float32) error {
		p.Record("frame", time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))
	assert.Equal(t, []string{"frame"}, p.Passes())
}

func TestEngine_RunTwiceConcurrently(t *testing.T) {
	started := make(chan struct{})
	var once atomic.Bool
	e := NewEngine(WithRenderFrameLimit(500))
	e.SetRenderCallback(func(ctx context.Context, dt float32) error {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-started

	assert.ErrorIs(t, e.Run(context.Background()), ErrAlreadyRunning)
	e.Quit()
	require.NoError(t, <-done)
}
