package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediate(t *testing.T) {
	var ran bool
	Immediate{}.Dispatch(func() { ran = true })
	assert.True(t, ran)

	// nil work is ignored.
	Immediate{}.Dispatch(nil)
}

func TestDispatcherFunc(t *testing.T) {
	calls := 0
	d := DispatcherFunc(func(fn func()) {
		calls++
		fn()
	})
	ran := false
	d.Dispatch(func() { ran = true })
	assert.Equal(t, 1, calls)
	assert.True(t, ran)
}

// startLoop runs l in the background and returns a function that stops it
// and waits for Run to return.
func startLoop(t *testing.T, l *Loop) func() error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(context.Background()) }()
	return func() error {
		l.Stop()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("loop did not stop")
			return nil
		}
	}
}

func TestLoop_FIFO(t *testing.T) {
	l := NewLoop(WithCapacity(8))

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Dispatch(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	stop := startLoop(t, l)
	require.NoError(t, l.Do(context.Background(), func() {}))
	require.NoError(t, stop())

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}

	stats := l.Stats()
	assert.Equal(t, int64(101), stats.Dispatched)
	assert.Equal(t, int64(101), stats.Executed)
	assert.Zero(t, stats.Pending)
}

func TestLoop_DispatchAfterStopIsDropped(t *testing.T) {
	l := NewLoop()
	stop := startLoop(t, l)
	require.NoError(t, stop())
	assert.True(t, l.Stopped())

	ran := false
	l.Dispatch(func() { ran = true })
	assert.False(t, ran)
	assert.Equal(t, int64(1), l.Stats().Dropped)

	err := l.Do(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestLoop_DrainsQueuedWorkOnStop(t *testing.T) {
	l := NewLoop()
	count := 0
	for i := 0; i < 10; i++ {
		l.Dispatch(func() { count++ })
	}
	l.Stop()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 10, count)
}

func TestLoop_ContextCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	require.NoError(t, l.Do(context.Background(), func() {}))
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestLoop_RunTwice(t *testing.T) {
	l := NewLoop()
	stop := startLoop(t, l)
	defer func() { _ = stop() }()

	// Wait until the first Run owns the loop.
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Error(t, l.Run(context.Background()))
}

func TestLoop_DoTimeout(t *testing.T) {
	l := NewLoop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Nobody runs the loop.
	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoop_PanicDoesNotKillLoop(t *testing.T) {
	l := NewLoop()
	stop := startLoop(t, l)

	l.Dispatch(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	require.NoError(t, stop())

	assert.True(t, ran)
	assert.Equal(t, int64(1), l.Stats().Panics)
}

func TestLoop_ConcurrentDispatch(t *testing.T) {
	l := NewLoop()
	stop := startLoop(t, l)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// counter is only touched on the loop goroutine.
			l.Dispatch(func() { counter++ })
		}()
	}
	wg.Wait()

	require.NoError(t, l.Do(context.Background(), func() {}))
	require.NoError(t, stop())
	assert.Equal(t, 50, counter)
}
