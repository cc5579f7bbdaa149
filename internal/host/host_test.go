package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/routekit/internal/registry"
	"github.com/rshade/routekit/internal/route"
	"github.com/rshade/routekit/internal/router"
)

type screen struct{ title string }

type home struct{}

type result struct {
	mu    sync.Mutex
	calls int
	ok    bool
	err   error
	done  chan struct{}
}

func newResult() *result {
	return &result{done: make(chan struct{}, 4)}
}

func (r *result) completion() router.Completion {
	return func(ok bool, err error) {
		r.mu.Lock()
		r.calls++
		r.ok = ok
		r.err = err
		r.mu.Unlock()
		r.done <- struct{}{}
	}
}

func (r *result) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("transition did not complete")
	}
}

func TestStack_PerformAndRemove(t *testing.T) {
	s := NewStack()
	a, b := &screen{"a"}, &screen{"b"}
	src := &home{}

	res := newResult()
	s.PerformTransition(context.Background(), a, route.Push(src), res.completion())
	res.wait(t)
	assert.True(t, res.ok)

	s.PerformTransition(context.Background(), b, route.Present(src, route.WithParam("animated", false)), res.completion())
	res.wait(t)

	require.Equal(t, 2, s.Len())
	top := s.Peek()
	require.NotNil(t, top)
	assert.Same(t, b, top.Destination)
	assert.Equal(t, route.KindPresent, top.Kind)
	assert.False(t, top.Animated)
	assert.Same(t, src, top.Source)

	// Removing a lower entry keeps the one above it.
	s.PerformRemoveTransition(context.Background(), a, route.Push(src), res.completion())
	res.wait(t)
	assert.True(t, res.ok)
	assert.False(t, s.Contains(a))
	assert.True(t, s.Contains(b))

	s.PerformRemoveTransition(context.Background(), a, route.Push(src), res.completion())
	res.wait(t)
	assert.False(t, res.ok)
	assert.ErrorIs(t, res.err, ErrNotOnStack)
}

func TestStack_PopPeekClear(t *testing.T) {
	s := NewStack()
	assert.Nil(t, s.Pop())
	assert.Nil(t, s.Peek())
	assert.True(t, s.IsEmpty())

	s.Push(StackEntry{Destination: &screen{"one"}, Kind: route.KindPush})
	s.Push(StackEntry{Destination: &screen{"two"}, Kind: route.KindPush})

	popped := s.Pop()
	require.NotNil(t, popped)
	assert.Equal(t, "two", popped.Destination.(*screen).title)
	assert.Len(t, s.Entries(), 1)

	s.Clear()
	assert.True(t, s.IsEmpty())
}

func TestStack_RemoveNotComparable(t *testing.T) {
	s := NewStack()
	err := s.Remove([]string{"x"})
	assert.ErrorIs(t, err, ErrNotComparable)
	assert.ErrorIs(t, s.Remove(nil), ErrNotComparable)
}

func TestStack_Failure(t *testing.T) {
	boom := errors.New("animation interrupted")
	s := NewStack(WithFailure(func(op string, kind route.Kind, _ any) error {
		if op == OpPerform && kind == route.KindPresent {
			return boom
		}
		return nil
	}))

	res := newResult()
	s.PerformTransition(context.Background(), &screen{}, route.Present(&home{}), res.completion())
	res.wait(t)
	assert.False(t, res.ok)
	assert.ErrorIs(t, res.err, boom)
	assert.True(t, s.IsEmpty())
}

func TestStack_Delay(t *testing.T) {
	s := NewStack(WithDelay(10 * time.Millisecond))
	res := newResult()

	s.PerformTransition(context.Background(), &screen{}, route.Push(&home{}), res.completion())
	res.mu.Lock()
	calls := res.calls
	res.mu.Unlock()
	assert.Zero(t, calls, "delayed transition completes later")

	res.wait(t)
	assert.True(t, res.ok)
	assert.Equal(t, 1, s.Len())
}

func TestRecorder_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStack(WithFailure(func(op string, _ route.Kind, _ any) error {
		if op == OpRemove {
			return errors.New("stuck")
		}
		return nil
	}))
	rec := NewRecorder(s, &buf, zerolog.Nop())
	dest := &screen{"x"}

	res := newResult()
	rec.PerformTransition(context.Background(), dest, route.Push(&home{}), res.completion())
	res.wait(t)
	rec.PerformRemoveTransition(context.Background(), dest, route.Push(&home{}), res.completion())
	res.wait(t)

	require.Equal(t, 2, rec.Count())

	var records []Record
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		records = append(records, r)
	}
	require.Len(t, records, 2)

	assert.Equal(t, OpPerform, records[0].Operation)
	assert.Equal(t, "push", records[0].Kind)
	assert.Equal(t, "*host.screen", records[0].Destination)
	assert.Equal(t, "*host.home", records[0].Source)
	assert.True(t, records[0].OK)
	assert.Len(t, records[0].ID, 26)

	assert.Equal(t, OpRemove, records[1].Operation)
	assert.False(t, records[1].OK)
	assert.Equal(t, "stuck", records[1].Error)
}

type screenConfig struct {
	route.PerformConfig
	Title string
}

func TestStack_WithEngine(t *testing.T) {
	reg := registry.New()
	desc := router.MustDescriptor(router.Spec[*screen, *screenConfig]{
		Name:      "screen",
		NewConfig: func() *screenConfig { return &screenConfig{} },
		Build: func(_ context.Context, cfg *screenConfig) (*screen, error) {
			return &screen{title: cfg.Title}, nil
		},
	})
	require.NoError(t, router.Register(reg, desc, registry.Class[*screen]()))

	stack := NewStack()
	eng := router.NewEngine(reg, router.WithTransitioner(stack))
	facade := router.To[*screen, *screenConfig](eng, registry.Class[*screen]())

	r, err := facade.PerformPath(context.Background(), route.Push(&home{}), func(cfg *screenConfig, _ route.Hooks[*screen]) {
		cfg.Title = "settings"
	})
	require.NoError(t, err)
	assert.Equal(t, router.StateRouted, r.State())
	require.Equal(t, 1, stack.Len())
	assert.Equal(t, "settings", stack.Peek().Destination.(*screen).title)

	require.NoError(t, r.Remove(context.Background(), nil))
	assert.Equal(t, router.StateRemoved, r.State())
	assert.True(t, stack.IsEmpty())
}
