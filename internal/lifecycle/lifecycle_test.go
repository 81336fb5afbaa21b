package lifecycle

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/mj1618/quadview/internal/scheduler"
	"github.com/mj1618/quadview/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// removals records Remove calls; the other window operations are unused.
type removals struct {
	platform.WindowSystem
	mu      sync.Mutex
	removed []model.Handle
}

func (r *removals) Remove(_ context.Context, h model.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, h)
	return nil
}

func (r *removals) list() []model.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Handle(nil), r.removed...)
}

type forgetter struct {
	forgot chan model.Handle
}

func (f *forgetter) ForgetChild(_ context.Context, h model.Handle) error {
	f.forgot <- h
	return nil
}

func handle(h model.Handle) *model.Handle { return &h }

func newBackground(t *testing.T, st platform.Store, reg Registry) (*Background, *removals, chan platform.Event) {
	t.Helper()
	win := &removals{}
	b := New(Options{
		Windows:    win,
		Store:      st,
		Registry:   reg,
		AckTimeout: time.Second,
		Logger:     log.New(io.Discard),
	})
	events := make(chan platform.Event)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx, events)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b, win, events
}

func TestCloseAllChildren_Acknowledged(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryWith(model.State{
		Layout:             model.TwoByTwo,
		ChildIDs:           model.ChildSet{11, 12, 13, 14},
		ControllerWindowID: handle(1),
	})
	b, win, _ := newBackground(t, st, nil)

	require.NoError(t, b.CloseAllChildren(ctx))
	assert.Equal(t, []model.Handle{11, 12, 13, 14}, win.list())

	got, err := st.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.ChildIDs)
	assert.Nil(t, got.ControllerWindowID)
	assert.Equal(t, model.TwoByTwo, got.Layout, "layout survives cleanup")
}

func TestCloseAllChildren_TimesOutWithoutRun(t *testing.T) {
	b := New(Options{
		Windows:    &removals{},
		Store:      store.NewMemory(),
		AckTimeout: 20 * time.Millisecond,
		Logger:     log.New(io.Discard),
	})
	err := b.CloseAllChildren(context.Background())
	assert.ErrorIs(t, err, ErrAckTimeout)
}

func TestRun_WindowRemovedPrunesRecord(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryWith(model.State{ChildIDs: model.ChildSet{11, 12, 13, 14}})
	_, _, events := newBackground(t, st, nil)

	events <- platform.Event{Kind: platform.EventWindowRemoved, Window: 12}
	events <- platform.Event{Kind: platform.EventWindowRemoved, Window: 99}

	require.Eventually(t, func() bool {
		got, _ := st.Get(ctx)
		return len(got.ChildIDs) == 3
	}, time.Second, 5*time.Millisecond)
	got, _ := st.Get(ctx)
	assert.Equal(t, model.ChildSet{11, 13, 14}, got.ChildIDs)
}

func TestRun_WindowRemovedUsesRegistry(t *testing.T) {
	reg := &forgetter{forgot: make(chan model.Handle, 1)}
	_, _, events := newBackground(t, store.NewMemory(), reg)

	events <- platform.Event{Kind: platform.EventWindowRemoved, Window: 12}
	assert.Equal(t, model.Handle(12), <-reg.forgot)
}

func TestRun_ControllerFocusRaises(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	b, _, events := newBackground(t, st, nil)
	require.NoError(t, b.Attach(ctx, 1))

	events <- platform.Event{Kind: platform.EventWindowFocused, Window: 12}
	events <- platform.Event{Kind: platform.EventWindowFocused, Window: 1}

	select {
	case sig := <-b.Signals():
		assert.Equal(t, scheduler.Raise("window-focused"), sig)
	case <-time.After(time.Second):
		t.Fatal("no raise signal")
	}
	assert.Empty(t, b.Signals(), "focus on a child does not raise")
}

func TestRun_SurfaceClosedCleansUp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryWith(model.State{ChildIDs: model.ChildSet{11, 12}, ControllerWindowID: handle(1)})
	_, win, events := newBackground(t, st, nil)

	events <- platform.Event{Kind: platform.EventSurfaceClosed}

	require.Eventually(t, func() bool { return len(win.list()) == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		got, _ := st.Get(ctx)
		return got.ChildIDs == nil && got.ControllerWindowID == nil
	}, time.Second, 5*time.Millisecond)
}

func TestRun_SurfaceClosedNotifies(t *testing.T) {
	closed := make(chan struct{})
	b := New(Options{
		Windows:         &removals{},
		Store:           store.NewMemory(),
		Logger:          log.New(io.Discard),
		OnSurfaceClosed: func() { close(closed) },
	})
	events := make(chan platform.Event, 1)
	events <- platform.Event{Kind: platform.EventSurfaceClosed}
	close(events)

	require.NoError(t, b.Run(context.Background(), events))
	select {
	case <-closed:
	default:
		t.Fatal("OnSurfaceClosed not called")
	}
}

func TestSetRegistry(t *testing.T) {
	reg := &forgetter{forgot: make(chan model.Handle, 1)}
	b := New(Options{Windows: &removals{}, Store: store.NewMemory(), Logger: log.New(io.Discard)})
	b.SetRegistry(reg)
	ch := make(chan platform.Event, 1)
	ch <- platform.Event{Kind: platform.EventWindowRemoved, Window: 5}
	close(ch)
	require.NoError(t, b.Run(context.Background(), ch))
	assert.Equal(t, model.Handle(5), <-reg.forgot)
}
