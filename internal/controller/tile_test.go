package controller

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTile_AppliesTwoByTwo(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	require.NoError(t, h.c.Tile(ctx, false, false))

	children := h.c.Children()
	require.Len(t, children, 4)
	assert.Equal(t, model.Rect{Left: 108, Top: 158, Width: 488, Height: 297}, h.windows.rectOf(children[0]))
	assert.Equal(t, model.Rect{Left: 604, Top: 463, Width: 488, Height: 297}, h.windows.rectOf(children[3]))

	st := h.c.Status()
	require.NotNil(t, st.Bounds)
	assert.Equal(t, scenarioBounds, *st.Bounds)
	assert.Len(t, st.Rects, 4)
}

func TestTile_IdempotentWhenBoundsUnchanged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	require.NoError(t, h.c.Tile(ctx, false, false))
	assert.Equal(t, 4, h.windows.moveCount())

	require.NoError(t, h.c.Tile(ctx, false, false))
	assert.Equal(t, 4, h.windows.moveCount(), "second cycle must not write geometry")

	require.NoError(t, h.c.Tile(ctx, true, false))
	assert.Equal(t, 8, h.windows.moveCount(), "forced cycle rewrites")
}

func TestTile_RetilesOnBoundsChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.c.Tile(ctx, false, false))

	h.sensor.set(model.ParentBounds{Left: 0, Top: 0, Width: 1000, Height: 668})
	require.NoError(t, h.c.Tile(ctx, false, false))

	children := h.c.Children()
	assert.Equal(t, model.Rect{Left: 8, Top: 58, Width: 488, Height: 297}, h.windows.rectOf(children[0]))
	assert.Equal(t, MoveMoving, h.c.move.State())
}

func TestTile_NoOpWhenMeasurementAbsent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.sensor.absent()

	require.NoError(t, h.c.Tile(ctx, true, false))
	assert.Zero(t, h.windows.moveCount())
	assert.Len(t, h.c.Children(), 4, "reconciliation still runs")
}

func TestTile_SkipsWhenChildrenIncomplete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.windows.createCap = 3

	require.NoError(t, h.c.Tile(ctx, true, false))
	assert.Zero(t, h.windows.moveCount())
}

func TestTile_FailedUpdateSkipsOnlyThatChild(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	set, err := h.c.Reconcile(ctx)
	require.NoError(t, err)
	h.windows.failMove[set[1]] = true

	require.NoError(t, h.c.Tile(ctx, true, false))
	assert.Equal(t, 3, h.windows.moveCount())

	rects := h.c.Status().Rects
	assert.True(t, rects[1].IsZero(), "failed child keeps no applied rect")
	assert.False(t, rects[3].IsZero())
	assert.Equal(t, 4, h.windows.created, "no re-reconcile within the cycle")
}

func TestTile_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.windows.hold = make(chan struct{})
	h.windows.entered = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.c.Tile(ctx, true, false) }()
	<-h.windows.entered

	err := h.c.Tile(ctx, true, false)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, h.c.Reshow(ctx), ErrBusy)

	close(h.windows.hold)
	require.NoError(t, <-done)
	assert.Equal(t, 4, h.windows.moveCount(), "only the first invocation writes")
	assert.Equal(t, 4, h.windows.created)
}

func TestSetLayout_PersistsAndRetiles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.c.Tile(ctx, false, false))

	require.NoError(t, h.c.SetLayout(ctx, model.OnePlusThree))

	st, _ := h.store.Get(ctx)
	assert.Equal(t, model.OnePlusThree, st.Layout)
	children := h.c.Children()
	assert.Equal(t, model.Rect{Left: 108, Top: 158, Width: 634, Height: 610}, h.windows.rectOf(children[0]))

	assert.Error(t, h.c.SetLayout(ctx, "3x3"))
}

func TestSetLayout_WhileBusyRetilesNextCycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.c.Tile(ctx, false, false))

	h.c.opMu.Lock()
	require.NoError(t, h.c.SetLayout(ctx, model.OnePlusThree))
	h.c.opMu.Unlock()

	// Bounds are unchanged, but the pending layout change forces a retile.
	require.NoError(t, h.c.Tile(ctx, false, false))
	assert.Equal(t, 634, h.windows.rectOf(h.c.Children()[0]).Width)
}

func TestReloadLayout(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryWith(model.State{Layout: model.OnePlusThree})
	h := newHarness(t, st)

	require.NoError(t, h.c.ReloadLayout(ctx))
	assert.Equal(t, model.OnePlusThree, h.c.Layout())

	st2 := store.NewMemoryWith(model.State{Layout: "diagonal"})
	h = newHarness(t, st2)
	require.NoError(t, h.c.ReloadLayout(ctx))
	assert.Equal(t, model.TwoByTwo, h.c.Layout())
}

func TestTile_CallTimeoutApplied(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) { o.Settings.CallTimeout = time.Millisecond })
	assert.Equal(t, time.Millisecond, h.c.settings.CallTimeout)

	ctx, cancel := h.c.call(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}

func TestTile_UpdateFailureLogging(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(w *fakeWindows, h model.Handle)
		wantWarn bool
	}{
		{"transient error on a live child", func(w *fakeWindows, h model.Handle) { w.failMove[h] = true }, true},
		{"child closed during the move", func(w *fakeWindows, h model.Handle) { w.vanish[h] = true }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			var buf bytes.Buffer
			h := newHarness(t, nil, func(o *Options) { o.Logger = log.New(&buf) })
			set, err := h.c.Reconcile(ctx)
			require.NoError(t, err)
			tt.setup(h.windows, set[2])

			require.NoError(t, h.c.Tile(ctx, true, false))
			assert.Equal(t, 1, h.windows.gets, "the failed child is looked up once")
			assert.Equal(t, tt.wantWarn, bytes.Contains(buf.Bytes(), []byte("failed to update child window")), buf.String())
		})
	}
}

func TestSetLayout_ShowsLayout(t *testing.T) {
	ctx := context.Background()
	display := &fakeDisplay{}
	h := newHarness(t, nil, func(o *Options) { o.Display = display })

	require.NoError(t, h.c.SetLayout(ctx, model.OnePlusThree))
	assert.Equal(t, model.OnePlusThree, display.last())

	require.NoError(t, h.c.SetLayout(ctx, model.TwoByTwo))
	assert.Equal(t, model.TwoByTwo, display.last())
}

func TestReloadLayout_ShowsPersistedLayout(t *testing.T) {
	ctx := context.Background()
	display := &fakeDisplay{}
	st := store.NewMemoryWith(model.State{Layout: model.OnePlusThree})
	h := newHarness(t, st, func(o *Options) { o.Display = display })

	require.NoError(t, h.c.Start(ctx))
	assert.Equal(t, model.OnePlusThree, display.last(), "startup shows the persisted layout")

	require.NoError(t, st.Set(ctx, patchLayout(model.TwoByTwo)))
	require.NoError(t, h.c.ReloadLayout(ctx))
	assert.Equal(t, model.TwoByTwo, display.last())
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 2*time.Second, s.CallTimeout)
	assert.Equal(t, 300*time.Millisecond, s.RaiseCooldown)
	assert.Equal(t, 500*time.Millisecond, s.MoveQuiet)
	assert.Equal(t, FailClosed, s.PersistPolicy)
}
