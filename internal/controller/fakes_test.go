package controller

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/clock"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/mj1618/quadview/internal/store"
)

var errNoMoreWindows = errors.New("window limit reached")

type focusCall struct {
	h       model.Handle
	focused bool
}

// fakeWindows is an in-memory window system.
type fakeWindows struct {
	mu        sync.Mutex
	next      model.Handle
	open      map[model.Handle]model.Rect
	createCap int // remaining creations; negative means unlimited
	created   int
	moves     int
	focus     []focusCall
	removed   []model.Handle
	reloaded  []model.Handle
	failMove  map[model.Handle]bool
	vanish    map[model.Handle]bool // closes on the next move and reports a generic error
	gets      int

	// hold, when set, blocks the first geometry update until closed.
	hold     chan struct{}
	entered  chan struct{}
	holdOnce sync.Once
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{
		next:      100,
		open:      make(map[model.Handle]model.Rect),
		createCap: -1,
		failMove:  make(map[model.Handle]bool),
		vanish:    make(map[model.Handle]bool),
	}
}

// openExternal adds a window not created through Create.
func (f *fakeWindows) openExternal(h model.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[h] = model.Rect{}
}

// closeExternal simulates the user closing a window.
func (f *fakeWindows) closeExternal(h model.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, h)
}

func (f *fakeWindows) Create(_ context.Context, opts platform.CreateOptions) (model.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createCap == 0 {
		return 0, errNoMoreWindows
	}
	if f.createCap > 0 {
		f.createCap--
	}
	f.next++
	f.created++
	f.open[f.next] = model.Rect{Width: opts.Width, Height: opts.Height}
	return f.next, nil
}

func (f *fakeWindows) Update(_ context.Context, h model.Handle, u platform.Update) error {
	if u.Rect != nil && f.hold != nil {
		f.holdOnce.Do(func() {
			close(f.entered)
			<-f.hold
		})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.open[h]; !ok {
		return platform.ErrStaleHandle
	}
	if u.Rect != nil {
		if f.failMove[h] {
			return errors.New("window busy")
		}
		if f.vanish[h] {
			delete(f.open, h)
			return errors.New("target closed")
		}
		f.open[h] = *u.Rect
		f.moves++
	}
	if u.Focused != nil {
		f.focus = append(f.focus, focusCall{h: h, focused: *u.Focused})
	}
	return nil
}

func (f *fakeWindows) Remove(_ context.Context, h model.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, h)
	delete(f.open, h)
	return nil
}

func (f *fakeWindows) GetAll(context.Context) ([]model.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Window, 0, len(f.open))
	for h, r := range f.open {
		out = append(out, model.Window{ID: h, Bounds: r})
	}
	return out, nil
}

func (f *fakeWindows) Get(_ context.Context, h model.Handle) (model.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	r, ok := f.open[h]
	if !ok {
		return model.Window{}, platform.ErrStaleHandle
	}
	return model.Window{ID: h, Bounds: r}, nil
}

func (f *fakeWindows) LastFocused(context.Context) (model.Handle, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.focus) - 1; i >= 0; i-- {
		if f.focus[i].focused {
			return f.focus[i].h, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeWindows) Reload(_ context.Context, h model.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.open[h]; !ok {
		return platform.ErrStaleHandle
	}
	f.reloaded = append(f.reloaded, h)
	return nil
}

func (f *fakeWindows) rectOf(h model.Handle) model.Rect {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[h]
}

func (f *fakeWindows) moveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moves
}

func (f *fakeWindows) focusCalls() []focusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]focusCall(nil), f.focus...)
}

func (f *fakeWindows) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

// fakeSensor returns settable bounds.
type fakeSensor struct {
	mu     sync.Mutex
	bounds model.ParentBounds
	ok     bool
}

func (s *fakeSensor) set(b model.ParentBounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = b
	s.ok = true
}

func (s *fakeSensor) absent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ok = false
}

func (s *fakeSensor) Measure(context.Context) (model.ParentBounds, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds, s.ok
}

// failingStore wraps a store and fails writes while failSet is true.
type failingStore struct {
	*store.Memory
	mu      sync.Mutex
	failSet bool
	failGet bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Get(ctx context.Context) (model.State, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return model.State{}, errDiskFull
	}
	return s.Memory.Get(ctx)
}

func (s *failingStore) Set(ctx context.Context, p platform.Patch) error {
	s.mu.Lock()
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.Memory.Set(ctx, p)
}

// fakeCloser records close-all requests.
type fakeCloser struct {
	windows *fakeWindows
	store   platform.Store
	err     error
	calls   int
}

func (c *fakeCloser) CloseAllChildren(ctx context.Context) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	st, _ := c.store.Get(ctx)
	for _, h := range st.ChildIDs {
		c.windows.Remove(ctx, h)
	}
	return c.store.Remove(ctx, platform.KeyChildIDs)
}

// fakeDisplay records the layouts shown to the user.
type fakeDisplay struct {
	mu    sync.Mutex
	shown []model.LayoutMode
}

func (d *fakeDisplay) ShowLayout(_ context.Context, mode model.LayoutMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, mode)
	return nil
}

func (d *fakeDisplay) last() model.LayoutMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.shown) == 0 {
		return ""
	}
	return d.shown[len(d.shown)-1]
}

var scenarioBounds = model.ParentBounds{Left: 100, Top: 100, Width: 1000, Height: 668}

type harness struct {
	c       *Controller
	windows *fakeWindows
	sensor  *fakeSensor
	store   platform.Store
	clock   *clock.FakeClock
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newHarness(t *testing.T, st platform.Store, mutate ...func(*Options)) *harness {
	t.Helper()
	if st == nil {
		st = store.NewMemory()
	}
	h := &harness{
		windows: newFakeWindows(),
		sensor:  &fakeSensor{},
		store:   st,
		clock:   clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	h.sensor.set(scenarioBounds)
	opts := Options{
		Windows: h.windows,
		Store:   st,
		Sensor:  h.sensor,
		Clock:   h.clock,
		Logger:  quietLogger(),
		Settings: Settings{
			TargetURL: "https://example.com/",
		},
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.c = New(opts)
	return h
}

func patchLayout(m model.LayoutMode) platform.Patch {
	return platform.SetLayout(m)
}
