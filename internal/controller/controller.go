// Package controller keeps four child windows tiled against a controller
// window.
//
// A Controller owns all mutable tiling state. Tile and the recovery
// operations (Reshow, Reopen, Reset, BringToFront) share one operation lock
// and are dropped with ErrBusy rather than queued when it is held.
// Reconciliation has its own narrower lock so that lifecycle events can
// prune the child set without entering the operation lock.
package controller

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/clock"
	"github.com/mj1618/quadview/internal/layout"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// ErrBusy is returned when another operation holds the operation lock.
// It is an expected outcome, not a failure.
var ErrBusy = errors.New("controller busy")

// ErrClosed is returned by operations after Close.
var ErrClosed = errors.New("controller closed")

// BoundsSensor measures the controller window.
type BoundsSensor interface {
	Measure(ctx context.Context) (model.ParentBounds, bool)
}

// ChildCloser tears down every child on behalf of the controller and
// acknowledges when done.
type ChildCloser interface {
	CloseAllChildren(ctx context.Context) error
}

// LayoutDisplay shows the active layout to the user.
type LayoutDisplay interface {
	ShowLayout(ctx context.Context, mode model.LayoutMode) error
}

// PersistPolicy decides what happens when the store fails.
type PersistPolicy string

const (
	// FailClosed aborts the current operation on a store error.
	FailClosed PersistPolicy = "fail-closed"
	// FailOpen logs the error and continues with in-memory state.
	FailOpen PersistPolicy = "fail-open"
)

// Settings are the tunables of a Controller.
type Settings struct {
	TargetURL     string
	ChildWidth    int
	ChildHeight   int
	Geometry      layout.Geometry
	RaiseCooldown time.Duration
	MoveQuiet     time.Duration
	CallTimeout   time.Duration
	PersistPolicy PersistPolicy
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		ChildWidth:    400,
		ChildHeight:   400,
		Geometry:      layout.DefaultGeometry(),
		RaiseCooldown: 300 * time.Millisecond,
		MoveQuiet:     500 * time.Millisecond,
		CallTimeout:   2 * time.Second,
		PersistPolicy: FailClosed,
	}
}

// Options wires a Controller to its collaborators.
type Options struct {
	Windows  platform.WindowSystem
	Store    platform.Store
	Sensor   BoundsSensor
	Closer   ChildCloser   // optional; Close falls back to direct removal
	Display  LayoutDisplay // optional
	Clock    clock.Clock
	Logger   *log.Logger
	Settings Settings
}

// Controller reconciles and tiles the child windows.
type Controller struct {
	windows  platform.WindowSystem
	store    platform.Store
	sensor   BoundsSensor
	closer   ChildCloser
	display  LayoutDisplay
	clock    clock.Clock
	logger   *log.Logger
	settings Settings

	opMu        sync.Mutex // operation lock, only ever TryLock'ed except by Close
	reconcileMu sync.Mutex

	// forceNext makes the next tile cycle skip the unchanged-bounds check.
	forceNext atomic.Bool

	move *moveWatch

	// baseCtx is used for work started by timers.
	baseCtx context.Context

	mu         sync.Mutex // guards the fields below
	layout     model.LayoutMode
	children   model.ChildSet
	lastRects  []model.Rect // parallel to children
	lastBounds model.ParentBounds
	haveBounds bool
	lastRaise  time.Time
	closed     bool
}

// New returns a Controller. Zero settings fields take their defaults.
func New(opts Options) *Controller {
	s := opts.Settings
	d := DefaultSettings()
	if s.ChildWidth <= 0 {
		s.ChildWidth = d.ChildWidth
	}
	if s.ChildHeight <= 0 {
		s.ChildHeight = d.ChildHeight
	}
	if s.Geometry == (layout.Geometry{}) {
		s.Geometry = d.Geometry
	}
	if s.RaiseCooldown <= 0 {
		s.RaiseCooldown = d.RaiseCooldown
	}
	if s.MoveQuiet <= 0 {
		s.MoveQuiet = d.MoveQuiet
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = d.CallTimeout
	}
	if s.PersistPolicy == "" {
		s.PersistPolicy = d.PersistPolicy
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "controller"})
	}

	c := &Controller{
		windows:  opts.Windows,
		store:    opts.Store,
		sensor:   opts.Sensor,
		closer:   opts.Closer,
		display:  opts.Display,
		clock:    clk,
		logger:   logger,
		settings: s,
		baseCtx:  context.Background(),
		layout:   model.DefaultLayout,
	}
	c.move = newMoveWatch(clk, s.MoveQuiet, c.onMoveSettled)
	return c
}

// Start loads the persisted layout and performs the startup reshow. ctx
// also bounds work started later by the move debounce timer.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	if err := c.ReloadLayout(ctx); err != nil {
		return err
	}
	return c.reshow(ctx, "startup")
}

// Layout returns the active layout mode.
func (c *Controller) Layout() model.LayoutMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout
}

// Children returns a copy of the current child set.
func (c *Controller) Children() model.ChildSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.children.Clone()
}

// MarkDirty makes the next tile cycle recompute even if the bounds have
// not changed.
func (c *Controller) MarkDirty() {
	c.forceNext.Store(true)
}

// Status is a snapshot of the controller state.
type Status struct {
	Layout    model.LayoutMode    `yaml:"layout"               json:"layout"`
	Children  model.ChildSet      `yaml:"children,flow"        json:"children"`
	Bounds    *model.ParentBounds `yaml:"bounds,omitempty"     json:"bounds,omitempty"`
	Rects     []model.Rect        `yaml:"rects,omitempty"      json:"rects,omitempty"`
	Move      string              `yaml:"move"                 json:"move"`
	LastRaise *time.Time          `yaml:"last_raise,omitempty" json:"last_raise,omitempty"`
	Closed    bool                `yaml:"closed,omitempty"     json:"closed,omitempty"`
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Layout:   c.layout,
		Children: c.children.Clone(),
		Rects:    append([]model.Rect(nil), c.lastRects...),
		Move:     c.move.State().String(),
		Closed:   c.closed,
	}
	if c.children == nil {
		st.Children = model.ChildSet{}
	}
	if c.haveBounds {
		b := c.lastBounds
		st.Bounds = &b
	}
	if !c.lastRaise.IsZero() {
		t := c.lastRaise
		st.LastRaise = &t
	}
	return st
}

// tryLock acquires the operation lock or reports ErrBusy.
func (c *Controller) tryLock(op string) error {
	if !c.opMu.TryLock() {
		c.logger.Debug("operation skipped, busy", "op", op)
		return ErrBusy
	}
	if c.isClosed() {
		c.opMu.Unlock()
		return ErrClosed
	}
	return nil
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// call bounds a single external call by the configured timeout.
func (c *Controller) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.settings.CallTimeout)
}

// persistErr applies the persist policy to a store error. It returns nil
// when the error should be ignored.
func (c *Controller) persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if c.settings.PersistPolicy == FailOpen {
		c.logger.Warn("store failure ignored", "op", op, "err", err)
		return nil
	}
	return &PersistError{Op: op, Err: err}
}

// PersistError wraps a store failure that aborted an operation.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string { return "persist " + e.Op + ": " + e.Err.Error() }

func (e *PersistError) Unwrap() error { return e.Err }

// setChildren replaces the child set, carrying over the last applied rect
// of every handle that survives.
func (c *Controller) setChildren(set model.ChildSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := make(map[model.Handle]model.Rect, len(c.children))
	for i, h := range c.children {
		if i < len(c.lastRects) {
			prev[h] = c.lastRects[i]
		}
	}
	rects := make([]model.Rect, len(set))
	for i, h := range set {
		rects[i] = prev[h]
	}
	c.children = set.Clone()
	c.lastRects = rects
}

func (c *Controller) setLastRect(i int, h model.Handle, r model.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < len(c.children) && c.children[i] == h {
		c.lastRects[i] = r
	}
}

func (c *Controller) lastBoundsSnapshot() (model.ParentBounds, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBounds, c.haveBounds
}

func (c *Controller) recordBounds(b model.ParentBounds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBounds = b
	c.haveBounds = true
}

func (c *Controller) forgetBounds() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBounds = model.ParentBounds{}
	c.haveBounds = false
}

// showLayout reports mode to the display. Failures only affect what the
// toolbar shows.
func (c *Controller) showLayout(ctx context.Context, mode model.LayoutMode) {
	if c.display == nil {
		return
	}
	dctx, cancel := c.call(ctx)
	defer cancel()
	if err := c.display.ShowLayout(dctx, mode); err != nil {
		c.logger.Debug("show layout", "layout", mode, "err", err)
	}
}

func (c *Controller) timerContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseCtx
}
