// Package scheduler drives the controller: a periodic tile tick plus
// signals for layout switches, storage edits and raise requests.
package scheduler

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/clock"
	"github.com/mj1618/quadview/internal/controller"
	"github.com/mj1618/quadview/internal/platform"
)

// DefaultInterval is the poll period of the tile tick.
const DefaultInterval = 200 * time.Millisecond

// Tiler is the part of the controller the scheduler drives.
type Tiler interface {
	Tile(ctx context.Context, force, raise bool) error
	BringToFront(ctx context.Context, reason string) error
	ReloadLayout(ctx context.Context) error
}

// SignalKind identifies what triggered a signal.
type SignalKind int

const (
	// LayoutChanged forces a retile.
	LayoutChanged SignalKind = iota
	// StorageChanged reports keys rewritten by another writer.
	StorageChanged
	// BringToFront asks for the children to be raised.
	BringToFront
)

func (k SignalKind) String() string {
	switch k {
	case LayoutChanged:
		return "layout-changed"
	case StorageChanged:
		return "storage-changed"
	case BringToFront:
		return "bring-to-front"
	default:
		return "unknown"
	}
}

// Signal is an event for the scheduler loop.
type Signal struct {
	Kind   SignalKind
	Reason string         // BringToFront
	Keys   []platform.Key // StorageChanged
}

// Raise returns a BringToFront signal.
func Raise(reason string) Signal {
	return Signal{Kind: BringToFront, Reason: reason}
}

// Scheduler serializes ticks and signals onto one goroutine. The
// controller's operation lock still decides whether a call runs.
type Scheduler struct {
	tiler    Tiler
	clock    clock.Clock
	interval time.Duration
	logger   *log.Logger
	signals  chan Signal
}

// New returns a Scheduler. A zero interval uses DefaultInterval.
func New(t Tiler, clk clock.Clock, interval time.Duration, logger *log.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "scheduler"})
	}
	return &Scheduler{
		tiler:    t,
		clock:    clk,
		interval: interval,
		logger:   logger,
		signals:  make(chan Signal, 16),
	}
}

// Notify queues a signal without blocking. It reports false when the
// queue is full and the signal was dropped.
func (s *Scheduler) Notify(sig Signal) bool {
	select {
	case s.signals <- sig:
		return true
	default:
		s.logger.Debug("signal dropped, queue full", "signal", sig.Kind)
		return false
	}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.check("tick", s.tiler.Tile(ctx, false, false))
		case sig := <-s.signals:
			s.handle(ctx, sig)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, sig Signal) {
	switch sig.Kind {
	case LayoutChanged:
		s.check("layout", s.tiler.Tile(ctx, true, false))
	case StorageChanged:
		if (platform.Change{Keys: sig.Keys}).Has(platform.KeyLayout) {
			s.check("reload layout", s.tiler.ReloadLayout(ctx))
		}
		s.check("storage", s.tiler.Tile(ctx, true, false))
	case BringToFront:
		s.check("raise", s.tiler.BringToFront(ctx, sig.Reason))
	}
}

// check logs unexpected errors. A busy controller is routine.
func (s *Scheduler) check(op string, err error) {
	switch {
	case err == nil, errors.Is(err, controller.ErrBusy), errors.Is(err, context.Canceled):
	case errors.Is(err, controller.ErrClosed):
		s.logger.Debug("controller closed", "op", op)
	default:
		s.logger.Warn("scheduled operation failed", "op", op, "err", err)
	}
}

// ForwardChanges turns store changes into StorageChanged signals until ch
// closes or ctx is done.
func (s *Scheduler) ForwardChanges(ctx context.Context, ch <-chan platform.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			s.Notify(Signal{Kind: StorageChanged, Keys: c.Keys})
		}
	}
}

// ForwardSignals copies signals from another producer until ch closes or
// ctx is done.
func (s *Scheduler) ForwardSignals(ctx context.Context, ch <-chan Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			s.Notify(sig)
		}
	}
}
