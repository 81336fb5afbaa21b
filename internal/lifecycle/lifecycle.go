// Package lifecycle is the background collaborator of the controller. It
// outlives individual tile cycles and reacts to window system events:
// pruning closed children from the record, cleaning up when the controller
// surface goes away, and asking for a raise when the controller window is
// focused. It also answers close-all requests with an acknowledgement.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/mj1618/quadview/internal/scheduler"
)

// ErrAckTimeout is returned by CloseAllChildren when no acknowledgement
// arrives within the ack timeout.
var ErrAckTimeout = errors.New("close-all not acknowledged")

// DefaultAckTimeout bounds the wait for a close-all acknowledgement.
const DefaultAckTimeout = 2 * time.Second

// Registry is told about children closed outside the controller. The
// controller implements it so that its in-memory set stays in step.
type Registry interface {
	ForgetChild(ctx context.Context, h model.Handle) error
}

// Options configures a Background.
type Options struct {
	Windows    platform.WindowSystem
	Store      platform.Store
	Registry   Registry // optional; the record is pruned directly without it
	AckTimeout time.Duration
	Logger     *log.Logger

	// OnSurfaceClosed runs after the cleanup that follows the controller
	// surface closing.
	OnSurfaceClosed func()
}

type closeRequest struct {
	id  string
	ack chan error
}

// Background handles lifecycle events on a single goroutine started by Run.
type Background struct {
	windows    platform.WindowSystem
	store      platform.Store
	registry   Registry
	ackTimeout time.Duration
	logger     *log.Logger
	onClosed   func()

	requests chan closeRequest
	signals  chan scheduler.Signal
}

// New returns a Background.
func New(opts Options) *Background {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "lifecycle"})
	}
	return &Background{
		windows:    opts.Windows,
		store:      opts.Store,
		registry:   opts.Registry,
		ackTimeout: opts.AckTimeout,
		logger:     opts.Logger,
		onClosed:   opts.OnSurfaceClosed,
		requests:   make(chan closeRequest),
		signals:    make(chan scheduler.Signal, 8),
	}
}

// SetRegistry sets the registry told about closed children. It must be
// called before Run.
func (b *Background) SetRegistry(r Registry) {
	b.registry = r
}

// Signals delivers raise requests for the scheduler.
func (b *Background) Signals() <-chan scheduler.Signal {
	return b.signals
}

// Attach records the controller window so that focus events on it can be
// recognised.
func (b *Background) Attach(ctx context.Context, controller model.Handle) error {
	if err := b.store.Set(ctx, platform.Patch{ControllerWindowID: &controller}); err != nil {
		return fmt.Errorf("record controller window: %w", err)
	}
	return nil
}

// Run processes events and close-all requests until ctx is done or events
// closes.
func (b *Background) Run(ctx context.Context, events <-chan platform.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.handle(ctx, ev)
		case req := <-b.requests:
			err := b.cleanup(ctx)
			b.logger.Debug("close-all handled", "id", req.id, "err", err)
			req.ack <- err
		}
	}
}

func (b *Background) handle(ctx context.Context, ev platform.Event) {
	switch ev.Kind {
	case platform.EventWindowRemoved:
		if err := b.forget(ctx, ev.Window); err != nil {
			b.logger.Warn("prune closed child", "handle", ev.Window, "err", err)
		}
	case platform.EventWindowFocused:
		st, err := b.store.Get(ctx)
		if err != nil {
			b.logger.Warn("read controller window", "err", err)
			return
		}
		if st.ControllerWindowID != nil && *st.ControllerWindowID == ev.Window {
			b.emit(scheduler.Raise("window-focused"))
		}
	case platform.EventSurfaceClosed:
		b.logger.Info("controller surface closed, cleaning up")
		if err := b.cleanup(ctx); err != nil {
			b.logger.Warn("cleanup", "err", err)
		}
		if b.onClosed != nil {
			b.onClosed()
		}
	}
}

// forget drops a closed window from the child set if it was a child.
func (b *Background) forget(ctx context.Context, h model.Handle) error {
	if b.registry != nil {
		return b.registry.ForgetChild(ctx, h)
	}
	st, err := b.store.Get(ctx)
	if err != nil {
		return err
	}
	if !st.ChildIDs.Contains(h) {
		return nil
	}
	return b.store.Set(ctx, platform.SetChildren(st.ChildIDs.Without(h)))
}

func (b *Background) emit(sig scheduler.Signal) {
	select {
	case b.signals <- sig:
	default:
		b.logger.Debug("raise signal dropped", "reason", sig.Reason)
	}
}

// cleanup removes every recorded child and clears the child and controller
// keys. Windows that are already gone are ignored.
func (b *Background) cleanup(ctx context.Context) error {
	st, err := b.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("read children: %w", err)
	}
	for _, h := range st.ChildIDs {
		if err := b.windows.Remove(ctx, h); err != nil {
			b.logger.Debug("remove child", "handle", h, "err", err)
		}
	}
	if err := b.store.Remove(ctx, platform.KeyChildIDs, platform.KeyControllerWindowID); err != nil {
		return fmt.Errorf("clear record: %w", err)
	}
	return nil
}

// CloseAllChildren asks the Run loop to remove every child and waits for
// its acknowledgement. It returns ErrAckTimeout if Run does not answer
// within the ack timeout.
func (b *Background) CloseAllChildren(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.ackTimeout)
	defer cancel()

	req := closeRequest{id: uuid.NewString(), ack: make(chan error, 1)}
	select {
	case b.requests <- req:
	case <-ctx.Done():
		return fmt.Errorf("%w: request %s not delivered", ErrAckTimeout, req.id)
	}
	select {
	case err := <-req.ack:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: request %s", ErrAckTimeout, req.id)
	}
}
