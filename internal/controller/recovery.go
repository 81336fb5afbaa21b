package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// Reshow reconciles, then forces a retile and raises the children.
func (c *Controller) Reshow(ctx context.Context) error {
	return c.reshow(ctx, "manual")
}

func (c *Controller) reshow(ctx context.Context, reason string) error {
	if err := c.tryLock("reshow"); err != nil {
		return err
	}
	defer c.opMu.Unlock()
	return c.reshowLocked(ctx, reason)
}

func (c *Controller) reshowLocked(ctx context.Context, reason string) error {
	defer c.move.Done()
	if _, err := c.Reconcile(ctx); err != nil {
		return err
	}
	c.logger.Info("reshow", "reason", reason)
	return c.tileLocked(ctx, true, true, reason)
}

// onMoveSettled runs when the controller window has stopped moving.
func (c *Controller) onMoveSettled() {
	ctx := c.timerContext()
	if ctx.Err() != nil {
		return
	}
	err := c.reshow(ctx, "move-settled")
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		// The running operation picks the pending reshow up when it ends.
	case errors.Is(err, ErrClosed):
	default:
		c.logger.Warn("reshow after move failed", "err", err)
	}
}

// Reopen closes every child and creates four fresh ones.
func (c *Controller) Reopen(ctx context.Context) error {
	if err := c.tryLock("reopen"); err != nil {
		return err
	}
	defer c.opMu.Unlock()

	c.logger.Info("reopening children")
	if err := c.clearChildren(ctx); err != nil {
		return err
	}
	if _, err := c.Reconcile(ctx); err != nil {
		return err
	}
	return c.reshowLocked(ctx, "reopen")
}

// Reset closes every child and leaves the set empty. The next tile cycle
// recreates them.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.tryLock("reset"); err != nil {
		return err
	}
	defer c.opMu.Unlock()

	c.logger.Info("resetting children")
	err := c.clearChildren(ctx)
	c.move.Stop()
	return err
}

// clearChildren removes every known child and persists the empty set.
func (c *Controller) clearChildren(ctx context.Context) error {
	c.reconcileMu.Lock()
	defer c.reconcileMu.Unlock()

	c.removeAll(ctx)
	c.setChildren(nil)
	c.forgetBounds()

	sctx, cancel := c.call(ctx)
	defer cancel()
	return c.persistErr("childIds", c.store.Set(sctx, platform.SetChildren(model.ChildSet{})))
}

// removeAll closes every child known in memory or in the store. Removal of
// an already closed window is ignored.
func (c *Controller) removeAll(ctx context.Context) {
	targets := c.Children()
	sctx, cancel := c.call(ctx)
	st, err := c.store.Get(sctx)
	cancel()
	if err == nil {
		for _, h := range st.ChildIDs {
			if !targets.Contains(h) {
				targets = append(targets, h)
			}
		}
	}
	for _, h := range targets {
		wctx, cancel := c.call(ctx)
		if err := c.windows.Remove(wctx, h); err != nil {
			c.logger.Debug("remove child", "handle", h, "err", err)
		}
		cancel()
	}
}

// Close tears the children down as the controller surface goes away. The
// lifecycle collaborator is asked to close them first; if it does not
// acknowledge, they are removed directly. Close waits for a running
// operation to finish instead of being dropped.
func (c *Controller) Close(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isClosed() {
		return nil
	}
	c.move.Stop()

	var closeErr error
	if c.closer != nil {
		closeErr = c.closer.CloseAllChildren(ctx)
		if closeErr != nil {
			c.logger.Warn("close-all not acknowledged, removing children directly", "err", closeErr)
		}
	}
	if c.closer == nil || closeErr != nil {
		c.reconcileMu.Lock()
		c.removeAll(ctx)
		sctx, cancel := c.call(ctx)
		err := c.store.Remove(sctx, platform.KeyChildIDs)
		cancel()
		c.reconcileMu.Unlock()
		if err := c.persistErr("remove childIds", err); err != nil {
			c.markClosed()
			return err
		}
	}
	c.markClosed()
	c.logger.Info("controller closed")
	return nil
}

func (c *Controller) markClosed() {
	c.setChildren(nil)
	c.forgetBounds()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// SetLayout switches the layout, persists it and retiles. If another
// operation is running the retile happens on the next cycle.
func (c *Controller) SetLayout(ctx context.Context, mode model.LayoutMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown layout: %q", mode)
	}
	c.mu.Lock()
	c.layout = mode
	c.mu.Unlock()
	c.MarkDirty()
	c.showLayout(ctx, mode)

	sctx, cancel := c.call(ctx)
	err := c.store.Set(sctx, platform.SetLayout(mode))
	cancel()
	if err := c.persistErr("layout", err); err != nil {
		return err
	}

	if err := c.Tile(ctx, true, false); err != nil && !errors.Is(err, ErrBusy) {
		return err
	}
	return nil
}

// ReloadLayout adopts the persisted layout, forcing a retile if it changed.
func (c *Controller) ReloadLayout(ctx context.Context) error {
	sctx, cancel := c.call(ctx)
	st, err := c.store.Get(sctx)
	cancel()
	if err != nil {
		return c.persistErr("load", err)
	}
	mode := st.LayoutOrDefault()
	if st.Layout != "" && !st.Layout.Valid() {
		c.logger.Warn("unknown persisted layout, using default", "layout", st.Layout)
	}

	c.mu.Lock()
	changed := c.layout != mode
	c.layout = mode
	c.mu.Unlock()
	if changed {
		c.MarkDirty()
	}
	c.showLayout(ctx, mode)
	return nil
}

// ReloadChildren reloads the page in every child window. Failures are
// logged and skipped.
func (c *Controller) ReloadChildren(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	for _, h := range c.Children() {
		wctx, cancel := c.call(ctx)
		if err := c.windows.Reload(wctx, h); err != nil {
			c.logger.Warn("reload failed", "handle", h, "err", err)
		}
		cancel()
	}
	return nil
}
