package controller

import (
	"context"

	"github.com/mj1618/quadview/internal/layout"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// Tile reconciles the children and moves them into the layout computed from
// the controller window's bounds. Unless force is set, nothing is written
// when the bounds have not changed since the last cycle. Returns ErrBusy if
// another operation is running.
func (c *Controller) Tile(ctx context.Context, force, raise bool) error {
	if err := c.tryLock("tile"); err != nil {
		return err
	}
	defer c.opMu.Unlock()

	if err := c.tileLocked(ctx, force, raise, "tile"); err != nil {
		return err
	}
	if c.move.Pending() {
		return c.reshowLocked(ctx, "move-settled")
	}
	return nil
}

// tileLocked runs one tiling cycle. The caller holds the operation lock.
func (c *Controller) tileLocked(ctx context.Context, force, raise bool, reason string) error {
	children, err := c.Reconcile(ctx)
	if err != nil {
		return err
	}
	if !children.Complete() {
		c.logger.Debug("tile skipped, children incomplete", "have", len(children))
		return nil
	}

	bounds, ok := c.sensor.Measure(ctx)
	if !ok {
		return nil
	}

	force = c.forceNext.Swap(false) || force
	prev, had := c.lastBoundsSnapshot()
	if had && prev == bounds && !force {
		return nil
	}
	if had && prev != bounds {
		c.move.Touch()
	}
	c.recordBounds(bounds)

	rects := layout.Compute(c.Layout(), bounds, c.settings.Geometry)
	c.applyRects(ctx, children, rects)

	if raise {
		c.raiseLocked(ctx, reason)
	}
	return nil
}

// applyRects moves each child in set order, waiting for each update before
// the next. A failed update is logged and skipped.
func (c *Controller) applyRects(ctx context.Context, children model.ChildSet, rects [model.ChildCount]model.Rect) {
	for i := 0; i < model.ChildCount && i < len(children); i++ {
		h := children[i]
		wctx, cancel := c.call(ctx)
		err := c.windows.Update(wctx, h, platform.MoveTo(rects[i]))
		cancel()
		if err != nil {
			c.updateFailed(ctx, h, err, "slot", i)
			continue
		}
		c.setLastRect(i, h, rects[i])
	}
}
