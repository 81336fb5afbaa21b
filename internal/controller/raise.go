package controller

import (
	"context"
	"errors"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// BringToFront raises the children above other windows, subject to the
// raise cooldown. Returns ErrBusy if another operation is running.
func (c *Controller) BringToFront(ctx context.Context, reason string) error {
	if err := c.tryLock("raise"); err != nil {
		return err
	}
	defer c.opMu.Unlock()
	c.raiseLocked(ctx, reason)
	return nil
}

// raiseLocked reapplies each child's last rect, defocuses all but the last
// child and focuses the last. Calls within the cooldown of the previous
// run are dropped. Reports whether the raise ran.
func (c *Controller) raiseLocked(ctx context.Context, reason string) bool {
	now := c.clock.Now()

	c.mu.Lock()
	last := c.lastRaise
	children := c.children.Clone()
	rects := append([]model.Rect(nil), c.lastRects...)
	c.mu.Unlock()

	if !last.IsZero() && now.Sub(last) < c.settings.RaiseCooldown {
		c.logger.Debug("raise throttled", "reason", reason)
		return false
	}
	if len(children) == 0 {
		return false
	}

	// Some window managers drop z-order on a bare focus call, so the
	// geometry goes first.
	for i, h := range children {
		if i >= len(rects) || rects[i].IsZero() {
			continue
		}
		c.update(ctx, h, platform.MoveTo(rects[i]), "reapply")
	}
	top := len(children) - 1
	for _, h := range children[:top] {
		c.update(ctx, h, platform.Focus(false), "defocus")
	}
	c.update(ctx, children[top], platform.Focus(true), "focus")

	c.mu.Lock()
	c.lastRaise = c.clock.Now()
	c.mu.Unlock()
	c.logger.Debug("children raised", "reason", reason)
	return true
}

func (c *Controller) update(ctx context.Context, h model.Handle, u platform.Update, what string) {
	wctx, cancel := c.call(ctx)
	defer cancel()
	if err := c.windows.Update(wctx, h, u); err != nil {
		c.updateFailed(ctx, h, err, "op", what)
	}
}

// updateFailed logs a failed child update. A child that has gone away is
// expected churn and is replaced by the next reconcile; anything else is
// a warning. Errors that do not say which it was are settled with Get.
func (c *Controller) updateFailed(ctx context.Context, h model.Handle, err error, keyvals ...interface{}) {
	gone := errors.Is(err, platform.ErrStaleHandle)
	if !gone {
		gctx, cancel := c.call(ctx)
		_, gerr := c.windows.Get(gctx, h)
		cancel()
		gone = errors.Is(gerr, platform.ErrStaleHandle)
	}
	keyvals = append(keyvals, "handle", h, "err", err)
	if gone {
		c.logger.Debug("child window gone", keyvals...)
		return
	}
	c.logger.Warn("failed to update child window", keyvals...)
}
