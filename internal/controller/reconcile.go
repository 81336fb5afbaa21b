package controller

import (
	"context"
	"fmt"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// Reconcile brings the child set back to four live windows and persists
// it. The returned set may be short if the window system refused to
// create more; the next cycle retries.
func (c *Controller) Reconcile(ctx context.Context) (model.ChildSet, error) {
	c.reconcileMu.Lock()
	defer c.reconcileMu.Unlock()
	return c.reconcileLocked(ctx)
}

func (c *Controller) reconcileLocked(ctx context.Context) (model.ChildSet, error) {
	persisted, err := c.loadChildren(ctx)
	if err != nil {
		return nil, err
	}

	live, err := c.liveHandles(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate children: %w", err)
	}
	set := persisted.Retain(live)
	if dropped := len(persisted) - len(set); dropped > 0 {
		c.logger.Info("dropped stale children", "count", dropped, "kept", set)
	}

	for len(set) < model.ChildCount {
		h, err := c.createChild(ctx)
		if err != nil {
			c.logger.Warn("child creation failed, will retry next cycle", "have", len(set), "err", err)
			break
		}
		c.logger.Info("created child", "handle", h)
		set = append(set, h)
	}

	c.setChildren(set)

	sctx, cancel := c.call(ctx)
	defer cancel()
	if err := c.persistErr("childIds", c.store.Set(sctx, platform.SetChildren(set))); err != nil {
		return set, err
	}
	return set, nil
}

// loadChildren reads the persisted child set. Under FailOpen a store error
// falls back to the in-memory set.
func (c *Controller) loadChildren(ctx context.Context) (model.ChildSet, error) {
	sctx, cancel := c.call(ctx)
	defer cancel()
	st, err := c.store.Get(sctx)
	if err != nil {
		if perr := c.persistErr("load", err); perr != nil {
			return nil, perr
		}
		return c.Children(), nil
	}
	return st.ChildIDs, nil
}

// liveHandles queries every open window in one pass, before any creation.
func (c *Controller) liveHandles(ctx context.Context) (map[model.Handle]bool, error) {
	wctx, cancel := c.call(ctx)
	defer cancel()
	windows, err := c.windows.GetAll(wctx)
	if err != nil {
		return nil, err
	}
	live := make(map[model.Handle]bool, len(windows))
	for _, w := range windows {
		live[w.ID] = true
	}
	return live, nil
}

func (c *Controller) createChild(ctx context.Context) (model.Handle, error) {
	wctx, cancel := c.call(ctx)
	defer cancel()
	return c.windows.Create(wctx, platform.CreateOptions{
		URL:    c.settings.TargetURL,
		Width:  c.settings.ChildWidth,
		Height: c.settings.ChildHeight,
		Type:   platform.WindowPopup,
	})
}

// ForgetChild removes a handle closed outside the controller from the
// child set and the store. It does not create a replacement; the next
// cycle does.
func (c *Controller) ForgetChild(ctx context.Context, h model.Handle) error {
	c.reconcileMu.Lock()
	defer c.reconcileMu.Unlock()

	sctx, cancel := c.call(ctx)
	defer cancel()
	st, err := c.store.Get(sctx)
	if err != nil {
		if perr := c.persistErr("load", err); perr != nil {
			return perr
		}
		st.ChildIDs = c.Children()
	}

	inMemory := c.Children()
	if !st.ChildIDs.Contains(h) && !inMemory.Contains(h) {
		return nil
	}
	c.setChildren(inMemory.Without(h))
	c.logger.Info("child closed externally", "handle", h)

	if !st.ChildIDs.Contains(h) {
		return nil
	}
	return c.persistErr("childIds", c.store.Set(sctx, platform.SetChildren(st.ChildIDs.Without(h))))
}
