package server

import (
	"context"
	"sync"
	"time"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// WindowCache keeps the last window listing for a short TTL so that
// repeated status calls do not hit the window system each time.
type WindowCache struct {
	mu      sync.Mutex
	windows []model.Window
	taken   time.Time
	valid   bool
	ttl     time.Duration
	now     func() time.Time
}

// NewWindowCache creates a new cache. A ttl of 0 disables caching.
func NewWindowCache(ttl time.Duration) *WindowCache {
	return &WindowCache{ttl: ttl, now: time.Now}
}

// List returns cached windows if within TTL, otherwise lists fresh.
func (c *WindowCache) List(ctx context.Context, ws platform.WindowSystem) ([]model.Window, error) {
	if c.ttl == 0 {
		return ws.GetAll(ctx)
	}

	c.mu.Lock()
	if c.valid && c.now().Sub(c.taken) < c.ttl {
		windows := c.windows
		c.mu.Unlock()
		return windows, nil
	}
	c.mu.Unlock()

	windows, err := ws.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.windows = windows
	c.taken = c.now()
	c.valid = true
	c.mu.Unlock()

	return windows, nil
}

// Invalidate drops the cached listing.
func (c *WindowCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.windows = nil
}
