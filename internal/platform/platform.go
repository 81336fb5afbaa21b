package platform

import (
	"context"
	"errors"

	"github.com/mj1618/quadview/internal/model"
)

// ErrStaleHandle is returned when a handle no longer refers to an open window.
var ErrStaleHandle = errors.New("window no longer exists")

// WindowSystem creates, positions and removes top-level windows.
type WindowSystem interface {
	// Create opens a new window and returns its handle.
	Create(ctx context.Context, opts CreateOptions) (model.Handle, error)

	// Update applies a geometry or focus change. Fails with ErrStaleHandle
	// if the window is gone.
	Update(ctx context.Context, h model.Handle, u Update) error

	// Remove closes a window. Removing an already closed window is not an error.
	Remove(ctx context.Context, h model.Handle) error

	// GetAll returns every window the system currently considers open.
	GetAll(ctx context.Context) ([]model.Window, error)

	// Get returns a single window, or ErrStaleHandle.
	Get(ctx context.Context, h model.Handle) (model.Window, error)

	// LastFocused returns the most recently focused window, if any.
	LastFocused(ctx context.Context) (model.Handle, bool, error)

	// Reload reloads the page shown in a window.
	Reload(ctx context.Context, h model.Handle) error
}

// Surface is the controller window the children are tiled against.
type Surface interface {
	// ID returns the window handle of the controller surface.
	ID() model.Handle

	// ReadGeometry reports the surface's raw on-screen geometry.
	ReadGeometry(ctx context.Context) (SurfaceGeometry, error)

	// ShowLayout marks mode as the active layout in the surface's controls.
	ShowLayout(ctx context.Context, mode model.LayoutMode) error
}

// EventSource delivers window system notifications.
type EventSource interface {
	Events() <-chan Event
}

// Store persists the controller record. Set and Remove rewrite the whole
// record atomically.
type Store interface {
	Get(ctx context.Context) (model.State, error)
	Set(ctx context.Context, p Patch) error
	Remove(ctx context.Context, keys ...Key) error
}

// Watcher is implemented by stores that can report changes made by other
// writers.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}
