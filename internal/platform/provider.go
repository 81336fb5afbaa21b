package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// Provider bundles the window system backend for the current environment.
type Provider struct {
	Windows WindowSystem
	Surface Surface
	Events  EventSource

	// Controls receives user actions from the controller surface's toolbar.
	// Nil when the backend has no toolbar.
	Controls <-chan ControlAction

	closeFunc func() error
}

// Close releases the backend. Safe to call on a Provider without a closer.
func (p *Provider) Close() error {
	if p == nil || p.closeFunc == nil {
		return nil
	}
	return p.closeFunc()
}

// SetCloser registers the function Close delegates to.
func (p *Provider) SetCloser(f func() error) {
	p.closeFunc = f
}

// ErrUnsupported is returned when no backend has been registered.
var ErrUnsupported = fmt.Errorf("quadview has no window system backend for %s/%s", runtime.GOOS, runtime.GOARCH)

// ErrNotConfigured is returned by NewProvider when the options lack a target.
var ErrNotConfigured = errors.New("provider options missing target URL")

// NewProviderFunc is set by backend packages via init().
// See internal/platform/browser/init.go for the Chromium registration.
var NewProviderFunc func(opts ProviderOptions) (*Provider, error)

// NewProvider returns a Provider from the registered backend.
func NewProvider(opts ProviderOptions) (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	if opts.TargetURL == "" {
		return nil, ErrNotConfigured
	}
	return NewProviderFunc(opts)
}
