package browser

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/playwright-community/playwright-go"
)

// window is one browser window and the CDP session used to move it.
type window struct {
	id      model.Handle
	page    playwright.Page
	session playwright.CDPSession
	kind    platform.WindowType
}

// Browser implements platform.WindowSystem and platform.EventSource.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *log.Logger

	surface  *Surface
	events   chan platform.Event
	controls chan platform.ControlAction

	mu          sync.Mutex
	windows     map[model.Handle]*window
	lastFocused model.Handle
}

var (
	_ platform.WindowSystem = (*Browser)(nil)
	_ platform.EventSource  = (*Browser)(nil)
)

// Launch starts Playwright and Chromium and opens the controller surface.
func Launch(opts platform.ProviderOptions) (*Browser, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "browser"})

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.Channel != "" && opts.Channel != "chromium" {
		launchOpts.Channel = playwright.String(opts.Channel)
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// NoViewport lets page sizes follow their windows.
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		NoViewport: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	b := &Browser{
		pw:       pw,
		browser:  browser,
		context:  bctx,
		logger:   logger,
		events:   make(chan platform.Event, 64),
		controls: make(chan platform.ControlAction, 16),
		windows:  make(map[model.Handle]*window),
	}
	if err := b.openSurface(opts); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Close shuts the browser and Playwright down.
func (b *Browser) Close() error {
	var errs []error
	if err := b.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing browser: %v", errs)
	}
	return nil
}

// Events delivers window removals, controller focus and surface close.
func (b *Browser) Events() <-chan platform.Event {
	return b.events
}

func (b *Browser) emit(ev platform.Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("event dropped, queue full", "kind", ev.Kind, "window", ev.Window)
	}
}

// attach resolves the window of a freshly opened page and starts tracking it.
func (b *Browser) attach(ctx context.Context, page playwright.Page, kind platform.WindowType) (*window, error) {
	session, err := awaitOrDiscard(ctx, func() (playwright.CDPSession, error) {
		return b.context.NewCDPSession(page)
	}, func(s playwright.CDPSession) {
		if err := s.Detach(); err != nil {
			b.logger.Debug("detach late CDP session", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open CDP session: %w", err)
	}
	res, err := await(ctx, func() (interface{}, error) {
		return session.Send(cdpGetWindowForTarget, map[string]interface{}{})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cdpGetWindowForTarget, err)
	}
	id, _, err := parseWindow(res)
	if err != nil {
		return nil, err
	}

	w := &window{id: id, page: page, session: session, kind: kind}
	b.mu.Lock()
	b.windows[id] = w
	b.mu.Unlock()

	page.OnClose(func(playwright.Page) {
		b.mu.Lock()
		delete(b.windows, id)
		b.mu.Unlock()
		b.emit(platform.Event{Kind: platform.EventWindowRemoved, Window: id})
	})
	return w, nil
}

func (b *Browser) lookup(h model.Handle) (*window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	if !ok || w.page.IsClosed() {
		return nil, fmt.Errorf("window %d: %w", h, platform.ErrStaleHandle)
	}
	return w, nil
}

// Create opens a page in a new window, sizes it and navigates to the URL.
func (b *Browser) Create(ctx context.Context, opts platform.CreateOptions) (model.Handle, error) {
	page, err := awaitOrDiscard(ctx, b.context.NewPage, b.closeLatePage)
	if err != nil {
		return 0, fmt.Errorf("failed to create page: %w", err)
	}
	kind := opts.Type
	if kind == "" {
		kind = platform.WindowPopup
	}
	w, err := b.attach(ctx, page, kind)
	if err != nil {
		page.Close()
		return 0, err
	}

	if opts.Width > 0 && opts.Height > 0 {
		if err := b.setBounds(ctx, w, sizeParams(w.id, opts.Width, opts.Height)); err != nil {
			b.logger.Debug("initial size", "window", w.id, "err", err)
		}
	}
	if opts.URL != "" {
		_, err := await(ctx, func() (playwright.Response, error) {
			return page.Goto(opts.URL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateCommit})
		})
		if err != nil {
			// The window exists; a failed load is the page's problem.
			b.logger.Warn("navigation failed", "window", w.id, "url", opts.URL, "err", err)
		}
	}
	return w.id, nil
}

// closeLatePage closes a page that opened after Create gave up on it.
// Nothing tracks such a page, so it would otherwise stay open as a stray
// window next to the replacement the next reconcile creates.
func (b *Browser) closeLatePage(page playwright.Page) {
	b.logger.Debug("closing page opened after timeout", "url", page.URL())
	if err := page.Close(); err != nil {
		b.logger.Debug("close late page", "err", err)
	}
}

func (b *Browser) setBounds(ctx context.Context, w *window, params map[string]interface{}) error {
	_, err := await(ctx, func() (interface{}, error) {
		return w.session.Send(cdpSetWindowBounds, params)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", cdpSetWindowBounds, err)
	}
	return nil
}

// Update moves a window or changes its focus. Chromium cannot defocus a
// window, so Focused=false only clears the focus record.
func (b *Browser) Update(ctx context.Context, h model.Handle, u platform.Update) error {
	w, err := b.lookup(h)
	if err != nil {
		return err
	}
	if u.Rect != nil {
		if err := b.setBounds(ctx, w, boundsParams(w.id, *u.Rect)); err != nil {
			return err
		}
	}
	if u.Focused != nil {
		if *u.Focused {
			if err := awaitErr(ctx, w.page.BringToFront); err != nil {
				return fmt.Errorf("bring to front: %w", err)
			}
			b.mu.Lock()
			b.lastFocused = h
			b.mu.Unlock()
		} else {
			b.mu.Lock()
			if b.lastFocused == h {
				b.lastFocused = 0
			}
			b.mu.Unlock()
		}
	}
	return nil
}

// Remove closes a window. Unknown handles are ignored.
func (b *Browser) Remove(ctx context.Context, h model.Handle) error {
	b.mu.Lock()
	w, ok := b.windows[h]
	b.mu.Unlock()
	if !ok || w.page.IsClosed() {
		return nil
	}
	return awaitErr(ctx, func() error { return w.page.Close() })
}

func (b *Browser) describe(ctx context.Context, w *window) (model.Window, error) {
	res, err := await(ctx, func() (interface{}, error) {
		return w.session.Send(cdpGetWindowBounds, map[string]interface{}{"windowId": int(w.id)})
	})
	if err != nil {
		if w.page.IsClosed() {
			return model.Window{}, fmt.Errorf("window %d: %w", w.id, platform.ErrStaleHandle)
		}
		return model.Window{}, fmt.Errorf("%s: %w", cdpGetWindowBounds, err)
	}
	_, r, err := parseWindow(res)
	if err != nil {
		return model.Window{}, err
	}
	b.mu.Lock()
	focused := b.lastFocused == w.id
	b.mu.Unlock()
	return model.Window{ID: w.id, Type: string(w.kind), URL: w.page.URL(), Bounds: r, Focused: focused}, nil
}

// GetAll lists every open window, the controller surface included, in
// handle order.
func (b *Browser) GetAll(ctx context.Context) ([]model.Window, error) {
	b.mu.Lock()
	all := make([]*window, 0, len(b.windows))
	for _, w := range b.windows {
		if !w.page.IsClosed() {
			all = append(all, w)
		}
	}
	b.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	out := make([]model.Window, 0, len(all))
	for _, w := range all {
		win, err := b.describe(ctx, w)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Closed between listing and describing.
			continue
		}
		out = append(out, win)
	}
	return out, nil
}

// Get describes one window.
func (b *Browser) Get(ctx context.Context, h model.Handle) (model.Window, error) {
	w, err := b.lookup(h)
	if err != nil {
		return model.Window{}, err
	}
	return b.describe(ctx, w)
}

// LastFocused returns the window most recently focused through Update or
// by the user focusing the controller.
func (b *Browser) LastFocused(context.Context) (model.Handle, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastFocused == 0 {
		return 0, false, nil
	}
	return b.lastFocused, true, nil
}

// Reload reloads the page of a window.
func (b *Browser) Reload(ctx context.Context, h model.Handle) error {
	w, err := b.lookup(h)
	if err != nil {
		return err
	}
	_, err = await(ctx, func() (playwright.Response, error) {
		return w.page.Reload(playwright.PageReloadOptions{WaitUntil: playwright.WaitUntilStateCommit})
	})
	return err
}
