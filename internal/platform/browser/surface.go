package browser

import (
	"context"
	"fmt"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/playwright-community/playwright-go"
)

// Surface is the controller page.
type Surface struct {
	id   model.Handle
	page playwright.Page
}

var _ platform.Surface = (*Surface)(nil)

// ID returns the controller window handle.
func (s *Surface) ID() model.Handle { return s.id }

// ReadGeometry evaluates the window's screen position and sizes in the page.
func (s *Surface) ReadGeometry(ctx context.Context) (platform.SurfaceGeometry, error) {
	if s.page.IsClosed() {
		return platform.SurfaceGeometry{}, platform.ErrStaleHandle
	}
	v, err := await(ctx, func() (interface{}, error) {
		return s.page.Evaluate(geometryScript)
	})
	if err != nil {
		return platform.SurfaceGeometry{}, fmt.Errorf("read geometry: %w", err)
	}
	return parseGeometry(v)
}

// layoutScript selects the active layout in the toolbar.
const layoutScript = `(mode) => { document.getElementById('layout').value = mode; }`

// ShowLayout selects mode in the toolbar's layout picker.
func (s *Surface) ShowLayout(ctx context.Context, mode model.LayoutMode) error {
	if s.page.IsClosed() {
		return platform.ErrStaleHandle
	}
	_, err := await(ctx, func() (interface{}, error) {
		return s.page.Evaluate(layoutScript, string(mode))
	})
	if err != nil {
		return fmt.Errorf("show layout: %w", err)
	}
	return nil
}

// openSurface opens the controller page with the toolbar and wires its
// bindings to the controls and event channels.
func (b *Browser) openSurface(opts platform.ProviderOptions) error {
	ctx := context.Background()
	page, err := b.context.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create controller page: %w", err)
	}

	err = page.ExposeFunction(bindingAction, func(args ...interface{}) interface{} {
		var a platform.ControlAction
		if len(args) > 0 {
			a.Name, _ = args[0].(string)
		}
		if len(args) > 1 {
			a.Arg, _ = args[1].(string)
		}
		select {
		case b.controls <- a:
		default:
			b.logger.Warn("toolbar action dropped", "action", a.Name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("expose %s: %w", bindingAction, err)
	}

	w, err := b.attach(ctx, page, platform.WindowNormal)
	if err != nil {
		return err
	}
	b.surface = &Surface{id: w.id, page: page}

	err = page.ExposeFunction(bindingFocus, func(...interface{}) interface{} {
		b.emit(platform.Event{Kind: platform.EventWindowFocused, Window: w.id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("expose %s: %w", bindingFocus, err)
	}
	page.OnClose(func(playwright.Page) {
		b.emit(platform.Event{Kind: platform.EventSurfaceClosed, Window: w.id})
	})

	if err := page.SetContent(toolbarHTML(opts.Toolbar, opts.TargetURL, opts.Layout)); err != nil {
		return fmt.Errorf("render toolbar: %w", err)
	}
	return nil
}
