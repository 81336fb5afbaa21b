package browser

import (
	"fmt"
	"math"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// CDP methods used for window geometry.
const (
	cdpGetWindowForTarget = "Browser.getWindowForTarget"
	cdpGetWindowBounds    = "Browser.getWindowBounds"
	cdpSetWindowBounds    = "Browser.setWindowBounds"
)

// boundsParams builds the Browser.setWindowBounds payload.
func boundsParams(id model.Handle, r model.Rect) map[string]interface{} {
	return map[string]interface{}{
		"windowId": int(id),
		"bounds": map[string]interface{}{
			"left":        r.Left,
			"top":         r.Top,
			"width":       r.Width,
			"height":      r.Height,
			"windowState": "normal",
		},
	}
}

// sizeParams builds a Browser.setWindowBounds payload that resizes a
// window where the browser placed it.
func sizeParams(id model.Handle, width, height int) map[string]interface{} {
	return map[string]interface{}{
		"windowId": int(id),
		"bounds": map[string]interface{}{
			"width":       width,
			"height":      height,
			"windowState": "normal",
		},
	}
}

// parseWindow reads {windowId, bounds} as returned by
// Browser.getWindowForTarget. Browser.getWindowBounds returns only bounds;
// the id is then zero.
func parseWindow(v interface{}) (model.Handle, model.Rect, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return 0, model.Rect{}, fmt.Errorf("unexpected CDP result %T", v)
	}
	var id model.Handle
	if raw, ok := m["windowId"]; ok {
		n, err := number(raw)
		if err != nil {
			return 0, model.Rect{}, fmt.Errorf("windowId: %w", err)
		}
		id = model.Handle(n)
	}
	b, ok := m["bounds"].(map[string]interface{})
	if !ok {
		return id, model.Rect{}, fmt.Errorf("CDP result has no bounds")
	}
	var r model.Rect
	for key, dst := range map[string]*int{"left": &r.Left, "top": &r.Top, "width": &r.Width, "height": &r.Height} {
		raw, ok := b[key]
		if !ok {
			continue // minimized windows omit geometry
		}
		n, err := number(raw)
		if err != nil {
			return id, model.Rect{}, fmt.Errorf("bounds.%s: %w", key, err)
		}
		*dst = int(n)
	}
	return id, r, nil
}

// parseGeometry reads the object returned by geometryScript.
func parseGeometry(v interface{}) (platform.SurfaceGeometry, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return platform.SurfaceGeometry{}, fmt.Errorf("unexpected geometry %T", v)
	}
	var g platform.SurfaceGeometry
	fields := map[string]*float64{
		"left":        &g.Left,
		"top":         &g.Top,
		"outerWidth":  &g.OuterWidth,
		"outerHeight": &g.OuterHeight,
		"innerWidth":  &g.InnerWidth,
		"innerHeight": &g.InnerHeight,
	}
	for key, dst := range fields {
		n, err := number(m[key])
		if err != nil {
			// Leave it non-finite; the sensor treats that as no reading.
			*dst = math.NaN()
			continue
		}
		*dst = n
	}
	return g, nil
}

func number(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

// geometryScript reads the controller window's screen geometry.
const geometryScript = `() => ({
  left: window.screenX,
  top: window.screenY,
  outerWidth: window.outerWidth,
  outerHeight: window.outerHeight,
  innerWidth: window.innerWidth,
  innerHeight: window.innerHeight,
})`
