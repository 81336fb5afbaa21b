package server

import (
	"context"
	"fmt"

	"github.com/mj1618/quadview/internal/controller"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// Controls is the controller surface exposed to users.
type Controls interface {
	Tile(ctx context.Context, force, raise bool) error
	Reshow(ctx context.Context) error
	Reopen(ctx context.Context) error
	Reset(ctx context.Context) error
	SetLayout(ctx context.Context, mode model.LayoutMode) error
	ReloadChildren(ctx context.Context) error
	Close(ctx context.Context) error
	Status() controller.Status
}

// Action names accepted by Dispatch.
const (
	ActionRetile = "retile"
	ActionReshow = "reshow"
	ActionReopen = "reopen"
	ActionReset  = "reset"
	ActionLayout = "layout"
	ActionReload = "reload"
	ActionClose  = "close"
)

// Dispatch performs one user action. Both the toolbar and the MCP tools
// go through it.
func Dispatch(ctx context.Context, c Controls, a platform.ControlAction) error {
	switch a.Name {
	case ActionRetile:
		return c.Tile(ctx, true, false)
	case ActionReshow:
		return c.Reshow(ctx)
	case ActionReopen:
		return c.Reopen(ctx)
	case ActionReset:
		return c.Reset(ctx)
	case ActionLayout:
		mode, err := model.ParseLayoutMode(a.Arg)
		if err != nil {
			return err
		}
		return c.SetLayout(ctx, mode)
	case ActionReload:
		return c.ReloadChildren(ctx)
	case ActionClose:
		return c.Close(ctx)
	default:
		return fmt.Errorf("unknown action: %q", a.Name)
	}
}
