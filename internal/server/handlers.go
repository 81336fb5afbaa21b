package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mj1618/quadview/internal/controller"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/output"
	"github.com/mj1618/quadview/internal/platform"
	"gopkg.in/yaml.v3"
)

// toText serializes v to YAML for an MCP response.
func toText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// run dispatches an action and renders the outcome, invalidating the
// window cache. A close action ends the run even if teardown failed.
func (s *Server) run(ctx context.Context, a platform.ControlAction) (*mcp.CallToolResult, error) {
	err := Dispatch(ctx, s.controls, a)
	s.cache.Invalidate()
	if a.Name == ActionClose && s.onClose != nil {
		defer s.onClose()
	}

	result := output.ActionResult{Action: a.Name}
	if err != nil {
		result.Error = err.Error()
		if errors.Is(err, controller.ErrBusy) {
			result.Error = "controller busy, another operation is running; try again"
		}
		s.logger.Debug("tool failed", "action", a.Name, "err", err)
		return mcp.NewToolResultError(toText(result)), nil
	}
	result.OK = true
	result.Children = s.controls.Status().Children
	return mcp.NewToolResultText(toText(result)), nil
}

func (s *Server) actionHandler(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.run(ctx, platform.ControlAction{Name: name})
	}
}

func (s *Server) handleSetLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := stringParam(request.GetArguments(), "mode", "")
	if mode == "" {
		return mcp.NewToolResultError("mode is required (2x2 or 1+3)"), nil
	}
	return s.run(ctx, platform.ControlAction{Name: ActionLayout, Arg: mode})
}

// statusResult is the output of the status tool.
type statusResult struct {
	controller.Status `yaml:",inline"`
	Focused           *model.Handle  `yaml:"focused,omitempty"`
	Windows           []model.Window `yaml:"windows,omitempty"`
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := statusResult{Status: s.controls.Status()}
	if boolParam(request.GetArguments(), "windows", false) {
		if s.windows == nil {
			return mcp.NewToolResultError("window listing not available"), nil
		}
		windows, err := s.cache.List(ctx, s.windows)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result.Windows = windows
		if h, ok, err := s.windows.LastFocused(ctx); err == nil && ok {
			result.Focused = &h
		}
	}
	return mcp.NewToolResultText(toText(result)), nil
}

func stringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

func boolParam(params map[string]interface{}, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
