// Package server exposes the controller as MCP tools so that agents can
// retile, reshow or switch layouts without the toolbar.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/mj1618/quadview/internal/version"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
	CacheTTL  time.Duration

	// OnClose runs after the close tool has torn the children down, so the
	// caller can end the run.
	OnClose func()
}

// Server wraps the MCP server with the controller it drives.
type Server struct {
	controls Controls
	windows  platform.WindowSystem // optional; status omits live windows without it
	cache    *WindowCache
	logger   *log.Logger
	onClose  func()
	mcp      *mcpserver.MCPServer
}

// New creates and configures an MCP server with all quadview tools.
func New(cfg Config, controls Controls, windows platform.WindowSystem, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "mcp"})
	}
	s := &Server{
		controls: controls,
		windows:  windows,
		cache:    NewWindowCache(cfg.CacheTTL),
		logger:   logger,
		onClose:  cfg.OnClose,
	}
	s.mcp = mcpserver.NewMCPServer(
		"quadview",
		version.Version,
	)
	s.registerTools()
	return s
}

// Serve runs the configured transport until ctx is done.
func (s *Server) Serve(ctx context.Context, cfg Config) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		errc := make(chan error, 1)
		go func() { errc <- httpServer.Start(fmt.Sprintf(":%d", cfg.Port)) }()
		s.logger.Info("mcp listening", "port", cfg.Port)
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	// retile
	s.mcp.AddTool(
		mcp.NewTool(ActionRetile,
			mcp.WithDescription("Recompute the layout from the controller window and move the four child windows, even if the controller has not moved"),
		),
		s.actionHandler(ActionRetile),
	)

	// reshow
	s.mcp.AddTool(
		mcp.NewTool(ActionReshow,
			mcp.WithDescription("Recreate any missing child windows, retile them and bring them to the front"),
		),
		s.actionHandler(ActionReshow),
	)

	// reopen
	s.mcp.AddTool(
		mcp.NewTool(ActionReopen,
			mcp.WithDescription("Close all child windows and open four fresh ones"),
		),
		s.actionHandler(ActionReopen),
	)

	// reset
	s.mcp.AddTool(
		mcp.NewTool(ActionReset,
			mcp.WithDescription("Close all child windows and clear the saved set. They are recreated on the next tile cycle."),
		),
		s.actionHandler(ActionReset),
	)

	// set_layout
	s.mcp.AddTool(
		mcp.NewTool("set_layout",
			mcp.WithDescription("Switch the tiling layout and retile"),
			mcp.WithString("mode", mcp.Required(), mcp.Description("Layout: '2x2' (even grid) or '1+3' (one main cell and three side cells)")),
		),
		s.handleSetLayout,
	)

	// reload
	s.mcp.AddTool(
		mcp.NewTool(ActionReload,
			mcp.WithDescription("Reload the page in every child window"),
		),
		s.actionHandler(ActionReload),
	)

	// close
	s.mcp.AddTool(
		mcp.NewTool(ActionClose,
			mcp.WithDescription("Close all child windows and stop the controller"),
		),
		s.actionHandler(ActionClose),
	)

	// status
	s.mcp.AddTool(
		mcp.NewTool("status",
			mcp.WithDescription("Report the layout, child windows, last applied bounds and rectangles, and move state"),
			mcp.WithBoolean("windows", mcp.Description("Also list every live window")),
		),
		s.handleStatus,
	)
}
