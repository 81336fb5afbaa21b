package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mj1618/quadview/internal/config"
	"github.com/mj1618/quadview/internal/controller"
	"github.com/mj1618/quadview/internal/lifecycle"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	_ "github.com/mj1618/quadview/internal/platform/browser"
	"github.com/mj1618/quadview/internal/scheduler"
	"github.com/mj1618/quadview/internal/sensor"
	"github.com/mj1618/quadview/internal/server"
	"github.com/mj1618/quadview/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the controller window and keep four windows tiled against it",
	Long: `Open a controller window with a toolbar and four child windows showing the
target page. The children follow the controller as it moves or resizes.

Examples:
  quadview run --url https://example.com
  quadview run --url https://example.com --layout 1+3
  quadview run --mcp streamable-http --port 8080`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addControllerFlags(runCmd)
	runCmd.Flags().String("mcp", "", "Also serve MCP tools: stdio, streamable-http")
	runCmd.Flags().Int("port", 8080, "HTTP port for the streamable-http MCP transport")
}

// addControllerFlags registers the flags shared by run and serve.
func addControllerFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Page to open in every child window")
	cmd.Flags().String("layout", "", "Layout: 2x2, 1+3")
	cmd.Flags().Bool("headless", false, "Run the browser headless")
	cmd.Flags().String("channel", "", "Browser channel, e.g. chrome or msedge")
	cmd.Flags().String("state", "", "State file path")
	cmd.Flags().Bool("fail-open", false, "Keep tiling from memory when the state file cannot be written")
}

// applyRunFlags overrides config values with the flags that were set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.TargetURL, _ = flags.GetString("url")
	}
	if flags.Changed("layout") {
		s, _ := flags.GetString("layout")
		mode, err := model.ParseLayoutMode(s)
		if err != nil {
			return err
		}
		cfg.Layout = mode
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("channel") {
		cfg.Browser.Channel, _ = flags.GetString("channel")
	}
	if flags.Changed("state") {
		cfg.StateFile, _ = flags.GetString("state")
	}
	if failOpen, _ := flags.GetBool("fail-open"); failOpen {
		cfg.PersistPolicy = controller.FailOpen
	}
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("mcp")
	port, _ := cmd.Flags().GetInt("port")
	return runController(cmd, transport, port)
}

// runController opens the windows and tiles until interrupted or the
// controller window closes. A non-empty transport also serves MCP tools.
func runController(cmd *cobra.Command, transport string, port int) error {
	switch transport {
	case "", "stdio", "streamable-http":
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return err
	}
	lock, err := lockInstance(cfg.StateFile)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := platform.NewProvider(platform.ProviderOptions{
		TargetURL: cfg.TargetURL,
		Headless:  cfg.Browser.Headless,
		Channel:   cfg.Browser.Channel,
		Toolbar:   cfg.Geometry.ToolbarHeight,
		Layout:    cfg.Layout,
	})
	if err != nil {
		return fmt.Errorf("failed to start window system: %w", err)
	}
	defer provider.Close()

	st, err := store.Open(cfg.StateFile, componentLogger("store"))
	if err != nil {
		return err
	}
	defer st.Close()
	if err := seedLayout(ctx, st, cfg, cmd.Flags().Changed("layout")); err != nil {
		return err
	}

	bg := lifecycle.New(lifecycle.Options{
		Windows:         provider.Windows,
		Store:           st,
		AckTimeout:      cfg.Timing.AckTimeout.Std(),
		Logger:          componentLogger("lifecycle"),
		OnSurfaceClosed: stop,
	})
	ctl := controller.New(controller.Options{
		Windows:  provider.Windows,
		Store:    st,
		Sensor:   sensor.New(provider.Surface, cfg.Geometry.MinSize, componentLogger("sensor")),
		Closer:   bg,
		Display:  provider.Surface,
		Logger:   componentLogger("controller"),
		Settings: cfg.Settings(),
	})
	bg.SetRegistry(ctl)
	if err := bg.Attach(ctx, provider.Surface.ID()); err != nil {
		return err
	}
	sched := scheduler.New(ctl, nil, cfg.Timing.PollInterval.Std(), componentLogger("scheduler"))

	// The lifecycle loop outlives ctx so that it can acknowledge the
	// close-all request sent during shutdown.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go bg.Run(bgCtx, provider.Events.Events())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.ForwardSignals(gctx, bg.Signals())
		return nil
	})
	if changes, err := st.Watch(gctx); err != nil {
		logger.Warn("state file changes will not be picked up", "err", err)
	} else {
		g.Go(func() error {
			sched.ForwardChanges(gctx, changes)
			return nil
		})
	}
	if provider.Controls != nil {
		g.Go(func() error {
			return dispatchControls(gctx, ctl, provider.Controls, stop)
		})
	}
	if transport != "" {
		mcpCfg := server.Config{Transport: transport, Port: port, CacheTTL: 500 * time.Millisecond, OnClose: stop}
		srv := server.New(mcpCfg, ctl, provider.Windows, componentLogger("mcp"))
		g.Go(func() error { return srv.Serve(gctx, mcpCfg) })
	}
	g.Go(func() error {
		if err := ctl.Start(gctx); err != nil && !errors.Is(err, controller.ErrBusy) {
			return fmt.Errorf("startup: %w", err)
		}
		logger.Info("tiling", "url", cfg.TargetURL, "layout", ctl.Layout(), "state", st.Path())
		return sched.Run(gctx)
	})

	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.Timing.AckTimeout.Std()+cfg.Timing.CallTimeout.Std())
	defer cancel()
	if err := ctl.Close(closeCtx); err != nil {
		logger.Warn("close", "err", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// lockInstance makes this process the only writer of the state file.
func lockInstance(path string) (*store.InstanceLock, error) {
	lock, err := store.Lock(path)
	if errors.Is(err, store.ErrLocked) {
		return nil, fmt.Errorf("%w; use its controller window or pass a different --state", err)
	}
	return lock, err
}

// seedLayout stores the configured layout unless one is already persisted
// and --layout was not given.
func seedLayout(ctx context.Context, st platform.Store, cfg config.Config, explicit bool) error {
	if cfg.Layout == "" {
		return nil
	}
	cur, err := st.Get(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if cur.Layout != "" && !explicit {
		return nil
	}
	return st.Set(ctx, platform.SetLayout(cfg.Layout))
}

// dispatchControls runs toolbar actions until ctx is done. A close action
// ends the run.
func dispatchControls(ctx context.Context, ctl server.Controls, actions <-chan platform.ControlAction, stop func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case a, ok := <-actions:
			if !ok {
				return nil
			}
			if a.Name == server.ActionClose {
				stop()
				return nil
			}
			err := server.Dispatch(ctx, ctl, a)
			switch {
			case err == nil:
				logger.Debug("toolbar action", "action", a.Name, "arg", a.Arg)
			case errors.Is(err, controller.ErrBusy):
				logger.Debug("toolbar action dropped, busy", "action", a.Name)
			default:
				logger.Warn("toolbar action failed", "action", a.Name, "err", err)
			}
		}
	}
}
