package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mj1618/quadview/internal/config"
	"github.com/mj1618/quadview/internal/controller"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/mj1618/quadview/internal/store"
	"github.com/spf13/cobra"
)

func TestRunCommand_Flags(t *testing.T) {
	for _, c := range []*cobra.Command{runCmd, serveCmd} {
		flags := c.Flags()

		tests := []struct {
			name     string
			flagType string
		}{
			{"url", "string"},
			{"layout", "string"},
			{"headless", "bool"},
			{"channel", "string"},
			{"state", "string"},
			{"fail-open", "bool"},
			{"port", "int"},
		}

		for _, tt := range tests {
			f := flags.Lookup(tt.name)
			if f == nil {
				t.Errorf("%s: expected flag %q not found", c.Name(), tt.name)
				continue
			}
			if f.Value.Type() != tt.flagType {
				t.Errorf("%s: flag %q: expected type %q, got %q", c.Name(), tt.name, tt.flagType, f.Value.Type())
			}
		}
	}
	if runCmd.Flags().Lookup("mcp") == nil {
		t.Error("run: expected flag \"mcp\"")
	}
	if serveCmd.Flags().Lookup("transport") == nil {
		t.Error("serve: expected flag \"transport\"")
	}
}

func newRunFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "run"}
	addControllerFlags(c)
	if err := c.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	c := newRunFlags(t, "--url", "https://example.com/", "--layout", "main", "--fail-open", "--state", "/tmp/q.yaml")
	if err := applyRunFlags(c, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.TargetURL != "https://example.com/" {
		t.Errorf("url: got %q", cfg.TargetURL)
	}
	if cfg.Layout != model.OnePlusThree {
		t.Errorf("layout: got %q", cfg.Layout)
	}
	if cfg.PersistPolicy != controller.FailOpen {
		t.Errorf("policy: got %q", cfg.PersistPolicy)
	}
	if cfg.StateFile != "/tmp/q.yaml" {
		t.Errorf("state: got %q", cfg.StateFile)
	}
}

func TestApplyRunFlags_Unset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TargetURL = "https://from-config.example/"
	if err := applyRunFlags(newRunFlags(t), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.TargetURL != "https://from-config.example/" {
		t.Errorf("config value overwritten: %q", cfg.TargetURL)
	}
	if cfg.PersistPolicy != controller.FailClosed {
		t.Errorf("policy: got %q", cfg.PersistPolicy)
	}
}

func TestApplyRunFlags_BadLayout(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := applyRunFlags(newRunFlags(t, "--layout", "3x3"), &cfg); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestSeedLayout(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Layout = model.OnePlusThree

	st := store.NewMemory()
	if err := seedLayout(ctx, st, cfg, false); err != nil {
		t.Fatal(err)
	}
	rec, _ := st.Get(ctx)
	if rec.Layout != model.OnePlusThree {
		t.Errorf("empty store: got %q", rec.Layout)
	}

	st = store.NewMemoryWith(model.State{Layout: model.TwoByTwo})
	if err := seedLayout(ctx, st, cfg, false); err != nil {
		t.Fatal(err)
	}
	rec, _ = st.Get(ctx)
	if rec.Layout != model.TwoByTwo {
		t.Errorf("persisted layout should win without --layout, got %q", rec.Layout)
	}

	if err := seedLayout(ctx, st, cfg, true); err != nil {
		t.Fatal(err)
	}
	rec, _ = st.Get(ctx)
	if rec.Layout != model.OnePlusThree {
		t.Errorf("--layout should win, got %q", rec.Layout)
	}
}

type recordingControls struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingControls) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	return r.err
}

func (r *recordingControls) Tile(context.Context, bool, bool) error { return r.record("retile") }
func (r *recordingControls) Reshow(context.Context) error           { return r.record("reshow") }
func (r *recordingControls) Reopen(context.Context) error           { return r.record("reopen") }
func (r *recordingControls) Reset(context.Context) error            { return r.record("reset") }
func (r *recordingControls) ReloadChildren(context.Context) error   { return r.record("reload") }
func (r *recordingControls) Close(context.Context) error            { return r.record("close") }
func (r *recordingControls) Status() controller.Status              { return controller.Status{} }

func (r *recordingControls) SetLayout(context.Context, model.LayoutMode) error {
	return r.record("layout")
}

func TestDispatchControls(t *testing.T) {
	ctl := &recordingControls{err: controller.ErrBusy}
	actions := make(chan platform.ControlAction, 4)
	actions <- platform.ControlAction{Name: "reshow"}
	actions <- platform.ControlAction{Name: "layout", Arg: "1+3"}
	actions <- platform.ControlAction{Name: "close"}

	stopped := false
	err := dispatchControls(context.Background(), ctl, actions, func() { stopped = true })
	if err != nil {
		t.Fatal(err)
	}
	if !stopped {
		t.Error("close should stop the run")
	}
	want := []string{"reshow", "layout"}
	if len(ctl.calls) != len(want) {
		t.Fatalf("calls: got %v, want %v", ctl.calls, want)
	}
	for i := range want {
		if ctl.calls[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, ctl.calls[i], want[i])
		}
	}
}

func TestDispatchControls_ClosedChannel(t *testing.T) {
	actions := make(chan platform.ControlAction)
	close(actions)
	if err := dispatchControls(context.Background(), &recordingControls{err: errors.New("x")}, actions, func() {}); err != nil {
		t.Fatal(err)
	}
}

func TestOpenState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	c := &cobra.Command{Use: "status"}
	c.Flags().String("state", "", "")
	if err := c.Flags().Parse([]string{"--state", path}); err != nil {
		t.Fatal(err)
	}
	st, err := openState(c)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if st.Path() != path {
		t.Errorf("path: got %q, want %q", st.Path(), path)
	}
}

func TestLockInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	lock, err := lockInstance(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lockInstance(path); !errors.Is(err, store.ErrLocked) {
		t.Errorf("second instance: got %v, want ErrLocked", err)
	}
	other, err := lockInstance(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Errorf("a different state file must not be blocked: %v", err)
	} else {
		other.Unlock()
	}

	if err := lock.Unlock(); err != nil {
		t.Fatal(err)
	}
	again, err := lockInstance(path)
	if err != nil {
		t.Fatalf("after the first instance exits: %v", err)
	}
	again.Unlock()
}

func TestRunReset_RefusesWhileInstanceRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	st, err := store.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := st.Set(ctx, platform.SetChildren(model.ChildSet{1, 2, 3, 4})); err != nil {
		t.Fatal(err)
	}
	st.Close()

	newReset := func(args ...string) *cobra.Command {
		c := &cobra.Command{Use: "reset", RunE: runReset}
		c.Flags().String("state", "", "")
		c.Flags().Bool("force", false, "")
		c.Flags().Bool("layout", false, "")
		c.SetContext(ctx)
		if err := c.Flags().Parse(append([]string{"--state", path}, args...)); err != nil {
			t.Fatal(err)
		}
		return c
	}

	lock, err := lockInstance(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := runReset(newReset(), nil); err == nil {
		t.Error("reset succeeded while an instance holds the state file")
	}
	lock.Unlock()

	if err := runReset(newReset(), nil); err != nil {
		t.Fatalf("reset after the instance exited: %v", err)
	}
	st, err = store.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	rec, _ := st.Get(ctx)
	if len(rec.ChildIDs) != 0 {
		t.Errorf("childIds: got %v, want empty", rec.ChildIDs)
	}
}
