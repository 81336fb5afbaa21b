// Package config loads quadview settings from a TOML file in the XDG
// config directory. Missing fields keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/mj1618/quadview/internal/controller"
	"github.com/mj1618/quadview/internal/layout"
	"github.com/mj1618/quadview/internal/lifecycle"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/scheduler"
	"github.com/mj1618/quadview/internal/sensor"
	"github.com/pelletier/go-toml/v2"
)

const appName = "quadview"

// Duration is a time.Duration written as a string such as "200ms".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the on-disk configuration.
type Config struct {
	TargetURL string           `toml:"target_url"`
	Layout    model.LayoutMode `toml:"layout"`

	Geometry GeometryConfig `toml:"geometry"`
	Timing   TimingConfig   `toml:"timing"`
	Browser  BrowserConfig  `toml:"browser"`

	PersistPolicy controller.PersistPolicy `toml:"persist_policy"`
	StateFile     string                   `toml:"state_file"`
}

// GeometryConfig sizes the tiles.
type GeometryConfig struct {
	ToolbarHeight int `toml:"toolbar_height"`
	Gap           int `toml:"gap"`
	ChildWidth    int `toml:"child_width"`
	ChildHeight   int `toml:"child_height"`
	MinSize       int `toml:"min_size"`
}

// TimingConfig holds the scheduler and controller timings.
type TimingConfig struct {
	PollInterval  Duration `toml:"poll_interval"`
	RaiseCooldown Duration `toml:"raise_cooldown"`
	MoveQuiet     Duration `toml:"move_quiet"`
	CallTimeout   Duration `toml:"call_timeout"`
	AckTimeout    Duration `toml:"ack_timeout"`
}

// BrowserConfig selects the browser that hosts the windows.
type BrowserConfig struct {
	Headless bool   `toml:"headless"`
	Channel  string `toml:"channel"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	s := controller.DefaultSettings()
	g := layout.DefaultGeometry()
	return Config{
		TargetURL: "about:blank",
		Layout:    model.DefaultLayout,
		Geometry: GeometryConfig{
			ToolbarHeight: g.ToolbarHeight,
			Gap:           g.Gap,
			ChildWidth:    s.ChildWidth,
			ChildHeight:   s.ChildHeight,
			MinSize:       sensor.DefaultMinSize,
		},
		Timing: TimingConfig{
			PollInterval:  Duration(scheduler.DefaultInterval),
			RaiseCooldown: Duration(s.RaiseCooldown),
			MoveQuiet:     Duration(s.MoveQuiet),
			CallTimeout:   Duration(s.CallTimeout),
			AckTimeout:    Duration(lifecycle.DefaultAckTimeout),
		},
		Browser: BrowserConfig{
			Channel: "chromium",
		},
		PersistPolicy: s.PersistPolicy,
		StateFile:     DefaultStatePath(),
	}
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// DefaultStatePath returns the state file location.
func DefaultStatePath() string {
	return filepath.Join(xdg.StateHome, appName, "state.yaml")
}

// Load reads path over the defaults. A missing file is not an error. An
// empty path means DefaultPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Decode parses TOML into cfg, leaving absent fields untouched.
// Unknown keys are rejected.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// Validate checks values that would make the controller misbehave.
func (c Config) Validate() error {
	var errs []error
	if c.TargetURL == "" {
		errs = append(errs, errors.New("target_url is empty"))
	}
	if c.Layout != "" && !c.Layout.Valid() {
		errs = append(errs, fmt.Errorf("layout %q is not one of %s, %s", c.Layout, model.TwoByTwo, model.OnePlusThree))
	}
	if c.Geometry.ToolbarHeight < 0 || c.Geometry.Gap < 0 {
		errs = append(errs, errors.New("geometry: toolbar_height and gap must not be negative"))
	}
	if c.Geometry.ChildWidth <= 0 || c.Geometry.ChildHeight <= 0 {
		errs = append(errs, errors.New("geometry: child size must be positive"))
	}
	if c.Timing.PollInterval <= 0 {
		errs = append(errs, errors.New("timing: poll_interval must be positive"))
	}
	switch c.PersistPolicy {
	case controller.FailClosed, controller.FailOpen:
	default:
		errs = append(errs, fmt.Errorf("persist_policy %q is not fail-closed or fail-open", c.PersistPolicy))
	}
	return errors.Join(errs...)
}

// Settings converts the config into controller settings.
func (c Config) Settings() controller.Settings {
	return controller.Settings{
		TargetURL:   c.TargetURL,
		ChildWidth:  c.Geometry.ChildWidth,
		ChildHeight: c.Geometry.ChildHeight,
		Geometry: layout.Geometry{
			ToolbarHeight: c.Geometry.ToolbarHeight,
			Gap:           c.Geometry.Gap,
		},
		RaiseCooldown: c.Timing.RaiseCooldown.Std(),
		MoveQuiet:     c.Timing.MoveQuiet.Std(),
		CallTimeout:   c.Timing.CallTimeout.Std(),
		PersistPolicy: c.PersistPolicy,
	}
}

// Write saves cfg to path with a short header, creating the directory.
func Write(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# quadview configuration\n")
	buf.WriteString("# Location: " + path + "\n\n")
	buf.Write(data)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
