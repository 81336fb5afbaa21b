package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mj1618/quadview/internal/model"
	"gopkg.in/yaml.v3"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// LayoutResult is the output of the `layout` command.
type LayoutResult struct {
	Layout model.LayoutMode   `yaml:"layout"        json:"layout"`
	Bounds model.ParentBounds `yaml:"bounds"        json:"bounds"`
	Rects  []model.Rect       `yaml:"rects"         json:"rects"`
	PNG    string             `yaml:"png,omitempty" json:"png,omitempty"`
}

// ActionResult is the output of commands that change state.
type ActionResult struct {
	OK       bool           `yaml:"ok"                      json:"ok"`
	Action   string         `yaml:"action"                  json:"action"`
	Children model.ChildSet `yaml:"children,omitempty,flow" json:"children,omitempty"`
	Error    string         `yaml:"error,omitempty"         json:"error,omitempty"`
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(os.Stdout, v)
}

// Fprint serializes v to w in the current output format.
func Fprint(w io.Writer, v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		return WriteJSON(w, v, PrettyOutput)
	case FormatYAML:
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// WriteJSON serializes v to w as JSON, single-line unless pretty is set.
func WriteJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// WriteYAML serializes v to w as YAML.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
