package cmd

import (
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/output"
	"github.com/mj1618/quadview/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted layout and child windows",
	Long: `Print the record kept in the state file: the layout, the child window
handles and the controller window. A running instance reports its live
state through the MCP status tool.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("state", "", "State file path (default from config)")
}

// StatusResult is the output of the status command.
type StatusResult struct {
	StateFile          string           `yaml:"state_file"                     json:"state_file"`
	Layout             model.LayoutMode `yaml:"layout"                         json:"layout"`
	Children           model.ChildSet   `yaml:"children,flow"                  json:"children"`
	ControllerWindowID *model.Handle    `yaml:"controller_window_id,omitempty" json:"controller_window_id,omitempty"`
	Running            bool             `yaml:"running"                        json:"running"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(cmd.Context())
	if err != nil {
		return err
	}
	running, err := store.Held(st.Path())
	if err != nil {
		return err
	}
	children := rec.ChildIDs
	if children == nil {
		children = model.ChildSet{}
	}
	return output.Print(StatusResult{
		StateFile:          st.Path(),
		Layout:             rec.LayoutOrDefault(),
		Children:           children,
		ControllerWindowID: rec.ControllerWindowID,
		Running:            running,
	})
}

// openState opens the state file named by --state or the config.
func openState(cmd *cobra.Command) (*store.File, error) {
	path, _ := cmd.Flags().GetString("state")
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.StateFile
	}
	return store.Open(path, componentLogger("store"))
}
