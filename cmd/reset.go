package cmd

import (
	"fmt"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/output"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/mj1618/quadview/internal/store"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the persisted child windows",
	Long: `Clear the child window set kept in the state file so the next run opens
four fresh windows. A running instance is reset from its toolbar or the MCP
reset tool instead; clearing its record from outside would orphan its
windows, so this refuses while an instance holds the state file unless
--force is given. A record left behind by a run that crashed is cleared.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().String("state", "", "State file path (default from config)")
	resetCmd.Flags().Bool("force", false, "Clear even if an instance is running")
	resetCmd.Flags().Bool("layout", false, "Also forget the saved layout")
}

func runReset(cmd *cobra.Command, args []string) error {
	st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	rec, err := st.Get(ctx)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	running, err := store.Held(st.Path())
	if err != nil {
		return err
	}
	if running && !force {
		return fmt.Errorf("an instance is running with %s; stop it or pass --force", st.Path())
	}

	keys := []platform.Key{platform.KeyControllerWindowID}
	if all, _ := cmd.Flags().GetBool("layout"); all {
		keys = append(keys, platform.KeyLayout)
	}
	if err := st.Set(ctx, platform.SetChildren(model.ChildSet{})); err != nil {
		return err
	}
	if err := st.Remove(ctx, keys...); err != nil {
		return err
	}
	return output.Print(output.ActionResult{OK: true, Action: "reset", Children: rec.ChildIDs})
}
