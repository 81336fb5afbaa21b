package cmd

import (
	"fmt"
	"image/png"
	"os"

	"github.com/mj1618/quadview/internal/layout"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/output"
	"github.com/mj1618/quadview/internal/platform"
	"github.com/spf13/cobra"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the tile rectangles for given controller bounds",
	Long: `Compute the four child rectangles for a controller window without opening
any windows. Geometry defaults come from the config file.

Examples:
  quadview layout --bounds 100,100,1000,668
  quadview layout --bounds 100,100,1000,668 --mode 1+3 --png tiles.png`,
	RunE: runLayout,
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.Flags().String("bounds", "", "Controller content bounds: left,top,width,height (required)")
	layoutCmd.Flags().String("mode", "2x2", "Layout: 2x2, 1+3")
	layoutCmd.Flags().Int("toolbar", -1, "Toolbar height (default from config)")
	layoutCmd.Flags().Int("gap", -1, "Gap between tiles (default from config)")
	layoutCmd.Flags().String("png", "", "Also render the layout to this PNG file")
	layoutCmd.MarkFlagRequired("bounds")
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	boundsStr, _ := cmd.Flags().GetString("bounds")
	bounds, err := platform.ParseBounds(boundsStr)
	if err != nil {
		return err
	}
	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := model.ParseLayoutMode(modeStr)
	if err != nil {
		return err
	}

	g := layout.Geometry{ToolbarHeight: cfg.Geometry.ToolbarHeight, Gap: cfg.Geometry.Gap}
	if v, _ := cmd.Flags().GetInt("toolbar"); v >= 0 {
		g.ToolbarHeight = v
	}
	if v, _ := cmd.Flags().GetInt("gap"); v >= 0 {
		g.Gap = v
	}

	rects := layout.Compute(mode, bounds, g)
	result := output.LayoutResult{
		Layout: mode,
		Bounds: bounds,
		Rects:  rects[:],
	}

	if path, _ := cmd.Flags().GetString("png"); path != "" {
		if err := writeLayoutPNG(path, bounds, g, rects); err != nil {
			return err
		}
		result.PNG = path
	}
	return output.Print(result)
}

func writeLayoutPNG(path string, bounds model.ParentBounds, g layout.Geometry, rects [model.ChildCount]model.Rect) error {
	img, err := DrawLayout(bounds, g, rects)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
