package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/formation-extractor/cmd/formation-extractor/ui"
	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/layout"
	"github.com/spherical/formation-extractor/pkg/extractor"
)

var (
	layoutDensity float64
	layoutYAML    bool
	layoutCheck   bool
	layoutSel     layoutFlags
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show the crop rectangles of every formation",
	Long: `Print the formation table generated from the page layouts: page, identifier,
output file and crop rectangle. Use --yaml to dump the layout in the format
accepted by --layout.`,
	Args: cobra.NoArgs,
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().Float64Var(&layoutDensity, "density", 0, "Express rectangles at this density (default: 300)")
	layoutCmd.Flags().BoolVar(&layoutYAML, "yaml", false, "Print the layout as YAML")
	layoutCmd.Flags().BoolVar(&layoutCheck, "check", false, "Check every rectangle fits a US letter page")
	layoutSel.register(layoutCmd)
	rootCmd.AddCommand(layoutCmd)
}

func runLayout(cmd *cobra.Command, args []string) error {
	if err := layoutSel.apply(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("density") {
		cfg.Raster.Density = layoutDensity
	}

	reg, err := extractor.BuildRegistry(cfg.Layout.File, cfg.Layout.Pages, cfg.Raster.Density)
	if err != nil {
		return err
	}

	if layoutYAML {
		data, err := layout.Marshal(reg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	ui.Section(fmt.Sprintf("Layout %s at %.0f dpi", reg.Name(), reg.Density()))
	rows := make([][]string, 0, len(reg.IDs()))
	for _, s := range reg.Specs() {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Page+1),
			string(s.ID),
			string(s.Kind),
			s.ID.Filename(),
			domain.FormatRect(s.Rect),
		})
	}
	ui.Table([]string{"Page", "ID", "Kind", "File", "Rect"}, rows)

	if layoutCheck {
		page := scaledReferencePage(reg.Density())
		ui.Newline()
		if err := reg.Validate(page); err != nil {
			ui.Error("Layout does not fit a %dx%d page", page.Dx(), page.Dy())
			return err
		}
		ui.Success("All %d rectangles fit a %dx%d page", len(rows), page.Dx(), page.Dy())
	}
	return nil
}
