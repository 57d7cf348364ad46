package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical/formation-extractor/cmd/formation-extractor/ui"
	"github.com/spherical/formation-extractor/internal/assets"
	"github.com/spherical/formation-extractor/pkg/extractor"
)

var (
	verifyOutputDir string
	verifySel       layoutFlags
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check an output directory holds exactly the expected assets",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyOutputDir, "output", "o", "", "Output directory (default: static/formations)")
	verifySel.register(verifyCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := verifySel.apply(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Dir = verifyOutputDir
	}

	// Filenames do not depend on density.
	reg, err := extractor.BuildRegistry(cfg.Layout.File, cfg.Layout.Pages, cfg.Raster.Density)
	if err != nil {
		return err
	}

	inv, err := assets.Verify(cfg.Output.Dir, reg.IDs())
	if err != nil {
		return err
	}

	ui.Section("Asset Verification")
	ui.KeyValue("Directory", cfg.Output.Dir)
	ui.KeyValue("Present", fmt.Sprintf("%d of %d", len(inv.Present), len(reg.IDs())))

	if inv.Complete() {
		ui.Newline()
		ui.Success("All %d assets present", len(inv.Present))
		return nil
	}

	if len(inv.Missing) > 0 {
		ui.Newline()
		ui.Warning("Missing %d %s:", len(inv.Missing), pluralize(len(inv.Missing), "asset"))
		fmt.Print(ui.FormatList(inv.Missing))
	}
	if len(inv.Unexpected) > 0 {
		ui.Newline()
		ui.Warning("Unexpected %d %s:", len(inv.Unexpected), pluralize(len(inv.Unexpected), "file"))
		fmt.Print(ui.FormatList(inv.Unexpected))
	}
	return fmt.Errorf("%s is incomplete: %d missing, %d unexpected", cfg.Output.Dir, len(inv.Missing), len(inv.Unexpected))
}
