package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/formation-extractor/cmd/formation-extractor/ui"
	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/pkg/extractor"
)

var (
	extractPDFPath   string
	extractOutputDir string
	extractDensity   float64
	extractWorkers   int
	extractTimeout   time.Duration
	extractLayout    layoutFlags
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf]",
	Short: "Extract formation images from the dive pool PDF",
	Long: `Render the dive pool PDF and write one PNG per formation into the output
directory. Existing assets are overwritten. A failed run keeps the assets of
the pages completed before the failure.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractPDFPath, "pdf", "p", "", "Path to the dive pool PDF")
	extractCmd.Flags().StringVarP(&extractOutputDir, "output", "o", "", "Output directory (default: static/formations)")
	extractCmd.Flags().Float64Var(&extractDensity, "density", 0, "Rasterization density in dpi (default: 300)")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "Formations cropped concurrently per page (default: CPU count)")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 0, "Rasterization timeout (default: 2m)")
	extractLayout.register(extractCmd)
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := applyExtractFlags(cmd, args); err != nil {
		return err
	}

	client, err := extractor.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	total := len(client.Registry().IDs())

	ui.Section("Formation Extraction")
	ui.Info("PDF file: %s", cfg.Source)
	ui.Info("Output directory: %s", client.OutputDir())
	ui.Info("Layout: %s, %d %s at %.0f dpi", client.Registry().Name(), total, pluralize(total, "formation"), cfg.Raster.Density)
	ui.Newline()

	events, results := client.Process(cmd.Context())

	spinner := ui.NewSpinner("Rendering document...")
	var bar *ui.ProgressBar
	written := 0

	for event := range events {
		switch event.Type {
		case extractor.EventRasterizing:
			spinner.Start()

		case extractor.EventPageProcessing:
			spinner.Stop()
			if bar == nil {
				bar = ui.NewProgressBar(int64(total), "Extracting formations")
			}

		case extractor.EventFormationWritten:
			written++
			if bar != nil {
				bar.Set(int64(written))
			}

		case extractor.EventError:
			spinner.Stop()
		}
	}
	spinner.Stop()

	res := <-results
	if res.Err != nil {
		if bar != nil {
			bar.Abort()
		}
		reportFailure(res.Report, res.Err)
		return fmt.Errorf("extraction failed: %w", res.Err)
	}
	if bar != nil {
		bar.Finish()
	}

	report := res.Report
	ui.Success("Extraction completed successfully!")
	ui.Newline()
	ui.Section("Extraction Summary")
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Run", report.RunID},
		{"Pages rendered", fmt.Sprintf("%d", report.Pages)},
		{"Formations written", fmt.Sprintf("%d", len(report.Written))},
		{"Output directory", client.OutputDir()},
		{"Duration", ui.FormatDuration(report.Duration)},
	})
	return nil
}

// applyExtractFlags copies explicitly set flags over the loaded configuration.
func applyExtractFlags(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	switch {
	case flags.Changed("pdf"):
		cfg.Source = extractPDFPath
	case len(args) == 1:
		cfg.Source = args[0]
	}
	if cfg.Source == "" {
		return fmt.Errorf("PDF file path is required (use --pdf flag)")
	}
	if flags.Changed("output") {
		cfg.Output.Dir = extractOutputDir
	}
	if flags.Changed("density") {
		cfg.Raster.Density = extractDensity
	}
	if flags.Changed("workers") {
		cfg.Workers = extractWorkers
	}
	if flags.Changed("timeout") {
		cfg.Raster.Timeout = extractTimeout
	}
	return extractLayout.apply(cmd, cfg)
}

func reportFailure(report *domain.Report, err error) {
	var lines []string
	if report != nil && report.Failure != nil {
		f := report.Failure
		lines = append(lines, fmt.Sprintf("Stage: %s", f.Stage))
		if f.Page >= 0 {
			lines = append(lines, fmt.Sprintf("Page: %d", f.Page+1))
		}
		if f.Formation != "" {
			lines = append(lines, fmt.Sprintf("Formation: %s", f.Formation))
		}
	}
	lines = append(lines, fmt.Sprintf("Cause: %v", err))

	if report != nil {
		lines = append(lines, fmt.Sprintf("Written: %d", len(report.Written)))
		if len(report.Pending) > 0 {
			pending := make([]string, len(report.Pending))
			for i, id := range report.Pending {
				pending[i] = string(id)
			}
			lines = append(lines, fmt.Sprintf("Pending: %s", strings.Join(pending, ", ")))
		}
	}

	title := "Extraction failed"
	if domain.IsType(err, domain.ErrorTypeInterrupted) {
		title = "Extraction interrupted"
	}
	ui.ErrorBox(title, strings.Join(lines, "\n"))
}
