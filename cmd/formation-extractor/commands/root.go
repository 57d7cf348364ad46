package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/formation-extractor/cmd/formation-extractor/ui"
	"github.com/spherical/formation-extractor/internal/config"
	"github.com/spherical/formation-extractor/internal/observability"
)

var version = "0.1.0"

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "formation-extractor",
	Short: "Extract formation images from the formation skydiving dive pool",
	Long: `formation-extractor renders the dive pool PDF and crops every block and
random formation into its own PNG asset (FS-1.png .. FS-22.png, FS-A.png .. FS-Q.png).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		ui.InitUI(noColor)

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      cfg.Observability.LogFormat,
			Output:      os.Stderr,
			ServiceName: "formation-extractor",
			NoColor:     noColor,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
