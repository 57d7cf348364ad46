package commands

import (
	"image"
	"math"

	"github.com/spf13/cobra"

	"github.com/spherical/formation-extractor/internal/config"
	"github.com/spherical/formation-extractor/internal/layout"
)

// layoutFlags are shared by every command that needs a registry.
type layoutFlags struct {
	file  string
	pages string
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "layout", "", "YAML layout file (default: built-in USPA layout)")
	cmd.Flags().StringVar(&f.pages, "pages", "", "comma separated page indices to process, e.g. 0,1")
}

// apply copies explicitly set flags over the loaded configuration.
func (f *layoutFlags) apply(cmd *cobra.Command, c *config.Config) error {
	if cmd.Flags().Changed("layout") {
		c.Layout.File = f.file
	}
	if cmd.Flags().Changed("pages") {
		pages, err := config.ParsePages(f.pages)
		if err != nil {
			return err
		}
		c.Layout.Pages = pages
	}
	return nil
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// scaledReferencePage is a US letter page rendered at density.
func scaledReferencePage(density float64) image.Rectangle {
	f := density / layout.ReferenceDensity
	return image.Rect(0, 0,
		int(math.Round(float64(layout.ReferencePage.Dx())*f)),
		int(math.Round(float64(layout.ReferencePage.Dy())*f)))
}
