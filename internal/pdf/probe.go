package pdf

import (
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/spherical/formation-extractor/internal/domain"
)

// pdfcpu writes a config directory under the user's home unless told not to.
var disableConfigDir sync.Once

// PageCount reads the page count from the document structure without
// rendering anything. Scanned files often carry minor structural defects, so
// the check runs in relaxed validation mode.
func (c *Converter) PageCount(pdfPath string) (int, error) {
	if err := c.validator.ValidatePDFPath(pdfPath); err != nil {
		return 0, err
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, domain.SourceReadError(pdfPath, "cannot open file", err)
	}
	defer f.Close()

	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(f, conf)
	if err != nil {
		return 0, domain.SourceReadError(pdfPath, "cannot read PDF page tree", err)
	}
	return n, nil
}
