package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/observability"
)

const (
	minDensity = 36.0
	maxDensity = 1200.0
	maxSize    = 100 * 1024 * 1024 // 100MB
)

// Validator provides input validation for PDF files
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *observability.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidatePDFPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.SourceReadError(path, "file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SourceReadError(path, "file does not exist", err)
		}
		return domain.SourceReadError(path, "cannot access file", err)
	}

	if info.IsDir() {
		return domain.SourceReadError(path, "path is a directory, not a file", nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.SourceReadError(path, fmt.Sprintf("file is not a PDF (has extension %q)", ext), nil)
	}

	// Large scans are slow to render but still valid.
	if info.Size() > maxSize {
		v.logger.Warn().
			Str("path", path).
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("PDF file is very large, rasterization may take a while")
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.SourceReadError(path, "cannot open file", err)
	}
	file.Close()

	return nil
}

// ValidateDensity validates the rasterization density in dots per inch
func (v *Validator) ValidateDensity(density float64) error {
	if density < minDensity || density > maxDensity {
		return domain.ValidationError(
			fmt.Sprintf("density must be between %.0f and %.0f dpi, got %v", minDensity, maxDensity, density), nil)
	}
	return nil
}
