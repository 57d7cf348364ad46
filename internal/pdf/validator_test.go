package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/observability"
)

func TestValidatePDFPath(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("hello"), 0o644))
	pdfFile := filepath.Join(dir, "cards.PDF")
	require.NoError(t, os.WriteFile(pdfFile, []byte("%PDF-1.4"), 0o644))
	pdfDir := filepath.Join(dir, "folder.pdf")
	require.NoError(t, os.Mkdir(pdfDir, 0o755))

	v := NewValidator(observability.Nop())

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"empty", "  ", "cannot be empty"},
		{"missing", filepath.Join(dir, "absent.pdf"), "does not exist"},
		{"directory", pdfDir, "is a directory"},
		{"wrong extension", textFile, "not a PDF"},
		{"upper-case extension", pdfFile, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePDFPath(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeSourceRead))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDensity(t *testing.T) {
	v := NewValidator(observability.Nop())
	assert.NoError(t, v.ValidateDensity(300))
	assert.NoError(t, v.ValidateDensity(72))
	assert.Error(t, v.ValidateDensity(0))
	assert.Error(t, v.ValidateDensity(-300))
	assert.Error(t, v.ValidateDensity(5000))
}

func TestConverter_MissingSource(t *testing.T) {
	c := NewConverter(nil, 0)
	assert.Equal(t, DefaultTimeout, c.timeout)

	_, err := c.Rasterize(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), 300)
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeSourceRead, de.Type)
	assert.Contains(t, de.Path, "missing.pdf")
}

func TestConverter_RejectsDensityBeforeOpening(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	_, err := NewConverter(observability.Nop(), 0).Rasterize(context.Background(), path, 0)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestConverter_PageCountOfCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	_, err := NewConverter(observability.Nop(), 0).PageCount(path)
	assert.True(t, domain.IsType(err, domain.ErrorTypeSourceRead))
}
