package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/observability"
	"github.com/spherical/formation-extractor/internal/pdf/pdftest"
)

// At 36 dpi a letter page is 306x396 pixels.
const lowDensity = 36.0

func TestConverter_Rasterize(t *testing.T) {
	path := pdftest.Write(t, 4)
	c := NewConverter(observability.Nop(), time.Minute)

	pages, err := c.Rasterize(context.Background(), path, lowDensity)
	require.NoError(t, err)
	require.Len(t, pages, 4)

	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		assert.InDelta(t, 306, p.Width(), 1)
		assert.InDelta(t, 396, p.Height(), 1)
	}

	// The filled rectangle on page 0 starts one inch from the bottom left.
	r, g, b, _ := pages[0].Image.At(pages[0].Bounds().Min.X+60, pages[0].Bounds().Max.Y-60).RGBA()
	assert.NotEqual(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
}

func TestConverter_PageCount(t *testing.T) {
	c := NewConverter(nil, 0)

	n, err := c.PageCount(pdftest.Write(t, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestConverter_Cancelled(t *testing.T) {
	path := pdftest.Write(t, 4)
	c := NewConverter(observability.Nop(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Rasterize(ctx, path, lowDensity)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeSourceRead))
	assert.ErrorIs(t, err, context.Canceled)
}
