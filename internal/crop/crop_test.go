package crop

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/formation-extractor/internal/domain"
)

// patternPage fills every pixel with a colour derived from its coordinates.
func patternPage(index int, r image.Rectangle) domain.Page {
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return domain.Page{Index: index, Image: img}
}

func TestCrop_CopiesRegion(t *testing.T) {
	page := patternPage(0, image.Rect(0, 0, 200, 300))
	spec := domain.FormationSpec{ID: "1", Page: 0, Rect: image.Rect(10, 20, 60, 90)}

	img, err := Crop(page, spec)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 70), img.Bounds())

	r, g, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(20), g>>8)

	r, g, _, _ = img.At(49, 69).RGBA()
	assert.Equal(t, uint32(59), r>>8)
	assert.Equal(t, uint32(89), g>>8)
}

func TestCrop_IsIndependentOfSource(t *testing.T) {
	page := patternPage(0, image.Rect(0, 0, 40, 40))
	spec := domain.FormationSpec{ID: "2", Rect: image.Rect(0, 0, 10, 10)}

	img, err := Crop(page, spec)
	require.NoError(t, err)

	page.Image.(*image.RGBA).SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r>>8)
}

func TestCrop_PageWithOffsetOrigin(t *testing.T) {
	page := patternPage(1, image.Rect(100, 100, 200, 200))
	spec := domain.FormationSpec{ID: "9", Page: 1, Rect: image.Rect(0, 0, 10, 10)}

	img, err := Crop(page, spec)
	require.NoError(t, err)
	r, g, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(100), r>>8)
	assert.Equal(t, uint32(100), g>>8)

	_, err = Crop(page, domain.FormationSpec{ID: "10", Page: 1, Rect: image.Rect(50, 50, 101, 60)})
	assert.True(t, domain.IsType(err, domain.ErrorTypeRegionBounds))
}

func TestCrop_RejectsBadRectangles(t *testing.T) {
	page := patternPage(2, image.Rect(0, 0, 100, 100))

	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"past right edge", image.Rect(50, 0, 101, 10)},
		{"past bottom edge", image.Rect(0, 50, 10, 150)},
		{"negative origin", image.Rect(-1, 0, 10, 10)},
		{"zero width", image.Rectangle{Min: image.Pt(10, 10), Max: image.Pt(10, 20)}},
		{"inverted", image.Rectangle{Min: image.Pt(30, 30), Max: image.Pt(20, 40)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := domain.FormationSpec{ID: "21", Page: 2, Rect: tt.rect}
			img, err := Crop(page, spec)
			assert.Nil(t, img)
			require.Error(t, err)

			var de *domain.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domain.ErrorTypeRegionBounds, de.Type)
			assert.Equal(t, domain.FormationID("21"), de.Formation)
			assert.Equal(t, 2, de.Page)
			assert.Equal(t, tt.rect, de.Rect)
		})
	}
}

func TestCrop_EmptyPage(t *testing.T) {
	_, err := Crop(domain.Page{}, domain.FormationSpec{ID: "1", Rect: image.Rect(0, 0, 1, 1)})
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestEncodePNG_Deterministic(t *testing.T) {
	page := patternPage(0, image.Rect(0, 0, 64, 64))
	img, err := Crop(page, domain.FormationSpec{ID: "A", Rect: image.Rect(8, 8, 40, 56)})
	require.NoError(t, err)

	first, err := EncodePNG(img)
	require.NoError(t, err)
	second, err := EncodePNG(img)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	decoded, err := png.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 48), decoded.Bounds())
}
