// Package crop cuts formation cells out of rendered pages.
package crop

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/spherical/formation-extractor/internal/domain"
)

// Crop returns a copy of the spec's rectangle on page, with its origin at (0,0).
// Rectangles are relative to the page's top-left corner. A degenerate or
// out-of-bounds rectangle is a RegionBoundsError; nothing is clamped.
func Crop(page domain.Page, spec domain.FormationSpec) (image.Image, error) {
	if page.Image == nil {
		return nil, domain.ValidationError("page has no image data", nil)
	}

	frame := page.Frame()
	if domain.IsDegenerate(spec.Rect) || !spec.Rect.In(frame) {
		return nil, domain.RegionBoundsError(spec, frame)
	}

	src := spec.Rect.Add(page.Bounds().Min)
	dst := image.NewNRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(dst, dst.Bounds(), page.Image, src.Min, draw.Src)
	return dst, nil
}

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG encodes img as PNG. Equal images always produce equal bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

