package domain

import "context"

// Rasterizer defines the interface for rendering a document into pages
type Rasterizer interface {
	// Rasterize renders every page of the document at density dots per inch.
	// Element i of the result is page i+1 of the source.
	Rasterize(ctx context.Context, path string, density float64) ([]Page, error)
}

// AssetStore persists encoded formation images
type AssetStore interface {
	// Write stores the asset and returns the path it was written to
	Write(asset Asset) (string, error)
}

// PageCounter is implemented by rasterizers that can count pages without rendering
type PageCounter interface {
	PageCount(path string) (int, error)
}
