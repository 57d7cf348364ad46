// Package extractor is the public entry point for extracting formation
// images from a dive-pool document.
package extractor

import (
	"context"

	"github.com/spherical/formation-extractor/internal/assets"
	"github.com/spherical/formation-extractor/internal/config"
	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/extract"
	"github.com/spherical/formation-extractor/internal/layout"
	"github.com/spherical/formation-extractor/internal/observability"
	"github.com/spherical/formation-extractor/internal/pdf"
)

// Re-export event and result types for the public API
type (
	StreamEvent = domain.StreamEvent
	EventType   = domain.EventType
	Report      = domain.Report
	FormationID = domain.FormationID
)

// Event type constants
const (
	EventStart            = domain.EventStart
	EventRasterizing      = domain.EventRasterizing
	EventPageProcessing   = domain.EventPageProcessing
	EventFormationWritten = domain.EventFormationWritten
	EventPageComplete     = domain.EventPageComplete
	EventError            = domain.EventError
	EventComplete         = domain.EventComplete
)

// Result is delivered once a Process call finishes.
type Result struct {
	Report *Report
	Err    error
}

// Client is the main entry point for the extractor library
type Client struct {
	cfg      *config.Config
	registry *layout.Registry
	store    *assets.Writer
	service  *extract.Service
	logger   *observability.Logger
}

// Option customises a Client.
type Option func(*options)

type options struct {
	rasterizer domain.Rasterizer
}

// WithRasterizer replaces the MuPDF rasterizer.
func WithRasterizer(r domain.Rasterizer) Option {
	return func(o *options) { o.rasterizer = r }
}

// NewClient creates a client for cfg. A nil logger discards output.
func NewClient(cfg *config.Config, logger *observability.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.Nop()
	}

	reg, err := BuildRegistry(cfg.Layout.File, cfg.Layout.Pages, cfg.Raster.Density)
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.rasterizer == nil {
		o.rasterizer = pdf.NewConverter(logger, cfg.Raster.Timeout)
	}

	store := assets.NewWriter(cfg.Output.Dir)
	return &Client{
		cfg:      cfg,
		registry: reg,
		store:    store,
		service:  extract.NewService(o.rasterizer, store, logger, cfg.Workers),
		logger:   logger,
	}, nil
}

// BuildRegistry loads the layout at file, or the built-in USPA layout when
// file is empty, keeps only pages (all when empty) and scales it to density.
func BuildRegistry(file string, pages []int, density float64) (*layout.Registry, error) {
	reg := layout.USPA4Way()
	if file != "" {
		loaded, err := layout.LoadFile(file)
		if err != nil {
			return nil, err
		}
		reg = loaded
	}

	reg, err := reg.Select(pages)
	if err != nil {
		return nil, err
	}
	return reg.Scaled(density)
}

// Registry returns the layout the client extracts.
func (c *Client) Registry() *layout.Registry { return c.registry }

// OutputDir returns the directory assets are written to.
func (c *Client) OutputDir() string { return c.store.Dir() }

// Run extracts every formation synchronously. Events are sent to eventCh
// when it is not nil; a full channel drops events rather than blocking.
func (c *Client) Run(ctx context.Context, eventCh chan<- StreamEvent) (*Report, error) {
	return c.service.Run(ctx, extract.Request{
		Source:   c.cfg.Source,
		Density:  c.cfg.Raster.Density,
		Registry: c.registry,
	}, eventCh)
}

// Process runs the extraction in the background. The event channel is
// closed before the single Result is delivered.
func (c *Client) Process(ctx context.Context) (<-chan StreamEvent, <-chan Result) {
	eventCh := make(chan StreamEvent, 100)
	resultCh := make(chan Result, 1)

	go func() {
		report, err := c.Run(ctx, eventCh)
		close(eventCh)
		resultCh <- Result{Report: report, Err: err}
		close(resultCh)
	}()

	return eventCh, resultCh
}

// Verify reports which expected assets are present in the output directory.
func (c *Client) Verify() (assets.Inventory, error) {
	return assets.Verify(c.store.Dir(), c.registry.IDs())
}
