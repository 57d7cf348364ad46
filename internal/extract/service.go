// Package extract runs the rasterize → lookup → crop → write pipeline.
package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/formation-extractor/internal/crop"
	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/layout"
	"github.com/spherical/formation-extractor/internal/observability"
)

// Request describes one pipeline run.
type Request struct {
	Source   string
	Density  float64
	Registry *layout.Registry // already selected and scaled to Density
}

// Service orchestrates the extraction process
type Service struct {
	rasterizer domain.Rasterizer
	store      domain.AssetStore
	logger     *observability.Logger
	workers    int
}

// NewService creates a new extraction service. workers bounds how many
// formations of one page are cropped and written concurrently.
func NewService(rasterizer domain.Rasterizer, store domain.AssetStore, logger *observability.Logger, workers int) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Service{
		rasterizer: rasterizer,
		store:      store,
		logger:     logger.WithOperation("extract"),
		workers:    workers,
	}
}

// Run executes the pipeline. Pages are extracted in document order; a failure
// stops the run but leaves assets from earlier pages on disk. The returned
// report is never nil, even when err is not.
func (s *Service) Run(ctx context.Context, req Request, eventCh chan<- domain.StreamEvent) (*domain.Report, error) {
	if req.Registry == nil {
		return nil, domain.ConfigError("request has no layout registry", nil)
	}

	r := &run{
		Service: s,
		req:     req,
		id:      uuid.NewString(),
		machine: domain.NewMachine(),
		written: make(map[domain.FormationID]bool),
		eventCh: eventCh,
		start:   time.Now(),
	}
	r.log = s.logger.WithRun(r.id)

	err := r.execute(ctx)
	return r.report(), err
}

// run holds the state of a single Service.Run call.
type run struct {
	*Service
	req     Request
	id      string
	log     *observability.Logger
	machine *domain.Machine
	eventCh chan<- domain.StreamEvent
	start   time.Time
	pages   int

	mu      sync.Mutex
	written map[domain.FormationID]bool
}

// stageError attributes a formation failure to a pipeline stage.
type stageError struct {
	stage domain.Stage
	spec  domain.FormationSpec
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s formation %s: %v", e.stage, e.spec.ID, e.err)
}

func (e *stageError) Unwrap() error { return e.err }

func (r *run) execute(ctx context.Context) error {
	reg := r.req.Registry
	r.emit(domain.StreamEvent{
		Type:    domain.EventStart,
		Payload: fmt.Sprintf("Extracting %d formations from %s", len(reg.IDs()), r.req.Source),
	})

	if err := r.machine.StartRasterizing(); err != nil {
		return err
	}
	r.emit(domain.StreamEvent{Type: domain.EventRasterizing, Payload: fmt.Sprintf("Rendering at %.0f dpi", r.req.Density)})

	pages, err := r.rasterize(ctx)
	if err != nil {
		return r.fail(ctx, domain.Failure{Stage: domain.StageRasterize, Page: -1, Err: err})
	}
	r.pages = len(pages)

	for _, idx := range reg.Pages() {
		if ctx.Err() != nil {
			return r.fail(ctx, domain.Failure{Stage: domain.StageExtract, Page: idx, Err: ctx.Err()})
		}
		if err := r.machine.EnterPage(idx); err != nil {
			return err
		}

		if err := r.extractPage(ctx, pages[idx]); err != nil {
			f := domain.Failure{Stage: domain.StageExtract, Page: idx, Err: err}
			var se *stageError
			if errors.As(err, &se) {
				f.Stage, f.Formation, f.Err = se.stage, se.spec.ID, se.err
			}
			return r.fail(ctx, f)
		}

		// The bitmap is no longer needed once its formations are on disk.
		pages[idx] = domain.Page{}
	}

	if err := r.machine.Finish(); err != nil {
		return err
	}

	written := len(r.writtenIDs())
	r.emit(domain.StreamEvent{
		Type:    domain.EventComplete,
		Payload: fmt.Sprintf("Extraction complete: %d formations written in %v", written, time.Since(r.start).Round(time.Millisecond)),
	})
	r.log.Info().
		Int("written", written).
		Int("pages", r.pages).
		Dur("elapsed", time.Since(r.start)).
		Msg("Extraction complete")
	return nil
}

// rasterize renders the source and checks that every referenced page exists.
func (r *run) rasterize(ctx context.Context) ([]domain.Page, error) {
	need := r.req.Registry.MaxPage() + 1

	if pc, ok := r.rasterizer.(domain.PageCounter); ok {
		n, err := pc.PageCount(r.req.Source)
		switch {
		case err != nil:
			r.log.Debug().Err(err).Msg("Page count probe failed, relying on rasterizer")
		case n < need:
			return nil, domain.PageCountError(n, need)
		}
	}

	started := time.Now()
	pages, err := r.rasterizer.Rasterize(ctx, r.req.Source, r.req.Density)
	if err != nil {
		return nil, err
	}
	if len(pages) < need {
		return nil, domain.PageCountError(len(pages), need)
	}

	r.log.Info().
		Int("pages", len(pages)).
		Dur("elapsed", time.Since(started)).
		Msg("Rasterized document")
	return pages, nil
}

// extractPage crops and writes every formation on one page. The first
// failing formation cancels the formations not yet started on that page.
func (r *run) extractPage(ctx context.Context, page domain.Page) error {
	specs, ok := r.req.Registry.Lookup(page.Index)
	if !ok {
		return &stageError{stage: domain.StageLookup, spec: domain.FormationSpec{Page: page.Index},
			err: fmt.Errorf("no layout for page %d", page.Index)}
	}

	r.emit(domain.StreamEvent{
		Type:       domain.EventPageProcessing,
		PageNumber: page.Index + 1,
		Payload:    fmt.Sprintf("Extracting %d formations from page %d", len(specs), page.Index+1),
	})
	log := r.log.With().Int("page", page.Index).Logger()

	if err := layout.CheckBounds(specs, page.Frame()); err != nil {
		var de *domain.DomainError
		errors.As(err, &de)
		return &stageError{stage: domain.StageLookup, spec: domain.FormationSpec{ID: de.Formation, Page: page.Index}, err: err}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, spec := range specs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return r.extractFormation(page, spec, log)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.emit(domain.StreamEvent{
		Type:       domain.EventPageComplete,
		PageNumber: page.Index + 1,
		Payload:    fmt.Sprintf("Completed page %d", page.Index+1),
	})
	log.Info().Int("formations", len(specs)).Msg("Page complete")
	return nil
}

func (r *run) extractFormation(page domain.Page, spec domain.FormationSpec, log *observability.Logger) error {
	img, err := crop.Crop(page, spec)
	if err != nil {
		return &stageError{stage: domain.StageCrop, spec: spec, err: err}
	}

	data, err := crop.EncodePNG(img)
	if err != nil {
		return &stageError{stage: domain.StageEncode, spec: spec, err: err}
	}

	path, err := r.store.Write(domain.Asset{ID: spec.ID, Data: data})
	if err != nil {
		return &stageError{stage: domain.StageWrite, spec: spec, err: err}
	}

	r.mu.Lock()
	r.written[spec.ID] = true
	r.mu.Unlock()

	log.Debug().Str("formation", string(spec.ID)).Str("path", path).Msg("Saved formation")
	r.emit(domain.StreamEvent{
		Type:       domain.EventFormationWritten,
		PageNumber: page.Index + 1,
		Formation:  spec.ID,
		Payload:    path,
	})
	return nil
}

// fail records the failure and converts cancellation into an interrupted error.
func (r *run) fail(ctx context.Context, f domain.Failure) error {
	if ctx.Err() != nil && errors.Is(f.Err, ctx.Err()) {
		f.Err = domain.InterruptedError(len(r.pendingIDs()), ctx.Err())
	}
	if err := r.machine.Fail(f); err != nil {
		return err
	}

	written := len(r.writtenIDs())
	r.log.Error().
		Err(f.Err).
		Str("stage", string(f.Stage)).
		Int("page", f.Page).
		Str("formation", string(f.Formation)).
		Int("written", written).
		Msg("Extraction failed")
	r.emit(domain.StreamEvent{
		Type:       domain.EventError,
		PageNumber: f.Page + 1,
		Formation:  f.Formation,
		Payload:    fmt.Sprintf("%s (%d formations written)", f.String(), written),
	})
	return f.Err
}

func (r *run) writtenIDs() []domain.FormationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []domain.FormationID
	for _, id := range r.req.Registry.IDs() {
		if r.written[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *run) pendingIDs() []domain.FormationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []domain.FormationID
	for _, id := range r.req.Registry.IDs() {
		if !r.written[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *run) report() *domain.Report {
	return &domain.Report{
		RunID:    r.id,
		State:    r.machine.Current(),
		Failure:  r.machine.Failure(),
		Written:  r.writtenIDs(),
		Pending:  r.pendingIDs(),
		Pages:    r.pages,
		Duration: time.Since(r.start),
	}
}

// emit safely emits an event to the channel
func (r *run) emit(event domain.StreamEvent) {
	if r.eventCh == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case r.eventCh <- event:
	default:
		r.log.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}
