package extract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/formation-extractor/internal/assets"
	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/layout"
	"github.com/spherical/formation-extractor/internal/observability"
)

// testDensity keeps synthetic pages small: a letter page is 255x330 pixels.
const testDensity = 30.0

var letterPage = image.Rect(0, 0, 255, 330)

// fakeRasterizer renders synthetic pages whose pixels depend on page and position.
type fakeRasterizer struct {
	sizes      []image.Rectangle
	err        error
	pageCount  int // reported by PageCount when > 0
	rasterized bool
}

func newFakeRasterizer(pages int) *fakeRasterizer {
	sizes := make([]image.Rectangle, pages)
	for i := range sizes {
		sizes[i] = letterPage
	}
	return &fakeRasterizer{sizes: sizes}
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, path string, density float64) ([]domain.Page, error) {
	f.rasterized = true
	if f.err != nil {
		return nil, f.err
	}
	pages := make([]domain.Page, len(f.sizes))
	for i, r := range f.sizes {
		img := image.NewRGBA(r)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, color.RGBA{R: uint8(x * (i + 1)), G: uint8(y), B: uint8(i * 40), A: 255})
			}
		}
		pages[i] = domain.Page{Index: i, Image: img}
	}
	return pages, nil
}

// probingRasterizer also implements domain.PageCounter.
type probingRasterizer struct {
	*fakeRasterizer
}

func (p probingRasterizer) PageCount(path string) (int, error) {
	if p.pageCount == 0 {
		return 0, errors.New("probe unsupported")
	}
	return p.pageCount, nil
}

// hookStore wraps a real writer and lets tests intercept writes.
type hookStore struct {
	inner  *assets.Writer
	before func(id domain.FormationID) error
	mu     sync.Mutex
	calls  []domain.FormationID
}

func (h *hookStore) Write(a domain.Asset) (string, error) {
	h.mu.Lock()
	h.calls = append(h.calls, a.ID)
	h.mu.Unlock()
	if h.before != nil {
		if err := h.before(a.ID); err != nil {
			return "", domain.WriteError(a.ID, h.inner.Path(a.ID), err)
		}
	}
	return h.inner.Write(a)
}

func testRegistry(t *testing.T) *layout.Registry {
	t.Helper()
	reg, err := layout.USPA4Way().Scaled(testDensity)
	require.NoError(t, err)
	return reg
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func runPipeline(t *testing.T, r domain.Rasterizer, store domain.AssetStore, workers int) (*domain.Report, error) {
	t.Helper()
	svc := NewService(r, store, observability.Nop(), workers)
	return svc.Run(context.Background(), Request{Source: "cards.pdf", Density: testDensity, Registry: testRegistry(t)}, nil)
}

func TestRun_ProducesFullLibrary(t *testing.T) {
	dir := t.TempDir()
	report, err := runPipeline(t, newFakeRasterizer(4), assets.NewWriter(dir), 4)
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, report.State.Kind)
	assert.Nil(t, report.Failure)
	assert.Len(t, report.Written, 38)
	assert.Empty(t, report.Pending)
	assert.Equal(t, 4, report.Pages)
	assert.NotEmpty(t, report.RunID)

	files := listFiles(t, dir)
	require.Len(t, files, 38)
	assert.Contains(t, files, "FS-1.png")
	assert.Contains(t, files, "FS-22.png")
	assert.Contains(t, files, "FS-A.png")
	assert.Contains(t, files, "FS-Q.png")
	assert.NotContains(t, files, "FS-I.png")
	assert.NotContains(t, files, "FS-23.png")

	inv, err := assets.Verify(dir, testRegistry(t).IDs())
	require.NoError(t, err)
	assert.True(t, inv.Complete())
}

func TestRun_Idempotent(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()

	_, err := runPipeline(t, newFakeRasterizer(4), assets.NewWriter(first), 8)
	require.NoError(t, err)
	_, err = runPipeline(t, newFakeRasterizer(4), assets.NewWriter(second), 1)
	require.NoError(t, err)

	names := listFiles(t, first)
	require.Equal(t, names, listFiles(t, second))
	for _, name := range names {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}

	// A re-run over the same directory rewrites identical bytes.
	before, err := os.ReadFile(filepath.Join(first, "FS-21.png"))
	require.NoError(t, err)
	_, err = runPipeline(t, newFakeRasterizer(4), assets.NewWriter(first), 3)
	require.NoError(t, err)
	after, err := os.ReadFile(filepath.Join(first, "FS-21.png"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, listFiles(t, first), 38)
}

func TestRun_MissingPage(t *testing.T) {
	dir := t.TempDir()
	report, err := runPipeline(t, newFakeRasterizer(3), assets.NewWriter(dir), 4)
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypePageCount, de.Type)
	assert.Contains(t, err.Error(), "document has 3 pages, layouts require 4")

	assert.Equal(t, domain.StateFailed, report.State.Kind)
	assert.Equal(t, domain.StageRasterize, report.Failure.Stage)
	assert.Empty(t, report.Written)
	assert.Len(t, report.Pending, 38)
	for _, name := range listFiles(t, dir) {
		assert.False(t, strings.ContainsAny(strings.TrimSuffix(strings.TrimPrefix(name, "FS-"), ".png"), layout.RandomAlphabet),
			"no random formation may be written: %s", name)
	}
}

func TestRun_PageCountProbeSkipsRendering(t *testing.T) {
	fake := newFakeRasterizer(4)
	fake.pageCount = 2
	_, err := runPipeline(t, probingRasterizer{fake}, assets.NewWriter(t.TempDir()), 1)

	assert.True(t, domain.IsType(err, domain.ErrorTypePageCount))
	assert.False(t, fake.rasterized, "rendering must not start when the probe already shows missing pages")
}

func TestRun_FailedProbeFallsBackToRasterizer(t *testing.T) {
	fake := newFakeRasterizer(4)
	report, err := runPipeline(t, probingRasterizer{fake}, assets.NewWriter(t.TempDir()), 2)
	require.NoError(t, err)
	assert.True(t, fake.rasterized)
	assert.Len(t, report.Written, 38)
}

func TestRun_SelectedPagesOnlyNeedThosePages(t *testing.T) {
	dir := t.TempDir()
	reg, err := testRegistry(t).Select([]int{0, 1})
	require.NoError(t, err)

	svc := NewService(newFakeRasterizer(2), assets.NewWriter(dir), observability.Nop(), 2)
	report, err := svc.Run(context.Background(), Request{Source: "cards.pdf", Density: testDensity, Registry: reg}, nil)
	require.NoError(t, err)
	assert.Len(t, report.Written, 16)
	assert.Len(t, listFiles(t, dir), 16)
}

func TestRun_PartialFailureKeepsEarlierPages(t *testing.T) {
	dir := t.TempDir()
	fake := newFakeRasterizer(4)
	fake.sizes[2] = image.Rect(0, 0, 255, 200) // too short for the trailing row

	report, err := runPipeline(t, fake, assets.NewWriter(dir), 4)
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeRegionBounds, de.Type)
	assert.Contains(t, err.Error(), "formation=21")
	assert.Contains(t, err.Error(), "formation=22")

	assert.Equal(t, domain.StateFailed, report.State.Kind)
	require.NotNil(t, report.Failure)
	assert.Equal(t, domain.StageLookup, report.Failure.Stage)
	assert.Equal(t, 2, report.Failure.Page)
	assert.Equal(t, domain.FormationID("21"), report.Failure.Formation)

	assert.Len(t, report.Written, 16)
	assert.Len(t, report.Pending, 22)
	files := listFiles(t, dir)
	assert.Len(t, files, 16)
	assert.Contains(t, files, "FS-16.png")
	assert.NotContains(t, files, "FS-17.png")
}

func TestRun_WriteFailureStopsRun(t *testing.T) {
	dir := t.TempDir()
	store := &hookStore{inner: assets.NewWriter(dir), before: func(id domain.FormationID) error {
		if id == "12" {
			return errors.New("disk full")
		}
		return nil
	}}

	report, err := runPipeline(t, newFakeRasterizer(4), store, 1)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeWrite))
	assert.Contains(t, err.Error(), "FS-12.png")

	require.NotNil(t, report.Failure)
	assert.Equal(t, domain.StageWrite, report.Failure.Stage)
	assert.Equal(t, 1, report.Failure.Page)
	assert.Equal(t, domain.FormationID("12"), report.Failure.Formation)

	// One worker: 1–8 on page 0, then 9–11 before the failure.
	assert.Len(t, report.Written, 11)
	assert.Len(t, listFiles(t, dir), 11)
	assert.NotContains(t, store.calls, domain.FormationID("17"))
}

func TestRun_InterruptReportsPending(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writes int
	store := &hookStore{inner: assets.NewWriter(dir), before: func(id domain.FormationID) error {
		writes++
		if writes == 5 {
			cancel()
		}
		return nil
	}}

	svc := NewService(newFakeRasterizer(4), store, observability.Nop(), 1)
	report, err := svc.Run(ctx, Request{Source: "cards.pdf", Density: testDensity, Registry: testRegistry(t)}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeInterrupted))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, domain.StateFailed, report.State.Kind)
	assert.Len(t, report.Written, 5)
	assert.Len(t, report.Pending, 33)
	assert.Len(t, listFiles(t, dir), 5)
}

func TestRun_RasterizerError(t *testing.T) {
	fake := newFakeRasterizer(0)
	fake.err = domain.SourceReadError("cards.pdf", "failed to open PDF", errors.New("corrupt xref"))

	report, err := runPipeline(t, fake, assets.NewWriter(t.TempDir()), 1)
	assert.True(t, domain.IsType(err, domain.ErrorTypeSourceRead))
	assert.Equal(t, domain.StageRasterize, report.Failure.Stage)
	assert.Equal(t, 0, report.Pages)
}

func TestRun_EmitsEvents(t *testing.T) {
	eventCh := make(chan domain.StreamEvent, 100)
	svc := NewService(newFakeRasterizer(4), assets.NewWriter(t.TempDir()), observability.Nop(), 2)
	_, err := svc.Run(context.Background(), Request{Source: "cards.pdf", Density: testDensity, Registry: testRegistry(t)}, eventCh)
	require.NoError(t, err)
	close(eventCh)

	counts := make(map[domain.EventType]int)
	var last domain.EventType
	for ev := range eventCh {
		counts[ev.Type]++
		last = ev.Type
		assert.False(t, ev.Timestamp.IsZero())
	}
	assert.Equal(t, 1, counts[domain.EventStart])
	assert.Equal(t, 4, counts[domain.EventPageProcessing])
	assert.Equal(t, 38, counts[domain.EventFormationWritten])
	assert.Equal(t, 4, counts[domain.EventPageComplete])
	assert.Equal(t, domain.EventComplete, last)
}

func TestRun_RequiresRegistry(t *testing.T) {
	svc := NewService(newFakeRasterizer(4), assets.NewWriter(t.TempDir()), nil, 0)
	assert.Positive(t, svc.workers)

	_, err := svc.Run(context.Background(), Request{Source: "cards.pdf"}, nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}
