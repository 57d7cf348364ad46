// Package layout holds the declarative page geometry that turns rendered pages
// into per-formation crop rectangles.
package layout

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/spherical/formation-extractor/internal/domain"
)

// Definition describes how one page decomposes into labelled cells.
type Definition struct {
	Page   int
	Layout Layout
	IDs    IDScheme
}

// Specs generates the page's formation specs in reading order.
func (d Definition) Specs() ([]domain.FormationSpec, error) {
	cells := d.Layout.Cells()
	if c := d.IDs.Capacity(); c >= 0 && c != len(cells) {
		return nil, fmt.Errorf("page %d: %d identifiers for %d cells", d.Page, c, len(cells))
	}

	specs := make([]domain.FormationSpec, len(cells))
	for i, rect := range cells {
		id, err := d.IDs.ID(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", d.Page, err)
		}
		specs[i] = domain.FormationSpec{ID: id, Kind: d.IDs.Kind(), Page: d.Page, Rect: rect}
	}
	return specs, nil
}

// Registry is the page-indexed table of layout definitions for one document
// version. It is immutable once built.
type Registry struct {
	name    string
	density float64
	defs    []Definition
	specs   map[int][]domain.FormationSpec
}

// New builds a registry and checks it for structural errors: duplicate pages,
// invalid geometry, identifier schemes that don't match the cell count, and
// identifiers that would collide on disk.
func New(name string, density float64, defs ...Definition) (*Registry, error) {
	if density <= 0 {
		return nil, domain.ValidationError(fmt.Sprintf("registry density must be positive, got %v", density), nil)
	}
	if len(defs) == 0 {
		return nil, domain.ValidationError("registry has no page definitions", nil)
	}

	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Page < sorted[j].Page })

	r := &Registry{
		name:    name,
		density: density,
		defs:    sorted,
		specs:   make(map[int][]domain.FormationSpec, len(sorted)),
	}

	files := make(map[string]int)
	for _, d := range sorted {
		if d.Page < 0 {
			return nil, domain.ValidationError(fmt.Sprintf("page index %d must not be negative", d.Page), nil)
		}
		if _, dup := r.specs[d.Page]; dup {
			return nil, domain.ValidationError(fmt.Sprintf("page %d defined twice", d.Page), nil)
		}
		if d.Layout == nil || d.IDs == nil {
			return nil, domain.ValidationError(fmt.Sprintf("page %d: layout and identifier scheme are required", d.Page), nil)
		}
		if err := d.Layout.Validate(); err != nil {
			return nil, domain.ValidationError(fmt.Sprintf("page %d: invalid layout", d.Page), err)
		}
		if err := d.IDs.Validate(); err != nil {
			return nil, domain.ValidationError(fmt.Sprintf("page %d: invalid identifiers", d.Page), err)
		}

		specs, err := d.Specs()
		if err != nil {
			return nil, domain.ValidationError("cannot generate formation specs", err)
		}
		for _, s := range specs {
			name := s.ID.Filename()
			if prev, dup := files[name]; dup {
				return nil, domain.ValidationError(
					fmt.Sprintf("%s produced by page %d and page %d", name, prev, d.Page), nil)
			}
			files[name] = d.Page
		}
		r.specs[d.Page] = specs
	}

	return r, nil
}

// Name identifies the document version the registry describes.
func (r *Registry) Name() string { return r.name }

// Density is the rasterization density the geometry is expressed in.
func (r *Registry) Density() float64 { return r.density }

// Definitions returns the page definitions ordered by page index.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Pages returns the page indices with a definition, ascending.
func (r *Registry) Pages() []int {
	pages := make([]int, len(r.defs))
	for i, d := range r.defs {
		pages[i] = d.Page
	}
	return pages
}

// MaxPage is the largest page index referenced by the registry.
func (r *Registry) MaxPage() int {
	return r.defs[len(r.defs)-1].Page
}

// Lookup returns the formation specs for a page in reading order.
func (r *Registry) Lookup(page int) ([]domain.FormationSpec, bool) {
	specs, ok := r.specs[page]
	if !ok {
		return nil, false
	}
	out := make([]domain.FormationSpec, len(specs))
	copy(out, specs)
	return out, true
}

// Specs returns every formation spec ordered by page, then reading order.
func (r *Registry) Specs() []domain.FormationSpec {
	var all []domain.FormationSpec
	for _, d := range r.defs {
		all = append(all, r.specs[d.Page]...)
	}
	return all
}

// IDs returns every formation identifier in registry order.
func (r *Registry) IDs() []domain.FormationID {
	specs := r.Specs()
	ids := make([]domain.FormationID, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	return ids
}

// Select returns a registry restricted to the given pages.
func (r *Registry) Select(pages []int) (*Registry, error) {
	if len(pages) == 0 {
		return r, nil
	}
	var defs []Definition
	for _, p := range pages {
		found := false
		for _, d := range r.defs {
			if d.Page == p {
				defs = append(defs, d)
				found = true
				break
			}
		}
		if !found {
			return nil, domain.ValidationError(fmt.Sprintf("no layout defined for page %d", p), nil)
		}
	}
	return New(r.name, r.density, defs...)
}

// Scaled returns the registry re-expressed at another density. Parameters are
// scaled and cells regenerated, so cells stay consistent with each other.
func (r *Registry) Scaled(density float64) (*Registry, error) {
	if density == r.density {
		return r, nil
	}
	if density <= 0 {
		return nil, domain.ValidationError(fmt.Sprintf("density must be positive, got %v", density), nil)
	}
	f := density / r.density
	defs := make([]Definition, len(r.defs))
	for i, d := range r.defs {
		defs[i] = Definition{Page: d.Page, Layout: d.Layout.scale(f), IDs: d.IDs}
	}
	return New(r.name, density, defs...)
}

// Validate checks every rectangle against the given page bounds.
func (r *Registry) Validate(bounds image.Rectangle) error {
	return CheckBounds(r.Specs(), bounds)
}

// CheckBounds returns a RegionBoundsError for every spec that is degenerate or
// not fully inside bounds, joined together. It returns nil when all fit.
func CheckBounds(specs []domain.FormationSpec, bounds image.Rectangle) error {
	var errs []error
	for _, s := range specs {
		if domain.IsDegenerate(s.Rect) || !s.Rect.In(bounds) {
			errs = append(errs, domain.RegionBoundsError(s, bounds))
		}
	}
	return errors.Join(errs...)
}
