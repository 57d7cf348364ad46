package layout

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spherical/formation-extractor/internal/domain"
)

// fileDoc is the YAML form of a registry, used for other document revisions.
//
//	name: uspa-4way
//	density: 300
//	pages:
//	  - page: 2
//	    grid: {left: 72, top: 240, col_width: 600, row_height: 1340, cols: 4, rows: 1}
//	    overrides: [{gap: 80, height: 1450, cells: 2}]
//	    sequence: 17
type fileDoc struct {
	Name    string    `yaml:"name"`
	Density float64   `yaml:"density"`
	Pages   []pageDoc `yaml:"pages"`
}

type pageDoc struct {
	Page      int           `yaml:"page"`
	Grid      Grid          `yaml:"grid"`
	Overrides []RowOverride `yaml:"overrides,omitempty"`
	Sequence  int           `yaml:"sequence,omitempty"`
	Alphabet  string        `yaml:"alphabet,omitempty"`
}

// Load parses a YAML layout document into a registry.
func Load(r io.Reader) (*Registry, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.ConfigError("parse layout file", err)
	}

	if doc.Density == 0 {
		doc.Density = ReferenceDensity
	}

	defs := make([]Definition, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		d := Definition{Page: p.Page}

		if len(p.Overrides) > 0 {
			d.Layout = MixedGrid{Grid: p.Grid, Overrides: p.Overrides}
		} else {
			d.Layout = UniformGrid{Grid: p.Grid}
		}

		switch {
		case p.Sequence != 0 && p.Alphabet != "":
			return nil, domain.ConfigError(fmt.Sprintf("page %d: set either sequence or alphabet, not both", p.Page), nil)
		case p.Alphabet != "":
			d.IDs = Alphabet{Symbols: p.Alphabet}
		case p.Sequence != 0:
			d.IDs = Sequence{Start: p.Sequence}
		default:
			return nil, domain.ConfigError(fmt.Sprintf("page %d: sequence or alphabet is required", p.Page), nil)
		}

		defs = append(defs, d)
	}

	return New(doc.Name, doc.Density, defs...)
}

// LoadFile reads a YAML layout document from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ConfigError(fmt.Sprintf("open layout file %s", path), err)
	}
	defer f.Close()
	return Load(f)
}

// Marshal renders the registry as a YAML layout document.
func Marshal(r *Registry) ([]byte, error) {
	doc := fileDoc{Name: r.name, Density: r.density}
	for _, d := range r.defs {
		p := pageDoc{Page: d.Page, Grid: d.Layout.Base()}
		if m, ok := d.Layout.(MixedGrid); ok {
			p.Overrides = m.Overrides
		}
		switch ids := d.IDs.(type) {
		case Sequence:
			p.Sequence = ids.Start
		case Alphabet:
			p.Alphabet = ids.Symbols
		default:
			return nil, fmt.Errorf("page %d: unsupported identifier scheme %T", d.Page, d.IDs)
		}
		doc.Pages = append(doc.Pages, p)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
