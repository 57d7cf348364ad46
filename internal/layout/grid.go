package layout

import (
	"fmt"
	"image"
	"math"
)

// Grid is a uniform block of equally sized cells. Left is the page margin,
// Top the header offset; both are in pixels at the registry density.
type Grid struct {
	Left      int `yaml:"left"`
	Top       int `yaml:"top"`
	ColWidth  int `yaml:"col_width"`
	RowHeight int `yaml:"row_height"`
	Cols      int `yaml:"cols"`
	Rows      int `yaml:"rows"`
}

// Cell returns the rectangle at column col, row row.
func (g Grid) Cell(col, row int) image.Rectangle {
	left := g.Left + col*g.ColWidth
	top := g.Top + row*g.RowHeight
	return image.Rect(left, top, left+g.ColWidth, top+g.RowHeight)
}

// Cells returns every cell in reading order.
func (g Grid) Cells() []image.Rectangle {
	cells := make([]image.Rectangle, 0, g.Cols*g.Rows)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			cells = append(cells, g.Cell(col, row))
		}
	}
	return cells
}

// Bottom is the y coordinate just below the last row.
func (g Grid) Bottom() int {
	return g.Top + g.Rows*g.RowHeight
}

// Validate checks that every parameter is usable.
func (g Grid) Validate() error {
	switch {
	case g.Left < 0 || g.Top < 0:
		return fmt.Errorf("grid origin (%d,%d) must not be negative", g.Left, g.Top)
	case g.ColWidth <= 0 || g.RowHeight <= 0:
		return fmt.Errorf("grid cell size %dx%d must be positive", g.ColWidth, g.RowHeight)
	case g.Cols <= 0 || g.Rows <= 0:
		return fmt.Errorf("grid dimensions %dx%d must be positive", g.Cols, g.Rows)
	}
	return nil
}

func (g Grid) scale(f float64) Grid {
	return Grid{
		Left:      scaleInt(g.Left, f),
		Top:       scaleInt(g.Top, f),
		ColWidth:  scaleInt(g.ColWidth, f),
		RowHeight: scaleInt(g.RowHeight, f),
		Cols:      g.Cols,
		Rows:      g.Rows,
	}
}

// RowOverride is an irregular row appended below a grid. Its top sits Gap
// pixels below the previous row's bottom; it keeps the grid's margin and
// column width but has its own height and cell count.
type RowOverride struct {
	Gap    int `yaml:"gap"`
	Height int `yaml:"height"`
	Cells  int `yaml:"cells"`
}

// Layout generates a page's cell rectangles in reading order.
type Layout interface {
	Cells() []image.Rectangle
	Validate() error
	Base() Grid
	scale(f float64) Layout
}

// UniformGrid is a page laid out as a single grid.
type UniformGrid struct {
	Grid
}

func (u UniformGrid) Base() Grid { return u.Grid }

func (u UniformGrid) scale(f float64) Layout {
	return UniformGrid{Grid: u.Grid.scale(f)}
}

// MixedGrid is a uniform grid followed by one or more override rows.
type MixedGrid struct {
	Grid
	Overrides []RowOverride
}

func (m MixedGrid) Base() Grid { return m.Grid }

// Cells returns the grid cells followed by each override row's cells.
func (m MixedGrid) Cells() []image.Rectangle {
	cells := m.Grid.Cells()
	bottom := m.Grid.Bottom()
	for _, o := range m.Overrides {
		top := bottom + o.Gap
		for col := 0; col < o.Cells; col++ {
			left := m.Left + col*m.ColWidth
			cells = append(cells, image.Rect(left, top, left+m.ColWidth, top+o.Height))
		}
		bottom = top + o.Height
	}
	return cells
}

// OverrideCells returns the index ranges [start, end) of each override row in Cells().
func (m MixedGrid) OverrideCells() [][2]int {
	ranges := make([][2]int, 0, len(m.Overrides))
	start := m.Cols * m.Rows
	for _, o := range m.Overrides {
		ranges = append(ranges, [2]int{start, start + o.Cells})
		start += o.Cells
	}
	return ranges
}

func (m MixedGrid) Validate() error {
	if err := m.Grid.Validate(); err != nil {
		return err
	}
	if len(m.Overrides) == 0 {
		return fmt.Errorf("mixed grid needs at least one override row")
	}
	for i, o := range m.Overrides {
		switch {
		case o.Gap < 0:
			return fmt.Errorf("override row %d: gap %d must not be negative", i, o.Gap)
		case o.Height <= 0:
			return fmt.Errorf("override row %d: height %d must be positive", i, o.Height)
		case o.Cells <= 0 || o.Cells > m.Cols:
			return fmt.Errorf("override row %d: cell count %d must be within 1..%d", i, o.Cells, m.Cols)
		}
	}
	return nil
}

func (m MixedGrid) scale(f float64) Layout {
	overrides := make([]RowOverride, len(m.Overrides))
	for i, o := range m.Overrides {
		overrides[i] = RowOverride{Gap: scaleInt(o.Gap, f), Height: scaleInt(o.Height, f), Cells: o.Cells}
	}
	return MixedGrid{Grid: m.Grid.scale(f), Overrides: overrides}
}

func scaleInt(v int, f float64) int {
	return int(math.Round(float64(v) * f))
}
