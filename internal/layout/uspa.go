package layout

import "image"

// ReferenceDensity is the density the USPA geometry was measured at.
const ReferenceDensity = 300.0

// ReferencePage is a US Letter page rendered at ReferenceDensity.
var ReferencePage = image.Rect(0, 0, 2550, 3300)

// Geometry of the USPA 4-way formations PDF. Tuned against one scan of the
// rulebook appendix; treat as defaults for that document version.
const (
	leftMargin = 72
	colWidth   = 600

	firstPageHeader        = 380 // below the "Appendix C" title
	continuationHeader     = 240
	randomPageHeader       = 380 // below the "Appendix D" title
	blockRowHeight         = 1340
	randomRowHeight        = 640
	trailingRowGap         = 80   // skips the Murphy/Zircon caption line
	trailingRowHeight      = 1450 // keeps the Marquis/Chinese Tee labels
	trailingRowCells       = 2
	blocksPerPage          = 8
	uspaDocumentName       = "uspa-4way"
	blockGridCols          = 4
	randomGridCols         = 4
	randomGridRows         = 4
	fullBlockGridRows      = 2
	mixedPageUniformRows   = 1
	mixedPageFirstSequence = 2*blocksPerPage + 1
)

// USPA4Way returns the registry for the USPA 4-way formations document:
// blocks 1–22 on pages 0–2 and randoms A–Q on page 3.
func USPA4Way() *Registry {
	block := func(top, rows int) Grid {
		return Grid{
			Left:      leftMargin,
			Top:       top,
			ColWidth:  colWidth,
			RowHeight: blockRowHeight,
			Cols:      blockGridCols,
			Rows:      rows,
		}
	}

	r, err := New(uspaDocumentName, ReferenceDensity,
		Definition{
			Page:   0,
			Layout: UniformGrid{Grid: block(firstPageHeader, fullBlockGridRows)},
			IDs:    Sequence{Start: 1},
		},
		Definition{
			Page:   1,
			Layout: UniformGrid{Grid: block(continuationHeader, fullBlockGridRows)},
			IDs:    Sequence{Start: blocksPerPage + 1},
		},
		Definition{
			Page: 2,
			Layout: MixedGrid{
				Grid: block(continuationHeader, mixedPageUniformRows),
				Overrides: []RowOverride{
					{Gap: trailingRowGap, Height: trailingRowHeight, Cells: trailingRowCells},
				},
			},
			IDs: Sequence{Start: mixedPageFirstSequence},
		},
		Definition{
			Page: 3,
			Layout: UniformGrid{Grid: Grid{
				Left:      leftMargin,
				Top:       randomPageHeader,
				ColWidth:  colWidth,
				RowHeight: randomRowHeight,
				Cols:      randomGridCols,
				Rows:      randomGridRows,
			}},
			IDs: Alphabet{Symbols: RandomAlphabet},
		},
	)
	if err != nil {
		panic("layout: invalid built-in USPA registry: " + err.Error())
	}
	return r
}
