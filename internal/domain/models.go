package domain

import (
	"fmt"
	"image"
	"time"
)

// FormationKind distinguishes numbered block sequences from lettered randoms.
type FormationKind string

const (
	KindBlock  FormationKind = "block"
	KindRandom FormationKind = "random"
)

// FormationID is the canonical identifier of a formation: "1".."22" or "A".."Q".
type FormationID string

// Filename returns the binding asset filename for the identifier.
func (id FormationID) Filename() string {
	return "FS-" + string(id) + ".png"
}

// Page represents a single rendered document page
type Page struct {
	Index int // 0-based, document order
	Image image.Image
}

// Bounds returns the page's pixel bounds.
func (p Page) Bounds() image.Rectangle {
	if p.Image == nil {
		return image.Rectangle{}
	}
	return p.Image.Bounds()
}

// Frame returns the page's bounds translated to the origin. Crop rectangles
// are expressed in this frame.
func (p Page) Frame() image.Rectangle {
	b := p.Bounds()
	return b.Sub(b.Min)
}

func (p Page) Width() int  { return p.Bounds().Dx() }
func (p Page) Height() int { return p.Bounds().Dy() }

// FormationSpec maps one formation to its crop rectangle on a source page.
// Rect.Min is (left, top), Rect.Max is (right, bottom), max exclusive.
type FormationSpec struct {
	ID   FormationID
	Kind FormationKind
	Page int
	Rect image.Rectangle
}

// Asset is an encoded formation image ready to be persisted
type Asset struct {
	ID   FormationID
	Data []byte
}

// IsDegenerate reports whether r has left >= right or top >= bottom.
func IsDegenerate(r image.Rectangle) bool {
	return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y
}

// FormatRect renders r as (left,top,right,bottom).
func FormatRect(r image.Rectangle) string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart            EventType = "start"
	EventRasterizing      EventType = "rasterizing"
	EventPageProcessing   EventType = "page_processing"
	EventFormationWritten EventType = "formation_written"
	EventPageComplete     EventType = "page_complete"
	EventError            EventType = "error"
	EventComplete         EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	Formation  FormationID `json:"formation,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Report summarises a pipeline run.
type Report struct {
	RunID    string
	State    State
	Failure  *Failure
	Written  []FormationID
	Pending  []FormationID
	Pages    int
	Duration time.Duration
}

// Failure records where a failed run stopped.
type Failure struct {
	Stage     Stage
	Page      int
	Formation FormationID
	Err       error
}

func (f *Failure) String() string {
	if f.Formation != "" {
		return fmt.Sprintf("%s failed on page %d at formation %s: %v", f.Stage, f.Page, f.Formation, f.Err)
	}
	if f.Page >= 0 {
		return fmt.Sprintf("%s failed on page %d: %v", f.Stage, f.Page, f.Err)
	}
	return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
}
