package domain

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeSourceRead   ErrorType = "source_read"
	ErrorTypePageCount    ErrorType = "page_count"
	ErrorTypeRegionBounds ErrorType = "region_bounds"
	ErrorTypeWrite        ErrorType = "write"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeInterrupted  ErrorType = "interrupted"
)

// DomainError represents a domain-specific error with context.
// Page is -1 when the error is not tied to a page.
type DomainError struct {
	Type      ErrorType
	Message   string
	Err       error
	Page      int
	Formation FormationID
	Rect      image.Rectangle
	Path      string
}

func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)

	var ctx []string
	if e.Page >= 0 {
		ctx = append(ctx, fmt.Sprintf("page=%d", e.Page))
	}
	if e.Formation != "" {
		ctx = append(ctx, fmt.Sprintf("formation=%s", e.Formation))
	}
	if !e.Rect.Empty() || e.Type == ErrorTypeRegionBounds {
		ctx = append(ctx, fmt.Sprintf("rect=%s", FormatRect(e.Rect)))
	}
	if e.Path != "" {
		ctx = append(ctx, fmt.Sprintf("path=%s", e.Path))
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, " "))
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Page:    -1,
	}
}

// IsType reports whether any error in err's chain is a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}

// SourceReadError reports a missing or undecodable source document.
func SourceReadError(path, message string, err error) *DomainError {
	e := NewError(ErrorTypeSourceRead, message, err)
	e.Path = path
	return e
}

// PageCountError reports that the document has fewer pages than the layouts need.
// need is a page count, i.e. the maximum referenced page index plus one.
func PageCountError(have, need int) *DomainError {
	e := NewError(ErrorTypePageCount,
		fmt.Sprintf("document has %d pages, layouts require %d", have, need), nil)
	e.Page = need - 1
	return e
}

// RegionBoundsError reports a degenerate crop rectangle or one outside the page.
func RegionBoundsError(spec FormationSpec, bounds image.Rectangle) *DomainError {
	msg := fmt.Sprintf("crop rectangle outside page bounds %s", FormatRect(bounds))
	if IsDegenerate(spec.Rect) {
		msg = "degenerate crop rectangle"
	}
	e := NewError(ErrorTypeRegionBounds, msg, nil)
	e.Page = spec.Page
	e.Formation = spec.ID
	e.Rect = spec.Rect
	return e
}

// WriteError reports an output I/O failure for one asset.
func WriteError(id FormationID, path string, err error) *DomainError {
	e := NewError(ErrorTypeWrite, "failed to write asset", err)
	e.Formation = id
	e.Path = path
	return e
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

// InterruptedError reports a run stopped by cancellation before all assets were produced.
func InterruptedError(pending int, err error) *DomainError {
	return NewError(ErrorTypeInterrupted,
		fmt.Sprintf("run interrupted with %d formations not produced", pending), err)
}
