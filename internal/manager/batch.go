package manager

import (
	"fmt"

	"github.com/roach88/bal/internal/engine"
	"github.com/roach88/bal/internal/ref"
)

// BatchErrorCode categorizes a per-element failure.
type BatchErrorCode string

const (
	ErrUnknown                  BatchErrorCode = "Unknown"
	ErrMalformedEntityReference BatchErrorCode = "MalformedEntityReference"
	ErrEntityResolutionError    BatchErrorCode = "EntityResolutionError"
	ErrEntityAccessError        BatchErrorCode = "EntityAccessError"
	ErrInvalidTraitSet          BatchErrorCode = "InvalidTraitSet"
	ErrInvalidPreflightHint     BatchErrorCode = "InvalidPreflightHint"
)

// BatchElementError is the failure of one element of a batch call.
type BatchElementError struct {
	Code    BatchErrorCode
	Message string
}

func (e BatchElementError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorFunc receives per-element failures.
type ErrorFunc func(idx int, err BatchElementError)

// toElementError maps an error for one element onto a BatchElementError.
// ok is false when err must instead fail the whole call.
func toElementError(err error) (BatchElementError, bool) {
	if ref.IsMalformed(err) {
		return BatchElementError{Code: ErrMalformedEntityReference, Message: err.Error()}, true
	}
	if engine.IsPolicyConfigError(err) {
		return BatchElementError{}, false
	}

	switch engine.CodeOf(err) {
	case engine.ErrCodeUnknownEntity, engine.ErrCodeInvalidEntityVersion:
		return BatchElementError{Code: ErrEntityResolutionError, Message: err.Error()}, true
	case engine.ErrCodeInaccessibleEntity:
		return BatchElementError{Code: ErrEntityAccessError, Message: err.Error()}, true
	case engine.ErrCodeUnknownTraitSet, engine.ErrCodeInvalidTraitSetForPublish:
		return BatchElementError{Code: ErrInvalidTraitSet, Message: err.Error()}, true
	default:
		return BatchElementError{Code: ErrUnknown, Message: err.Error()}, true
	}
}

// Pager walks a list of references one page at a time.
//
// A Pager owns a private copy of its references.
type Pager struct {
	refs     []string
	pageSize int
	start    int
}

func newPager(refs []string, pageSize int) *Pager {
	cp := make([]string, len(refs))
	copy(cp, refs)
	return &Pager{refs: cp, pageSize: pageSize}
}

// HasNext reports whether another page follows the current one.
func (p *Pager) HasNext() bool {
	return p.start+p.pageSize < len(p.refs)
}

// Get returns the current page. Past the end it returns an empty page.
func (p *Pager) Get() []string {
	if p.start >= len(p.refs) {
		return []string{}
	}
	end := min(p.start+p.pageSize, len(p.refs))
	page := make([]string, end-p.start)
	copy(page, p.refs[p.start:end])
	return page
}

// Next advances to the following page.
func (p *Pager) Next() {
	if p.start < len(p.refs) {
		p.start += p.pageSize
	}
}

// All returns every reference regardless of the current page.
func (p *Pager) All() []string {
	out := make([]string, len(p.refs))
	copy(out, p.refs)
	return out
}
