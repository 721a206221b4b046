package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// Error is a per-element engine failure.
//
// Error() returns only the human-readable message so that it can be passed
// through to a batch error unchanged; Code carries the category.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Locator is the request that failed, when there is one.
	Locator ref.Locator

	// TraitSet is the trait set involved, for trait set errors.
	TraitSet trait.Set
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnknownEntity indicates the entity name has no record.
	ErrCodeUnknownEntity ErrorCode = "UNKNOWN_ENTITY"

	// ErrCodeInvalidEntityVersion indicates version selection found no record.
	ErrCodeInvalidEntityVersion ErrorCode = "INVALID_ENTITY_VERSION"

	// ErrCodeInaccessibleEntity indicates the record is blocked for the access mode.
	ErrCodeInaccessibleEntity ErrorCode = "INACCESSIBLE_ENTITY"

	// ErrCodeUnknownTraitSet indicates no default entity for a trait set.
	ErrCodeUnknownTraitSet ErrorCode = "UNKNOWN_TRAIT_SET"

	// ErrCodeInvalidTraitSetForPublish indicates publish data that policy or
	// the existing record does not allow.
	ErrCodeInvalidTraitSetForPublish ErrorCode = "INVALID_TRAIT_SET_FOR_PUBLISH"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// PolicyConfigError reports a library with no management policy for an
// access mode. It is never a per-element error.
type PolicyConfigError struct {
	Access ref.Access
}

func (e *PolicyConfigError) Error() string {
	return fmt.Sprintf("BAL library is missing a managementPolicy for '%s'. "+
		"Perhaps your library is missing a 'default'? Please consult the JSON schema.", e.Access)
}

// IsPerElement reports whether err is an engine error that belongs to a
// single batch element.
func IsPerElement(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsPolicyConfigError reports whether err is a PolicyConfigError.
func IsPolicyConfigError(err error) bool {
	var pe *PolicyConfigError
	return errors.As(err, &pe)
}

// CodeOf returns the code of an engine error, or "" for other errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnknownEntity returns true if err is an unknown entity error.
func IsUnknownEntity(err error) bool {
	return CodeOf(err) == ErrCodeUnknownEntity
}

// IsInvalidEntityVersion returns true if err is an invalid version error.
func IsInvalidEntityVersion(err error) bool {
	return CodeOf(err) == ErrCodeInvalidEntityVersion
}

// IsInaccessibleEntity returns true if err is an inaccessible entity error.
func IsInaccessibleEntity(err error) bool {
	return CodeOf(err) == ErrCodeInaccessibleEntity
}

// IsUnknownTraitSet returns true if err is an unknown trait set error.
func IsUnknownTraitSet(err error) bool {
	return CodeOf(err) == ErrCodeUnknownTraitSet
}

// IsInvalidTraitSetForPublish returns true if err rejects publish data.
func IsInvalidTraitSetForPublish(err error) bool {
	return CodeOf(err) == ErrCodeInvalidTraitSetForPublish
}

func newUnknownEntity(loc ref.Locator) *Error {
	return &Error{
		Code:    ErrCodeUnknownEntity,
		Message: fmt.Sprintf("Entity '%s' not found", loc.Name),
		Locator: loc,
	}
}

func newInvalidEntityVersion(loc ref.Locator) *Error {
	v := 1
	if loc.Version != nil {
		v = *loc.Version
	}
	return &Error{
		Code:    ErrCodeInvalidEntityVersion,
		Message: fmt.Sprintf("Entity '%s' does not have a version %d", loc.Name, v),
		Locator: loc,
	}
}

func newInaccessibleEntity(loc ref.Locator) *Error {
	return &Error{
		Code:    ErrCodeInaccessibleEntity,
		Message: fmt.Sprintf("Entity '%s' is inaccessible for %s", loc.Name, loc.Access),
		Locator: loc,
	}
}

func newUnknownTraitSet(set trait.Set) *Error {
	return &Error{
		Code:     ErrCodeUnknownTraitSet,
		Message:  fmt.Sprintf("Unknown trait set %s", set),
		TraitSet: set,
	}
}

func newInvalidTraitSetForPublish(loc ref.Locator, set trait.Set, reason string) *Error {
	return &Error{
		Code:     ErrCodeInvalidTraitSetForPublish,
		Message:  fmt.Sprintf("Cannot publish %s to '%s': %s", set, loc.Name, reason),
		Locator:  loc,
		TraitSet: set,
	}
}
