// Package errors provides error handling for worldtree.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for user-facing configuration failures
//
// Usage:
//
//	if err := dial(); err != nil {
//	    return errors.Wrap(err, "failed to open heartbeat channel")
//	}
//
//	if errors.Is(err, errors.ErrRuntimeUnavailable) {
//	    // comments bridge stays uninstalled
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
	Mark           = crdb.Mark
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the sync agent.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrBadURL indicates a channel URL that cannot be dialled at all.
	// Unlike ErrTransport, no reconnect is scheduled for it.
	ErrBadURL = New("bad url")

	// ErrTransport indicates a socket error or unexpected close
	ErrTransport = New("transport failure")

	// ErrRuntimeUnavailable indicates every module source pair was exhausted
	ErrRuntimeUnavailable = New("crdt runtime unavailable")

	// ErrInvalidDocument indicates a document identifier the runtime rejected
	ErrInvalidDocument = New("invalid document identifier")

	// ErrNotInstalled indicates a bridge operation before a document was installed
	ErrNotInstalled = New("comments bridge not installed")

	// ErrClosed indicates use of a component after teardown
	ErrClosed = New("closed")
)

// IsBadURL checks if an error is or wraps ErrBadURL
func IsBadURL(err error) bool {
	return err != nil && Is(err, ErrBadURL)
}

// IsRuntimeUnavailable checks if an error is or wraps ErrRuntimeUnavailable
func IsRuntimeUnavailable(err error) bool {
	return err != nil && Is(err, ErrRuntimeUnavailable)
}

// IsInvalidDocument checks if an error is or wraps ErrInvalidDocument
func IsInvalidDocument(err error) bool {
	return err != nil && Is(err, ErrInvalidDocument)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// WrapInvalidDocument marks err as an invalid-document failure for docURL
func WrapInvalidDocument(err error, docURL string) error {
	return Wrapf(ErrInvalidDocument, "document %q: %v", docURL, err)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
