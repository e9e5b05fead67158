// Package utils provides shared low-level helpers (error wrapping, byte
// order, buffer pooling) used by blockpool and the HP/HT/AM engines.
package utils

import "fmt"

// Kind classifies an Error without requiring callers to string-match
// messages. It mirrors the engine-neutral error taxonomy every engine
// reports through.
type Kind int

const (
	KindNone Kind = iota
	KindBufferPool
	KindMalloc
	KindFileNotFound
	KindDestroy
	KindIdentifierMismatch
	KindInvalidDescriptor
	KindInvalidScand
	KindInvalidOp
	KindFileInUse
	KindMaxOpenFiles
	KindMaxScans
	KindEOF
)

var kindText = map[Kind]string{
	KindBufferPool:         "a block pool error occurred",
	KindMalloc:             "memory allocation failed",
	KindFileNotFound:       "file doesn't exist",
	KindDestroy:            "couldn't delete file",
	KindIdentifierMismatch: "file identifier does not match this engine",
	KindInvalidDescriptor:  "invalid file descriptor",
	KindInvalidScand:       "invalid scan descriptor",
	KindInvalidOp:          "invalid operation",
	KindFileInUse:          "file is in use",
	KindMaxOpenFiles:       "reached the limit for open files",
	KindMaxScans:           "reached the limit for open scans",
	KindEOF:                "reached end of scan",
}

// Error is a structured, contextual error shared by blockpool and the
// storage engines.
type Error struct {
	Context string
	Kind    Kind
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Context, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Context, kindText[e.Kind])
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *Error) Unwrap() error {
	return e.Cause
}

// WrapError creates a contextual error with no specific Kind attached.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Context: context, Cause: cause}
}

// NewError creates a contextual error carrying a Kind, for cases with no
// underlying cause (e.g. a descriptor-table limit reached).
func NewError(context string, kind Kind) error {
	return &Error{Context: context, Kind: kind}
}

// WrapKind attaches both a Kind and an underlying cause.
func WrapKind(context string, kind Kind, cause error) error {
	return &Error{Context: context, Kind: kind, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise it returns KindNone.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return KindNone
}

// asError is a tiny errors.As-equivalent kept local to avoid every caller
// needing to import "errors" just to unwrap an *Error chain.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// FormatError renders err the way the original engines' PrintError
// functions rendered AM_errno/HT_errno: "<prefix>: <human text>".
func FormatError(prefix string, err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if asError(err, &e) && e.Kind != KindNone {
		return fmt.Sprintf("%s: %s", prefix, kindText[e.Kind])
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
