package kmerdb

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a failure so callers can branch without inspecting message text.
type Kind uint8

const (
	// KindUnknown is reported for nil or foreign errors.
	KindUnknown Kind = iota
	// KindFormat covers bad magic, truncated streams and unsorted data on strict reads.
	KindFormat
	// KindConsistency covers vector length and offset mismatches.
	KindConsistency
	// KindInvalidParameter covers bad counts, alpha, threshold and species tables.
	KindInvalidParameter
	// KindIO covers filesystem failures.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindConsistency:
		return "consistency"
	case KindInvalidParameter:
		return "invalid parameter"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

var (
	// ErrCorruptHeader is returned for a bad magic constant or a mismatched data offset.
	ErrCorruptHeader = errors.New("corrupt header")
	// ErrTruncatedFile is returned when the stream is shorter than the header declares.
	ErrTruncatedFile = errors.New("truncated file")
	// ErrUnsortedData is returned when k-mer codes are not strictly increasing.
	ErrUnsortedData = errors.New("unsorted data")
	// ErrMismatchedVectorLength is returned when a vector length differs from the species count.
	ErrMismatchedVectorLength = errors.New("mismatched vector length")
	// ErrInvalidInput is returned for negative counts, bad alpha or threshold.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNameTooLong is returned when a species name exceeds the name field.
	ErrNameTooLong = errors.New("species name too long")
	// ErrDuplicateSpecies is returned when a species is registered twice.
	ErrDuplicateSpecies = errors.New("duplicate species")
	// ErrEmptyDatabase is returned when no species were registered.
	ErrEmptyDatabase = errors.New("empty database")
)

// Error is the error type returned by this package.
//
// The underlying sentinel and cause can be reached via errors.Is / errors.As.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "open", "register", "merge"
	Path string // file involved, if any
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("kmerdb: %s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("kmerdb: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotExist reports whether err is an IO error for a missing file.
func IsNotExist(err error) bool {
	return KindOf(err) == KindIO && errors.Is(err, fs.ErrNotExist)
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func invalidf(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidParameter, Op: op, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)}
}

func ioError(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}
