// Package hictkerr defines the error kinds surfaced across hictk's core
// packages. Kinds are sentinel values checkable with errors.Is; callers
// that need a human-readable cause should unwrap with errors.Cause.
package hictkerr

import "github.com/pkg/errors"

// Kind is a sentinel error identifying the class of failure. Kinds are
// never returned bare — they are always wrapped with context via Wrap.
type Kind error

var (
	// NotFound: unknown chromosome, normalization, or resolution.
	NotFound Kind = errors.New("hictk: not found")
	// OutOfRange: a bin id or interval exceeds its container.
	OutOfRange Kind = errors.New("hictk: out of range")
	// MalformedQuery: an unparseable UCSC or BED range string.
	MalformedQuery Kind = errors.New("hictk: malformed query")
	// InvalidPixel: append-time pixel validation failure.
	InvalidPixel Kind = errors.New("hictk: invalid pixel")
	// ShapeMismatch: a weight vector's length does not match nbins.
	ShapeMismatch Kind = errors.New("hictk: shape mismatch")
	// AlreadyExists: overwrite attempted without a force flag.
	AlreadyExists Kind = errors.New("hictk: already exists")
	// FormatError: magic bytes or a required attribute is missing or wrong.
	FormatError Kind = errors.New("hictk: format error")
	// IndexCorrupt: index validation failure.
	IndexCorrupt Kind = errors.New("hictk: index corrupt")
	// IoError: underlying storage failure.
	IoError Kind = errors.New("hictk: io error")
	// UnknownWeightType: unrecognized weight name during inference.
	UnknownWeightType Kind = errors.New("hictk: unknown weight type")
	// PrecisionLoss: a lossy pixel count conversion was attempted.
	PrecisionLoss Kind = errors.New("hictk: precision loss")
)

// Wrap annotates kind with msg and the current call site.
func Wrap(kind Kind, msg string) error {
	return errors.Wrap(kind, msg)
}

// Wrapf is Wrap with formatting.
func Wrapf(kind Kind, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}

// WithCause wraps kind with err's message so errors.Is(result, kind)
// succeeds. Only the message of err is kept: errors.Is(result, err) is
// false and errors.Cause(result) returns kind, not err.
func WithCause(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(kind, err.Error())
}

// Is reports whether err's chain contains kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
