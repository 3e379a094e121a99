// Package cooler implements the Cooler storage engine: HDF5-backed
// chunked/compressed datasets, the chroms/bins/pixels/indexes group
// layout, file validation, the append pipeline, and weight groups
// (spec.md §4.3-4.4, §6).
//
// HDF5 access is hidden behind the narrow ColumnStore trait (design note
// §9: "a portable rewrite should hide HDF5 behind a narrow 'chunked typed
// column store' trait so that alternative backends... can be substituted
// in tests"); hdf5Store is the production implementation, backed by
// gonum.org/v1/hdf5 (out-of-pack; no example repo in the reference
// collection touches HDF5, so this is named rather than grounded).
package cooler

import "github.com/hictk/hictk/hictkerr"

// DType enumerates the on-disk column element types used across the
// Cooler layout (chroms/name is String, chroms/length is U32, pixel
// counts may be U32/I32/F64, and so on).
type DType uint8

const (
	DTypeU32 DType = iota
	DTypeU64
	DTypeI32
	DTypeF64
	DTypeString
)

// ColumnStore is the narrow trait a storage backend must implement: typed,
// chunked column datasets plus group-scoped attribute get/set. Every
// Cooler dataset (chroms/name, bins/start, pixels/bin1_id, ...) is one
// Column within a ColumnStore rooted at a single HDF5 group.
type ColumnStore interface {
	// OpenColumn opens an existing dataset at path (e.g. "pixels/bin1_id").
	OpenColumn(path string) (Column, error)
	// CreateColumn creates a new chunked dataset of the given type and
	// chunk size (in elements), ready for Append.
	CreateColumn(path string, dtype DType, chunkElems int) (Column, error)
	// HasColumn reports whether a dataset exists at path, without opening it.
	HasColumn(path string) bool

	// GetAttr reads a root or group attribute (format, bin-size, ...).
	GetAttr(path, name string) (value interface{}, ok bool, err error)
	// SetAttr writes a root or group attribute, creating it if absent.
	SetAttr(path, name string, value interface{}) error

	// Close releases the underlying file handle.
	Close() error
}

// Column is a single chunked, compressed, typed dataset.
type Column interface {
	DType() DType
	// Len returns the number of elements currently stored.
	Len() uint64
	// ChunkElems returns the dataset's chunk size in elements, used by
	// Dataset to size its prefetch buffer.
	ChunkElems() int

	// ReadInto reads the half-open row range [start,end) into out, which
	// must have len(out) == end-start and an element type matching DType.
	ReadInto(start, end uint64, out interface{}) error
	// Append appends data (a slice whose element type matches DType) to
	// the end of the dataset.
	Append(data interface{}) error
	// Resize truncates or extends the dataset to exactly n elements.
	Resize(n uint64) error
}

func dtypeMismatch(path string) error {
	return hictkerr.Wrapf(hictkerr.FormatError, "cooler: dtype mismatch reading %s", path)
}
