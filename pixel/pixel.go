// Package pixel implements the pixel model shared by both storage engines:
// a contact count keyed by either two bin ids (ThinPixel) or two resolved
// Bins (Pixel). Grounded on sam.Record's plain-struct-plus-invariant style
// (biogo-hts/sam/record.go): a value type with documented symmetry rules,
// no hidden state.
package pixel

import (
	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
)

// Count is the set of arithmetic types usable as a pixel's contact count.
type Count interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint | ~float32 | ~float64
}

// ThinPixel is a contact count keyed by two bin ids, without materialized
// bin coordinates. bin1_id <= bin2_id always (symmetric-upper storage).
type ThinPixel[N Count] struct {
	Bin1ID uint64
	Bin2ID uint64
	Count  N
}

// Less orders ThinPixels by (Bin1ID, Bin2ID), the canonical sort order
// used by every selector and transformer in this module.
func (p ThinPixel[N]) Less(other ThinPixel[N]) bool {
	if p.Bin1ID != other.Bin1ID {
		return p.Bin1ID < other.Bin1ID
	}
	return p.Bin2ID < other.Bin2ID
}

// SameCoordinates reports whether p and other share the same bin pair.
func (p ThinPixel[N]) SameCoordinates(other ThinPixel[N]) bool {
	return p.Bin1ID == other.Bin1ID && p.Bin2ID == other.Bin2ID
}

// Validate checks the symmetric-upper and bounds invariants against a
// table of size totalBins.
func (p ThinPixel[N]) Validate(totalBins uint64) error {
	if p.Bin1ID > p.Bin2ID {
		return hictkerr.Wrapf(hictkerr.InvalidPixel, "pixel: bin1_id %d > bin2_id %d", p.Bin1ID, p.Bin2ID)
	}
	if p.Bin2ID >= totalBins {
		return hictkerr.Wrapf(hictkerr.InvalidPixel, "pixel: bin2_id %d >= total bins %d", p.Bin2ID, totalBins)
	}
	return nil
}

// PixelCoordinates is a canonical pair of resolved Bins. Coordinates are
// never swapped: bin1.ID() <= bin2.ID() is expected to already hold by
// construction.
type PixelCoordinates struct {
	Bin1 genome.Bin
	Bin2 genome.Bin
}

// Pixel is a contact count keyed by resolved bin coordinates rather than
// bare ids.
type Pixel[N Count] struct {
	Coords PixelCoordinates
	Count  N
}

// ToThin discards the materialized coordinates, keeping only the bin ids.
func (p Pixel[N]) ToThin() (ThinPixel[N], bool) {
	id1, ok1 := p.Coords.Bin1.ID()
	id2, ok2 := p.Coords.Bin2.ID()
	if !ok1 || !ok2 {
		return ThinPixel[N]{}, false
	}
	return ThinPixel[N]{Bin1ID: id1, Bin2ID: id2, Count: p.Count}, true
}
