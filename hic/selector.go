package hic

import (
	"io"

	"github.com/hictk/hictk/pixel"
)

// Selector iterates over one rectangular query's pixels, already sorted
// by (bin1,bin2) — FetchRect/FetchRange resolve the whole result set
// eagerly since block decode is cache-backed and queries are typically
// bounded to a handful of blocks, unlike Cooler's row-at-a-time streaming
// over a much larger on-disk pixel table.
type Selector struct {
	pixels []pixel.ThinPixel[float64]
	pos    int
}

// NewSelector wraps an already-sorted pixel slice.
func NewSelector(pixels []pixel.ThinPixel[float64]) *Selector {
	return &Selector{pixels: pixels}
}

// Read returns the next pixel, io.EOF when exhausted.
func (s *Selector) Read() (pixel.ThinPixel[float64], error) {
	if s.pos >= len(s.pixels) {
		return pixel.ThinPixel[float64]{}, io.EOF
	}
	p := s.pixels[s.pos]
	s.pos++
	return p, nil
}

// ReadAll drains every remaining pixel.
func (s *Selector) ReadAll() ([]pixel.ThinPixel[float64], error) {
	out := append([]pixel.ThinPixel[float64](nil), s.pixels[s.pos:]...)
	s.pos = len(s.pixels)
	return out, nil
}

// AllSelector iterates the whole genome-wide matrix: every chromosome
// pair with chrom1 <= chrom2, in ascending (chrom1, chrom2) order, each
// pair's pixels sorted by (bin1,bin2) and emitted before the next pair's.
// Pairs with no matrix in the file contribute no pixels. The output is
// therefore not globally sorted by (bin1,bin2), unlike Cooler's
// genome-wide File.Fetch, which walks the pixel table row by row.
type AllSelector struct {
	f             *File
	normalization string
	pairs         [][2]uint32
	idx           int
	cur           *Selector
}

// FetchAll returns a selector over the whole genome-wide matrix,
// optionally balanced by normalization ("" for raw counts).
func (f *File) FetchAll(normalization string) (*AllSelector, error) {
	n := uint32(f.ref.NumChroms())
	var pairs [][2]uint32
	for c1 := uint32(0); c1 < n; c1++ {
		for c2 := c1; c2 < n; c2++ {
			pairs = append(pairs, [2]uint32{c1, c2})
		}
	}
	return &AllSelector{f: f, normalization: normalization, pairs: pairs}, nil
}

// Read returns the next pixel across the whole genome-wide matrix,
// advancing to the next chromosome pair as each is exhausted.
func (a *AllSelector) Read() (pixel.ThinPixel[float64], error) {
	for {
		if a.cur != nil {
			p, err := a.cur.Read()
			if err != io.EOF {
				return p, err
			}
			a.cur = nil
		}
		if a.idx >= len(a.pairs) {
			return pixel.ThinPixel[float64]{}, io.EOF
		}
		pair := a.pairs[a.idx]
		a.idx++
		index, err := a.f.masterIndex()
		if err != nil {
			return pixel.ThinPixel[float64]{}, err
		}
		if _, ok := index[FooterKey{Chrom1: pair[0], Chrom2: pair[1], Unit: UnitBP, Resolution: a.f.resolution}]; !ok {
			continue // no matrix stored for this pair: it holds no pixels
		}
		c1, err := a.f.ref.At(pair[0])
		if err != nil {
			return pixel.ThinPixel[float64]{}, err
		}
		c2, err := a.f.ref.At(pair[1])
		if err != nil {
			return pixel.ThinPixel[float64]{}, err
		}
		r1First := a.f.bt.ChromBinOffset(c1.ID)
		r1Last := r1First + a.f.bt.NumBins(c1.ID)
		r2First := a.f.bt.ChromBinOffset(c2.ID)
		r2Last := r2First + a.f.bt.NumBins(c2.ID)
		pixels, err := a.f.FetchRect(r1First, r1Last, r2First, r2Last, a.normalization)
		if err != nil {
			return pixel.ThinPixel[float64]{}, err
		}
		a.cur = NewSelector(pixels)
	}
}

// ReadAll drains the whole genome-wide matrix.
func (a *AllSelector) ReadAll() ([]pixel.ThinPixel[float64], error) {
	var out []pixel.ThinPixel[float64]
	for {
		p, err := a.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}
