package cooler

import (
	"io"
	"sort"

	"github.com/hictk/hictk/balance"
	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/pixel"
)

// Selector is a query-bound iterator over a File's pixel table. It is
// built by File.Fetch/FetchRange/FetchRect and proceeds row by row
// (bin1_id ascending), filtering the bin2 range within each row by binary
// search (spec.md §4.4: "Selectors carry: (i) a shared BinTable, (ii) the
// Index, (iii) a handle to pixel datasets, (iv) optional Weights").
type Selector struct {
	f       *File
	weights *balance.Weights

	rows     []rowSpan // one entry per bin1 row covered by the query
	rowIdx   int
	cursor   uint64 // offset within the current row, already bin2-clamped
	rowEnd   uint64
}

// rowSpan is [lo,hi) into the pixel table for a single bin1 row, already
// filtered to the query's bin2 bounds.
type rowSpan struct {
	bin1    uint64
	lo, hi  uint64
}

// fetchInternal builds a Selector over bin1 range [r1first,r1last) and
// bin2 range [r2first,r2last), using the index to locate each row then
// binary-searching bin2 within it.
func (f *File) fetchInternal(r1first, r1last, r2first, r2last uint64, haveR2 bool) (*Selector, error) {
	sel := &Selector{f: f}
	for bin1 := r1first; bin1 < r1last; bin1++ {
		lo, hi, err := f.idx.RowSlice(bin1)
		if err != nil {
			return nil, err
		}
		if !haveR2 {
			sel.rows = append(sel.rows, rowSpan{bin1: bin1, lo: lo, hi: hi})
			continue
		}
		rlo, err := f.bin2LowerBound(lo, hi, r2first)
		if err != nil {
			return nil, err
		}
		rhi, err := f.bin2LowerBound(lo, hi, r2last)
		if err != nil {
			return nil, err
		}
		if rlo < rhi {
			sel.rows = append(sel.rows, rowSpan{bin1: bin1, lo: rlo, hi: rhi})
		}
	}
	if len(sel.rows) > 0 {
		sel.rowEnd = sel.rows[0].hi
		sel.cursor = sel.rows[0].lo
	}
	return sel, nil
}

// bin2LowerBound returns the offset of the first pixel in [lo,hi) whose
// bin2_id >= target, via binary search (bin2 is non-decreasing within a
// row per the index_is_valid invariant).
func (f *File) bin2LowerBound(lo, hi, target uint64) (uint64, error) {
	var searchErr error
	n := int(hi - lo)
	idx := sort.Search(n, func(i int) bool {
		b2, err := f.pxBin2.ReadU64(lo+uint64(i), lo+uint64(i)+1)
		if err != nil {
			searchErr = err
			return true
		}
		return b2[0] >= target
	})
	if searchErr != nil {
		return 0, searchErr
	}
	return lo + uint64(idx), nil
}

// Fetch returns a Selector over the whole genome.
func (f *File) Fetch() (*Selector, error) {
	return f.fetchInternal(0, f.bt.TotalBins(), 0, 0, false)
}

// FetchRange parses rangeStr (UCSC "chr:start-end" or bare "chr") against
// f's reference and returns a cis Selector over that interval.
func (f *File) FetchRange(rangeStr string) (*Selector, error) {
	iv, err := genome.ParseUCSC(f.bt.Reference(), rangeStr)
	if err != nil {
		return nil, err
	}
	first, last, err := f.bt.FindOverlap(iv)
	if err != nil {
		return nil, err
	}
	return f.fetchInternal(first, last, first, last, true)
}

// FetchRect returns a Selector over the rectangle range1 x range2, both
// UCSC range strings, optionally balanced by normalization (empty string
// means raw counts).
func (f *File) FetchRect(range1, range2, normalization string) (*Selector, error) {
	iv1, err := genome.ParseUCSC(f.bt.Reference(), range1)
	if err != nil {
		return nil, err
	}
	iv2, err := genome.ParseUCSC(f.bt.Reference(), range2)
	if err != nil {
		return nil, err
	}
	r1first, r1last, err := f.bt.FindOverlap(iv1)
	if err != nil {
		return nil, err
	}
	r2first, r2last, err := f.bt.FindOverlap(iv2)
	if err != nil {
		return nil, err
	}
	sel, err := f.fetchInternal(r1first, r1last, r2first, r2last, true)
	if err != nil {
		return nil, err
	}
	if normalization != "" {
		w, err := f.ReadWeights(normalization)
		if err != nil {
			return nil, err
		}
		sel.weights = w
	}
	return sel, nil
}

// Weights returns the Selector's balancing weights, or nil for raw counts.
func (s *Selector) Weights() *balance.Weights { return s.weights }

// ReadPixel returns the next pixel in bin1-ascending, bin2-ascending order,
// converting the on-disk count to N and applying balancing weights if
// present (balanced counts are always floating point, per spec.md §4.4).
func ReadPixel[N pixel.Count](s *Selector) (pixel.ThinPixel[N], error) {
	for s.rowIdx < len(s.rows) && s.cursor >= s.rowEnd {
		s.rowIdx++
		if s.rowIdx < len(s.rows) {
			s.cursor = s.rows[s.rowIdx].lo
			s.rowEnd = s.rows[s.rowIdx].hi
		}
	}
	if s.rowIdx >= len(s.rows) {
		return pixel.ThinPixel[N]{}, io.EOF
	}
	i := s.cursor
	b1, err := s.f.pxBin1.ReadU64(i, i+1)
	if err != nil {
		return pixel.ThinPixel[N]{}, err
	}
	b2, err := s.f.pxBin2.ReadU64(i, i+1)
	if err != nil {
		return pixel.ThinPixel[N]{}, err
	}
	count, err := s.readCount(i)
	if err != nil {
		return pixel.ThinPixel[N]{}, err
	}
	s.cursor++

	raw := pixel.ThinPixel[float64]{Bin1ID: b1[0], Bin2ID: b2[0], Count: count}
	if s.weights != nil {
		raw = s.weights.Apply(raw)
	}
	return pixel.ConvertCount[float64, N](raw)
}

func (s *Selector) readCount(i uint64) (float64, error) {
	switch s.f.countDType {
	case DTypeF64:
		v, err := s.f.pxCount.ReadF64(i, i+1)
		if err != nil {
			return 0, err
		}
		return v[0], nil
	case DTypeI32:
		v, err := s.f.pxCount.ReadI32(i, i+1)
		if err != nil {
			return 0, err
		}
		return float64(v[0]), nil
	case DTypeU32:
		v, err := s.f.pxCount.ReadU32(i, i+1)
		if err != nil {
			return 0, err
		}
		return float64(v[0]), nil
	default:
		return 0, hictkerr.Wrap(hictkerr.FormatError, "cooler: unsupported pixel count dtype")
	}
}

// ReadAllPixels drains the Selector into a slice.
func ReadAllPixels[N pixel.Count](s *Selector) ([]pixel.ThinPixel[N], error) {
	var out []pixel.ThinPixel[N]
	for {
		p, err := ReadPixel[N](s)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}
