// Package index implements the CSR-like index shared by both storage
// engines: bin1_offset (size nbins+1) and chrom_offset (size nchroms+1),
// enabling O(1) row-start lookup. Grounded on csi/csi.go and bai.go, which
// maintain the same shape — a monotone offset array over a sorted
// container, validated on load.
package index

import (
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/pixel"
)

// Index is the CSR-like row index over a symmetric-upper pixel table.
type Index struct {
	// Bin1Offset[i] is the offset of the first pixel with bin1_id == i;
	// Bin1Offset[nbins] == nnz.
	Bin1Offset []uint64
	// ChromOffset[c] is the absolute bin id of the first bin of
	// chromosome c; ChromOffset[nchroms] == total bins.
	ChromOffset []uint64
}

// New builds an empty index sized for nbins bins, with ChromOffset set to
// a copy of chromOffset. Bin1Offset is pre-sized but left zeroed; callers
// fill it in themselves, and Validate can then check it against the pixel
// table.
func New(nbins int, chromOffset []uint64) *Index {
	return &Index{
		Bin1Offset:  make([]uint64, nbins+1),
		ChromOffset: append([]uint64(nil), chromOffset...),
	}
}

// RowSlice returns the half-open pixel-table offset range
// [Bin1Offset[bin1ID], Bin1Offset[bin1ID+1]) for the given bin1 id.
func (idx *Index) RowSlice(bin1ID uint64) (start, end uint64, err error) {
	if int(bin1ID)+1 >= len(idx.Bin1Offset) {
		return 0, 0, hictkerr.Wrapf(hictkerr.OutOfRange, "index: bin1_id %d out of range", bin1ID)
	}
	return idx.Bin1Offset[bin1ID], idx.Bin1Offset[bin1ID+1], nil
}

// ChromSlice composes ChromOffset with Bin1Offset to yield the pixel-table
// row span covering every bin1 belonging to chromID (used for trans
// queries: all pixels whose bin1 lies in this chromosome).
func (idx *Index) ChromSlice(chromID uint32) (start, end uint64, err error) {
	if int(chromID)+1 >= len(idx.ChromOffset) {
		return 0, 0, hictkerr.Wrapf(hictkerr.OutOfRange, "index: chrom id %d out of range", chromID)
	}
	firstBin := idx.ChromOffset[chromID]
	lastBin := idx.ChromOffset[chromID+1]
	start, _, err = idx.RowSlice(firstBin)
	if err != nil {
		return 0, 0, err
	}
	if lastBin == 0 {
		return start, start, nil
	}
	_, end, err = idx.RowSlice(lastBin - 1)
	return start, end, err
}

// NNZ returns the total number of nonzero pixels recorded by the index.
func (idx *Index) NNZ() uint64 {
	if len(idx.Bin1Offset) == 0 {
		return 0
	}
	return idx.Bin1Offset[len(idx.Bin1Offset)-1]
}

// RowProbe abstracts a single scan over the pixel table's bin1/bin2
// columns, used by Validate so the index package never depends on a
// concrete storage engine.
type RowProbe interface {
	// Bin1AndBin2 returns the bin1_id/bin2_id columns for pixel row i.
	Bin1AndBin2(i uint64) (bin1, bin2 uint64, err error)
}

// Validate streams all pixels (via probe) and checks (i) offsets are
// non-decreasing, (ii) every row's bin1 column equals the expected bin1
// within its own slice, (iii) within each row bin2_id is non-decreasing,
// and (iv) Bin1Offset[nbins] == nnz. This is index_is_valid from spec.md
// §4.2.
func (idx *Index) Validate(probe RowProbe, nnz uint64) error {
	nbins := len(idx.Bin1Offset) - 1
	if idx.Bin1Offset[nbins] != nnz {
		return hictkerr.Wrapf(hictkerr.IndexCorrupt, "index: bin1_offset[nbins]=%d != nnz=%d", idx.Bin1Offset[nbins], nnz)
	}
	for i := 0; i < nbins; i++ {
		if idx.Bin1Offset[i] > idx.Bin1Offset[i+1] {
			return hictkerr.Wrapf(hictkerr.IndexCorrupt, "index: bin1_offset not monotone at bin %d", i)
		}
		var lastBin2 uint64
		haveLast := false
		for row := idx.Bin1Offset[i]; row < idx.Bin1Offset[i+1]; row++ {
			b1, b2, err := probe.Bin1AndBin2(row)
			if err != nil {
				return hictkerr.WithCause(hictkerr.IndexCorrupt, err)
			}
			if b1 != uint64(i) {
				return hictkerr.Wrapf(hictkerr.IndexCorrupt, "index: row %d has bin1=%d, expected %d", row, b1, i)
			}
			if haveLast && b2 < lastBin2 {
				return hictkerr.Wrapf(hictkerr.IndexCorrupt, "index: bin2 not non-decreasing within row %d", i)
			}
			lastBin2, haveLast = b2, true
		}
	}
	return nil
}

// ValidateSorted checks the sorted-emission invariant from spec.md §8:
// for pixels emitted in order, (bin1_id, bin2_id) is strictly increasing.
func ValidateSorted[N pixel.Count](pixels []pixel.ThinPixel[N]) error {
	for i := 1; i < len(pixels); i++ {
		if !pixels[i-1].Less(pixels[i]) {
			return hictkerr.Wrapf(hictkerr.IndexCorrupt, "index: pixel stream not strictly increasing at %d", i)
		}
	}
	return nil
}
