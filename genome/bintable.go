package genome

import (
	"sort"

	"github.com/hictk/hictk/hictkerr"
)

// BinTable partitions a Reference into fixed-size bins, giving
// constant-time absolute<->(chrom,pos) mapping. Grounded on csi/csi.go's
// prefix-sum-over-shift arithmetic for fast coordinate-to-bin lookups.
type BinTable struct {
	ref       *Reference
	binSize   uint32
	binPrefix []uint64 // binPrefix[i] = total bins in chroms[0:i]
	totalBins uint64
}

// NewFixedBinTable builds a BinTable with uniform bin size. The last bin
// of each chromosome may be shorter than binSize.
func NewFixedBinTable(ref *Reference, binSize uint32) (*BinTable, error) {
	if binSize == 0 {
		return nil, hictkerr.Wrap(hictkerr.OutOfRange, "genome: bin size must be > 0")
	}
	n := ref.NumChroms()
	bt := &BinTable{ref: ref, binSize: binSize, binPrefix: make([]uint64, n+1)}
	for i, c := range ref.Chromosomes() {
		nb := numBins(c.Size, binSize)
		bt.binPrefix[i+1] = bt.binPrefix[i] + nb
	}
	bt.totalBins = bt.binPrefix[n]
	return bt, nil
}

func numBins(chromSize, binSize uint32) uint64 {
	if chromSize == 0 {
		return 0
	}
	return (uint64(chromSize) + uint64(binSize) - 1) / uint64(binSize)
}

// Reference returns the BinTable's underlying Reference.
func (bt *BinTable) Reference() *Reference { return bt.ref }

// BinSize returns the fixed bin size.
func (bt *BinTable) BinSize() uint32 { return bt.binSize }

// TotalBins returns the total number of bins across all chromosomes.
func (bt *BinTable) TotalBins() uint64 { return bt.totalBins }

// NumBins returns the number of bins belonging to chrom.
func (bt *BinTable) NumBins(chromID uint32) uint64 {
	return bt.binPrefix[chromID+1] - bt.binPrefix[chromID]
}

// ChromBinOffset returns the absolute id of the first bin of chromID.
func (bt *BinTable) ChromBinOffset(chromID uint32) uint64 {
	return bt.binPrefix[chromID]
}

// BinIDAt returns the absolute bin id covering position pos on chrom.
func (bt *BinTable) BinIDAt(chrom Chromosome, pos uint32) uint64 {
	return bt.binPrefix[chrom.ID] + uint64(pos)/uint64(bt.binSize)
}

// BinAt inverts BinIDAt: given an absolute bin id, returns the Bin, using
// binary search over the chromosome bin-count prefix sum followed by
// constant-time modular arithmetic within the chromosome.
func (bt *BinTable) BinAt(id uint64) (Bin, error) {
	if id >= bt.totalBins {
		return Bin{}, hictkerr.Wrapf(hictkerr.OutOfRange, "genome: bin id %d out of range [0,%d)", id, bt.totalBins)
	}
	chromID := uint32(sort.Search(len(bt.binPrefix)-1, func(i int) bool {
		return bt.binPrefix[i+1] > id
	}))
	chrom, err := bt.ref.At(chromID)
	if err != nil {
		return Bin{}, err
	}
	relID := uint32(id - bt.binPrefix[chromID])
	start := relID * bt.binSize
	end := start + bt.binSize
	if end > chrom.Size {
		end = chrom.Size
	}
	iv, err := NewGenomicInterval(chrom, start, end)
	if err != nil {
		return Bin{}, err
	}
	return NewBin(id, relID, iv), nil
}

// FindOverlap returns the half-open bin id range [first, last) such that
// every bin in the range overlaps interval.
func (bt *BinTable) FindOverlap(interval GenomicInterval) (first, last uint64, err error) {
	interval = interval.Clamped()
	first = bt.BinIDAt(interval.Chrom, interval.Start)
	if interval.Empty() {
		return first, first, nil
	}
	last = bt.BinIDAt(interval.Chrom, interval.End-1) + 1
	return first, last, nil
}
