package genome

import "github.com/hictk/hictk/hictkerr"

// GenomicInterval is a half-open [Start, End) interval over a chromosome.
// An empty interval (Start == End) is allowed.
type GenomicInterval struct {
	Chrom Chromosome
	Start uint32
	End   uint32
}

// NewGenomicInterval validates start <= end <= chrom.Size before
// constructing the interval.
func NewGenomicInterval(chrom Chromosome, start, end uint32) (GenomicInterval, error) {
	if start > end {
		return GenomicInterval{}, hictkerr.Wrapf(hictkerr.OutOfRange, "genome: interval start %d > end %d", start, end)
	}
	if end > chrom.Size {
		return GenomicInterval{}, hictkerr.Wrapf(hictkerr.OutOfRange, "genome: interval end %d exceeds chromosome %q size %d", end, chrom.Name, chrom.Size)
	}
	return GenomicInterval{Chrom: chrom, Start: start, End: end}, nil
}

// Empty reports whether the interval spans zero bases.
func (g GenomicInterval) Empty() bool { return g.Start == g.End }

// Clamped returns a copy of g with End clamped to the chromosome size, for
// queries that straddle chromosome ends.
func (g GenomicInterval) Clamped() GenomicInterval {
	if g.End > g.Chrom.Size {
		g.End = g.Chrom.Size
	}
	if g.Start > g.End {
		g.Start = g.End
	}
	return g
}
