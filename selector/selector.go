// Package selector implements PixelSelector, a tagged union over the
// three concrete iterator kinds this module produces: cooler.Selector,
// hic.Selector, and hic.AllSelector. There is no sum type in Go, so the
// union is a struct carrying exactly one populated variant plus a kind
// tag, dispatched at iteration time by a single switch — the analogue of
// the interface + type switch dispatch bam.Reader/bam.Merger use over
// concrete reader implementations.
package selector

import (
	"io"

	"github.com/hictk/hictk/cooler"
	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hic"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/pixel"
)

type kind int

const (
	kindCooler kind = iota
	kindHic
	kindHicAll
)

// PixelSelector wraps exactly one of a cooler.Selector, a hic.Selector,
// or a hic.AllSelector behind one iteration API. Callers obtain one from
// a coordinate query against an open File (Cooler or .hic) and drain it
// with Read/ReadAll; the underlying concrete selector is still reachable
// via Cooler/Hic/HicAll when the caller already knows which engine it
// queried.
type PixelSelector struct {
	kind kind

	coolerSel *cooler.Selector
	hicSel    *hic.Selector
	hicAll    *hic.AllSelector

	coord1, coord2 string
	bins           *genome.BinTable
}

// Coord1 returns the first range string the selector was built from, or
// "" for a genome-wide selector.
func (p *PixelSelector) Coord1() string { return p.coord1 }

// Coord2 returns the second range string the selector was built from, or
// "" for a genome-wide selector.
func (p *PixelSelector) Coord2() string { return p.coord2 }

// Bins returns the BinTable the selector's pixels are resolved against.
func (p *PixelSelector) Bins() *genome.BinTable { return p.bins }

// Cooler returns the underlying cooler.Selector, if that's the variant
// held.
func (p *PixelSelector) Cooler() (*cooler.Selector, bool) {
	return p.coolerSel, p.kind == kindCooler
}

// Hic returns the underlying hic.Selector, if that's the variant held.
func (p *PixelSelector) Hic() (*hic.Selector, bool) {
	return p.hicSel, p.kind == kindHic
}

// HicAll returns the underlying hic.AllSelector, if that's the variant
// held.
func (p *PixelSelector) HicAll() (*hic.AllSelector, bool) {
	return p.hicAll, p.kind == kindHicAll
}

// FromCooler builds a PixelSelector wrapping an already-constructed
// cooler.Selector.
func FromCooler(s *cooler.Selector, bins *genome.BinTable, coord1, coord2 string) *PixelSelector {
	return &PixelSelector{kind: kindCooler, coolerSel: s, bins: bins, coord1: coord1, coord2: coord2}
}

// FromHic builds a PixelSelector wrapping an already-constructed
// hic.Selector.
func FromHic(s *hic.Selector, bins *genome.BinTable, coord1, coord2 string) *PixelSelector {
	return &PixelSelector{kind: kindHic, hicSel: s, bins: bins, coord1: coord1, coord2: coord2}
}

// FromHicAll builds a genome-wide PixelSelector wrapping an
// already-constructed hic.AllSelector.
func FromHicAll(s *hic.AllSelector, bins *genome.BinTable) *PixelSelector {
	return &PixelSelector{kind: kindHicAll, hicAll: s, bins: bins}
}

// FetchCooler opens a Cooler selector over range1 x range2 (both UCSC
// range strings; range2 == "" repeats range1) and wraps it.
// normalization selects a balancing weight column, or "" for raw counts.
func FetchCooler(f *cooler.File, range1, range2, normalization string) (*PixelSelector, error) {
	if range2 == "" {
		range2 = range1
	}
	s, err := f.FetchRect(range1, range2, normalization)
	if err != nil {
		return nil, err
	}
	return FromCooler(s, f.BinTable(), range1, range2), nil
}

// FetchCoolerAll opens a Cooler selector over the whole genome-wide
// matrix and wraps it.
func FetchCoolerAll(f *cooler.File) (*PixelSelector, error) {
	s, err := f.Fetch()
	if err != nil {
		return nil, err
	}
	return FromCooler(s, f.BinTable(), "", ""), nil
}

// FetchHic opens a .hic selector over a single genomic range (cis query)
// and wraps it. normalization selects a balancing weight vector, or ""
// for raw counts.
func FetchHic(f *hic.File, rangeStr, normalization string) (*PixelSelector, error) {
	pixels, err := f.FetchRange(rangeStr, normalization)
	if err != nil {
		return nil, err
	}
	return FromHic(hic.NewSelector(pixels), f.BinTable(), rangeStr, rangeStr), nil
}

// FetchHicAll opens a .hic selector over the whole genome-wide matrix and
// wraps it. normalization selects a balancing weight vector, or "" for
// raw counts.
func FetchHicAll(f *hic.File, normalization string) (*PixelSelector, error) {
	s, err := f.FetchAll(normalization)
	if err != nil {
		return nil, err
	}
	return FromHicAll(s, f.BinTable()), nil
}

// Read returns the next pixel, converting the engine's native count
// representation to N. Cooler and single-range .hic selectors yield
// pixels in sorted (bin1,bin2) order; the genome-wide .hic selector
// yields them one chromosome pair at a time, sorted within each pair. Reading past the last pixel
// returns io.EOF. Converting a non-integral or overflowing float count
// into an integer N fails with hictkerr.PrecisionLoss rather than
// truncating silently.
func Read[N pixel.Count](p *PixelSelector) (pixel.ThinPixel[N], error) {
	switch p.kind {
	case kindCooler:
		return cooler.ReadPixel[N](p.coolerSel)
	case kindHic:
		raw, err := p.hicSel.Read()
		if err != nil {
			return pixel.ThinPixel[N]{}, err
		}
		return pixel.ConvertCount[float64, N](raw)
	case kindHicAll:
		raw, err := p.hicAll.Read()
		if err != nil {
			return pixel.ThinPixel[N]{}, err
		}
		return pixel.ConvertCount[float64, N](raw)
	default:
		return pixel.ThinPixel[N]{}, hictkerr.Wrap(hictkerr.NotFound, "selector: empty PixelSelector")
	}
}

// ReadAll drains every remaining pixel from p.
func ReadAll[N pixel.Count](p *PixelSelector) ([]pixel.ThinPixel[N], error) {
	switch p.kind {
	case kindCooler:
		return cooler.ReadAllPixels[N](p.coolerSel)
	}
	var out []pixel.ThinPixel[N]
	for {
		px, err := Read[N](p)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, px)
	}
}
