// Package transform implements the kernels that compose lazily over pixel
// streams: k-way merging, recursive coarsening, and bin-coordinate
// joining.
package transform

import (
	"container/heap"
	"io"

	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/pixel"
)

// PixelSource is anything that yields ThinPixels in (bin1, bin2)
// ascending order, terminating with io.EOF.
type PixelSource[N pixel.Count] interface {
	Read() (pixel.ThinPixel[N], error)
}

// PixelMerger merges K sorted ThinPixel ranges over an identical bin
// table into one sorted stream, summing counts on key collisions.
// Grounded directly on bam/merger.go's container/heap k-way merge
// (bySortOrderAndID), generalized from sam.Record to ThinPixel.
type PixelMerger[N pixel.Count] struct {
	h       *mergeHeap[N]
	pending *pixel.ThinPixel[N]
}

type mergeEntry[N pixel.Count] struct {
	src  PixelSource[N]
	head pixel.ThinPixel[N]
}

type mergeHeap[N pixel.Count] []*mergeEntry[N]

func (h mergeHeap[N]) Len() int { return len(h) }
func (h mergeHeap[N]) Less(i, j int) bool {
	return h[i].head.Less(h[j].head)
}
func (h mergeHeap[N]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap[N]) Push(x interface{}) {
	*h = append(*h, x.(*mergeEntry[N]))
}
func (h *mergeHeap[N]) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// NewPixelMerger merges sources, which must all be sorted over the same
// BinTable (tables must agree in TotalBins; a mismatch fails with
// hictkerr.OutOfRange-wrapped BinTableMismatch semantics).
func NewPixelMerger[N pixel.Count](tables []*genome.BinTable, sources []PixelSource[N]) (*PixelMerger[N], error) {
	if len(sources) == 0 {
		return nil, io.EOF
	}
	if len(tables) != len(sources) {
		return nil, hictkerr.Wrap(hictkerr.OutOfRange, "transform: tables/sources length mismatch")
	}
	want := tables[0].TotalBins()
	for _, t := range tables[1:] {
		if t.TotalBins() != want {
			return nil, hictkerr.Wrap(hictkerr.OutOfRange, "transform: BinTableMismatch among merge sources")
		}
	}

	h := make(mergeHeap[N], 0, len(sources))
	for _, src := range sources {
		head, err := src.Read()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return nil, err
		}
		h = append(h, &mergeEntry[N]{src: src, head: head})
	}
	heap.Init(&h)
	return &PixelMerger[N]{h: &h}, nil
}

// Read returns the next merged pixel. When two or more sources carry a
// pixel at the same (bin1,bin2), their counts are summed and emitted
// once.
func (m *PixelMerger[N]) Read() (pixel.ThinPixel[N], error) {
	if m.pending != nil {
		out := *m.pending
		m.pending = nil
		return out, nil
	}
	if m.h.Len() == 0 {
		return pixel.ThinPixel[N]{}, io.EOF
	}
	out, err := m.popAdvance()
	if err != nil {
		return pixel.ThinPixel[N]{}, err
	}
	for m.h.Len() > 0 && (*m.h)[0].head.SameCoordinates(out) {
		next, err := m.popAdvance()
		if err != nil {
			return pixel.ThinPixel[N]{}, err
		}
		out.Count += next.Count
	}
	return out, nil
}

func (m *PixelMerger[N]) popAdvance() (pixel.ThinPixel[N], error) {
	e := heap.Pop(m.h).(*mergeEntry[N])
	out := e.head
	next, err := e.src.Read()
	if err == nil {
		e.head = next
		heap.Push(m.h, e)
	} else if err != io.EOF {
		return pixel.ThinPixel[N]{}, err
	}
	return out, nil
}

// ReadAll drains the merger into a slice.
func (m *PixelMerger[N]) ReadAll() ([]pixel.ThinPixel[N], error) {
	var out []pixel.ThinPixel[N]
	for {
		p, err := m.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}

// SliceSource adapts an in-memory, pre-sorted slice to PixelSource.
type SliceSource[N pixel.Count] struct {
	pixels []pixel.ThinPixel[N]
	pos    int
}

// NewSliceSource wraps pixels (must already be sorted) as a PixelSource.
func NewSliceSource[N pixel.Count](pixels []pixel.ThinPixel[N]) *SliceSource[N] {
	return &SliceSource[N]{pixels: pixels}
}

func (s *SliceSource[N]) Read() (pixel.ThinPixel[N], error) {
	if s.pos >= len(s.pixels) {
		return pixel.ThinPixel[N]{}, io.EOF
	}
	p := s.pixels[s.pos]
	s.pos++
	return p, nil
}
