package transform

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/pixel"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func refAndTable(c *check.C, binSize uint32) *genome.BinTable {
	ref, err := genome.NewReference([]genome.Chromosome{
		{Name: "chr1", Size: 1000},
		{Name: "chr2", Size: 400},
	})
	c.Assert(err, check.IsNil)
	bt, err := genome.NewFixedBinTable(ref, binSize)
	c.Assert(err, check.IsNil)
	return bt
}

func (s *S) TestPixelMergerSumsDuplicates(c *check.C) {
	bt := refAndTable(c, 100)
	a := NewSliceSource([]pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 1, Count: 5},
		{Bin1ID: 0, Bin2ID: 2, Count: 1},
	})
	b := NewSliceSource([]pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 1, Count: 2},
		{Bin1ID: 1, Bin2ID: 1, Count: 3},
	})
	m, err := NewPixelMerger[int32]([]*genome.BinTable{bt, bt}, []PixelSource[int32]{a, b})
	c.Assert(err, check.IsNil)
	out, err := m.ReadAll()
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 3)
	c.Check(out[0], check.Equals, pixel.ThinPixel[int32]{Bin1ID: 0, Bin2ID: 1, Count: 7})
	c.Check(out[1], check.Equals, pixel.ThinPixel[int32]{Bin1ID: 0, Bin2ID: 2, Count: 1})
	c.Check(out[2], check.Equals, pixel.ThinPixel[int32]{Bin1ID: 1, Bin2ID: 1, Count: 3})
}

func (s *S) TestPixelMergerAssociativity(c *check.C) {
	bt := refAndTable(c, 100)
	pxA := []pixel.ThinPixel[int32]{{Bin1ID: 0, Bin2ID: 0, Count: 1}, {Bin1ID: 0, Bin2ID: 3, Count: 4}}
	pxB := []pixel.ThinPixel[int32]{{Bin1ID: 0, Bin2ID: 0, Count: 2}, {Bin1ID: 0, Bin2ID: 1, Count: 5}}
	pxCc := []pixel.ThinPixel[int32]{{Bin1ID: 0, Bin2ID: 1, Count: 1}, {Bin1ID: 1, Bin2ID: 1, Count: 9}}

	mergeTwo := func(x, y []pixel.ThinPixel[int32]) []pixel.ThinPixel[int32] {
		m, err := NewPixelMerger[int32]([]*genome.BinTable{bt, bt},
			[]PixelSource[int32]{NewSliceSource(x), NewSliceSource(y)})
		c.Assert(err, check.IsNil)
		out, err := m.ReadAll()
		c.Assert(err, check.IsNil)
		return out
	}

	left := mergeTwo(mergeTwo(pxA, pxB), pxCc)
	right := mergeTwo(pxA, mergeTwo(pxB, pxCc))
	c.Check(left, check.DeepEquals, right)
}

func (s *S) TestCoarsenBy2TwiceEqualsBy4(c *check.C) {
	src := refAndTable(c, 50)
	mid, err := genome.NewFixedBinTable(src.Reference(), 100)
	c.Assert(err, check.IsNil)
	dst4, err := genome.NewFixedBinTable(src.Reference(), 200)
	c.Assert(err, check.IsNil)

	fine := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 0, Count: 1},
		{Bin1ID: 0, Bin2ID: 1, Count: 2},
		{Bin1ID: 1, Bin2ID: 3, Count: 3},
		{Bin1ID: 2, Bin2ID: 5, Count: 4},
		{Bin1ID: 3, Bin2ID: 3, Count: 5},
	}

	coarsenOnce := func(in []pixel.ThinPixel[int32], from, to *genome.BinTable, factor uint32) []pixel.ThinPixel[int32] {
		cp, err := NewCoarsenPixels[int32](NewSliceSource(in), from, to, factor)
		c.Assert(err, check.IsNil)
		out, err := cp.ReadAll()
		c.Assert(err, check.IsNil)
		return out
	}

	viaTwoSteps := coarsenOnce(coarsenOnce(fine, src, mid, 2), mid, dst4, 2)
	viaOneStep := coarsenOnce(fine, src, dst4, 4)
	c.Check(viaTwoSteps, check.DeepEquals, viaOneStep)
}

func (s *S) TestJoinGenomicCoords(c *check.C) {
	bt := refAndTable(c, 100)
	src := NewSliceSource([]pixel.ThinPixel[int32]{{Bin1ID: 0, Bin2ID: 11, Count: 7}})
	j := NewJoinGenomicCoords[int32](src, bt)
	out, err := j.ReadAll()
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 1)
	c.Check(out[0].Coords.Bin1.Start, check.Equals, uint32(0))
	c.Check(out[0].Coords.Bin2.Chrom.Name, check.Equals, "chr2")
}
