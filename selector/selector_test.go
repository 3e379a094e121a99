package selector

import (
	"path/filepath"
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hic"
	"github.com/hictk/hictk/pixel"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func testRef(c *check.C) *genome.Reference {
	ref, err := genome.NewReference([]genome.Chromosome{
		{Name: "chr1", Size: 1000},
		{Name: "chr2", Size: 400},
	})
	c.Assert(err, check.IsNil)
	return ref
}

func writeTestHic(c *check.C) *hic.File {
	ref := testRef(c)
	dir := c.MkDir()
	w, err := hic.NewWriter(dir, ref, hic.WriterOptions{Resolution: 100, BlockBinCount: 4})
	c.Assert(err, check.IsNil)

	px := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 0, Count: 3},
		{Bin1ID: 0, Bin2ID: 1, Count: 1},
		{Bin1ID: 2, Bin2ID: 9, Count: 7},
	}
	c.Assert(hic.AddPixels(w, 0, 0, px), check.IsNil)

	header := &hic.Header{
		Version:     hic.VersionMax,
		GenomeID:    "test",
		Attributes:  map[string]string{},
		Chromosomes: ref.Chromosomes(),
		Resolutions: []uint32{100},
	}
	path := filepath.Join(dir, "out.hic")
	c.Assert(w.Finalize(path, header), check.IsNil)
	c.Assert(w.Close(), check.IsNil)

	f, err := hic.Open(path, 100)
	c.Assert(err, check.IsNil)
	return f
}

func (s *S) TestFetchHicReadsAndConverts(c *check.C) {
	f := writeTestHic(c)
	defer f.Close()

	sel, err := FetchHic(f, "chr1:0-1000", "")
	c.Assert(err, check.IsNil)
	c.Check(sel.Coord1(), check.Equals, "chr1:0-1000")
	c.Check(sel.Coord2(), check.Equals, "chr1:0-1000")
	c.Check(sel.Bins(), check.Equals, f.BinTable())

	_, isHic := sel.Hic()
	c.Check(isHic, check.Equals, true)
	_, isCooler := sel.Cooler()
	c.Check(isCooler, check.Equals, false)

	out, err := ReadAll[int32](sel)
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 3)
	var total int32
	for _, p := range out {
		total += p.Count
	}
	c.Check(total, check.Equals, int32(11))
}

func (s *S) TestFetchHicAllDispatch(c *check.C) {
	f := writeTestHic(c)
	defer f.Close()

	sel, err := FetchHicAll(f, "")
	c.Assert(err, check.IsNil)
	_, isHicAll := sel.HicAll()
	c.Check(isHicAll, check.Equals, true)

	out, err := ReadAll[float64](sel)
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 3)
}

func (s *S) TestReadEmptySelectorReturnsEOF(c *check.C) {
	f := writeTestHic(c)
	defer f.Close()

	sel, err := FetchHic(f, "chr1:500-600", "")
	c.Assert(err, check.IsNil)
	out, err := ReadAll[float64](sel)
	c.Assert(err, check.IsNil)
	c.Check(out, check.HasLen, 0)
}
