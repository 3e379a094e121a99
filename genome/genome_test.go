package genome

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/hictkerr"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func testReference(c *check.C) *Reference {
	ref, err := NewReference([]Chromosome{
		{Name: "chr1", Size: 1000},
		{Name: "chr2", Size: 250},
	})
	c.Assert(err, check.IsNil)
	return ref
}

func (s *S) TestReferenceLookup(c *check.C) {
	ref := testReference(c)
	c.Check(ref.NumChroms(), check.Equals, 2)
	id, err := ref.GetID("chr2")
	c.Assert(err, check.IsNil)
	c.Check(id, check.Equals, uint32(1))
	_, err = ref.GetID("chrX")
	c.Check(hictkerr.Is(err, hictkerr.NotFound), check.Equals, true)
	chrom, err := ref.At(0)
	c.Assert(err, check.IsNil)
	c.Check(chrom.Name, check.Equals, "chr1")
	_, err = ref.At(5)
	c.Check(err, check.NotNil)
}

func (s *S) TestReferenceDuplicateName(c *check.C) {
	_, err := NewReference([]Chromosome{{Name: "chr1", Size: 10}, {Name: "chr1", Size: 20}})
	c.Check(err, check.NotNil)
}

func (s *S) TestWithAll(c *check.C) {
	ref := testReference(c)
	withAll, err := ref.WithAll()
	c.Assert(err, check.IsNil)
	c.Check(withAll.NumChroms(), check.Equals, 3)
	id, err := withAll.GetID(AllChromosomeName)
	c.Assert(err, check.IsNil)
	c.Check(id, check.Equals, uint32(2))
	all, err := withAll.At(id)
	c.Assert(err, check.IsNil)
	c.Check(all.Size, check.Equals, uint32(1250))

	back := withAll.WithoutAll()
	c.Check(back.NumChroms(), check.Equals, 2)
}

func (s *S) TestLongest(c *check.C) {
	ref := testReference(c)
	longest, ok := ref.LongestChromosome()
	c.Assert(ok, check.Equals, true)
	c.Check(longest.Name, check.Equals, "chr1")
	longestName, ok := ref.LongestNameChromosome()
	c.Assert(ok, check.Equals, true)
	c.Check(longestName.Name, check.Equals, "chr1")
}

func (s *S) TestBinTableFixed(c *check.C) {
	ref := testReference(c)
	bt, err := NewFixedBinTable(ref, 100)
	c.Assert(err, check.IsNil)
	// chr1: 1000/100 = 10 bins; chr2: ceil(250/100) = 3 bins.
	c.Check(bt.TotalBins(), check.Equals, uint64(13))
	c.Check(bt.NumBins(0), check.Equals, uint64(10))
	c.Check(bt.NumBins(1), check.Equals, uint64(3))

	chrom2, _ := ref.At(1)
	id := bt.BinIDAt(chrom2, 240)
	c.Check(id, check.Equals, uint64(12))

	bin, err := bt.BinAt(12)
	c.Assert(err, check.IsNil)
	c.Check(bin.Start, check.Equals, uint32(200))
	c.Check(bin.End, check.Equals, uint32(250)) // last bin of chr2 is short.

	_, err = bt.BinAt(13)
	c.Check(err, check.NotNil)
}

func (s *S) TestFindOverlap(c *check.C) {
	ref := testReference(c)
	bt, err := NewFixedBinTable(ref, 100)
	c.Assert(err, check.IsNil)
	chrom1, _ := ref.At(0)
	iv, err := NewGenomicInterval(chrom1, 150, 360)
	c.Assert(err, check.IsNil)
	first, last, err := bt.FindOverlap(iv)
	c.Assert(err, check.IsNil)
	c.Check(first, check.Equals, uint64(1))
	c.Check(last, check.Equals, uint64(4))
}

func (s *S) TestFindOverlapEmpty(c *check.C) {
	ref := testReference(c)
	bt, err := NewFixedBinTable(ref, 100)
	c.Assert(err, check.IsNil)
	chrom1, _ := ref.At(0)
	iv, err := NewGenomicInterval(chrom1, 150, 150)
	c.Assert(err, check.IsNil)
	first, last, err := bt.FindOverlap(iv)
	c.Assert(err, check.IsNil)
	c.Check(first, check.Equals, last)
}

func (s *S) TestParseUCSC(c *check.C) {
	ref := testReference(c)
	iv, err := ParseUCSC(ref, "chr1:100-200")
	c.Assert(err, check.IsNil)
	c.Check(iv.Start, check.Equals, uint32(100))
	c.Check(iv.End, check.Equals, uint32(200))

	whole, err := ParseUCSC(ref, "chr2")
	c.Assert(err, check.IsNil)
	c.Check(whole.Start, check.Equals, uint32(0))
	c.Check(whole.End, check.Equals, uint32(250))

	_, err = ParseUCSC(ref, "chr1:100200")
	c.Check(err, check.NotNil)
}

func (s *S) TestParseBED(c *check.C) {
	ref := testReference(c)
	iv, err := ParseBED(ref, "chr1\t10\t20")
	c.Assert(err, check.IsNil)
	c.Check(iv.Start, check.Equals, uint32(10))
	c.Check(iv.End, check.Equals, uint32(20))

	_, err = ParseBED(ref, "chr1\t10")
	c.Check(err, check.NotNil)
}
