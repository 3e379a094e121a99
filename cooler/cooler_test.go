package cooler

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/balance"
	"github.com/hictk/hictk/genome"
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

func newTestFile(c *check.C, dtype DType) *File {
	store := newFakeStore()
	f, err := createStore(store, URI{Path: "mem"}, testRef(c), CreateOptions{BinSize: 100, CountDType: dtype})
	c.Assert(err, check.IsNil)
	return f
}

func (s *S) TestCreateLayoutAndAttributes(c *check.C) {
	f := newTestFile(c, DTypeI32)
	c.Check(f.BinTable().TotalBins(), check.Equals, uint64(14)) // ceil(1000/100)+ceil(400/100)
	format, ok, err := f.Attribute(attrFormat)
	c.Assert(err, check.IsNil)
	c.Assert(ok, check.Equals, true)
	c.Check(format, check.Equals, FormatCooler)
}

func (s *S) TestAppendPixelsAndFetchAll(c *check.C) {
	f := newTestFile(c, DTypeI32)
	px := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 0, Count: 3},
		{Bin1ID: 0, Bin2ID: 5, Count: 1},
		{Bin1ID: 2, Bin2ID: 2, Count: 7},
	}
	c.Assert(AppendPixels(f, px, true), check.IsNil)
	c.Check(f.NNZ(), check.Equals, uint64(3))
	c.Check(f.Sum(), check.Equals, float64(11))
	c.Assert(f.Close(), check.IsNil)

	sel, err := f.Fetch()
	c.Assert(err, check.IsNil)
	out, err := ReadAllPixels[int32](sel)
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 3)
	c.Check(out[0], check.Equals, px[0])
	c.Check(out[2], check.Equals, px[2])
}

func (s *S) TestAppendRejectsUnsortedBatch(c *check.C) {
	f := newTestFile(c, DTypeI32)
	bad := []pixel.ThinPixel[int32]{
		{Bin1ID: 2, Bin2ID: 3, Count: 1},
		{Bin1ID: 1, Bin2ID: 3, Count: 1},
	}
	err := AppendPixels(f, bad, true)
	c.Assert(err, check.NotNil)
}

func (s *S) TestAppendRejectsZeroCount(c *check.C) {
	f := newTestFile(c, DTypeI32)
	bad := []pixel.ThinPixel[int32]{{Bin1ID: 0, Bin2ID: 0, Count: 0}}
	err := AppendPixels(f, bad, true)
	c.Assert(err, check.NotNil)
}

func (s *S) TestCloseFinalizesIndex(c *check.C) {
	f := newTestFile(c, DTypeI32)
	px := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 1, Count: 5},
		{Bin1ID: 1, Bin2ID: 1, Count: 2},
		{Bin1ID: 1, Bin2ID: 3, Count: 9},
	}
	c.Assert(AppendPixels(f, px, true), check.IsNil)
	c.Assert(f.Close(), check.IsNil)
	c.Assert(f.ValidateIndex(), check.IsNil)

	lo, hi, err := f.Index().RowSlice(1)
	c.Assert(err, check.IsNil)
	c.Check(hi-lo, check.Equals, uint64(2))
	c.Check(lo, check.Equals, uint64(1))
}

func (s *S) TestWriteAndReadWeights(c *check.C) {
	f := newTestFile(c, DTypeI32)
	n := f.BinTable().TotalBins()
	values := make([]float64, n)
	for i := range values {
		values[i] = 1.0 / float64(i+1)
	}
	w, err := balance.NewWeights(values, balance.Divisive, n)
	c.Assert(err, check.IsNil)
	c.Assert(f.WriteWeights("weights", w, false), check.IsNil)

	got, err := f.ReadWeights("weights")
	c.Assert(err, check.IsNil)
	c.Check(got.Values, check.DeepEquals, values)
	c.Check(got.Tag, check.Equals, balance.Divisive)
}

func (s *S) TestWriteWeightsShapeMismatch(c *check.C) {
	f := newTestFile(c, DTypeI32)
	w, err := balance.NewWeights([]float64{1, 2, 3}, balance.Divisive, 3)
	c.Assert(err, check.IsNil)
	err = f.WriteWeights("weights", w, false)
	c.Assert(err, check.NotNil)
}

func (s *S) TestWriteWeightsAlreadyExists(c *check.C) {
	f := newTestFile(c, DTypeI32)
	n := f.BinTable().TotalBins()
	values := make([]float64, n)
	w, err := balance.NewWeights(values, balance.Divisive, n)
	c.Assert(err, check.IsNil)
	c.Assert(f.WriteWeights("weights", w, false), check.IsNil)
	err = f.WriteWeights("weights", w, false)
	c.Assert(err, check.NotNil)
	c.Assert(f.WriteWeights("weights", w, true), check.IsNil)
}

func (s *S) TestFetchRectRowByRow(c *check.C) {
	f := newTestFile(c, DTypeI32)
	px := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 0, Count: 1},
		{Bin1ID: 0, Bin2ID: 2, Count: 2},
		{Bin1ID: 1, Bin2ID: 1, Count: 3},
		{Bin1ID: 1, Bin2ID: 2, Count: 4},
	}
	c.Assert(AppendPixels(f, px, true), check.IsNil)
	c.Assert(f.Close(), check.IsNil)

	sel, err := f.FetchRect("chr1:0-200", "chr1:100-300", "")
	c.Assert(err, check.IsNil)
	out, err := ReadAllPixels[int32](sel)
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 3)
	c.Check(out[0], check.Equals, px[1])
	c.Check(out[1], check.Equals, px[2])
	c.Check(out[2], check.Equals, px[3])
}

func (s *S) TestRenameChromosomesInPlace(c *check.C) {
	store := newFakeStore()
	f, err := createStore(store, URI{Path: "mem"}, testRef(c), CreateOptions{BinSize: 100, CountDType: DTypeI32})
	c.Assert(err, check.IsNil)
	c.Assert(f.Close(), check.IsNil)

	c.Assert(renameChromosomesIn(store, map[string]string{"chr1": "1", "chr2": "2"}), check.IsNil)

	ds, err := OpenDataset(store, pathChromsName, DefaultDatasetCacheBytes)
	c.Assert(err, check.IsNil)
	names, err := ds.ReadString(0, ds.Len())
	c.Assert(err, check.IsNil)
	c.Check(names, check.DeepEquals, []string{"1", "2"})
}

func (s *S) TestParseURI(c *check.C) {
	u := ParseURI("foo.mcool::/resolutions/1000")
	c.Check(u.Path, check.Equals, "foo.mcool")
	c.Check(u.Group, check.Equals, "/resolutions/1000")
	c.Check(u.String(), check.Equals, "foo.mcool::/resolutions/1000")

	bare := ParseURI("foo.cool")
	c.Check(bare.Group, check.Equals, "/")
	c.Check(bare.String(), check.Equals, "foo.cool")
}
