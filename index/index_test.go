package index

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/pixel"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

type fakeProbe struct {
	bin1, bin2 []uint64
}

func (f fakeProbe) Bin1AndBin2(i uint64) (uint64, uint64, error) {
	return f.bin1[i], f.bin2[i], nil
}

func (s *S) TestValidateHappyPath(c *check.C) {
	// 3 bins, rows: bin1=0 -> bin2 {0,2}; bin1=1 -> bin2 {1}; bin1=2 -> none.
	idx := New(3, []uint64{0, 3})
	idx.Bin1Offset = []uint64{0, 2, 3, 3}
	probe := fakeProbe{bin1: []uint64{0, 0, 1}, bin2: []uint64{0, 2, 1}}
	c.Check(idx.Validate(probe, 3), check.IsNil)
}

func (s *S) TestValidateBadNNZ(c *check.C) {
	idx := New(2, []uint64{0, 2})
	idx.Bin1Offset = []uint64{0, 1, 1}
	probe := fakeProbe{bin1: []uint64{0}, bin2: []uint64{0}}
	err := idx.Validate(probe, 5)
	c.Check(hictkerr.Is(err, hictkerr.IndexCorrupt), check.Equals, true)
}

func (s *S) TestRowAndChromSlice(c *check.C) {
	idx := New(4, []uint64{0, 2, 4})
	idx.Bin1Offset = []uint64{0, 1, 3, 3, 5}
	start, end, err := idx.RowSlice(1)
	c.Assert(err, check.IsNil)
	c.Check(start, check.Equals, uint64(1))
	c.Check(end, check.Equals, uint64(3))

	start, end, err = idx.ChromSlice(1)
	c.Assert(err, check.IsNil)
	c.Check(start, check.Equals, uint64(3))
	c.Check(end, check.Equals, uint64(5))
	c.Check(idx.NNZ(), check.Equals, uint64(5))
}

func (s *S) TestValidateSorted(c *check.C) {
	ok := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 1, Count: 1},
		{Bin1ID: 0, Bin2ID: 2, Count: 1},
		{Bin1ID: 1, Bin2ID: 1, Count: 1},
	}
	c.Check(ValidateSorted(ok), check.IsNil)

	bad := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 2, Count: 1},
		{Bin1ID: 0, Bin2ID: 1, Count: 1},
	}
	c.Check(ValidateSorted(bad), check.NotNil)
}
