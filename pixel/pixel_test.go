package pixel

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/hictkerr"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestLessAndValidate(c *check.C) {
	a := ThinPixel[int32]{Bin1ID: 1, Bin2ID: 2, Count: 5}
	b := ThinPixel[int32]{Bin1ID: 1, Bin2ID: 3, Count: 1}
	c.Check(a.Less(b), check.Equals, true)
	c.Check(a.Validate(10), check.IsNil)

	bad := ThinPixel[int32]{Bin1ID: 5, Bin2ID: 2, Count: 1}
	c.Check(hictkerr.Is(bad.Validate(10), hictkerr.InvalidPixel), check.Equals, true)

	oob := ThinPixel[int32]{Bin1ID: 1, Bin2ID: 20, Count: 1}
	c.Check(hictkerr.Is(oob.Validate(10), hictkerr.InvalidPixel), check.Equals, true)
}

func (s *S) TestConvertCount(c *check.C) {
	p := ThinPixel[float64]{Bin1ID: 0, Bin2ID: 1, Count: 3.0}
	out, err := ConvertCount[float64, int32](p)
	c.Assert(err, check.IsNil)
	c.Check(out.Count, check.Equals, int32(3))

	lossy := ThinPixel[float64]{Bin1ID: 0, Bin2ID: 1, Count: 3.5}
	_, err = ConvertCount[float64, int32](lossy)
	c.Check(hictkerr.Is(err, hictkerr.PrecisionLoss), check.Equals, true)
}
