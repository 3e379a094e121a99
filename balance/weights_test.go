package balance

import (
	"math"
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/pixel"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestShapeMismatch(c *check.C) {
	_, err := NewWeights([]float64{1, 2, 3}, Divisive, 4)
	c.Check(hictkerr.Is(err, hictkerr.ShapeMismatch), check.Equals, true)
}

func (s *S) TestApplyAndInvert(c *check.C) {
	w, err := NewWeights([]float64{2, 4, 0.5}, Multiplicative, 3)
	c.Assert(err, check.IsNil)

	raw := pixel.ThinPixel[float64]{Bin1ID: 0, Bin2ID: 1, Count: 10}
	balanced := w.Apply(raw)
	c.Check(balanced.Count, check.Equals, 10*2.0*4.0)

	inv := w.Invert()
	c.Check(inv.Tag, check.Equals, Divisive)
	restored := inv.Apply(balanced)
	c.Check(math.Abs(restored.Count-raw.Count) < 1e-9, check.Equals, true)
}

func (s *S) TestInferWeightTag(c *check.C) {
	tag, err := InferWeightTag("KR")
	c.Assert(err, check.IsNil)
	c.Check(tag, check.Equals, Divisive)

	tag, err = InferWeightTag("INTER_SCALE")
	c.Assert(err, check.IsNil)
	c.Check(tag, check.Equals, Divisive)

	_, err = InferWeightTag("bogus")
	c.Check(hictkerr.Is(err, hictkerr.UnknownWeightType), check.Equals, true)
}
