package pixel

import (
	"math"

	"github.com/hictk/hictk/hictkerr"
)

// ConvertCount converts a ThinPixel's count from N to M, returning
// hictkerr.PrecisionLoss if an integer destination type cannot represent
// the source value exactly (e.g. truncating a fractional float, or
// overflowing a narrower integer).
func ConvertCount[N, M Count](p ThinPixel[N]) (ThinPixel[M], error) {
	srcF := float64(p.Count)
	dst := M(srcF)
	dstF := float64(dst)
	if dstF != srcF && !(math.IsNaN(srcF) && math.IsNaN(dstF)) {
		return ThinPixel[M]{}, hictkerr.Wrapf(hictkerr.PrecisionLoss, "pixel: lossy count conversion %v -> %v", p.Count, dst)
	}
	return ThinPixel[M]{Bin1ID: p.Bin1ID, Bin2ID: p.Bin2ID, Count: dst}, nil
}
