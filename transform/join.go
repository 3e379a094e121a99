package transform

import (
	"io"

	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/pixel"
)

// JoinGenomicCoords lifts a ThinPixel stream into resolved Pixels by
// looking bin1_id/bin2_id up in a shared BinTable. Grounded on
// sam.Record's reference-lookup adaptor pattern (reassignReference in
// bam/merger.go).
type JoinGenomicCoords[N pixel.Count] struct {
	src PixelSource[N]
	bt  *genome.BinTable
}

// NewJoinGenomicCoords wraps src, resolving coordinates against bt.
func NewJoinGenomicCoords[N pixel.Count](src PixelSource[N], bt *genome.BinTable) *JoinGenomicCoords[N] {
	return &JoinGenomicCoords[N]{src: src, bt: bt}
}

// Read returns the next joined Pixel.
func (j *JoinGenomicCoords[N]) Read() (pixel.Pixel[N], error) {
	thin, err := j.src.Read()
	if err != nil {
		return pixel.Pixel[N]{}, err
	}
	bin1, err := j.bt.BinAt(thin.Bin1ID)
	if err != nil {
		return pixel.Pixel[N]{}, err
	}
	bin2, err := j.bt.BinAt(thin.Bin2ID)
	if err != nil {
		return pixel.Pixel[N]{}, err
	}
	return pixel.Pixel[N]{
		Coords: pixel.PixelCoordinates{Bin1: bin1, Bin2: bin2},
		Count:  thin.Count,
	}, nil
}

// ReadAll drains the adaptor into a slice.
func (j *JoinGenomicCoords[N]) ReadAll() ([]pixel.Pixel[N], error) {
	var out []pixel.Pixel[N]
	for {
		p, err := j.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}
