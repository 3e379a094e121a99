package transform

import (
	"io"
	"sort"

	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/pixel"
)

// CoarsenPixels aggregates fine-bin pixels into a destination BinTable
// whose bin size is the source bin size times an integer factor.
// Destination pixels may arrive out of order because a single destination
// bin1 row can still be receiving contributions from several source
// bin1 rows; CoarsenPixels holds a sliding window of open destination
// rows and releases a row, in ascending bin2 order, only once the source
// has advanced past every source row that could still contribute to it.
// Grounded on bam/merger.go's streaming-reader shape, extended with the
// row-buffer design note §9 calls for.
//
// Peak memory is bounded by (number of open destination rows, at most
// `factor`) times (the widest source row's distinct bin2 count).
type CoarsenPixels[N pixel.Count] struct {
	src    PixelSource[N]
	srcBT  *genome.BinTable
	dstBT  *genome.BinTable
	factor uint32

	srcDone bool
	srcErr  error

	window      []uint64 // open destination bin1 rows, ascending insertion order.
	rows        map[uint64]map[uint64]N
	lastDstBin1 uint64
	haveLast    bool

	ready   []uint64              // destination bin1 rows ready to emit, ascending order.
	pending []pixel.ThinPixel[N] // sorted bin2 entries of the row currently being drained.
}

// NewCoarsenPixels builds a coarsener reading from src (sorted over
// srcBT) into dstBT, where dstBT.BinSize() must equal
// srcBT.BinSize()*factor (boundaries clamped to chromosome ends, exactly
// as genome.BinTable.BinAt already clamps the final bin of a chromosome).
func NewCoarsenPixels[N pixel.Count](src PixelSource[N], srcBT, dstBT *genome.BinTable, factor uint32) (*CoarsenPixels[N], error) {
	if factor < 1 {
		return nil, hictkerr.Wrap(hictkerr.OutOfRange, "transform: coarsening factor must be >= 1")
	}
	if dstBT.BinSize() != srcBT.BinSize()*factor {
		return nil, hictkerr.Wrapf(hictkerr.OutOfRange, "transform: destination bin size %d != source bin size %d * factor %d", dstBT.BinSize(), srcBT.BinSize(), factor)
	}
	return &CoarsenPixels[N]{
		src: src, srcBT: srcBT, dstBT: dstBT, factor: factor,
		rows: make(map[uint64]map[uint64]N),
	}, nil
}

func (c *CoarsenPixels[N]) dstBinID(srcBinID uint64) (uint64, error) {
	srcBin, err := c.srcBT.BinAt(srcBinID)
	if err != nil {
		return 0, err
	}
	return c.dstBT.BinIDAt(srcBin.Chrom, srcBin.Start), nil
}

// Read returns the next destination pixel in ascending (bin1,bin2) order.
func (c *CoarsenPixels[N]) Read() (pixel.ThinPixel[N], error) {
	for {
		if len(c.pending) > 0 {
			out := c.pending[0]
			c.pending = c.pending[1:]
			return out, nil
		}
		if len(c.ready) > 0 {
			dst1 := c.ready[0]
			c.ready = c.ready[1:]
			c.stageRow(dst1)
			continue
		}
		if c.srcDone {
			if len(c.window) == 0 {
				if c.srcErr != io.EOF {
					return pixel.ThinPixel[N]{}, c.srcErr
				}
				return pixel.ThinPixel[N]{}, io.EOF
			}
			// Source exhausted: every remaining open row is final.
			c.ready = append(c.ready, c.window...)
			c.window = nil
			continue
		}
		if err := c.ingestOne(); err != nil {
			return pixel.ThinPixel[N]{}, err
		}
	}
}

// ingestOne reads a single source pixel, files it into its destination
// row, and — if the destination bin1 row changed — moves every
// strictly-older open row into the ready queue.
func (c *CoarsenPixels[N]) ingestOne() error {
	p, err := c.src.Read()
	if err != nil {
		c.srcDone = true
		if err != io.EOF {
			c.srcErr = err
			return err
		}
		return nil
	}
	dst1, err := c.dstBinID(p.Bin1ID)
	if err != nil {
		return err
	}
	dst2, err := c.dstBinID(p.Bin2ID)
	if err != nil {
		return err
	}

	if c.haveLast && dst1 != c.lastDstBin1 {
		c.releaseRowsBefore(dst1)
	}
	c.lastDstBin1, c.haveLast = dst1, true

	row, ok := c.rows[dst1]
	if !ok {
		row = make(map[uint64]N)
		c.rows[dst1] = row
		c.window = append(c.window, dst1)
	}
	row[dst2] += p.Count
	return nil
}

// releaseRowsBefore moves every window row strictly less than dst1 into
// the ready queue, preserving ascending order.
func (c *CoarsenPixels[N]) releaseRowsBefore(dst1 uint64) {
	var remaining []uint64
	for _, row := range c.window {
		if row < dst1 {
			c.ready = append(c.ready, row)
		} else {
			remaining = append(remaining, row)
		}
	}
	c.window = remaining
}

func (c *CoarsenPixels[N]) stageRow(dst1 uint64) {
	row, ok := c.rows[dst1]
	if !ok {
		return
	}
	delete(c.rows, dst1)
	bin2s := make([]uint64, 0, len(row))
	for b2 := range row {
		bin2s = append(bin2s, b2)
	}
	sort.Slice(bin2s, func(i, j int) bool { return bin2s[i] < bin2s[j] })
	c.pending = make([]pixel.ThinPixel[N], 0, len(bin2s))
	for _, b2 := range bin2s {
		c.pending = append(c.pending, pixel.ThinPixel[N]{Bin1ID: dst1, Bin2ID: b2, Count: row[b2]})
	}
}

// ReadAll drains the coarsener into a slice, useful for recursive
// composition (feeding one CoarsenPixels' output into another via
// SliceSource).
func (c *CoarsenPixels[N]) ReadAll() ([]pixel.ThinPixel[N], error) {
	var out []pixel.ThinPixel[N]
	for {
		p, err := c.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}
