package hic

import (
	"bytes"
	"compress/zlib"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/check.v1"

	"github.com/hictk/hictk/balance"
	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/internal/binio"
	"github.com/hictk/hictk/pixel"
)

func testBinTable(c *check.C, ref *genome.Reference) *genome.BinTable {
	bt, err := genome.NewFixedBinTable(ref, 100)
	c.Assert(err, check.IsNil)
	return bt
}

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

func (s *S) TestHeaderRoundTrip(c *check.C) {
	ref := testRef(c)
	h := &Header{
		Version:           VersionMax,
		MasterIndexOffset: 1234,
		GenomeID:          "test-genome",
		Attributes:        map[string]string{"software": "hictk"},
		Chromosomes:       ref.Chromosomes(),
		Resolutions:       []uint32{100, 1000},
	}
	buf := binio.NewWriteBuffer()
	WriteHeader(buf, h)

	got, err := ReadHeader(binio.NewBuffer(buf.Bytes()))
	c.Assert(err, check.IsNil)
	c.Check(got.Version, check.Equals, h.Version)
	c.Check(got.MasterIndexOffset, check.Equals, h.MasterIndexOffset)
	c.Check(got.GenomeID, check.Equals, h.GenomeID)
	c.Check(got.Attributes, check.DeepEquals, h.Attributes)
	c.Check(len(got.Chromosomes), check.Equals, 2)
	c.Check(got.Chromosomes[0].Name, check.Equals, "chr1")
	c.Check(got.HasResolution(100), check.Equals, true)
	c.Check(got.HasResolution(50), check.Equals, false)
}

func (s *S) TestMasterIndexRoundTrip(c *check.C) {
	footers := map[FooterKey]*Footer{
		{Chrom1: 0, Chrom2: 0, Unit: UnitBP, Resolution: 100}: {Position: 10, Size: 20},
		{Chrom1: 0, Chrom2: 1, Unit: UnitBP, Resolution: 100}: {Position: 30, Size: 40},
	}
	buf := binio.NewWriteBuffer()
	WriteMasterIndex(buf, footers)

	got, err := ReadMasterIndex(binio.NewBuffer(buf.Bytes()))
	c.Assert(err, check.IsNil)
	c.Assert(got, check.HasLen, 2)
	c.Check(got[FooterKey{Chrom1: 0, Chrom2: 1, Unit: UnitBP, Resolution: 100}].Position, check.Equals, int64(30))
}

func (s *S) TestFooterBodyRoundTrip(c *check.C) {
	f := &Footer{
		BlockBinCount:    1000,
		BlockColumnCount: 2,
		Sum:              42.5,
		Blocks: map[int64]blockIndexEntry{
			0: {Position: 100, Size: 10},
			1: {Position: 110, Size: 20},
		},
		NormVectorOffsets: map[string]normVectorLocation{},
	}
	buf := binio.NewWriteBuffer()
	WriteFooterBody(buf, f)

	got := &Footer{}
	c.Assert(LoadFooterBody(binio.NewBuffer(buf.Bytes()), got), check.IsNil)
	c.Check(got.BlockBinCount, check.Equals, f.BlockBinCount)
	c.Check(got.BlockColumnCount, check.Equals, f.BlockColumnCount)
	c.Check(got.Sum, check.Equals, f.Sum)
	c.Check(got.Blocks, check.DeepEquals, f.Blocks)
}

func (s *S) TestWriteBlockDecodesBackSparse(c *check.C) {
	pixels := []pixel.ThinPixel[float64]{
		{Bin1ID: 10, Bin2ID: 10, Count: 1},
		{Bin1ID: 10, Bin2ID: 12, Count: 2},
		{Bin1ID: 11, Bin2ID: 15, Count: 3},
	}
	compressed, err := WriteBlock(pixels, 10, 10, func(w io.Writer) ZlibWriteCloser {
		return zlib.NewWriter(w)
	})
	c.Assert(err, check.IsNil)

	backing := bytes.NewReader(compressed)
	blk, err := ReadBlock(backing, blockIndexEntry{Position: 0, Size: int32(len(compressed))})
	c.Assert(err, check.IsNil)
	blk.SortPixels()
	c.Assert(blk.Pixels, check.HasLen, 3)
	c.Check(blk.Pixels[0], check.Equals, pixels[0])
	c.Check(blk.Pixels[1], check.Equals, pixels[1])
	c.Check(blk.Pixels[2], check.Equals, pixels[2])
}

func (s *S) TestDecodeDenseGrid(c *check.C) {
	buf := binio.NewWriteBuffer()
	buf.WriteI32(0) // nRecords, unused for dense
	buf.WriteI32(5) // binXOffset
	buf.WriteI32(5) // binYOffset
	buf.WriteU8(0)  // useFloat=false, int16 cells
	buf.WriteI16(int16(encodingDenseGrid))
	buf.WriteI32(2) // width
	buf.WriteI32(2) // height
	buf.WriteI16(7)
	buf.WriteI16(-32768) // no contact
	buf.WriteI16(-32768)
	buf.WriteI16(9)

	blk, err := decodeBlock(binio.NewBuffer(buf.Bytes()))
	c.Assert(err, check.IsNil)
	c.Assert(blk.Pixels, check.HasLen, 2)
}

func (s *S) TestWriterRoundTrip(c *check.C) {
	ref := testRef(c)
	dir := c.MkDir()
	w, err := NewWriter(dir, ref, WriterOptions{Resolution: 100, BlockBinCount: 4})
	c.Assert(err, check.IsNil)
	defer w.Close()

	px := []pixel.ThinPixel[int32]{
		{Bin1ID: 0, Bin2ID: 0, Count: 3},
		{Bin1ID: 0, Bin2ID: 1, Count: 1},
		{Bin1ID: 2, Bin2ID: 9, Count: 7},
	}
	c.Assert(AddPixels(w, 0, 0, px), check.IsNil)

	header := &Header{
		Version:     VersionMax,
		GenomeID:    "test",
		Attributes:  map[string]string{},
		Chromosomes: ref.Chromosomes(),
		Resolutions: []uint32{100},
	}
	path := filepath.Join(dir, "out.hic")
	c.Assert(w.Finalize(path, header), check.IsNil)

	info, err := os.Stat(path)
	c.Assert(err, check.IsNil)
	c.Check(info.Size() > 0, check.Equals, true)

	f, err := Open(path, 100)
	c.Assert(err, check.IsNil)
	defer f.Close()

	out, err := f.FetchRect(0, 3, 0, 10, "")
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 3)
	total := 0.0
	for _, p := range out {
		total += p.Count
	}
	c.Check(total, check.Equals, float64(11))
}

// A chromosome pair whose first chromosome isn't the genome's first
// exercises the block-grid offset: the writer buckets blocks relative
// to each chromosome's own bin offset, and the reader must subtract the
// same offset back out before looking a block id up in the footer's
// directory.
func (s *S) TestWriterRoundTripNonFirstChromosome(c *check.C) {
	ref := testRef(c)
	dir := c.MkDir()
	w, err := NewWriter(dir, ref, WriterOptions{Resolution: 100, BlockBinCount: 4})
	c.Assert(err, check.IsNil)
	defer w.Close()

	// chr1 spans bins 0-9 at this resolution, so chr2's own bins start
	// at the genome-wide offset 10.
	px := []pixel.ThinPixel[int32]{
		{Bin1ID: 10, Bin2ID: 10, Count: 5},
		{Bin1ID: 10, Bin2ID: 11, Count: 2},
	}
	c.Assert(AddPixels(w, 1, 1, px), check.IsNil)

	header := &Header{
		Version:     VersionMax,
		GenomeID:    "test",
		Attributes:  map[string]string{},
		Chromosomes: ref.Chromosomes(),
		Resolutions: []uint32{100},
	}
	path := filepath.Join(dir, "out2.hic")
	c.Assert(w.Finalize(path, header), check.IsNil)

	f, err := Open(path, 100)
	c.Assert(err, check.IsNil)
	defer f.Close()

	out, err := f.FetchRect(10, 14, 10, 14, "")
	c.Assert(err, check.IsNil)
	c.Assert(out, check.HasLen, 2)
	total := 0.0
	for _, p := range out {
		total += p.Count
	}
	c.Check(total, check.Equals, float64(7))
}

// ReadWeights resolves a footer's per-chromosome normalization vectors
// into one genome-wide balance.Weights, scattering each chromosome's
// local vector at its own bin offset and leaving every other bin at the
// multiplicative identity.
func (s *S) TestReadWeightsScattersPerChromosomeVectors(c *check.C) {
	ref := testRef(c)
	bt := testBinTable(c, ref)

	// chr1 has 10 bins (0-9), chr2 has 4 bins (10-13) at resolution 100.
	chr1Vec := []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}
	chr2Vec := []float64{4, 4, 4, 4}

	buf := binio.NewWriteBuffer()
	for _, v := range chr1Vec {
		buf.WriteF64(v)
	}
	chr1Pos, chr1Size := int64(0), int64(len(chr1Vec)*8)
	for _, v := range chr2Vec {
		buf.WriteF64(v)
	}
	chr2Pos, chr2Size := chr1Size, int64(len(chr2Vec)*8)

	backing := bytes.NewReader(buf.Bytes())

	f := &File{
		r:          backing,
		ref:        ref,
		bt:         bt,
		resolution: 100,
		caches:     newCaches(DefaultFooterCacheBytes, DefaultBlockCacheBytes, DefaultNormCacheBytes),
	}

	key := FooterKey{Chrom1: 0, Chrom2: 1, Unit: UnitBP, Resolution: 100}
	f.caches.footers.Put(key, &Footer{
		NormVectorOffsets: map[string]normVectorLocation{
			"weights": {
				NormChrom1Pos:  chr1Pos,
				NormChrom1Size: chr1Size,
				NormChrom2Pos:  chr2Pos,
				NormChrom2Size: chr2Size,
			},
		},
	})

	weights, err := f.ReadWeights(0, 1, "weights")
	c.Assert(err, check.IsNil)
	c.Check(weights.Tag, check.Equals, balance.Divisive)

	// Divisive: Apply divides the raw count by w[i]*w[j].
	p := weights.Apply(pixel.ThinPixel[float64]{Bin1ID: 0, Bin2ID: 1, Count: 16})
	c.Check(p.Count, check.Equals, float64(4)) // 16 / (2*2)

	p2 := weights.Apply(pixel.ThinPixel[float64]{Bin1ID: 0, Bin2ID: 10, Count: 32})
	c.Check(p2.Count, check.Equals, float64(4)) // 32 / (2*4)

	// Reading the same vector again must hit the norm cache, not re-read
	// the backing buffer at stale offsets.
	weights2, err := f.ReadWeights(0, 1, "weights")
	c.Assert(err, check.IsNil)
	c.Check(weights2.Values[0], check.Equals, weights.Values[0])
}
