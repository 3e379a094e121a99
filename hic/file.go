package hic

import (
	"io"
	"sort"

	"golang.org/x/exp/mmap"

	"github.com/hictk/hictk/balance"
	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/internal/binio"
	"github.com/hictk/hictk/internal/pool"
	"github.com/hictk/hictk/pixel"
	"github.com/hictk/hictk/transform"
)

// File is a read-only handle on one .hic container, bound to a single
// resolution. Random access goes through an io.ReaderAt (mmap in
// production, grounded directly on fai/file.go's mmap.ReaderAt-backed
// File/Seq pattern) so block reads never require a seek+read syscall
// pair nor hold the file lock across concurrent selectors.
type File struct {
	r          io.ReaderAt
	closer     io.Closer
	header     *Header
	ref        *genome.Reference
	bt         *genome.BinTable
	resolution uint32
	caches     *caches
	master     map[FooterKey]*Footer
}

// Open opens path and binds the file to resolution, which must be one of
// the resolutions advertised by the header.
func Open(path string, resolution uint32) (*File, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	f, err := OpenReaderAt(ra, resolution)
	if err != nil {
		ra.Close()
		return nil, err
	}
	f.closer = ra
	return f, nil
}

// OpenReaderAt binds a File to an already-open random-access reader,
// bypassing mmap. Used directly by tests against an in-memory buffer.
func OpenReaderAt(r io.ReaderAt, resolution uint32) (*File, error) {
	headerBytes, err := readAllAt(r, 0)
	if err != nil {
		return nil, err
	}
	header, err := ReadHeader(binio.NewBuffer(headerBytes))
	if err != nil {
		return nil, err
	}
	if !header.HasResolution(resolution) {
		return nil, hictkerr.Wrapf(hictkerr.NotFound, "hic: resolution %d not present", resolution)
	}
	ref, err := genome.NewReference(header.Chromosomes)
	if err != nil {
		return nil, err
	}
	bt, err := genome.NewFixedBinTable(ref, resolution)
	if err != nil {
		return nil, err
	}
	return &File{
		r:          r,
		header:     header,
		ref:        ref,
		bt:         bt,
		resolution: resolution,
		caches:     newCaches(DefaultFooterCacheBytes, DefaultBlockCacheBytes, DefaultNormCacheBytes),
	}, nil
}

// readAllAt reads from off to EOF of a ReaderAt whose total size isn't
// known up front, growing the probe buffer geometrically until ReadAt
// stops returning a full buffer.
func readAllAt(r io.ReaderAt, off int64) ([]byte, error) {
	size := 1 << 20
	for {
		buf := make([]byte, size)
		n, err := r.ReadAt(buf, off)
		if err == io.EOF {
			return buf[:n], nil
		}
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.IoError, err)
		}
		if n < size {
			return buf[:n], nil
		}
		size *= 4
	}
}

// Close releases the underlying reader, if File owns it.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Reference returns the file's chromosome reference.
func (f *File) Reference() *genome.Reference { return f.ref }

// BinTable returns the BinTable at this File's bound resolution.
func (f *File) BinTable() *genome.BinTable { return f.bt }

// Resolution returns the resolution this File is bound to.
func (f *File) Resolution() uint32 { return f.resolution }

// Resolutions returns every resolution available in the underlying file.
func (f *File) Resolutions() []uint32 { return f.header.Resolutions }

// masterIndex lazily reads and parses the master index once, caching the
// (still footer-body-less) entries on f.
func (f *File) masterIndex() (map[FooterKey]*Footer, error) {
	if f.master != nil {
		return f.master, nil
	}
	masterBytes, err := readAllAt(f.r, f.header.MasterIndexOffset)
	if err != nil {
		return nil, err
	}
	index, err := ReadMasterIndex(binio.NewBuffer(masterBytes))
	if err != nil {
		return nil, err
	}
	f.master = index
	return index, nil
}

// footer returns the (possibly cached) footer for the given chromosome
// pair, loading and parsing its body on a cache miss.
func (f *File) footer(chrom1, chrom2 uint32) (*Footer, error) {
	if chrom1 > chrom2 {
		chrom1, chrom2 = chrom2, chrom1
	}
	key := FooterKey{Chrom1: chrom1, Chrom2: chrom2, Unit: UnitBP, Resolution: f.resolution}
	if ft, ok := f.caches.footers.Get(key); ok {
		return ft, nil
	}

	index, err := f.masterIndex()
	if err != nil {
		return nil, err
	}
	ft, ok := index[key]
	if !ok {
		return nil, hictkerr.Wrapf(hictkerr.NotFound, "hic: no matrix for chromosomes %d,%d at resolution %d", chrom1, chrom2, f.resolution)
	}

	bodyBytes := pool.GetBuffer(int(ft.Size))
	defer pool.PutBuffer(bodyBytes)
	if _, err := f.r.ReadAt(bodyBytes, ft.Position); err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	if err := LoadFooterBody(binio.NewBuffer(bodyBytes), ft); err != nil {
		return nil, err
	}
	f.caches.footers.Put(key, ft)
	return ft, nil
}

// block returns the (possibly cached) decoded block blockID from footer.
func (f *File) block(footerKey FooterKey, footer *Footer, blockID int64) (*Block, error) {
	ck := blockCacheKey{footer: footerKey, blockID: blockID}
	if blk, ok := f.caches.blocks.Get(ck); ok {
		return blk, nil
	}
	entry, ok := footer.Blocks[blockID]
	if !ok {
		return &Block{}, nil
	}
	blk, err := ReadBlock(f.r, entry)
	if err != nil {
		return nil, err
	}
	f.caches.blocks.Put(ck, blk)
	return blk, nil
}

// blockIDsOverlapping enumerates the block ids whose bin1 x bin2 window
// can contain a pixel from [r1First,r1Last) x [r2First,r2Last), relative
// to footer's blockBinCount/blockColumnCount grid. colOffset/rowOffset
// are the chromosome-pair-relative origin the writer bucketed against
// (bt.ChromBinOffset of the footer's chrom1/chrom2) — block ids are keyed
// by a chromosome-pair-local column/row, not the genome-wide absolute bin
// id, matching Writer.packChromPair.
func blockIDsOverlapping(footer *Footer, colOffset, rowOffset int64, r1First, r1Last, r2First, r2Last uint64) []int64 {
	bbc := int64(footer.BlockBinCount)
	bcc := int64(footer.BlockColumnCount)
	if bbc <= 0 || bcc <= 0 {
		return nil
	}
	col1 := (int64(r1First) - colOffset) / bbc
	col2 := (int64(r1Last) - 1 - colOffset) / bbc
	row1 := (int64(r2First) - rowOffset) / bbc
	row2 := (int64(r2Last) - 1 - rowOffset) / bbc

	seen := map[int64]struct{}{}
	var ids []int64
	for row := row1; row <= row2; row++ {
		for col := col1; col <= col2; col++ {
			id := row*bcc + col
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FetchRect returns every pixel in [r1First,r1Last) x [r2First,r2Last),
// sorted by (bin1,bin2), merging across every overlapping block via a
// k-way heap merge (transform.PixelMerger). normalization selects a
// balancing weight vector to apply, or "" for raw counts.
func (f *File) FetchRect(r1First, r1Last, r2First, r2Last uint64, normalization string) ([]pixel.ThinPixel[float64], error) {
	b1, err := f.bt.BinAt(r1First)
	if err != nil {
		return nil, err
	}
	b2, err := f.bt.BinAt(r2First)
	if err != nil {
		return nil, err
	}
	footerKey := FooterKey{Chrom1: b1.Chrom.ID, Chrom2: b2.Chrom.ID, Unit: UnitBP, Resolution: f.resolution}
	swapped := false
	if footerKey.Chrom1 > footerKey.Chrom2 {
		footerKey.Chrom1, footerKey.Chrom2 = footerKey.Chrom2, footerKey.Chrom1
		swapped = true
	}
	footer, err := f.footer(footerKey.Chrom1, footerKey.Chrom2)
	if err != nil {
		return nil, err
	}

	qr1First, qr1Last, qr2First, qr2Last := r1First, r1Last, r2First, r2Last
	if swapped {
		qr1First, qr1Last, qr2First, qr2Last = r2First, r2Last, r1First, r1Last
	}

	// Block ids are bucketed chromosome-pair-relative by the writer
	// (Writer.packChromPair), so overlap must be computed in the same
	// coordinate frame rather than against the genome-wide absolute bin.
	colOffset := int64(f.bt.ChromBinOffset(footerKey.Chrom1))
	rowOffset := int64(f.bt.ChromBinOffset(footerKey.Chrom2))

	ids := blockIDsOverlapping(footer, colOffset, rowOffset, qr1First, qr1Last, qr2First, qr2Last)
	sources := make([]transform.PixelSource[float64], 0, len(ids))
	tables := make([]*genome.BinTable, 0, len(ids))
	for _, id := range ids {
		blk, err := f.block(footerKey, footer, id)
		if err != nil {
			return nil, err
		}
		filtered := filterRect(blk.Pixels, qr1First, qr1Last, qr2First, qr2Last)
		if swapped {
			filtered = swapPixels(filtered)
		}
		sort.Slice(filtered, func(i, j int) bool { return filtered[i].Less(filtered[j]) })
		sources = append(sources, transform.NewSliceSource(filtered))
		tables = append(tables, f.bt)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	merger, err := transform.NewPixelMerger(tables, sources)
	if err != nil {
		return nil, err
	}
	pixels, err := merger.ReadAll()
	if err != nil {
		return nil, err
	}
	if normalization == "" {
		return pixels, nil
	}
	weights, err := f.ReadWeights(footerKey.Chrom1, footerKey.Chrom2, normalization)
	if err != nil {
		return nil, err
	}
	for i, p := range pixels {
		pixels[i] = weights.Apply(p)
	}
	return pixels, nil
}

func filterRect(pixels []pixel.ThinPixel[float64], r1First, r1Last, r2First, r2Last uint64) []pixel.ThinPixel[float64] {
	out := make([]pixel.ThinPixel[float64], 0, len(pixels))
	for _, p := range pixels {
		if p.Bin1ID >= r1First && p.Bin1ID < r1Last && p.Bin2ID >= r2First && p.Bin2ID < r2Last {
			out = append(out, p)
			continue
		}
		if p.Bin2ID >= r1First && p.Bin2ID < r1Last && p.Bin1ID >= r2First && p.Bin1ID < r2Last {
			out = append(out, pixel.ThinPixel[float64]{Bin1ID: p.Bin2ID, Bin2ID: p.Bin1ID, Count: p.Count})
		}
	}
	return out
}

func swapPixels(pixels []pixel.ThinPixel[float64]) []pixel.ThinPixel[float64] {
	out := make([]pixel.ThinPixel[float64], len(pixels))
	for i, p := range pixels {
		out[i] = pixel.ThinPixel[float64]{Bin1ID: p.Bin2ID, Bin2ID: p.Bin1ID, Count: p.Count}
	}
	return out
}

// FetchRange returns every pixel within a single genomic range, i.e.
// FetchRect(range, range, normalization).
func (f *File) FetchRange(rangeStr, normalization string) ([]pixel.ThinPixel[float64], error) {
	ref := f.Reference()
	iv, err := genome.ParseUCSC(ref, rangeStr)
	if err != nil {
		return nil, err
	}
	first, last, err := f.bt.FindOverlap(iv)
	if err != nil {
		return nil, err
	}
	return f.FetchRect(first, last, first, last, normalization)
}

// readFloatVector reads a contiguous little-endian float64 vector from
// [pos,pos+size), the on-disk layout a normalization/expected vector is
// stored in.
func readFloatVector(r io.ReaderAt, pos, size int64) ([]float64, error) {
	raw := pool.GetBuffer(int(size))
	defer pool.PutBuffer(raw)
	if _, err := r.ReadAt(raw, pos); err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	buf := binio.NewBuffer(raw)
	out := make([]float64, size/8)
	for i := range out {
		v, err := buf.ReadF64()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		out[i] = v
	}
	return out, nil
}

// normVectorFor returns the (possibly cached) raw balancing vector for
// chrom at normalization name, loading it from [pos,pos+size) on a cache
// miss.
func (f *File) normVectorFor(chrom uint32, name string, pos, size int64) (normVector, error) {
	key := normCacheKey{chrom: chrom, unit: UnitBP, res: f.resolution, name: name}
	if v, ok := f.caches.norms.Get(key); ok {
		return v, nil
	}
	values, err := readFloatVector(f.r, pos, size)
	if err != nil {
		return normVector{}, err
	}
	v := normVector{Values: values}
	f.caches.norms.Put(key, v)
	return v, nil
}

// ReadWeights returns the balancing weights for normalization name over
// the (chrom1,chrom2) footer, per spec.md §4.5's weight/normalization
// cache ("stores expected and normalization vectors per
// (chrom,normalization); entries produce a Weights object on demand").
// The footer stores each involved chromosome's vector chromosome-locally
// (NormChrom1/NormChrom2); ReadWeights resolves them into one
// genome-wide Weights vector sized to match balance.Weights' BinTable
// invariant, leaving every bin outside chrom1/chrom2 at the
// multiplicative identity — a query bound to this footer never touches
// any other bin.
func (f *File) ReadWeights(chrom1, chrom2 uint32, name string) (*balance.Weights, error) {
	if chrom1 > chrom2 {
		chrom1, chrom2 = chrom2, chrom1
	}
	footer, err := f.footer(chrom1, chrom2)
	if err != nil {
		return nil, err
	}
	loc, ok := footer.NormVectorOffsets[name]
	if !ok {
		return nil, hictkerr.Wrapf(hictkerr.NotFound, "hic: no %q normalization for chromosomes %d,%d", name, chrom1, chrom2)
	}

	values := make([]float64, f.bt.TotalBins())
	for i := range values {
		values[i] = 1
	}

	c1, err := f.normVectorFor(chrom1, name, loc.NormChrom1Pos, loc.NormChrom1Size)
	if err != nil {
		return nil, err
	}
	off1 := f.bt.ChromBinOffset(chrom1)
	copy(values[off1:off1+uint64(len(c1.Values))], c1.Values)

	if chrom2 != chrom1 {
		c2, err := f.normVectorFor(chrom2, name, loc.NormChrom2Pos, loc.NormChrom2Size)
		if err != nil {
			return nil, err
		}
		off2 := f.bt.ChromBinOffset(chrom2)
		copy(values[off2:off2+uint64(len(c2.Values))], c2.Values)
	}

	tag, err := balance.InferWeightTag(name)
	if err != nil {
		return nil, err
	}
	return balance.NewWeights(values, tag, f.bt.TotalBins())
}
