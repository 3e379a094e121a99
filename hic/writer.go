package hic

import (
	"context"
	"encoding/gob"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	kzlib "github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/internal/binio"
	"github.com/hictk/hictk/internal/tmpdir"
	"github.com/hictk/hictk/pixel"
)

// DefaultBlockBinCount is the default block grid edge length, in bins.
const DefaultBlockBinCount = 1000

// DefaultCompressionLevel matches the real format's writer default; it is
// clamped to klauspost/compress/zlib's accepted range (1-9) since the
// wire format does not record the level used to produce a block.
const DefaultCompressionLevel = 9

// WriterOptions configures a Writer.
type WriterOptions struct {
	Resolution       uint32
	BlockBinCount    int32
	CompressionLevel int
	Concurrency      int // default: GOMAXPROCS
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.BlockBinCount == 0 {
		o.BlockBinCount = DefaultBlockBinCount
	}
	if o.CompressionLevel == 0 {
		o.CompressionLevel = DefaultCompressionLevel
	}
	if o.Concurrency == 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	return o
}

type spillHandle struct {
	enc    *gob.Encoder
	closer io.Closer
}

// Writer builds a new .hic file one chromosome pair at a time. Each
// pair's pixels are spooled to a scoped spill file (internal/tmpdir,
// grounded on original_source's tmpdir.hpp) and block-packed/compressed
// concurrently at Finalize, bounded by a semaphore-gated worker pool
// (golang.org/x/sync/errgroup + semaphore), mirroring the teacher's
// concurrent-but-bounded processing shape.
type Writer struct {
	dir    *tmpdir.Dir
	ref    *genome.Reference
	opts   WriterOptions
	spills map[FooterKey]string
	open   map[FooterKey]*spillHandle
}

// NewWriter creates a Writer for ref at the given options, using base as
// the parent directory for spill files (os.TempDir() when empty).
func NewWriter(base string, ref *genome.Reference, opts WriterOptions) (*Writer, error) {
	dir, err := tmpdir.New(base, "hictk-hic-")
	if err != nil {
		return nil, err
	}
	return &Writer{
		dir:    dir,
		ref:    ref,
		opts:   opts.withDefaults(),
		spills: map[FooterKey]string{},
		open:   map[FooterKey]*spillHandle{},
	}, nil
}

// Close releases the writer's scoped spill directory.
func (w *Writer) Close() error { return w.dir.Close() }

type thinRecord struct {
	Bin1, Bin2 uint64
	Count      float64
}

// AddPixels appends pixels for the (chrom1,chrom2) pair, which must
// already be sorted by (bin1,bin2) within this call and must not precede
// any batch previously added for the same pair — the same append
// contract Cooler's AppendPixels enforces.
func AddPixels[N pixel.Count](w *Writer, chrom1, chrom2 uint32, pixels []pixel.ThinPixel[N]) error {
	if chrom1 > chrom2 {
		chrom1, chrom2 = chrom2, chrom1
	}
	for i := 1; i < len(pixels); i++ {
		if pixels[i].Less(pixels[i-1]) {
			return hictkerr.Wrap(hictkerr.MalformedQuery, "hic: AddPixels batch not sorted")
		}
	}
	key := FooterKey{Chrom1: chrom1, Chrom2: chrom2, Unit: UnitBP, Resolution: w.opts.Resolution}
	h, ok := w.open[key]
	if !ok {
		name := footerKeyString(key) + ".spill"
		wc, err := w.dir.SpillWriter(name, true)
		if err != nil {
			return err
		}
		h = &spillHandle{enc: gob.NewEncoder(wc), closer: wc}
		w.open[key] = h
		w.spills[key] = name
	}
	for _, p := range pixels {
		rec := thinRecord{Bin1: p.Bin1ID, Bin2: p.Bin2ID, Count: float64(p.Count)}
		if err := h.enc.Encode(rec); err != nil {
			return hictkerr.WithCause(hictkerr.IoError, err)
		}
	}
	return nil
}

// Finalize packs every chromosome pair's spilled pixels into blocks,
// compresses them concurrently, and writes the complete .hic file to
// path, replacing any existing file atomically via rename.
func (w *Writer) Finalize(path string, header *Header) error {
	for _, h := range w.open {
		if err := h.closer.Close(); err != nil {
			return hictkerr.WithCause(hictkerr.IoError, err)
		}
	}

	keys := make([]FooterKey, 0, len(w.spills))
	for key := range w.spills {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Chrom1 != keys[j].Chrom1 {
			return keys[i].Chrom1 < keys[j].Chrom1
		}
		return keys[i].Chrom2 < keys[j].Chrom2
	})

	footers := make(map[FooterKey]*Footer, len(keys))
	bodies := make(map[FooterKey][]byte, len(keys))
	var mu sync.Mutex

	sem := semaphore.NewWeighted(int64(w.opts.Concurrency))
	g, ctx := errgroup.WithContext(context.Background())
	for _, key := range keys {
		key := key
		if err := sem.Acquire(ctx, 1); err != nil {
			return hictkerr.WithCause(hictkerr.IoError, err)
		}
		g.Go(func() error {
			defer sem.Release(1)
			ft, body, err := w.packChromPair(key)
			if err != nil {
				return err
			}
			mu.Lock()
			footers[key] = ft
			bodies[key] = body
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return w.serialize(path, header, keys, footers, bodies)
}

// packChromPair reads back a chromosome pair's spilled pixels, buckets
// them into blocks on the blockBinCount grid, and compresses each block.
func (w *Writer) packChromPair(key FooterKey) (*Footer, []byte, error) {
	r, err := w.dir.SpillReader(w.spills[key], true)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	bt, err := genome.NewFixedBinTable(w.ref, w.opts.Resolution)
	if err != nil {
		return nil, nil, err
	}
	chrom1, err := w.ref.At(key.Chrom1)
	if err != nil {
		return nil, nil, err
	}
	chrom2, err := w.ref.At(key.Chrom2)
	if err != nil {
		return nil, nil, err
	}
	bbc := int64(w.opts.BlockBinCount)
	colOffset := int64(bt.ChromBinOffset(chrom1.ID))
	rowOffset := int64(bt.ChromBinOffset(chrom2.ID))
	numBinCols := int64(bt.NumBins(chrom1.ID))
	blockColumnCount := (numBinCols + bbc - 1) / bbc
	if blockColumnCount == 0 {
		blockColumnCount = 1
	}

	buckets := map[int64][]pixel.ThinPixel[float64]{}
	var sum float64
	dec := gob.NewDecoder(r)
	for {
		var rec thinRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, hictkerr.WithCause(hictkerr.IoError, err)
		}
		sum += rec.Count
		localCol := (int64(rec.Bin1) - colOffset) / bbc
		localRow := (int64(rec.Bin2) - rowOffset) / bbc
		id := localRow*blockColumnCount + localCol
		buckets[id] = append(buckets[id], pixel.ThinPixel[float64]{Bin1ID: rec.Bin1, Bin2ID: rec.Bin2, Count: rec.Count})
	}

	blockIDs := make([]int64, 0, len(buckets))
	for id := range buckets {
		blockIDs = append(blockIDs, id)
	}
	sort.Slice(blockIDs, func(i, j int) bool { return blockIDs[i] < blockIDs[j] })

	level := w.opts.CompressionLevel
	buf := binio.NewWriteBuffer()
	blockEntries := make(map[int64]blockIndexEntry, len(blockIDs))
	for _, id := range blockIDs {
		col := id % blockColumnCount
		row := id / blockColumnCount
		binXOffset := colOffset + col*bbc
		binYOffset := rowOffset + row*bbc
		compressed, err := WriteBlock(buckets[id], binXOffset, binYOffset, func(dst io.Writer) ZlibWriteCloser {
			zw, _ := kzlib.NewWriterLevel(dst, level)
			return zw
		})
		if err != nil {
			return nil, nil, err
		}
		blockEntries[id] = blockIndexEntry{Position: int64(len(buf.Bytes())), Size: int32(len(compressed))}
		buf.WriteBytes(compressed)
	}

	ft := &Footer{
		Key:              key,
		BlockBinCount:    int32(bbc),
		BlockColumnCount: int32(blockColumnCount),
		Sum:              sum,
		Blocks:           blockEntries,
	}
	return ft, buf.Bytes(), nil
}

// serialize writes the header, then each chromosome pair's footer body
// immediately followed by its block bytes, then the master index,
// patches the header's master index offset, and atomically renames the
// result into place.
func (w *Writer) serialize(path string, header *Header, keys []FooterKey, footers map[FooterKey]*Footer, bodies map[FooterKey][]byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	defer os.Remove(tmp)

	headerBuf := binio.NewWriteBuffer()
	WriteHeader(headerBuf, header)
	if _, err := f.Write(headerBuf.Bytes()); err != nil {
		f.Close()
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	offset := int64(len(headerBuf.Bytes()))

	for _, key := range keys {
		ft := footers[key]
		body := bodies[key]

		// Block positions must be absolute file offsets in the serialized
		// footer body, but that body's own size (and thus where the block
		// bytes start) is fixed once block count is known — every field is
		// fixed-width and no normalization vectors are written yet — so the
		// block base can be computed before WriteFooterBody runs.
		footerSize := int64(24 + len(ft.Blocks)*20)
		blockBase := offset + footerSize
		for id, entry := range ft.Blocks {
			entry.Position += blockBase
			ft.Blocks[id] = entry
		}

		bodyBuf := binio.NewWriteBuffer()
		WriteFooterBody(bodyBuf, ft)
		ft.Position = offset
		ft.Size = int64(len(bodyBuf.Bytes()))
		if ft.Size != footerSize {
			return hictkerr.Wrap(hictkerr.FormatError, "hic: footer size mismatch while serializing")
		}

		if _, err := f.Write(bodyBuf.Bytes()); err != nil {
			f.Close()
			return hictkerr.WithCause(hictkerr.IoError, err)
		}
		offset += ft.Size

		if _, err := f.Write(body); err != nil {
			f.Close()
			return hictkerr.WithCause(hictkerr.IoError, err)
		}
		offset += int64(len(body))
	}

	masterOffset := offset
	masterBuf := binio.NewWriteBuffer()
	WriteMasterIndex(masterBuf, footers)
	if _, err := f.Write(masterBuf.Bytes()); err != nil {
		f.Close()
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	if err := f.Close(); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}

	header.MasterIndexOffset = masterOffset
	if err := patchMasterOffset(tmp, header); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// patchMasterOffset rewrites the header's master-index-offset field in
// place, since its value is only known after every footer and block has
// been serialized.
func patchMasterOffset(path string, header *Header) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	defer f.Close()

	patched := binio.NewWriteBuffer()
	WriteHeader(patched, header)
	offsetFieldStart := int64(len(Magic) + 1 + 4) // magic + nul byte + version
	if _, err := f.WriteAt(patched.Bytes()[offsetFieldStart:offsetFieldStart+8], offsetFieldStart); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	return nil
}
