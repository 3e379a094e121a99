package cooler

import (
	"sort"

	"github.com/hictk/hictk/balance"
	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/index"
	"github.com/hictk/hictk/pixel"
)

// Mandatory group/dataset layout paths (spec.md §4.4/§6).
const (
	pathChromsName   = "chroms/name"
	pathChromsLength = "chroms/length"
	pathBinsChrom    = "bins/chrom"
	pathBinsStart    = "bins/start"
	pathBinsEnd      = "bins/end"
	pathPixelsBin1   = "pixels/bin1_id"
	pathPixelsBin2   = "pixels/bin2_id"
	pathPixelsCount  = "pixels/count"
	pathIdxBin1Off   = "indexes/bin1_offset"
	pathIdxChromOff  = "indexes/chrom_offset"
)

// Root attribute names.
const (
	attrFormat        = "format"
	attrFormatVersion = "format-version"
	attrBinSize       = "bin-size"
	attrNBins         = "nbins"
	attrNChroms       = "nchroms"
	attrNNZ           = "nnz"
	attrStorageMode   = "storage-mode"
	attrSum           = "sum"
	attrCis           = "cis"
)

// Format sentinel values for the root "format" attribute.
const (
	FormatCooler = "HDF5::Cooler"
	FormatMCool  = "HDF5::MCOOL"
	FormatSCool  = "HDF5::SCOOL"

	StorageModeSymmetricUpper = "symmetric-upper"
	FormatVersion             = "3"
)

// File is an open Cooler container rooted at a single HDF5 group. It
// owns the shared BinTable and Index and exposes the selector, append,
// and weights-group protocols of spec.md §4.4.
type File struct {
	store ColumnStore
	uri   URI

	bt  *genome.BinTable
	idx *index.Index

	chromsName, chromsLength       *Dataset
	binsChrom, binsStart, binsEnd  *Dataset
	pxBin1, pxBin2, pxCount        *Dataset
	idxBin1Offset, idxChromOffset  *Dataset
	countDType                     DType

	nnz uint64
	sum float64
	cis float64

	// lastAppended tracks append ordering within this open session only;
	// it starts unset after OpenForAppend, so new pixels are not checked
	// against pixels already on disk.
	lastAppended   pixel.ThinPixel[float64]
	haveAppended   bool
	writable       bool
	finalizedOnce  bool
}

// Open opens an existing Cooler file read-only at the root group (or the
// group named by uri.Group for .mcool/.scool containers).
func Open(uri URI) (*File, error) {
	store, err := openHDF5Store(uri.Path, uri.Group, false)
	if err != nil {
		return nil, err
	}
	return openFile(store, uri, false)
}

// OpenForAppend opens an existing Cooler file for appending pixels.
func OpenForAppend(uri URI) (*File, error) {
	store, err := openHDF5Store(uri.Path, uri.Group, true)
	if err != nil {
		return nil, err
	}
	return openFile(store, uri, true)
}

// openStore wraps an already-opened ColumnStore (e.g. a test fake) as a
// File, bypassing the HDF5-specific Open/OpenForAppend entry points.
func openStore(store ColumnStore, uri URI, writable bool) (*File, error) {
	return openFile(store, uri, writable)
}

func openFile(store ColumnStore, uri URI, writable bool) (*File, error) {
	f := &File{store: store, uri: uri, writable: writable}
	if err := f.validateAndLoad(); err != nil {
		store.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) validateAndLoad() error {
	format, ok, err := f.store.GetAttr("", attrFormat)
	if err != nil {
		return err
	}
	if !ok {
		return hictkerr.Wrap(hictkerr.FormatError, "cooler: missing format attribute")
	}
	fs, _ := format.(string)
	if fs != FormatCooler && fs != FormatMCool && fs != FormatSCool {
		return hictkerr.Wrapf(hictkerr.FormatError, "cooler: unrecognized format %q", fs)
	}
	for _, path := range []string{pathChromsName, pathChromsLength, pathBinsChrom, pathBinsStart,
		pathBinsEnd, pathPixelsBin1, pathPixelsBin2, pathPixelsCount, pathIdxBin1Off, pathIdxChromOff} {
		if !f.store.HasColumn(path) {
			return hictkerr.Wrapf(hictkerr.FormatError, "cooler: missing required dataset %s", path)
		}
	}
	storageMode, ok, err := f.store.GetAttr("", attrStorageMode)
	if err != nil {
		return err
	}
	if !ok || storageMode.(string) != StorageModeSymmetricUpper {
		return hictkerr.Wrap(hictkerr.FormatError, "cooler: storage-mode must be symmetric-upper")
	}

	if err := f.openDatasets(); err != nil {
		return err
	}
	if err := f.loadReferenceAndBinTable(); err != nil {
		return err
	}
	if err := f.loadIndex(); err != nil {
		return err
	}

	nnzAttr, ok, err := f.store.GetAttr("", attrNNZ)
	if err != nil {
		return err
	}
	if ok {
		f.nnz = toUint64(nnzAttr)
	}
	if sumAttr, ok, _ := f.store.GetAttr("", attrSum); ok {
		f.sum = toFloat64(sumAttr)
	}
	if cisAttr, ok, _ := f.store.GetAttr("", attrCis); ok {
		f.cis = toFloat64(cisAttr)
	}
	return nil
}

func (f *File) openDatasets() error {
	var err error
	open := func(path string, cacheBytes int) *Dataset {
		if err != nil {
			return nil
		}
		var ds *Dataset
		ds, err = OpenDataset(f.store, path, cacheBytes)
		return ds
	}
	f.chromsName = open(pathChromsName, DefaultDatasetCacheBytes)
	f.chromsLength = open(pathChromsLength, DefaultDatasetCacheBytes)
	f.binsChrom = open(pathBinsChrom, DefaultDatasetCacheBytes)
	f.binsStart = open(pathBinsStart, DefaultDatasetCacheBytes)
	f.binsEnd = open(pathBinsEnd, DefaultDatasetCacheBytes)
	f.pxBin1 = open(pathPixelsBin1, PixelDatasetCacheBytes)
	f.pxBin2 = open(pathPixelsBin2, PixelDatasetCacheBytes)
	f.pxCount = open(pathPixelsCount, PixelDatasetCacheBytes)
	f.idxBin1Offset = open(pathIdxBin1Off, DefaultDatasetCacheBytes)
	f.idxChromOffset = open(pathIdxChromOff, DefaultDatasetCacheBytes)
	if err == nil {
		f.countDType = f.pxCount.DType()
	}
	return err
}

func (f *File) loadReferenceAndBinTable() error {
	n := f.chromsName.Len()
	names, err := f.chromsName.ReadString(0, n)
	if err != nil {
		return err
	}
	lengths, err := f.chromsLength.ReadU32(0, n)
	if err != nil {
		return err
	}
	chroms := make([]genome.Chromosome, n)
	for i := range names {
		chroms[i] = genome.Chromosome{Name: names[i], Size: lengths[i]}
	}
	ref, err := genome.NewReference(chroms)
	if err != nil {
		return err
	}

	binSizeAttr, ok, err := f.store.GetAttr("", attrBinSize)
	if err != nil {
		return err
	}
	if !ok {
		return hictkerr.Wrap(hictkerr.FormatError, "cooler: variable-width bin tables are not supported")
	}
	bt, err := genome.NewFixedBinTable(ref, uint32(toUint64(binSizeAttr)))
	if err != nil {
		return err
	}
	f.bt = bt
	return nil
}

func (f *File) loadIndex() error {
	nbins := int(f.bt.TotalBins())
	bin1Off, err := f.idxBin1Offset.ReadU64(0, uint64(nbins)+1)
	if err != nil {
		return err
	}
	nchroms := f.bt.Reference().NumChroms()
	chromOff, err := f.idxChromOffset.ReadU64(0, uint64(nchroms)+1)
	if err != nil {
		return err
	}
	idx := index.New(nbins, chromOff)
	copy(idx.Bin1Offset, bin1Off)
	f.idx = idx
	return nil
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case float64:
		return uint64(n)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case uint64:
		return float64(n)
	case uint32:
		return float64(n)
	default:
		return 0
	}
}

// BinTable returns the file's shared bin table.
func (f *File) BinTable() *genome.BinTable { return f.bt }

// Index returns the file's CSR-like pixel index.
func (f *File) Index() *index.Index { return f.idx }

// NNZ returns the number of stored (nonzero) pixels.
func (f *File) NNZ() uint64 { return f.nnz }

// Sum returns the total of all pixel counts.
func (f *File) Sum() float64 { return f.sum }

// Cis returns the total of intra-chromosomal pixel counts.
func (f *File) Cis() float64 { return f.cis }

// Attribute reads a root attribute by name.
func (f *File) Attribute(name string) (interface{}, bool, error) {
	return f.store.GetAttr("", name)
}

// Close finalizes the index (if the file was opened writable and pixels
// were appended), flushes root attributes, and releases the underlying
// handle.
func (f *File) Close() error {
	if f.writable && f.haveAppended && !f.finalizedOnce {
		if err := f.finalizeIndex(); err != nil {
			return err
		}
		f.finalizedOnce = true
	}
	return f.store.Close()
}

// rowProbe adapts the pixel bin1/bin2 columns to index.RowProbe.
type rowProbe struct{ f *File }

func (p rowProbe) Bin1AndBin2(i uint64) (bin1, bin2 uint64, err error) {
	b1, err := p.f.pxBin1.ReadU64(i, i+1)
	if err != nil {
		return 0, 0, err
	}
	b2, err := p.f.pxBin2.ReadU64(i, i+1)
	if err != nil {
		return 0, 0, err
	}
	return b1[0], b2[0], nil
}

// ValidateIndex streams every stored pixel and checks index_is_valid
// (spec.md §4.2): monotone offsets, per-row bin1 agreement, non-decreasing
// bin2 within a row, and bin1_offset[nbins]==nnz.
func (f *File) ValidateIndex() error {
	return f.idx.Validate(rowProbe{f}, f.nnz)
}

// finalizeIndex rebuilds bin1_offset/chrom_offset by streaming the pixels
// dataset and rewrites the dependent root attributes. Called from Close
// after a writable session appended pixels (spec.md §4.4: "close()...
// finalizes bin1_offset, chrom_offset, updates attributes").
func (f *File) finalizeIndex() error {
	nbins := f.bt.TotalBins()
	bin1Off := make([]uint64, nbins+1)
	n := f.pxBin1.Len()
	var row uint64
	var cursor uint64
	for row < nbins {
		for cursor < n {
			b1, err := f.pxBin1.ReadU64(cursor, cursor+1)
			if err != nil {
				return err
			}
			if b1[0] != row {
				break
			}
			cursor++
		}
		bin1Off[row+1] = cursor
		row++
	}
	chromOff := chromOffsets(f.bt)

	if err := writeFull(f.idxBin1Offset, bin1Off); err != nil {
		return err
	}
	if err := writeFull(f.idxChromOffset, chromOff); err != nil {
		return err
	}
	idx := index.New(int(nbins), chromOff)
	copy(idx.Bin1Offset, bin1Off)
	f.idx = idx

	if err := f.store.SetAttr("", attrNNZ, f.nnz); err != nil {
		return err
	}
	if err := f.store.SetAttr("", attrSum, f.sum); err != nil {
		return err
	}
	if err := f.store.SetAttr("", attrCis, f.cis); err != nil {
		return err
	}
	return nil
}

// writeFull overwrites ds's full contents with data by truncating ds to
// zero elements and appending data.
func writeFull(ds *Dataset, data []uint64) error {
	if err := ds.Resize(0); err != nil {
		return err
	}
	return ds.Append(data)
}

// CreateOptions configures Create.
type CreateOptions struct {
	BinSize    uint32
	CountDType DType
}

// Create initializes a fresh Cooler file with the mandatory group layout
// and root attributes, ready to receive AppendPixels calls.
func Create(uri URI, ref *genome.Reference, opts CreateOptions) (*File, error) {
	store, err := createHDF5Store(uri.Path, uri.Group)
	if err != nil {
		return nil, err
	}
	return createStore(store, uri, ref, opts)
}

// createStore wraps an already-created ColumnStore (e.g. a test fake) as
// a fresh File, bypassing the HDF5-specific Create entry point.
func createStore(store ColumnStore, uri URI, ref *genome.Reference, opts CreateOptions) (*File, error) {
	bt, err := genome.NewFixedBinTable(ref, opts.BinSize)
	if err != nil {
		store.Close()
		return nil, err
	}
	f := &File{store: store, uri: uri, bt: bt, writable: true, countDType: opts.CountDType}
	if err := f.createLayout(opts); err != nil {
		store.Close()
		return nil, err
	}
	f.idx = index.New(int(bt.TotalBins()), chromOffsets(bt))
	return f, nil
}

func chromOffsets(bt *genome.BinTable) []uint64 {
	n := bt.Reference().NumChroms()
	off := make([]uint64, n+1)
	for i := uint32(0); i < n; i++ {
		off[i] = bt.ChromBinOffset(i)
	}
	off[n] = bt.TotalBins()
	return off
}

func (f *File) createLayout(opts CreateOptions) error {
	ref := f.bt.Reference()
	chroms := ref.Chromosomes()
	names := make([]string, len(chroms))
	lengths := make([]uint32, len(chroms))
	for i, c := range chroms {
		names[i] = c.Name
		lengths[i] = c.Size
	}

	var err error
	create := func(path string, dtype DType, chunkElems int, cacheBytes int) *Dataset {
		if err != nil {
			return nil
		}
		var ds *Dataset
		ds, err = CreateDataset(f.store, path, dtype, chunkElems, cacheBytes)
		return ds
	}
	f.chromsName = create(pathChromsName, DTypeString, DefaultChunkBytes, DefaultDatasetCacheBytes)
	f.chromsLength = create(pathChromsLength, DTypeU32, DefaultChunkBytes/4, DefaultDatasetCacheBytes)
	f.binsChrom = create(pathBinsChrom, DTypeU32, DefaultChunkBytes/4, DefaultDatasetCacheBytes)
	f.binsStart = create(pathBinsStart, DTypeU32, DefaultChunkBytes/4, DefaultDatasetCacheBytes)
	f.binsEnd = create(pathBinsEnd, DTypeU32, DefaultChunkBytes/4, DefaultDatasetCacheBytes)
	f.pxBin1 = create(pathPixelsBin1, DTypeU64, DefaultChunkBytes/8, PixelDatasetCacheBytes)
	f.pxBin2 = create(pathPixelsBin2, DTypeU64, DefaultChunkBytes/8, PixelDatasetCacheBytes)
	f.pxCount = create(pathPixelsCount, opts.CountDType, DefaultChunkBytes/8, PixelDatasetCacheBytes)
	f.idxBin1Offset = create(pathIdxBin1Off, DTypeU64, DefaultChunkBytes/8, DefaultDatasetCacheBytes)
	f.idxChromOffset = create(pathIdxChromOff, DTypeU64, DefaultChunkBytes/8, DefaultDatasetCacheBytes)
	if err != nil {
		return err
	}

	if err := f.chromsName.Append(names); err != nil {
		return err
	}
	if err := f.chromsLength.Append(lengths); err != nil {
		return err
	}
	if err := f.writeBinsTable(); err != nil {
		return err
	}

	attrs := map[string]interface{}{
		attrFormat:        FormatCooler,
		attrFormatVersion: FormatVersion,
		attrBinSize:       uint32(f.bt.BinSize()),
		attrNBins:         f.bt.TotalBins(),
		attrNChroms:       uint32(len(chroms)),
		attrNNZ:           uint64(0),
		attrStorageMode:   StorageModeSymmetricUpper,
		attrSum:           float64(0),
		attrCis:           float64(0),
	}
	for k, v := range attrs {
		if err := f.store.SetAttr("", k, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) writeBinsTable() error {
	n := f.bt.TotalBins()
	chromIDs := make([]uint32, n)
	starts := make([]uint32, n)
	ends := make([]uint32, n)
	ref := f.bt.Reference()
	for c := uint32(0); c < ref.NumChroms(); c++ {
		first := f.bt.ChromBinOffset(c)
		last := first + f.bt.NumBins(c)
		for id := first; id < last; id++ {
			bin, err := f.bt.BinAt(id)
			if err != nil {
				return err
			}
			chromIDs[id] = c
			starts[id] = bin.Start
			ends[id] = bin.End
		}
	}
	if err := f.binsChrom.Append(chromIDs); err != nil {
		return err
	}
	if err := f.binsStart.Append(starts); err != nil {
		return err
	}
	return f.binsEnd.Append(ends)
}

// AppendPixels validates and appends a pre-sorted batch of pixels to f.
// Validation enforces (spec.md §4.4): no zero counts, bin ids within
// range, bin1_id <= bin2_id, and that the batch's first pixel is >= the
// last previously appended pixel in (bin1,bin2) order. On success the
// running nnz/sum/cis statistics are updated; bin1_offset/chrom_offset
// are only rebuilt on Close.
func AppendPixels[N pixel.Count](f *File, pixels []pixel.ThinPixel[N], validate bool) error {
	if !f.writable {
		return hictkerr.Wrap(hictkerr.IoError, "cooler: file not opened for append")
	}
	if len(pixels) == 0 {
		return nil
	}
	totalBins := f.bt.TotalBins()
	if validate {
		if err := validateBatch(f, pixels, totalBins); err != nil {
			return err
		}
	}

	bin1 := make([]uint64, len(pixels))
	bin2 := make([]uint64, len(pixels))
	counts, err := countsForDType(f.countDType, pixels)
	if err != nil {
		return err
	}
	var batchSum, batchCis float64
	ref := f.bt.Reference()
	for i, p := range pixels {
		bin1[i], bin2[i] = p.Bin1ID, p.Bin2ID
		c := float64(p.Count)
		batchSum += c
		if sameChrom(f.bt, ref, p.Bin1ID, p.Bin2ID) {
			batchCis += c
		}
	}
	if err := f.pxBin1.Append(bin1); err != nil {
		return err
	}
	if err := f.pxBin2.Append(bin2); err != nil {
		return err
	}
	if err := f.pxCount.Append(counts); err != nil {
		return err
	}

	f.nnz += uint64(len(pixels))
	f.sum += batchSum
	f.cis += batchCis
	last := pixels[len(pixels)-1]
	f.lastAppended = pixel.ThinPixel[float64]{Bin1ID: last.Bin1ID, Bin2ID: last.Bin2ID, Count: float64(last.Count)}
	f.haveAppended = true
	f.finalizedOnce = false
	return nil
}

func sameChrom(bt *genome.BinTable, ref *genome.Reference, bin1, bin2 uint64) bool {
	b1, err1 := bt.BinAt(bin1)
	b2, err2 := bt.BinAt(bin2)
	if err1 != nil || err2 != nil {
		return false
	}
	return b1.Chrom.ID == b2.Chrom.ID
}

func validateBatch[N pixel.Count](f *File, pixels []pixel.ThinPixel[N], totalBins uint64) error {
	for i, p := range pixels {
		if p.Count == 0 {
			return hictkerr.Wrapf(hictkerr.InvalidPixel, "cooler: zero count at batch offset %d", i)
		}
		if err := p.Validate(totalBins); err != nil {
			return err
		}
		if i > 0 && !pixels[i-1].Less(p) {
			return hictkerr.Wrapf(hictkerr.InvalidPixel, "cooler: batch not strictly sorted at offset %d", i)
		}
	}
	if f.haveAppended {
		first := pixels[0]
		if first.Bin1ID < f.lastAppended.Bin1ID ||
			(first.Bin1ID == f.lastAppended.Bin1ID && first.Bin2ID < f.lastAppended.Bin2ID) {
			return hictkerr.Wrap(hictkerr.InvalidPixel, "cooler: batch precedes last appended pixel")
		}
	}
	return nil
}

func countsForDType[N pixel.Count](dtype DType, pixels []pixel.ThinPixel[N]) (interface{}, error) {
	switch dtype {
	case DTypeF64:
		out := make([]float64, len(pixels))
		for i, p := range pixels {
			out[i] = float64(p.Count)
		}
		return out, nil
	case DTypeI32:
		out := make([]int32, len(pixels))
		for i, p := range pixels {
			conv, err := pixel.ConvertCount[N, int32](p)
			if err != nil {
				return nil, err
			}
			out[i] = conv.Count
		}
		return out, nil
	case DTypeU32:
		out := make([]uint32, len(pixels))
		for i, p := range pixels {
			conv, err := pixel.ConvertCount[N, uint32](p)
			if err != nil {
				return nil, err
			}
			out[i] = conv.Count
		}
		return out, nil
	default:
		return nil, hictkerr.Wrap(hictkerr.FormatError, "cooler: unsupported pixel count dtype")
	}
}

// ReadWeights reads the named weight vector from /bins/<name>, inferring
// its Tag either from an explicit "divisive_weights" attribute or, absent
// that, from balance.InferWeightTag(name).
func (f *File) ReadWeights(name string) (*balance.Weights, error) {
	path := "bins/" + name
	if !f.store.HasColumn(path) {
		return nil, hictkerr.Wrapf(hictkerr.NotFound, "cooler: no weight vector %q", name)
	}
	ds, err := OpenDataset(f.store, path, DefaultDatasetCacheBytes)
	if err != nil {
		return nil, err
	}
	values, err := ds.ReadF64(0, ds.Len())
	if err != nil {
		return nil, err
	}
	tag := balance.Divisive
	if divisive, ok, _ := f.store.GetAttr(path, "divisive_weights"); ok {
		if dv, _ := divisive.(uint32); dv == 0 {
			tag = balance.Multiplicative
		}
	} else if inferred, err := balance.InferWeightTag(name); err == nil {
		tag = inferred
	}
	return balance.NewWeights(values, tag, f.bt.TotalBins())
}

// WriteWeights writes w to /bins/<name>. Fails with ShapeMismatch if w's
// length disagrees with the bin table, and with AlreadyExists unless
// overwrite is set.
func (f *File) WriteWeights(name string, w *balance.Weights, overwrite bool) error {
	if uint64(len(w.Values)) != f.bt.TotalBins() {
		return hictkerr.Wrapf(hictkerr.ShapeMismatch, "cooler: weights length %d != nbins %d", len(w.Values), f.bt.TotalBins())
	}
	path := "bins/" + name
	if f.store.HasColumn(path) && !overwrite {
		return hictkerr.Wrapf(hictkerr.AlreadyExists, "cooler: weight vector %q already exists", name)
	}
	var ds *Dataset
	var err error
	if f.store.HasColumn(path) {
		ds, err = OpenDataset(f.store, path, DefaultDatasetCacheBytes)
	} else {
		ds, err = CreateDataset(f.store, path, DTypeF64, DefaultChunkBytes/8, DefaultDatasetCacheBytes)
	}
	if err != nil {
		return err
	}
	if err := ds.Resize(0); err != nil {
		return err
	}
	if err := ds.Append(w.Values); err != nil {
		return err
	}
	divisive := uint32(1)
	if w.Tag == balance.Multiplicative {
		divisive = 0
	}
	return f.store.SetAttr(path, "divisive_weights", divisive)
}

// sortedChromPairs returns every (chrom1,chrom2) id pair with
// chrom1 <= chrom2, in ascending (chrom1, chrom2) order (spec.md §5:
// "chromosome pairs by (chrom1_id, chrom2_id)"). File.Fetch does not use
// it: genome-wide Cooler iteration walks the pixel table row by row.
func sortedChromPairs(n uint32) [][2]uint32 {
	var pairs [][2]uint32
	for i := uint32(0); i < n; i++ {
		for j := i; j < n; j++ {
			pairs = append(pairs, [2]uint32{i, j})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return pairs
}
