package cooler

import (
	"github.com/hictk/hictk/internal/lru"
)

// DefaultDatasetCacheBytes is the per-column cache budget used for most
// datasets; the three pixel columns (bin1_id, bin2_id, count) get
// PixelDatasetCacheBytes instead (spec.md §4.3: "1 MiB generic / 4 MiB for
// the pixel columns").
const (
	DefaultDatasetCacheBytes = 1 << 20
	PixelDatasetCacheBytes   = 4 << 20
)

// chunkEntry is one cached chunk of raw column elements, sized for the lru
// package's byte-budget eviction.
type chunkEntry struct {
	bytes int
	data  interface{}
}

func (e chunkEntry) ByteSize() int { return e.bytes }

// Dataset wraps a single Column with a chunk-granularity read cache,
// mirroring bgzf/cache/cache.go's block cache generalized to a byte
// budget via internal/lru (spec.md §4.3's per-dataset cache policy).
type Dataset struct {
	path   string
	col    Column
	cache  *lru.Cache[uint64, chunkEntry]
	elemSz int
}

func elemSize(dtype DType) int {
	switch dtype {
	case DTypeU32, DTypeI32:
		return 4
	case DTypeU64, DTypeF64:
		return 8
	default:
		return 0
	}
}

// OpenDataset wraps an existing column at path with a read cache of the
// given byte budget.
func OpenDataset(store ColumnStore, path string, cacheBytes int) (*Dataset, error) {
	col, err := store.OpenColumn(path)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		path:   path,
		col:    col,
		cache:  lru.New[uint64, chunkEntry](cacheBytes),
		elemSz: elemSize(col.DType()),
	}, nil
}

// CreateDataset creates a new column at path and wraps it.
func CreateDataset(store ColumnStore, path string, dtype DType, chunkElems, cacheBytes int) (*Dataset, error) {
	col, err := store.CreateColumn(path, dtype, chunkElems)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		path:   path,
		col:    col,
		cache:  lru.New[uint64, chunkEntry](cacheBytes),
		elemSz: elemSize(col.DType()),
	}, nil
}

// Len returns the dataset's current element count.
func (d *Dataset) Len() uint64 { return d.col.Len() }

// DType returns the dataset's element type.
func (d *Dataset) DType() DType { return d.col.DType() }

func (d *Dataset) chunkBounds(elem uint64) (start, end uint64) {
	chunk := uint64(d.col.ChunkElems())
	if chunk == 0 {
		chunk = 1
	}
	start = (elem / chunk) * chunk
	end = start + chunk
	if n := d.col.Len(); end > n {
		end = n
	}
	return start, end
}

// ReadAt returns the range of elements [start,end) as a freshly allocated
// slice, serving whole chunks from cache where possible.
func (d *Dataset) ReadAt(start, end uint64) (interface{}, error) {
	if start >= end {
		return d.emptySlice(), nil
	}
	cStart, cEnd := d.chunkBounds(start)
	if end <= cEnd {
		chunk, err := d.readChunk(cStart, cEnd)
		if err != nil {
			return nil, err
		}
		return sliceRange(chunk, start-cStart, end-cStart), nil
	}
	// Spans multiple chunks: read directly, bypassing the cache.
	out := d.allocSlice(end - start)
	if err := d.col.ReadInto(start, end, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dataset) readChunk(cStart, cEnd uint64) (interface{}, error) {
	if v, ok := d.cache.Get(cStart); ok {
		return v.data, nil
	}
	buf := d.allocSlice(cEnd - cStart)
	if err := d.col.ReadInto(cStart, cEnd, buf); err != nil {
		return nil, err
	}
	d.cache.Put(cStart, chunkEntry{bytes: int(cEnd-cStart) * d.elemSzOrOne(), data: buf})
	return buf, nil
}

func (d *Dataset) elemSzOrOne() int {
	if d.elemSz == 0 {
		return 32 // rough average string-column footprint
	}
	return d.elemSz
}

func (d *Dataset) allocSlice(n uint64) interface{} {
	switch d.col.DType() {
	case DTypeU32:
		return make([]uint32, n)
	case DTypeU64:
		return make([]uint64, n)
	case DTypeI32:
		return make([]int32, n)
	case DTypeF64:
		return make([]float64, n)
	case DTypeString:
		return make([]string, n)
	default:
		panic("cooler: unknown dtype")
	}
}

func (d *Dataset) emptySlice() interface{} { return d.allocSlice(0) }

func sliceRange(data interface{}, lo, hi uint64) interface{} {
	switch v := data.(type) {
	case []uint32:
		return v[lo:hi]
	case []uint64:
		return v[lo:hi]
	case []int32:
		return v[lo:hi]
	case []float64:
		return v[lo:hi]
	case []string:
		return v[lo:hi]
	default:
		panic("cooler: unknown dtype")
	}
}

// Append appends data to the dataset, dropping the cache since the last
// cached chunk may have been cut short at the old end of the dataset.
func (d *Dataset) Append(data interface{}) error {
	if err := d.col.Append(data); err != nil {
		return err
	}
	d.cache.Drop()
	return nil
}

// Resize truncates or extends the dataset, dropping the cache since chunk
// boundaries may now refer to stale data.
func (d *Dataset) Resize(n uint64) error {
	if err := d.col.Resize(n); err != nil {
		return err
	}
	d.cache.Drop()
	return nil
}

// ReadU32 reads [start,end) from a U32 dataset.
func (d *Dataset) ReadU32(start, end uint64) ([]uint32, error) {
	v, err := d.ReadAt(start, end)
	if err != nil {
		return nil, err
	}
	out, ok := v.([]uint32)
	if !ok {
		return nil, dtypeMismatch(d.path)
	}
	return out, nil
}

// ReadU64 reads [start,end) from a U64 dataset.
func (d *Dataset) ReadU64(start, end uint64) ([]uint64, error) {
	v, err := d.ReadAt(start, end)
	if err != nil {
		return nil, err
	}
	out, ok := v.([]uint64)
	if !ok {
		return nil, dtypeMismatch(d.path)
	}
	return out, nil
}

// ReadI32 reads [start,end) from an I32 dataset.
func (d *Dataset) ReadI32(start, end uint64) ([]int32, error) {
	v, err := d.ReadAt(start, end)
	if err != nil {
		return nil, err
	}
	out, ok := v.([]int32)
	if !ok {
		return nil, dtypeMismatch(d.path)
	}
	return out, nil
}

// ReadF64 reads [start,end) from an F64 dataset.
func (d *Dataset) ReadF64(start, end uint64) ([]float64, error) {
	v, err := d.ReadAt(start, end)
	if err != nil {
		return nil, err
	}
	out, ok := v.([]float64)
	if !ok {
		return nil, dtypeMismatch(d.path)
	}
	return out, nil
}

// ReadString reads [start,end) from a String dataset.
func (d *Dataset) ReadString(start, end uint64) ([]string, error) {
	v, err := d.ReadAt(start, end)
	if err != nil {
		return nil, err
	}
	out, ok := v.([]string)
	if !ok {
		return nil, dtypeMismatch(d.path)
	}
	return out, nil
}
