package cooler

import "github.com/hictk/hictk/hictkerr"

// fakeStore is an in-memory ColumnStore used to test Dataset/File logic
// without a real HDF5 file, exercising the narrow backend trait design
// note (spec.md §9: "a portable rewrite should hide HDF5 behind a narrow
// 'chunked typed column store' trait so that alternative backends...
// can be substituted in tests").
type fakeStore struct {
	cols  map[string]*fakeColumn
	attrs map[string]map[string]interface{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{cols: map[string]*fakeColumn{}, attrs: map[string]map[string]interface{}{}}
}

func (s *fakeStore) HasColumn(path string) bool {
	_, ok := s.cols[path]
	return ok
}

func (s *fakeStore) OpenColumn(path string) (Column, error) {
	c, ok := s.cols[path]
	if !ok {
		return nil, hictkerr.Wrapf(hictkerr.FormatError, "fakeStore: missing dataset %s", path)
	}
	return c, nil
}

func (s *fakeStore) CreateColumn(path string, dtype DType, chunkElems int) (Column, error) {
	c := &fakeColumn{dtype: dtype, chunkElems: chunkElems}
	s.cols[path] = c
	return c, nil
}

func (s *fakeStore) GetAttr(path, name string) (interface{}, bool, error) {
	g, ok := s.attrs[path]
	if !ok {
		return nil, false, nil
	}
	v, ok := g[name]
	return v, ok, nil
}

func (s *fakeStore) SetAttr(path, name string, value interface{}) error {
	g, ok := s.attrs[path]
	if !ok {
		g = map[string]interface{}{}
		s.attrs[path] = g
	}
	g[name] = value
	return nil
}

func (s *fakeStore) Close() error { return nil }

type fakeColumn struct {
	dtype      DType
	chunkElems int
	u32        []uint32
	u64        []uint64
	i32        []int32
	f64        []float64
	str        []string
}

func (c *fakeColumn) DType() DType { return c.dtype }

func (c *fakeColumn) Len() uint64 {
	switch c.dtype {
	case DTypeU32:
		return uint64(len(c.u32))
	case DTypeU64:
		return uint64(len(c.u64))
	case DTypeI32:
		return uint64(len(c.i32))
	case DTypeF64:
		return uint64(len(c.f64))
	case DTypeString:
		return uint64(len(c.str))
	default:
		return 0
	}
}

func (c *fakeColumn) ChunkElems() int {
	if c.chunkElems <= 0 {
		return 1024
	}
	return c.chunkElems
}

func (c *fakeColumn) ReadInto(start, end uint64, out interface{}) error {
	switch c.dtype {
	case DTypeU32:
		copy(out.([]uint32), c.u32[start:end])
	case DTypeU64:
		copy(out.([]uint64), c.u64[start:end])
	case DTypeI32:
		copy(out.([]int32), c.i32[start:end])
	case DTypeF64:
		copy(out.([]float64), c.f64[start:end])
	case DTypeString:
		copy(out.([]string), c.str[start:end])
	}
	return nil
}

func (c *fakeColumn) Append(data interface{}) error {
	switch v := data.(type) {
	case []uint32:
		c.u32 = append(c.u32, v...)
	case []uint64:
		c.u64 = append(c.u64, v...)
	case []int32:
		c.i32 = append(c.i32, v...)
	case []float64:
		c.f64 = append(c.f64, v...)
	case []string:
		c.str = append(c.str, v...)
	}
	return nil
}

func (c *fakeColumn) Resize(n uint64) error {
	switch c.dtype {
	case DTypeU32:
		c.u32 = resizeU32(c.u32, n)
	case DTypeU64:
		c.u64 = resizeU64(c.u64, n)
	case DTypeI32:
		c.i32 = resizeI32(c.i32, n)
	case DTypeF64:
		c.f64 = resizeF64(c.f64, n)
	case DTypeString:
		c.str = resizeStr(c.str, n)
	}
	return nil
}

func resizeU32(s []uint32, n uint64) []uint32 {
	if uint64(len(s)) >= n {
		return s[:n]
	}
	return append(s, make([]uint32, n-uint64(len(s)))...)
}
func resizeU64(s []uint64, n uint64) []uint64 {
	if uint64(len(s)) >= n {
		return s[:n]
	}
	return append(s, make([]uint64, n-uint64(len(s)))...)
}
func resizeI32(s []int32, n uint64) []int32 {
	if uint64(len(s)) >= n {
		return s[:n]
	}
	return append(s, make([]int32, n-uint64(len(s)))...)
}
func resizeF64(s []float64, n uint64) []float64 {
	if uint64(len(s)) >= n {
		return s[:n]
	}
	return append(s, make([]float64, n-uint64(len(s)))...)
}
func resizeStr(s []string, n uint64) []string {
	if uint64(len(s)) >= n {
		return s[:n]
	}
	return append(s, make([]string, n-uint64(len(s)))...)
}
