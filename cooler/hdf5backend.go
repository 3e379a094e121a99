package cooler

import (
	"fmt"

	"gonum.org/v1/hdf5"

	"github.com/hictk/hictk/hictkerr"
)

// DefaultChunkBytes is the chunk size used when creating new datasets
// (spec.md §6: "chunk size 64 KiB by default").
const DefaultChunkBytes = 64 * 1024

// DefaultCompressionLevel is the gzip compression level applied to newly
// created datasets (spec.md §6: "gzip or equivalent compression level 6
// by default").
const DefaultCompressionLevel = 6

// hdf5Store is the production ColumnStore, backed by gonum.org/v1/hdf5.
// It roots all column paths at a single HDF5 group (the cooler root group
// or a /resolutions/<N> or /cells/<name> subgroup).
type hdf5Store struct {
	file *hdf5.File
	root *hdf5.Group
}

func openHDF5Store(path, groupPath string, writable bool) (*hdf5Store, error) {
	flags := hdf5.F_ACC_RDONLY
	if writable {
		flags = hdf5.F_ACC_RDWR
	}
	f, err := hdf5.OpenFile(path, flags)
	if err != nil {
		return nil, hictkerr.Wrapf(hictkerr.IoError, "cooler: open %s: %v", path, err)
	}
	g, err := openOrRootGroup(f, groupPath)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &hdf5Store{file: f, root: g}, nil
}

func createHDF5Store(path, groupPath string) (*hdf5Store, error) {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, hictkerr.Wrapf(hictkerr.IoError, "cooler: create %s: %v", path, err)
	}
	g, err := createOrRootGroup(f, groupPath)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &hdf5Store{file: f, root: g}, nil
}

func openOrRootGroup(f *hdf5.File, groupPath string) (*hdf5.Group, error) {
	if groupPath == "" || groupPath == "/" {
		g, err := f.OpenGroup("/")
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		return g, nil
	}
	g, err := f.OpenGroup(groupPath)
	if err != nil {
		return nil, hictkerr.Wrapf(hictkerr.NotFound, "cooler: group %s: %v", groupPath, err)
	}
	return g, nil
}

func createOrRootGroup(f *hdf5.File, groupPath string) (*hdf5.Group, error) {
	if groupPath == "" || groupPath == "/" {
		g, err := f.OpenGroup("/")
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.IoError, err)
		}
		return g, nil
	}
	g, err := f.CreateGroup(groupPath)
	if err != nil {
		return nil, hictkerr.Wrapf(hictkerr.IoError, "cooler: create group %s: %v", groupPath, err)
	}
	return g, nil
}

func (s *hdf5Store) Close() error {
	if s.root != nil {
		s.root.Close()
	}
	return s.file.Close()
}

func (s *hdf5Store) HasColumn(path string) bool {
	_, err := s.root.OpenDataset(path)
	return err == nil
}

func (s *hdf5Store) OpenColumn(path string) (Column, error) {
	ds, err := s.root.OpenDataset(path)
	if err != nil {
		return nil, hictkerr.Wrapf(hictkerr.FormatError, "cooler: missing dataset %s: %v", path, err)
	}
	dtype, err := hdf5DType(ds)
	if err != nil {
		return nil, err
	}
	return &hdf5Column{ds: ds, dtype: dtype}, nil
}

func (s *hdf5Store) CreateColumn(path string, dtype DType, chunkElems int) (Column, error) {
	dt, err := hdf5NativeType(dtype)
	if err != nil {
		return nil, err
	}
	space, err := hdf5.CreateSimpleDataspace([]uint{0}, []uint{hdf5.DIM_UNLIMITED})
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	if err := plist.SetChunk([]uint{uint(chunkElems)}); err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	if err := plist.SetDeflate(DefaultCompressionLevel); err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	ds, err := s.root.CreateDatasetWith(path, dt, space, plist)
	if err != nil {
		return nil, hictkerr.Wrapf(hictkerr.IoError, "cooler: create dataset %s: %v", path, err)
	}
	return &hdf5Column{ds: ds, dtype: dtype, chunkElems: chunkElems}, nil
}

func (s *hdf5Store) GetAttr(path, name string) (interface{}, bool, error) {
	obj, err := s.attrHolder(path)
	if err != nil {
		return nil, false, err
	}
	attr, err := obj.OpenAttribute(name)
	if err != nil {
		return nil, false, nil
	}
	defer attr.Close()
	v, err := readAttrValue(attr)
	if err != nil {
		return nil, false, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	return v, true, nil
}

func (s *hdf5Store) SetAttr(path, name string, value interface{}) error {
	obj, err := s.attrHolder(path)
	if err != nil {
		return err
	}
	return writeAttrValue(obj, name, value)
}

func (s *hdf5Store) attrHolder(path string) (hdf5AttrHolder, error) {
	if path == "" || path == "/" {
		return s.root, nil
	}
	g, err := s.root.OpenGroup(path)
	if err != nil {
		return nil, hictkerr.Wrapf(hictkerr.NotFound, "cooler: group %s: %v", path, err)
	}
	return g, nil
}

// hdf5AttrHolder abstracts the subset of *hdf5.Group / *hdf5.Dataset that
// can own attributes.
type hdf5AttrHolder interface {
	OpenAttribute(name string) (*hdf5.Attribute, error)
	CreateAttribute(name string, dtype *hdf5.Datatype, space *hdf5.Dataspace) (*hdf5.Attribute, error)
}

type hdf5Column struct {
	ds         *hdf5.Dataset
	dtype      DType
	chunkElems int
}

func (c *hdf5Column) DType() DType { return c.dtype }

func (c *hdf5Column) Len() uint64 {
	dims, _, _ := c.ds.Space().SimpleExtentDims()
	if len(dims) == 0 {
		return 0
	}
	return uint64(dims[0])
}

func (c *hdf5Column) ChunkElems() int {
	if c.chunkElems > 0 {
		return c.chunkElems
	}
	plist := c.ds.CreatePropList()
	dims, _ := plist.Chunk(1)
	if len(dims) == 0 {
		return DefaultChunkBytes
	}
	c.chunkElems = int(dims[0])
	return c.chunkElems
}

func (c *hdf5Column) ReadInto(start, end uint64, out interface{}) error {
	space := c.ds.Space()
	if err := space.SelectHyperslab([]uint{uint(start)}, nil, []uint{uint(end - start)}, nil); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	memSpace, err := hdf5.CreateSimpleDataspace([]uint{uint(end - start)}, nil)
	if err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	if err := c.ds.ReadSubset(out, memSpace, space); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	return nil
}

func (c *hdf5Column) Append(data interface{}) error {
	n := sliceLen(data)
	cur := c.Len()
	if err := c.Resize(cur + uint64(n)); err != nil {
		return err
	}
	space := c.ds.Space()
	if err := space.SelectHyperslab([]uint{uint(cur)}, nil, []uint{uint(n)}, nil); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	memSpace, err := hdf5.CreateSimpleDataspace([]uint{uint(n)}, nil)
	if err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	if err := c.ds.WriteSubset(data, memSpace, space); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	return nil
}

func (c *hdf5Column) Resize(n uint64) error {
	if err := c.ds.Resize([]uint{uint(n)}); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	return nil
}

func sliceLen(data interface{}) int {
	switch v := data.(type) {
	case []uint32:
		return len(v)
	case []uint64:
		return len(v)
	case []int32:
		return len(v)
	case []float64:
		return len(v)
	case []string:
		return len(v)
	default:
		panic(fmt.Sprintf("cooler: unsupported column element type %T", data))
	}
}

func hdf5DType(ds *hdf5.Dataset) (DType, error) {
	dt := ds.Datatype()
	switch {
	case dt.Equal(hdf5.T_NATIVE_UINT32):
		return DTypeU32, nil
	case dt.Equal(hdf5.T_NATIVE_UINT64):
		return DTypeU64, nil
	case dt.Equal(hdf5.T_NATIVE_INT32):
		return DTypeI32, nil
	case dt.Equal(hdf5.T_NATIVE_DOUBLE):
		return DTypeF64, nil
	default:
		return 0, hictkerr.Wrap(hictkerr.FormatError, "cooler: unrecognized HDF5 native type")
	}
}

func hdf5NativeType(dtype DType) (*hdf5.Datatype, error) {
	switch dtype {
	case DTypeU32:
		return hdf5.T_NATIVE_UINT32, nil
	case DTypeU64:
		return hdf5.T_NATIVE_UINT64, nil
	case DTypeI32:
		return hdf5.T_NATIVE_INT32, nil
	case DTypeF64:
		return hdf5.T_NATIVE_DOUBLE, nil
	case DTypeString:
		return hdf5.NewDatatypeFromType(hdf5.T_C_S1)
	default:
		return nil, hictkerr.Wrap(hictkerr.FormatError, "cooler: unsupported dtype")
	}
}

func readAttrValue(attr *hdf5.Attribute) (interface{}, error) {
	dt := attr.Datatype()
	switch {
	case dt.Equal(hdf5.T_NATIVE_UINT64):
		var v uint64
		if err := attr.Read(&v, dt); err != nil {
			return nil, err
		}
		return v, nil
	case dt.Equal(hdf5.T_NATIVE_UINT32):
		var v uint32
		if err := attr.Read(&v, dt); err != nil {
			return nil, err
		}
		return v, nil
	case dt.Equal(hdf5.T_NATIVE_DOUBLE):
		var v float64
		if err := attr.Read(&v, dt); err != nil {
			return nil, err
		}
		return v, nil
	default:
		var v string
		if err := attr.Read(&v, dt); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func writeAttrValue(obj hdf5AttrHolder, name string, value interface{}) error {
	var dt *hdf5.Datatype
	var err error
	switch value.(type) {
	case uint64:
		dt = hdf5.T_NATIVE_UINT64
	case uint32:
		dt = hdf5.T_NATIVE_UINT32
	case float64:
		dt = hdf5.T_NATIVE_DOUBLE
	case string:
		dt, err = hdf5.NewDatatypeFromType(hdf5.T_C_S1)
		if err != nil {
			return hictkerr.WithCause(hictkerr.IoError, err)
		}
	default:
		return hictkerr.Wrapf(hictkerr.FormatError, "cooler: unsupported attribute value type %T", value)
	}
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	attr, err := obj.CreateAttribute(name, dt, space)
	if err != nil {
		return hictkerr.Wrapf(hictkerr.IoError, "cooler: create attribute %s: %v", name, err)
	}
	defer attr.Close()
	if err := attr.Write(&value, dt); err != nil {
		return hictkerr.WithCause(hictkerr.IoError, err)
	}
	return nil
}
