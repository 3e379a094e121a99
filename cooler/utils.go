package cooler

import "github.com/hictk/hictk/hictkerr"

// IsCoolerFile sniffs path's root "format" attribute without fully
// opening and validating the file (SPEC_FULL.md §5, mirrored from
// utils_impl.hpp's cheap-sniff entry point used by tooling that only
// needs to branch on cooler-vs-hic before committing to a full open).
func IsCoolerFile(uri URI) (bool, error) {
	store, err := openHDF5Store(uri.Path, uri.Group, false)
	if err != nil {
		return false, nil
	}
	defer store.Close()
	format, ok, err := store.GetAttr("", attrFormat)
	if err != nil || !ok {
		return false, nil
	}
	fs, _ := format.(string)
	return fs == FormatCooler || fs == FormatMCool || fs == FormatSCool, nil
}

// CopyInto copies src's pixel table (bin1_id, bin2_id, count) into dst,
// which must hold no pixels, reading at
// most one 65536-pixel chunk at a time, then rebuilds dst's index. It
// does not copy chroms, bins or weight vectors: dst keeps the ones it was
// created with. Mirrored from utils_copy_impl.hpp.
func CopyInto(dst, src *File) error {
	if dst.nnz != 0 {
		return hictkerr.Wrap(hictkerr.AlreadyExists, "cooler: CopyInto destination is not empty")
	}
	n := src.pxBin1.Len()
	const chunk = 1 << 16
	for off := uint64(0); off < n; off += chunk {
		end := off + chunk
		if end > n {
			end = n
		}
		bin1, err := src.pxBin1.ReadU64(off, end)
		if err != nil {
			return err
		}
		bin2, err := src.pxBin2.ReadU64(off, end)
		if err != nil {
			return err
		}
		counts, err := copyCounts(src, off, end)
		if err != nil {
			return err
		}
		if err := appendRawCounts(dst, bin1, bin2, counts); err != nil {
			return err
		}
	}
	dst.finalizedOnce = false
	dst.haveAppended = n > 0
	return dst.finalizeIndex()
}

func copyCounts(f *File, off, end uint64) (interface{}, error) {
	switch f.countDType {
	case DTypeF64:
		return f.pxCount.ReadF64(off, end)
	case DTypeI32:
		return f.pxCount.ReadI32(off, end)
	case DTypeU32:
		return f.pxCount.ReadU32(off, end)
	default:
		return nil, hictkerr.Wrap(hictkerr.FormatError, "cooler: unsupported pixel count dtype")
	}
}

// appendRawCounts appends bin1/bin2/counts directly, bypassing
// AppendPixels' generic validation (CopyInto trusts the source file was
// already validated).
func appendRawCounts(dst *File, bin1, bin2 []uint64, counts interface{}) error {
	if err := dst.pxBin1.Append(bin1); err != nil {
		return err
	}
	if err := dst.pxBin2.Append(bin2); err != nil {
		return err
	}
	if err := dst.pxCount.Append(counts); err != nil {
		return err
	}
	var sum float64
	switch c := counts.(type) {
	case []float64:
		for _, v := range c {
			sum += v
		}
	case []int32:
		for _, v := range c {
			sum += float64(v)
		}
	case []uint32:
		for _, v := range c {
			sum += float64(v)
		}
	}
	dst.nnz += uint64(len(bin1))
	dst.sum += sum
	return nil
}

// RenameChromosomes rewrites the chroms/name dataset of the file at uri
// in place according to mapping (old name -> new name); names absent
// from mapping are left untouched. Mirrored from
// impl/utils_rename_chroms_impl.hpp. Bin table geometry (sizes, bin
// boundaries, the pixel table, and the index) is unaffected since
// renaming never changes chromosome order or length.
func RenameChromosomes(uri URI, mapping map[string]string) error {
	store, err := openHDF5Store(uri.Path, uri.Group, true)
	if err != nil {
		return err
	}
	defer store.Close()
	return renameChromosomesIn(store, mapping)
}

func renameChromosomesIn(store ColumnStore, mapping map[string]string) error {
	ds, err := OpenDataset(store, pathChromsName, DefaultDatasetCacheBytes)
	if err != nil {
		return err
	}
	names, err := ds.ReadString(0, ds.Len())
	if err != nil {
		return err
	}
	changed := false
	for i, name := range names {
		if renamed, ok := mapping[name]; ok {
			names[i] = renamed
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := ds.Resize(0); err != nil {
		return err
	}
	return ds.Append(names)
}
