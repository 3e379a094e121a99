package hic

import (
	"strconv"
	"strings"

	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/internal/binio"
)

// blockIndexEntry locates one compressed block within the file.
type blockIndexEntry struct {
	Position int64
	Size     int32
}

// FooterKey identifies a footer within the master index: a chromosome
// pair at a given unit and resolution.
type FooterKey struct {
	Chrom1, Chrom2 uint32
	Unit           Unit
	Resolution     uint32
}

// Footer is the per-(chrom1,chrom2,unit,resolution) metadata entry: the
// block directory, the block grid shape, running sum, and the offsets of
// the normalization vectors associated with this matrix zoom level.
type Footer struct {
	Key FooterKey

	Position int64 // offset of this footer's MatrixZoomData record
	Size     int64

	BlockBinCount    int32
	BlockColumnCount int32
	Sum              float64

	Blocks map[int64]blockIndexEntry

	// NormVectorOffsets maps a normalization name to the (position,size)
	// of its per-chromosome expected/normalization vector pair.
	NormVectorOffsets map[string]normVectorLocation
}

type normVectorLocation struct {
	ExpectedPos, ExpectedSize             int64
	NormChrom1Pos, NormChrom1Size         int64
	NormChrom2Pos, NormChrom2Size         int64
}

// ByteSize approximates the footer's in-memory footprint, for the
// byte-budget footer cache.
func (f *Footer) ByteSize() int {
	return 64 + len(f.Blocks)*24 + len(f.NormVectorOffsets)*96
}

// ReadMasterIndex parses the master index from buf, which callers
// position at header.MasterIndexOffset (e.g. by reading the file starting
// at that offset), returning every footer keyed by
// (chrom1,chrom2,unit,resolution).
func ReadMasterIndex(buf *binio.Buffer) (map[FooterKey]*Footer, error) {
	nEntries, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	footers := make(map[FooterKey]*Footer, nEntries)
	for i := int32(0); i < nEntries; i++ {
		key, err := readFooterKeyString(buf)
		if err != nil {
			return nil, err
		}
		pos, err := buf.ReadI64()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		size, err := buf.ReadI64()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		footers[key] = &Footer{Key: key, Position: pos, Size: size}
	}
	return footers, nil
}

// readFooterKeyString decodes the "<chrom1>_<chrom2>_<unit>_<resolution>"
// master-index key string into a structured FooterKey.
func readFooterKeyString(buf *binio.Buffer) (FooterKey, error) {
	s, err := buf.ReadCString()
	if err != nil {
		return FooterKey{}, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	parts := strings.Split(s, "_")
	if len(parts) != 4 {
		return FooterKey{}, hictkerr.Wrapf(hictkerr.FormatError, "hic: malformed master index key %q", s)
	}
	c1, err1 := strconv.ParseUint(parts[0], 10, 32)
	c2, err2 := strconv.ParseUint(parts[1], 10, 32)
	res, err3 := strconv.ParseUint(parts[3], 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return FooterKey{}, hictkerr.Wrapf(hictkerr.FormatError, "hic: malformed master index key %q", s)
	}
	return FooterKey{Chrom1: uint32(c1), Chrom2: uint32(c2), Unit: Unit(parts[2]), Resolution: uint32(res)}, nil
}

// footerKeyString builds the inverse of readFooterKeyString, used when
// writing the master index.
func footerKeyString(k FooterKey) string {
	return strconv.FormatUint(uint64(k.Chrom1), 10) + "_" + strconv.FormatUint(uint64(k.Chrom2), 10) + "_" +
		string(k.Unit) + "_" + strconv.FormatUint(uint64(k.Resolution), 10)
}

// LoadFooterBody parses the MatrixZoomData body from buf, which callers
// position at f.Position: block grid shape, running sum, block
// directory, and normalization-vector offsets.
func LoadFooterBody(buf *binio.Buffer, f *Footer) error {
	blockBinCount, err := buf.ReadI32()
	if err != nil {
		return hictkerr.WithCause(hictkerr.FormatError, err)
	}
	blockColumnCount, err := buf.ReadI32()
	if err != nil {
		return hictkerr.WithCause(hictkerr.FormatError, err)
	}
	sum, err := buf.ReadF64()
	if err != nil {
		return hictkerr.WithCause(hictkerr.FormatError, err)
	}
	f.BlockBinCount = blockBinCount
	f.BlockColumnCount = blockColumnCount
	f.Sum = sum

	nBlocks, err := buf.ReadI32()
	if err != nil {
		return hictkerr.WithCause(hictkerr.FormatError, err)
	}
	f.Blocks = make(map[int64]blockIndexEntry, nBlocks)
	for i := int32(0); i < nBlocks; i++ {
		num, err := buf.ReadI64()
		if err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		}
		pos, err := buf.ReadI64()
		if err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		}
		size, err := buf.ReadI32()
		if err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		}
		f.Blocks[num] = blockIndexEntry{Position: pos, Size: size}
	}

	nNorms, err := buf.ReadI32()
	if err != nil {
		return hictkerr.WithCause(hictkerr.FormatError, err)
	}
	f.NormVectorOffsets = make(map[string]normVectorLocation, nNorms)
	for i := int32(0); i < nNorms; i++ {
		name, err := buf.ReadCString()
		if err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		}
		var loc normVectorLocation
		if loc.ExpectedPos, err = buf.ReadI64(); err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		}
		if size, err := buf.ReadI64(); err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		} else {
			loc.ExpectedSize = size
		}
		if loc.NormChrom1Pos, err = buf.ReadI64(); err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		}
		if size, err := buf.ReadI64(); err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		} else {
			loc.NormChrom1Size = size
		}
		if loc.NormChrom2Pos, err = buf.ReadI64(); err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		}
		if size, err := buf.ReadI64(); err != nil {
			return hictkerr.WithCause(hictkerr.FormatError, err)
		} else {
			loc.NormChrom2Size = size
		}
		f.NormVectorOffsets[name] = loc
	}
	return nil
}

// WriteMasterIndex serializes the master index entry for each footer, in
// the layout ReadMasterIndex parses. Callers must write footer bodies
// first and fill in Position/Size before calling this.
func WriteMasterIndex(buf *binio.Buffer, footers map[FooterKey]*Footer) {
	buf.WriteI32(int32(len(footers)))
	for key, f := range footers {
		buf.WriteCString(footerKeyString(key))
		buf.WriteI64(f.Position)
		buf.WriteI64(f.Size)
	}
}

// WriteFooterBody serializes f's body in the layout LoadFooterBody reads.
// It returns nothing.
func WriteFooterBody(buf *binio.Buffer, f *Footer) {
	buf.WriteI32(f.BlockBinCount)
	buf.WriteI32(f.BlockColumnCount)
	buf.WriteF64(f.Sum)
	buf.WriteI32(int32(len(f.Blocks)))
	for num, entry := range f.Blocks {
		buf.WriteI64(num)
		buf.WriteI64(entry.Position)
		buf.WriteI32(entry.Size)
	}
	buf.WriteI32(int32(len(f.NormVectorOffsets)))
	for name, loc := range f.NormVectorOffsets {
		buf.WriteCString(name)
		buf.WriteI64(loc.ExpectedPos)
		buf.WriteI64(loc.ExpectedSize)
		buf.WriteI64(loc.NormChrom1Pos)
		buf.WriteI64(loc.NormChrom1Size)
		buf.WriteI64(loc.NormChrom2Pos)
		buf.WriteI64(loc.NormChrom2Size)
	}
}
