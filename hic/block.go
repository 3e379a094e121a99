package hic

import (
	"bytes"
	"compress/zlib"
	"io"
	"sort"

	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/internal/binio"
	"github.com/hictk/hictk/internal/pool"
	"github.com/hictk/hictk/pixel"
)

// blockEncoding identifies which of the three coordinate layouts a block
// body uses.
type blockEncoding int8

const (
	encodingDenseGrid blockEncoding = 1
	encodingSparse    blockEncoding = 2
	encodingLORRLE    blockEncoding = 9
)

// Block holds one decoded contact-matrix tile: every pixel whose bin1/bin2
// fall within the footer's blockBinCount x blockBinCount window that
// compresses to this block.
type Block struct {
	Pixels []pixel.ThinPixel[float64]
}

// ByteSize approximates a decoded block's memory footprint, for the
// byte-budget block cache.
func (b *Block) ByteSize() int {
	return 32 + len(b.Pixels)*24
}

// ReadBlock reads and inflates the compressed block body at entry's
// (position,size) and decodes it per its internal coordinate encoding.
func ReadBlock(r io.ReaderAt, entry blockIndexEntry) (*Block, error) {
	raw := pool.GetBuffer(int(entry.Size))
	defer pool.PutBuffer(raw)
	if _, err := r.ReadAt(raw, entry.Position); err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	defer zr.Close()
	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	return decodeBlock(binio.NewBuffer(inflated))
}

func decodeBlock(buf *binio.Buffer) (*Block, error) {
	nRecords, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	binXOffset, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	binYOffset, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	useFloat, err := buf.ReadU8()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	kind, err := buf.ReadI16()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}

	switch blockEncoding(kind) {
	case encodingDenseGrid:
		return decodeDenseGrid(buf, int64(binXOffset), int64(binYOffset), useFloat != 0)
	case encodingSparse:
		return decodeSparse(buf, int64(binXOffset), int64(binYOffset), int(nRecords), useFloat != 0)
	case encodingLORRLE:
		return decodeLORRLE(buf, int64(binXOffset), int64(binYOffset), useFloat != 0)
	default:
		return nil, hictkerr.Wrapf(hictkerr.FormatError, "hic: unknown block encoding %d", kind)
	}
}

func decodeDenseGrid(buf *binio.Buffer, binXOffset, binYOffset int64, useFloat bool) (*Block, error) {
	w, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	h, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	blk := &Block{}
	for row := int32(0); row < h; row++ {
		for col := int32(0); col < w; col++ {
			count, ok, err := readDenseCount(buf, useFloat)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			bin1 := uint64(binXOffset + int64(col))
			bin2 := uint64(binYOffset + int64(row))
			appendUpper(blk, bin1, bin2, count)
		}
	}
	return blk, nil
}

// readDenseCount reads one dense-grid cell, reporting ok=false for the
// sentinel "no contact recorded" values (NaN for float cells, -32768 for
// the legacy 16-bit rasterized subset).
func readDenseCount(buf *binio.Buffer, useFloat bool) (float64, bool, error) {
	if useFloat {
		v, err := buf.ReadF32()
		if err != nil {
			return 0, false, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		if v != v { // NaN
			return 0, false, nil
		}
		return float64(v), true, nil
	}
	v, err := buf.ReadI16()
	if err != nil {
		return 0, false, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	if v == -32768 {
		return 0, false, nil
	}
	return float64(v), true, nil
}

// decodeSparse decodes the list-of-records sparse layout: a row width
// (unused by this reader, kept only for wire-format alignment) followed
// by nRecords (binX delta, binY delta, count) triples relative to
// (binXOffset, binYOffset).
func decodeSparse(buf *binio.Buffer, binXOffset, binYOffset int64, nRecords int, useFloat bool) (*Block, error) {
	if _, err := buf.ReadI16(); err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	blk := &Block{Pixels: make([]pixel.ThinPixel[float64], 0, nRecords)}
	for i := 0; i < nRecords; i++ {
		dx, err := buf.ReadI16()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		dy, err := buf.ReadI16()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		var count float64
		if useFloat {
			v, err := buf.ReadF32()
			if err != nil {
				return nil, hictkerr.WithCause(hictkerr.FormatError, err)
			}
			count = float64(v)
		} else {
			v, err := buf.ReadI16()
			if err != nil {
				return nil, hictkerr.WithCause(hictkerr.FormatError, err)
			}
			count = float64(v)
		}
		bin1 := uint64(binXOffset + int64(dx))
		bin2 := uint64(binYOffset + int64(dy))
		appendUpper(blk, bin1, bin2, count)
	}
	return blk, nil
}

// decodeLORRLE decodes the "list of rows, run-length encoded" layout: each
// row carries its bin2 offset, a run count, then that many (runLength,
// count) pairs expanding to consecutive bin1 columns.
func decodeLORRLE(buf *binio.Buffer, binXOffset, binYOffset int64, useFloat bool) (*Block, error) {
	nRows, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	blk := &Block{}
	for r := int32(0); r < nRows; r++ {
		rowStartY, err := buf.ReadI16()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		rowCount, err := buf.ReadI16()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		col := int64(0)
		for i := int16(0); i < rowCount; i++ {
			runLength, err := buf.ReadI16()
			if err != nil {
				return nil, hictkerr.WithCause(hictkerr.FormatError, err)
			}
			var count float64
			if useFloat {
				v, err := buf.ReadF32()
				if err != nil {
					return nil, hictkerr.WithCause(hictkerr.FormatError, err)
				}
				count = float64(v)
			} else {
				v, err := buf.ReadI16()
				if err != nil {
					return nil, hictkerr.WithCause(hictkerr.FormatError, err)
				}
				count = float64(v)
			}
			if runLength < 0 {
				col += int64(-runLength)
				continue
			}
			for k := int16(0); k < runLength; k++ {
				bin1 := uint64(binXOffset + col)
				bin2 := uint64(binYOffset + int64(rowStartY))
				appendUpper(blk, bin1, bin2, count)
				col++
			}
		}
	}
	return blk, nil
}

// appendUpper records one decoded cell as a symmetric-upper pixel,
// swapping coordinates when the block stores the lower triangle (blocks
// straddling the diagonal mix both).
func appendUpper(blk *Block, bin1, bin2 uint64, count float64) {
	if bin1 > bin2 {
		bin1, bin2 = bin2, bin1
	}
	blk.Pixels = append(blk.Pixels, pixel.ThinPixel[float64]{Bin1ID: bin1, Bin2ID: bin2, Count: count})
}

// SortPixels sorts the block's pixels into canonical (bin1,bin2) order,
// required before it can participate in a sorted k-way merge across
// blocks.
func (b *Block) SortPixels() {
	sort.Slice(b.Pixels, func(i, j int) bool { return b.Pixels[i].Less(b.Pixels[j]) })
}

// WriteBlock serializes pixels (already in the block's local coordinate
// window) using the sparse encoding, compresses with w's zlib writer
// (injected so writers can pick their own compression level), and returns
// the compressed bytes.
func WriteBlock(pixels []pixel.ThinPixel[float64], binXOffset, binYOffset int64, newWriter func(io.Writer) ZlibWriteCloser) ([]byte, error) {
	buf := binio.NewWriteBuffer()
	buf.WriteI32(int32(len(pixels)))
	buf.WriteI32(int32(binXOffset))
	buf.WriteI32(int32(binYOffset))
	buf.WriteU8(1) // useFloat
	buf.WriteI16(int16(encodingSparse))
	buf.WriteI16(0) // width, unused by the sparse reader
	for _, p := range pixels {
		dx := int64(p.Bin1ID) - binXOffset
		dy := int64(p.Bin2ID) - binYOffset
		buf.WriteI16(int16(dx))
		buf.WriteI16(int16(dy))
		buf.WriteF32(float32(p.Count))
	}

	var out bytes.Buffer
	zw := newWriter(&out)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	if err := zw.Close(); err != nil {
		return nil, hictkerr.WithCause(hictkerr.IoError, err)
	}
	return out.Bytes(), nil
}

// ZlibWriteCloser is the narrow surface WriteBlock needs from a zlib
// writer, satisfied by both compress/zlib and klauspost/compress/zlib.
type ZlibWriteCloser interface {
	io.WriteCloser
}
