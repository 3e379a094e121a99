// Package binio implements a portable little-endian read/write buffer used
// by the .hic codec, mirroring original_source's binary_buffer.hpp. The
// .hic wire format is bit-exact and externally specified, so this is built
// directly on encoding/binary rather than a serialization library — the
// same choice the teacher makes for BAM's fixed record layout
// (bam/reader.go, bam/writer.go).
package binio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Buffer is a cursor over an in-memory byte slice, reading and writing
// little-endian scalars and null-terminated C strings.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer wraps data for reading from the start.
func NewBuffer(data []byte) *Buffer { return &Buffer{data: data} }

// NewWriteBuffer returns an empty Buffer ready for appends.
func NewWriteBuffer() *Buffer { return &Buffer{} }

// Bytes returns the buffer's backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of unread bytes remaining.
func (b *Buffer) Len() int { return len(b.data) - b.pos }

// Pos returns the current read/write cursor offset.
func (b *Buffer) Pos() int { return b.pos }

// Seek repositions the cursor to an absolute offset.
func (b *Buffer) Seek(pos int) error {
	if pos < 0 || pos > len(b.data) {
		return errors.Errorf("binio: seek %d out of range [0,%d]", pos, len(b.data))
	}
	b.pos = pos
	return nil
}

func (b *Buffer) need(n int) error {
	if b.Len() < n {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// ReadU8/ReadU16/ReadU32/ReadU64 read unsigned little-endian scalars.
func (b *Buffer) ReadU8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

func (b *Buffer) ReadU16() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(b.data[b.pos:])
	b.pos += 2
	return v, nil
}

func (b *Buffer) ReadU32() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b.data[b.pos:])
	b.pos += 4
	return v, nil
}

func (b *Buffer) ReadU64() (uint64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(b.data[b.pos:])
	b.pos += 8
	return v, nil
}

// ReadI16/ReadI32/ReadI64 read signed little-endian scalars.
func (b *Buffer) ReadI16() (int16, error) {
	v, err := b.ReadU16()
	return int16(v), err
}

func (b *Buffer) ReadI32() (int32, error) {
	v, err := b.ReadU32()
	return int32(v), err
}

func (b *Buffer) ReadI64() (int64, error) {
	v, err := b.ReadU64()
	return int64(v), err
}

// ReadF32/ReadF64 read IEEE-754 little-endian floats.
func (b *Buffer) ReadF32() (float32, error) {
	v, err := b.ReadU32()
	return math32FromBits(v), err
}

func (b *Buffer) ReadF64() (float64, error) {
	v, err := b.ReadU64()
	return math64FromBits(v), err
}

// ReadBytes returns the next n bytes without copying.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// ReadCString reads a null-terminated string, per the .hic wire format.
func (b *Buffer) ReadCString() (string, error) {
	idx := bytes.IndexByte(b.data[b.pos:], 0)
	if idx < 0 {
		return "", io.ErrUnexpectedEOF
	}
	s := string(b.data[b.pos : b.pos+idx])
	b.pos += idx + 1
	return s, nil
}

// Write* append little-endian scalars / bytes / C strings.
func (b *Buffer) WriteU8(v uint8) { b.data = append(b.data, v) }

func (b *Buffer) WriteU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

func (b *Buffer) WriteU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

func (b *Buffer) WriteU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

func (b *Buffer) WriteI16(v int16) { b.WriteU16(uint16(v)) }
func (b *Buffer) WriteI32(v int32) { b.WriteU32(uint32(v)) }
func (b *Buffer) WriteI64(v int64) { b.WriteU64(uint64(v)) }

func (b *Buffer) WriteF32(v float32) { b.WriteU32(math32ToBits(v)) }
func (b *Buffer) WriteF64(v float64) { b.WriteU64(math64ToBits(v)) }

func (b *Buffer) WriteBytes(p []byte) { b.data = append(b.data, p...) }

func (b *Buffer) WriteCString(s string) {
	b.data = append(b.data, s...)
	b.data = append(b.data, 0)
}
