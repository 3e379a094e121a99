// Package hic implements the .hic storage engine: a proprietary
// block-compressed binary container with a per-resolution footer index,
// paired with the Cooler engine behind the unified selector layer.
package hic

import (
	"github.com/hictk/hictk/genome"
	"github.com/hictk/hictk/hictkerr"
	"github.com/hictk/hictk/internal/binio"
)

// Magic is the three-byte file signature every .hic file begins with.
const Magic = "HIC"

// Supported wire-format versions.
const (
	VersionMin = 8
	VersionMax = 9
)

// Unit distinguishes base-pair resolution matrices from fragment-unit
// ones; FRAG-unit matrices are out of scope.
type Unit string

const UnitBP Unit = "BP"

// Header is the parsed master header: magic/version, the footer index
// location, genome identity, chromosomes, and the resolution ladder.
type Header struct {
	Version           int32
	MasterIndexOffset int64
	GenomeID          string
	Attributes        map[string]string
	Chromosomes       []genome.Chromosome
	Resolutions       []uint32 // BP resolutions only; FRAG excluded
}

// ReadHeader parses the master header from the start of a .hic file.
func ReadHeader(buf *binio.Buffer) (*Header, error) {
	magic, err := buf.ReadBytes(len(Magic) + 1)
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	if string(magic[:len(Magic)]) != Magic || magic[len(Magic)] != 0 {
		return nil, hictkerr.Wrap(hictkerr.FormatError, "hic: bad magic bytes")
	}
	version, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	if version < VersionMin || version > VersionMax {
		return nil, hictkerr.Wrapf(hictkerr.FormatError, "hic: unsupported version %d", version)
	}
	masterOffset, err := buf.ReadI64()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	genomeID, err := buf.ReadCString()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}

	h := &Header{Version: version, MasterIndexOffset: masterOffset, GenomeID: genomeID, Attributes: map[string]string{}}

	nAttrs, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	for i := int32(0); i < nAttrs; i++ {
		k, err := buf.ReadCString()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		v, err := buf.ReadCString()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		h.Attributes[k] = v
	}

	nChroms, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	h.Chromosomes = make([]genome.Chromosome, nChroms)
	for i := int32(0); i < nChroms; i++ {
		name, err := buf.ReadCString()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		size, err := buf.ReadI32()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		h.Chromosomes[i] = genome.Chromosome{ID: uint32(i), Name: name, Size: uint32(size)}
	}

	nResolutions, err := buf.ReadI32()
	if err != nil {
		return nil, hictkerr.WithCause(hictkerr.FormatError, err)
	}
	h.Resolutions = make([]uint32, nResolutions)
	for i := range h.Resolutions {
		r, err := buf.ReadI32()
		if err != nil {
			return nil, hictkerr.WithCause(hictkerr.FormatError, err)
		}
		h.Resolutions[i] = uint32(r)
	}
	return h, nil
}

// WriteHeader serializes h in the same layout ReadHeader parses.
func WriteHeader(buf *binio.Buffer, h *Header) {
	buf.WriteBytes([]byte(Magic))
	buf.WriteU8(0)
	buf.WriteI32(h.Version)
	buf.WriteI64(h.MasterIndexOffset)
	buf.WriteCString(h.GenomeID)
	buf.WriteI32(int32(len(h.Attributes)))
	for k, v := range h.Attributes {
		buf.WriteCString(k)
		buf.WriteCString(v)
	}
	buf.WriteI32(int32(len(h.Chromosomes)))
	for _, c := range h.Chromosomes {
		buf.WriteCString(c.Name)
		buf.WriteI32(int32(c.Size))
	}
	buf.WriteI32(int32(len(h.Resolutions)))
	for _, r := range h.Resolutions {
		buf.WriteI32(int32(r))
	}
}

// HasResolution reports whether res is one of the file's BP resolutions.
func (h *Header) HasResolution(res uint32) bool {
	for _, r := range h.Resolutions {
		if r == res {
			return true
		}
	}
	return false
}
