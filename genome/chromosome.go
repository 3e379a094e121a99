// Package genome implements the genomic coordinate model shared by both
// storage engines: chromosomes, references, genomic intervals, and bin
// tables. Grounded on sam.Reference / sam.Header (biogo-hts), which keep
// the same id-assignment and name->id lookup shape for a SAM reference
// dictionary.
package genome

import (
	"sync"

	"github.com/hictk/hictk/hictkerr"
)

// AllChromosomeName is the reserved name for the synthetic whole-genome
// chromosome appended by Reference.WithAll.
const AllChromosomeName = "ALL"

// Chromosome is an immutable, cheaply-copied genomic sequence descriptor.
type Chromosome struct {
	ID   uint32
	Name string
	Size uint32
}

// IsAll reports whether c is the synthetic whole-genome chromosome.
func (c Chromosome) IsAll() bool { return c.Name == AllChromosomeName }

// Reference is an ordered, immutable collection of chromosomes with
// constant-time lookup by id, name, or ordinal, plus a prefix sum of
// sizes used for absolute-coordinate arithmetic.
type Reference struct {
	chroms     []Chromosome
	nameToID   map[string]uint32
	prefixSize []uint64 // prefixSize[i] = sum of sizes of chroms[0:i]

	once                 sync.Once
	longest              Chromosome
	longestHasValue      bool
	longestName          Chromosome
	longestNameHasValue  bool
}

// NewReference builds a Reference from chromosomes in the given order.
// Chromosome.ID fields are overwritten with 0..n-1 insertion-order ids.
// Duplicate names are rejected.
func NewReference(chroms []Chromosome) (*Reference, error) {
	r := &Reference{
		chroms:     make([]Chromosome, len(chroms)),
		nameToID:   make(map[string]uint32, len(chroms)),
		prefixSize: make([]uint64, len(chroms)+1),
	}
	for i, c := range chroms {
		if c.Name == "" {
			return nil, hictkerr.Wrap(hictkerr.MalformedQuery, "genome: chromosome name must not be empty")
		}
		if _, dup := r.nameToID[c.Name]; dup {
			return nil, hictkerr.Wrapf(hictkerr.MalformedQuery, "genome: duplicate chromosome name %q", c.Name)
		}
		c.ID = uint32(i)
		r.chroms[i] = c
		r.nameToID[c.Name] = c.ID
		r.prefixSize[i+1] = r.prefixSize[i] + uint64(c.Size)
	}
	return r, nil
}

// WithAll returns a copy of r with a synthetic "ALL" chromosome appended,
// sized as the sum of all chromosome sizes, with id == len(chroms).
func (r *Reference) WithAll() (*Reference, error) {
	total := r.prefixSize[len(r.chroms)]
	all := Chromosome{Name: AllChromosomeName, Size: uint32(total)}
	return NewReference(append(append([]Chromosome(nil), r.chroms...), all))
}

// WithoutAll returns the underlying per-chromosome reference with the
// synthetic "ALL" chromosome removed, if present. Used when emitting .hic,
// which has no whole-genome pseudo-chromosome entry.
func (r *Reference) WithoutAll() *Reference {
	if r.NumChroms() == 0 || !r.chroms[len(r.chroms)-1].IsAll() {
		return r
	}
	out, _ := NewReference(r.chroms[:len(r.chroms)-1])
	return out
}

// NumChroms returns the number of chromosomes in the reference.
func (r *Reference) NumChroms() int { return len(r.chroms) }

// Chromosomes returns the ordered chromosome slice. Callers must not
// mutate the result.
func (r *Reference) Chromosomes() []Chromosome { return r.chroms }

// At returns the chromosome with the given id.
func (r *Reference) At(id uint32) (Chromosome, error) {
	if int(id) >= len(r.chroms) {
		return Chromosome{}, hictkerr.Wrapf(hictkerr.OutOfRange, "genome: chromosome id %d out of range [0,%d)", id, len(r.chroms))
	}
	return r.chroms[id], nil
}

// GetID returns the id of the chromosome with the given name.
func (r *Reference) GetID(name string) (uint32, error) {
	id, ok := r.nameToID[name]
	if !ok {
		return 0, hictkerr.Wrapf(hictkerr.NotFound, "genome: unknown chromosome %q", name)
	}
	return id, nil
}

// OffsetOf returns the absolute genome coordinate (0-based) of the start
// of chromosome id, i.e. the prefix sum of sizes of all preceding
// chromosomes.
func (r *Reference) OffsetOf(id uint32) uint64 {
	return r.prefixSize[id]
}

// GenomeSize returns the sum of all chromosome sizes.
func (r *Reference) GenomeSize() uint64 {
	return r.prefixSize[len(r.chroms)]
}

// LongestChromosome returns the chromosome with the largest Size,
// computed lazily and memoized.
func (r *Reference) LongestChromosome() (Chromosome, bool) {
	r.computeLazy()
	return r.longest, r.longestHasValue
}

// LongestNameChromosome returns the chromosome whose Name is longest,
// computed lazily and memoized.
func (r *Reference) LongestNameChromosome() (Chromosome, bool) {
	r.computeLazy()
	return r.longestName, r.longestNameHasValue
}

func (r *Reference) computeLazy() {
	r.once.Do(func() {
		for _, c := range r.chroms {
			if !r.longestHasValue || c.Size > r.longest.Size {
				r.longest = c
				r.longestHasValue = true
			}
			if !r.longestNameHasValue || len(c.Name) > len(r.longestName.Name) {
				r.longestName = c
				r.longestNameHasValue = true
			}
		}
	})
}
