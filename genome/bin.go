package genome

// Bin is a GenomicInterval plus an absolute genome-wide id and a
// chromosome-relative id. HasID reports whether the ids are meaningful
// (a Bin constructed as a bare interval, e.g. during a find-overlap scan,
// may have no id assigned yet).
type Bin struct {
	GenomicInterval
	id    uint64
	relID uint32
	hasID bool
}

// NewBin constructs a Bin with both ids populated.
func NewBin(id uint64, relID uint32, iv GenomicInterval) Bin {
	return Bin{GenomicInterval: iv, id: id, relID: relID, hasID: true}
}

// ID returns the absolute bin id and whether it is set.
func (b Bin) ID() (uint64, bool) { return b.id, b.hasID }

// RelativeID returns the chromosome-relative bin id and whether it is set.
func (b Bin) RelativeID() (uint32, bool) { return b.relID, b.hasID }
