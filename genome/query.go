package genome

import (
	"strconv"
	"strings"

	"github.com/hictk/hictk/hictkerr"
)

// ParseUCSC parses a "chr:start-end" range string against ref.
//
// Coordinates are interpreted as 0-based half-open, matching on-disk
// storage (Open Question in spec.md §9, resolved in SPEC_FULL.md §6):
// this is a deliberate departure from UCSC's historical 1-based-inclusive
// convention, chosen so callers never have to translate at any other API
// boundary. A bare "chr" with no ":start-end" suffix returns the whole
// chromosome.
func ParseUCSC(ref *Reference, s string) (GenomicInterval, error) {
	name := s
	var start, end uint32
	whole := true
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		name = s[:i]
		rng := s[i+1:]
		j := strings.IndexByte(rng, '-')
		if j < 0 {
			return GenomicInterval{}, hictkerr.Wrapf(hictkerr.MalformedQuery, "genome: malformed UCSC range %q", s)
		}
		startStr := strings.ReplaceAll(rng[:j], ",", "")
		endStr := strings.ReplaceAll(rng[j+1:], ",", "")
		s64, err := strconv.ParseUint(startStr, 10, 32)
		if err != nil {
			return GenomicInterval{}, hictkerr.Wrapf(hictkerr.MalformedQuery, "genome: malformed start in %q", s)
		}
		e64, err := strconv.ParseUint(endStr, 10, 32)
		if err != nil {
			return GenomicInterval{}, hictkerr.Wrapf(hictkerr.MalformedQuery, "genome: malformed end in %q", s)
		}
		start, end = uint32(s64), uint32(e64)
		whole = false
	}
	chromID, err := ref.GetID(name)
	if err != nil {
		return GenomicInterval{}, err
	}
	chrom, err := ref.At(chromID)
	if err != nil {
		return GenomicInterval{}, err
	}
	if whole {
		start, end = 0, chrom.Size
	}
	return NewGenomicInterval(chrom, start, end)
}

// ParseBED parses a tab-separated "chrom\tstart\tend" triplet against ref,
// 0-based half-open.
func ParseBED(ref *Reference, s string) (GenomicInterval, error) {
	fields := strings.Split(s, "\t")
	if len(fields) != 3 {
		return GenomicInterval{}, hictkerr.Wrapf(hictkerr.MalformedQuery, "genome: malformed BED triplet %q", s)
	}
	chromID, err := ref.GetID(fields[0])
	if err != nil {
		return GenomicInterval{}, err
	}
	chrom, err := ref.At(chromID)
	if err != nil {
		return GenomicInterval{}, err
	}
	start, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return GenomicInterval{}, hictkerr.Wrapf(hictkerr.MalformedQuery, "genome: malformed BED start in %q", s)
	}
	end, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return GenomicInterval{}, hictkerr.Wrapf(hictkerr.MalformedQuery, "genome: malformed BED end in %q", s)
	}
	return NewGenomicInterval(chrom, uint32(start), uint32(end))
}
