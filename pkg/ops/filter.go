package ops

import (
	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// FilterRange keeps only bytes whose address lies in the union of ranges
// (CLI flag /AR). Segments partially overlapping a range are clipped. The
// result is normalized.
func FilterRange(hf *hexfile.HexFile, ranges []addrrange.Range) *hexfile.HexFile {
	union := addrrange.Union(ranges)
	normalized := hf.Normalize().RawSegments()

	out := hexfile.New()
	for _, seg := range normalized {
		for _, r := range union {
			if sub, ok := seg.Slice(r); ok {
				out.AppendSegment(sub)
			}
		}
	}
	return out.Normalize()
}

// Cut removes bytes in the union of ranges (CLI flag /CR).
// A segment straddling a cut boundary splits into two pieces. Overlap among
// the cut ranges themselves is allowed; each is applied independently.
func Cut(hf *hexfile.HexFile, ranges []addrrange.Range) *hexfile.HexFile {
	union := addrrange.Union(ranges)
	segs := hf.Normalize().RawSegments()

	for _, r := range union {
		segs = cutOne(segs, r)
	}

	out := hexfile.New()
	for _, s := range segs {
		out.AppendSegment(s)
	}
	return out.Normalize()
}

// cutOne removes the addresses in r from every segment in segs, splitting
// any segment that straddles r's boundaries.
func cutOne(segs []segment.Segment, r addrrange.Range) []segment.Segment {
	var out []segment.Segment
	for _, s := range segs {
		segRange := s.Range()
		if !segRange.Overlaps(r) {
			out = append(out, s)
			continue
		}

		// Left remainder: [s.Start, r.Start-1]
		if s.Start < r.Start {
			left, ok := leftOfRangeStart(s, r.Start)
			if ok {
				out = append(out, left)
			}
		}
		// Right remainder: [r.End+1, seg end]
		end := s.EndAddress()
		if r.End < end {
			right, ok := rightOfRangeEnd(s, r.End)
			if ok {
				out = append(out, right)
			}
		}
	}
	return out
}

func leftOfRangeStart(s segment.Segment, cutStart uint32) (segment.Segment, bool) {
	r, err := addrrange.New(s.Start, cutStart-1)
	if err != nil {
		return segment.Segment{}, false
	}
	return s.Slice(r)
}

func rightOfRangeEnd(s segment.Segment, cutEnd uint32) (segment.Segment, bool) {
	if cutEnd == 0xFFFFFFFF {
		return segment.Segment{}, false
	}
	r, err := addrrange.New(cutEnd+1, s.EndAddress())
	if err != nil {
		return segment.Segment{}, false
	}
	return s.Slice(r)
}
