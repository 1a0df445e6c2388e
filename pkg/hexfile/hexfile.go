// Package hexfile implements the central in-memory model: an ordered
// collection of segment.Segment values with two coexisting policies, raw
// (insertion order, overlaps permitted) and normalized (sorted, merged,
// last-writer-wins).
package hexfile

import (
	"fmt"
	"sort"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/segment"
)

// HexFile is a finite ordered sequence of segments held in raw (insertion)
// order. Normalized views are produced on demand; HexFile itself never
// silently normalizes.
type HexFile struct {
	segs []segment.Segment
}

// New builds an empty HexFile.
func New() *HexFile {
	return &HexFile{}
}

// FromSegments builds a HexFile whose raw form is exactly the given
// segments, in the given order.
func FromSegments(segs []segment.Segment) *HexFile {
	hf := &HexFile{segs: make([]segment.Segment, len(segs))}
	copy(hf.segs, segs)
	return hf
}

// AppendSegment pushes seg as high priority: on a later normalize, it wins
// over anything already present at an overlapping address.
func (h *HexFile) AppendSegment(seg segment.Segment) {
	h.segs = append(h.segs, seg)
}

// PrependSegment inserts seg at the front of the raw list, making it low
// priority: normalize's last-writer-wins rule is keyed on raw insertion
// order, so anything already present (appended before this call) keeps its
// bytes on overlap. Used by fill and merge-preserve, where seg must lose to
// existing data (see pkg/ops/fill.go).
func (h *HexFile) PrependSegment(seg segment.Segment) {
	h.segs = append([]segment.Segment{seg}, h.segs...)
}

// RawSegments returns the raw, insertion-ordered segment list. The returned
// slice is a copy; mutating it does not affect h.
func (h *HexFile) RawSegments() []segment.Segment {
	out := make([]segment.Segment, len(h.segs))
	copy(out, h.segs)
	return out
}

// SetRawSegments replaces the raw segment list wholesale, in the given
// order. Used by operations that rebuild the raw list (e.g. cut, split).
func (h *HexFile) SetRawSegments(segs []segment.Segment) {
	h.segs = make([]segment.Segment, len(segs))
	copy(h.segs, segs)
}

// Len returns the number of raw segments.
func (h *HexFile) Len() int {
	return len(h.segs)
}

// IsEmpty reports whether the HexFile holds no segments at all.
func (h *HexFile) IsEmpty() bool {
	return len(h.segs) == 0
}

// Normalize returns a new HexFile in normalized form: segments sorted by
// start address, overlaps resolved last-writer-wins (the segment inserted
// later in raw order supplies the byte at any shared address), and adjacent
// runs merged into single segments.
func (h *HexFile) Normalize() *HexFile {
	return FromSegments(normalize(h.segs))
}

// NormalizeInPlace normalizes h's raw form and replaces it.
func (h *HexFile) NormalizeInPlace() {
	h.segs = normalize(h.segs)
}

// NormalizeStrict normalizes h but fails if any two raw segments overlap,
// instead of resolving the overlap with last-writer-wins. Used by
// validators and round-trip tests that want to assert non-overlapping
// input.
func (h *HexFile) NormalizeStrict() (*HexFile, error) {
	for i := 0; i < len(h.segs); i++ {
		for j := i + 1; j < len(h.segs); j++ {
			if h.segs[i].Overlaps(h.segs[j]) {
				return nil, fmt.Errorf("hexfile: raw segments %d and %d overlap (strict normalize)", i, j)
			}
		}
	}
	return h.Normalize(), nil
}

// normalize implements last-writer-wins address-map construction: build a
// byte map recording, per address, the byte of the raw index that wrote it
// last, then collapse runs of consecutive addresses into maximal segments
// (regardless of which raw segment supplied each byte).
func normalize(raw []segment.Segment) []segment.Segment {
	if len(raw) == 0 {
		return nil
	}
	if len(raw) == 1 {
		return []segment.Segment{raw[0].Clone()}
	}

	// Build (address -> last writer) with a map keyed by address, since
	// the address space can be sparse and up to 2^32 wide: work is capped
	// to the total bytes actually present, never the full space.
	type writer struct {
		idx int
		b   byte
	}
	winners := make(map[uint32]writer, 0)
	for idx, seg := range raw {
		for i, b := range seg.Data {
			addr := seg.Start + uint32(i)
			if cur, ok := winners[addr]; !ok || idx >= cur.idx {
				winners[addr] = writer{idx: idx, b: b}
			}
		}
	}

	addrs := make([]uint32, 0, len(winners))
	for a := range winners {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var out []segment.Segment
	var cur []byte
	var curStart uint32
	flush := func() {
		if len(cur) > 0 {
			seg, _ := segment.New(curStart, cur)
			out = append(out, seg)
			cur = nil
		}
	}
	var prevAddr uint32
	for i, a := range addrs {
		w := winners[a]
		if i == 0 || uint64(a) != uint64(prevAddr)+1 {
			flush()
			curStart = a
		}
		cur = append(cur, w.b)
		prevAddr = a
	}
	flush()
	return out
}

// SpanStart returns the lowest start address among all raw segments.
// IsEmpty must be checked first; SpanStart of an empty HexFile is 0.
func (h *HexFile) SpanStart() uint32 {
	if len(h.segs) == 0 {
		return 0
	}
	min := h.segs[0].Start
	for _, s := range h.segs[1:] {
		if s.Start < min {
			min = s.Start
		}
	}
	return min
}

// SpanEnd returns the highest end address (saturating) among all raw
// segments.
func (h *HexFile) SpanEnd() uint32 {
	if len(h.segs) == 0 {
		return 0
	}
	max := h.segs[0].EndAddress()
	for _, s := range h.segs[1:] {
		if e := s.EndAddress(); e > max {
			max = e
		}
	}
	return max
}

// AsContiguous returns the span [SpanStart(),SpanEnd()] as one byte slice,
// with gaps filled by fillByte. Overlaps are resolved last-writer-wins.
func (h *HexFile) AsContiguous(fillByte byte) []byte {
	if h.IsEmpty() {
		return nil
	}
	start, end := h.SpanStart(), h.SpanEnd()
	size := uint64(end) - uint64(start) + 1
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = fillByte
	}
	for _, s := range normalize(h.segs) {
		off := uint64(s.Start) - uint64(start)
		copy(buf[off:], s.Data)
	}
	return buf
}

// Range returns the full address range spanned by h's raw segments.
func (h *HexFile) Range() (addrrange.Range, bool) {
	if h.IsEmpty() {
		return addrrange.Range{}, false
	}
	return addrrange.Range{Start: h.SpanStart(), End: h.SpanEnd()}, true
}

// Clone returns a deep copy of h.
func (h *HexFile) Clone() *HexFile {
	return FromSegments(h.segs)
}

// Equal compares two HexFiles by normalized byte content (their raw
// insertion order and segment boundaries may differ while still being
// equal).
func Equal(a, b *HexFile) bool {
	na, nb := normalize(a.segs), normalize(b.segs)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if !na[i].Equal(nb[i]) {
			return false
		}
	}
	return true
}
