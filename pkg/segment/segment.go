// Package segment models a single contiguous, address-tagged byte run, the
// atomic unit a HexFile is built from.
package segment

import (
	"fmt"

	"github.com/tomrford/h3xy/pkg/addrrange"
)

// Segment is a contiguous run of bytes starting at Start. Data must never be
// empty; constructors enforce this.
type Segment struct {
	Start uint32
	Data  []byte
}

// New builds a Segment, copying data so the caller's slice stays theirs.
func New(start uint32, data []byte) (Segment, error) {
	if len(data) == 0 {
		return Segment{}, fmt.Errorf("segment: data must not be empty")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Segment{Start: start, Data: buf}, nil
}

// Len returns the number of bytes in the segment.
func (s Segment) Len() int {
	return len(s.Data)
}

// EndAddress returns the address of the last byte in the segment, saturating
// at 2^32-1 rather than overflowing (the one documented saturating
// operation in the data model).
func (s Segment) EndAddress() uint32 {
	n := uint64(len(s.Data))
	if n == 0 {
		return s.Start
	}
	end := uint64(s.Start) + n - 1
	if end > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(end)
}

// EndAddressChecked is like EndAddress but reports overflow instead of
// saturating; used by operations that need a checked add.
func (s Segment) EndAddressChecked() (uint32, bool) {
	n := uint64(len(s.Data))
	end := uint64(s.Start) + n - 1
	if end > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(end), true
}

// Range returns the address range spanned by the segment (saturating end).
func (s Segment) Range() addrrange.Range {
	return addrrange.Range{Start: s.Start, End: s.EndAddress()}
}

// IsContiguousWith reports whether next begins exactly one byte after s
// ends, using checked arithmetic (false, not a panic, on overflow).
func (s Segment) IsContiguousWith(next Segment) bool {
	end, ok := s.EndAddressChecked()
	if !ok {
		return false
	}
	return uint64(end)+1 == uint64(next.Start)
}

// Overlaps reports whether s and other share at least one address.
func (s Segment) Overlaps(other Segment) bool {
	return s.Range().Overlaps(other.Range())
}

// Slice returns the portion of s that falls within r, or ok=false if there
// is no overlap. The returned Segment's Start is clipped to max(s.Start,
// r.Start). The bytes are copied: a clipped segment never aliases the
// original's storage.
func (s Segment) Slice(r addrrange.Range) (Segment, bool) {
	inter, ok := s.Range().Intersection(r)
	if !ok {
		return Segment{}, false
	}
	lo := uint64(inter.Start) - uint64(s.Start)
	hi := uint64(inter.End) - uint64(s.Start) + 1
	buf := make([]byte, hi-lo)
	copy(buf, s.Data[lo:hi])
	return Segment{Start: inter.Start, Data: buf}, true
}

// Equal reports structural equality: same start address and identical bytes.
func (s Segment) Equal(other Segment) bool {
	if s.Start != other.Start || len(s.Data) != len(other.Data) {
		return false
	}
	for i := range s.Data {
		if s.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of s.
func (s Segment) Clone() Segment {
	buf := make([]byte, len(s.Data))
	copy(buf, s.Data)
	return Segment{Start: s.Start, Data: buf}
}
