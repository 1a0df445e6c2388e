package ops

import (
	"fmt"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// MergeMode selects which side wins on overlap when merging another
// HexFile into self.
type MergeMode int

const (
	// MergeOverwrite ("opaque", CLI /MO) makes other's bytes high priority:
	// they replace self's existing bytes on overlap.
	MergeOverwrite MergeMode = iota
	// MergePreserve ("transparent", CLI /MT) makes self's existing bytes
	// win on overlap.
	MergePreserve
)

// MergeOptions configures Merge.
type MergeOptions struct {
	Mode MergeMode
	// Offset is added to every address of other before merging, checked
	// against 32-bit overflow/underflow. It crosses into int64 before the
	// add so negative offsets are representable.
	Offset int64
	// Range, if non-nil, filters other's segments before Offset is applied.
	Range *addrrange.Range
}

// Merge inserts other into self per opts (CLI flags /MO, /MT).
func Merge(self *hexfile.HexFile, other *hexfile.HexFile, opts MergeOptions) error {
	src := other
	if opts.Range != nil {
		src = FilterRange(other, []addrrange.Range{*opts.Range})
	}

	offsetSegs, err := offsetSegments(src.Normalize().RawSegments(), opts.Offset)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	for _, s := range offsetSegs {
		switch opts.Mode {
		case MergeOverwrite:
			self.AppendSegment(s)
		case MergePreserve:
			self.PrependSegment(s)
		default:
			return fmt.Errorf("merge: unknown mode %d", opts.Mode)
		}
	}
	return nil
}

// offsetSegments shifts every segment's start address by offset, checking
// each resulting address against the 32-bit domain.
func offsetSegments(segs []segment.Segment, offset int64) ([]segment.Segment, error) {
	out := make([]segment.Segment, 0, len(segs))
	for _, s := range segs {
		newStart := int64(s.Start) + offset
		if newStart < 0 {
			return nil, fmt.Errorf("offset %d underflows address 0x%X", offset, s.Start)
		}
		newEnd := newStart + int64(len(s.Data)) - 1
		if newEnd > 0xFFFFFFFF {
			return nil, fmt.Errorf("offset %d overflows address 0x%X", offset, s.Start)
		}
		shifted := segment.Segment{Start: uint32(newStart), Data: s.Data}
		out = append(out, shifted)
	}
	return out, nil
}
