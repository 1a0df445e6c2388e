package ops

import (
	"fmt"

	"github.com/sourcegraph/conc/iter"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// SwapMode selects the chunk width for Swap.
type SwapMode int

const (
	SwapWord  SwapMode = 2 // CLI /SWAPWORD
	SwapDWord SwapMode = 4 // CLI /SWAPLONG
)

// Swap reverses byte order within each segment's data in complete chunks of
// the mode's width, independently per segment and never crossing a segment
// boundary. Trailing bytes shorter than the chunk size are left in place
// rather than rejected.
//
// Segments are processed with github.com/sourcegraph/conc/iter.Map: each
// segment's swap is a pure function of that segment alone, so running them
// concurrently and collecting results in input order (iter.Map's contract)
// is bit-identical to a serial loop.
func Swap(hf *hexfile.HexFile, mode SwapMode) error {
	width := int(mode)
	if width != 2 && width != 4 {
		return fmt.Errorf("swap: unsupported chunk width %d", width)
	}

	raw := hf.RawSegments()
	swapped := iter.Map(raw, func(s *segment.Segment) segment.Segment {
		return swapSegment(*s, width)
	})
	hf.SetRawSegments(swapped)
	return nil
}

func swapSegment(s segment.Segment, width int) segment.Segment {
	out := make([]byte, len(s.Data))
	copy(out, s.Data)

	full := (len(out) / width) * width
	for off := 0; off < full; off += width {
		for i, j := off, off+width-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	// trailing bytes (len(out)-full of them) are left untouched
	return segment.Segment{Start: s.Start, Data: out}
}
