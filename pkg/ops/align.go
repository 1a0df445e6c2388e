package ops

import (
	"fmt"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// Align rounds every segment's start down to a multiple of alignment,
// prepending fillByte to close the gap, and, if alsoLength, rounds the
// end up the same way, appending fillByte (CLI flags /AD, /AL). alignment
// need not be a power of two. Overlaps are normalized first; fill bytes
// are low priority on any residual overlap.
func Align(hf *hexfile.HexFile, alignment uint32, fillByte byte, alsoLength bool) error {
	if alignment < 1 {
		return fmt.Errorf("align: alignment must be >= 1, got %d", alignment)
	}

	segs := hf.Normalize().RawSegments()
	out := hexfile.New()

	for _, s := range segs {
		alignedStart := (s.Start / alignment) * alignment
		if alignedStart < s.Start {
			pad := make([]byte, s.Start-alignedStart)
			for i := range pad {
				pad[i] = fillByte
			}
			padSeg, err := segment.New(alignedStart, pad)
			if err == nil {
				out.PrependSegment(padSeg)
			}
		}
		out.AppendSegment(s)

		if alsoLength {
			end := s.EndAddress()
			rem := (uint64(end) + 1) % uint64(alignment)
			if rem != 0 {
				padLen := uint64(alignment) - rem
				endAddr := uint64(end) + 1
				if endAddr+padLen-1 > 0xFFFFFFFF {
					return fmt.Errorf("align: length padding overflows 32-bit address space")
				}
				pad := make([]byte, padLen)
				for i := range pad {
					pad[i] = fillByte
				}
				padSeg, err := segment.New(uint32(endAddr), pad)
				if err == nil {
					out.PrependSegment(padSeg)
				}
			}
		}
	}

	hf.SetRawSegments(out.Normalize().RawSegments())
	return nil
}
