package ops

import (
	"fmt"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// ScaleAddresses multiplies every segment's start address by factor,
// leaving data untouched. Transactional: on overflow, hf is left unchanged.
func ScaleAddresses(hf *hexfile.HexFile, factor uint64) error {
	if factor == 0 {
		return fmt.Errorf("scale: factor must be >= 1")
	}
	raw := hf.RawSegments()
	out := make([]segment.Segment, len(raw))
	for i, s := range raw {
		scaled := uint64(s.Start) * factor
		if scaled > 0xFFFFFFFF {
			return fmt.Errorf("scale: address 0x%X * %d overflows 32 bits", s.Start, factor)
		}
		out[i] = segment.Segment{Start: uint32(scaled), Data: s.Data}
	}
	hf.SetRawSegments(out)
	return nil
}

// UnscaleAddresses divides every segment's start address by divisor,
// erroring (without mutating hf) if any address does not divide evenly.
func UnscaleAddresses(hf *hexfile.HexFile, divisor uint64) error {
	if divisor == 0 {
		return fmt.Errorf("unscale: divisor must be >= 1")
	}
	raw := hf.RawSegments()
	out := make([]segment.Segment, len(raw))
	for i, s := range raw {
		if uint64(s.Start)%divisor != 0 {
			return fmt.Errorf("unscale: address 0x%X is not evenly divisible by %d", s.Start, divisor)
		}
		out[i] = segment.Segment{Start: uint32(uint64(s.Start) / divisor), Data: s.Data}
	}
	hf.SetRawSegments(out)
	return nil
}
