package ops

import (
	"github.com/sourcegraph/conc/iter"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// RemapFunc rewrites a single address; ok=false means "pass through
// unchanged" rather than an error, so addresses outside a mapping's source
// window survive untouched.
type RemapFunc func(addr uint32) (mapped uint32, ok bool)

// Remap applies f to every byte address. Since an address-rewrite can
// reorder or split a segment's bytes arbitrarily, the segment is rebuilt
// byte by byte; the result is normalized. Overflow on the target side is an
// error, tagged by the caller with the flag that requested the mapping.
func Remap(hf *hexfile.HexFile, f RemapFunc) error {
	raw := hf.RawSegments()
	out := hexfile.New()
	for _, s := range raw {
		for i, b := range s.Data {
			addr := s.Start + uint32(i)
			mapped, ok := f(addr)
			if !ok {
				mapped = addr
			}
			seg, err := segment.New(mapped, []byte{b})
			if err != nil {
				return err
			}
			out.AppendSegment(seg)
		}
	}
	hf.SetRawSegments(out.Normalize().RawSegments())
	return nil
}

// Star12Map implements the /S12MAP banked-address formula: addresses below
// 0x4000 are bank-0 identity; everything else passes through unchanged (no
// banked alias is documented for STAR12 outside bank 0).
func Star12Map(addr uint32) (uint32, bool) {
	if addr < 0x4000 {
		return addr, true
	}
	return addr, false
}

// Star12XMap implements the /S12XMAP banked-address formula: a banked page
// window [0x8000,0xBFFF] is rewritten to 0x8000 + bank*0x4000 +
// (addr&0x3FFF), where bank is derived from a page register value supplied
// by the caller (STAR12X's PPAGE). Addresses outside the banked window
// pass through unchanged.
func Star12XMap(bank uint32) RemapFunc {
	return func(addr uint32) (uint32, bool) {
		if addr < 0x8000 || addr > 0xBFFF {
			return addr, false
		}
		return 0x8000 + bank*0x4000 + (addr & 0x3FFF), true
	}
}

// Star08Map implements the /S08MAP banked formula 0x100000 + bank*0x4000 +
// off, bank/offset split at the 14-bit boundary. Addresses outside the
// banked window [0x8000,0xBFFF] pass through unchanged.
func Star08Map(bank uint32) RemapFunc {
	return func(addr uint32) (uint32, bool) {
		if addr < 0x8000 || addr > 0xBFFF {
			return addr, false
		}
		off := addr & 0x3FFF
		return 0x100000 + bank*0x4000 + off, true
	}
}

// DspicExpand inserts two zero bytes after every two bytes of each segment
// (dsPIC's 24-bit-word-as-4-byte "phantom" encoding). Per-segment work is
// independent and pure, so it runs through
// github.com/sourcegraph/conc/iter.Map, which keeps results in input order.
func DspicExpand(hf *hexfile.HexFile) {
	raw := hf.RawSegments()
	out := iter.Map(raw, func(s *segment.Segment) segment.Segment {
		return dspicExpandSegment(*s)
	})
	hf.SetRawSegments(out)
}

func dspicExpandSegment(s segment.Segment) segment.Segment {
	pairs := (len(s.Data) + 1) / 2
	out := make([]byte, 0, pairs*4)
	for off := 0; off < len(s.Data); off += 2 {
		end := off + 2
		if end > len(s.Data) {
			end = len(s.Data)
		}
		chunk := s.Data[off:end]
		out = append(out, chunk...)
		for i := len(chunk); i < 2; i++ {
			out = append(out, 0)
		}
		out = append(out, 0, 0)
	}
	return segment.Segment{Start: s.Start, Data: out}
}

// DspicShrink keeps only the low two bytes of every four, the inverse of
// DspicExpand.
func DspicShrink(hf *hexfile.HexFile) {
	raw := hf.RawSegments()
	out := iter.Map(raw, func(s *segment.Segment) segment.Segment {
		return dspicShrinkSegment(*s)
	})
	hf.SetRawSegments(out)
}

func dspicShrinkSegment(s segment.Segment) segment.Segment {
	out := make([]byte, 0, (len(s.Data)/4+1)*2)
	for off := 0; off+1 < len(s.Data); off += 4 {
		out = append(out, s.Data[off], s.Data[off+1])
	}
	return segment.Segment{Start: s.Start, Data: out}
}

// DspicClearGhost zeros every fourth byte (the "ghost"/phantom byte) in
// place, leaving segment boundaries and addresses untouched.
func DspicClearGhost(hf *hexfile.HexFile) {
	raw := hf.RawSegments()
	out := iter.Map(raw, func(s *segment.Segment) segment.Segment {
		return dspicClearGhostSegment(*s)
	})
	hf.SetRawSegments(out)
}

func dspicClearGhostSegment(s segment.Segment) segment.Segment {
	out := make([]byte, len(s.Data))
	copy(out, s.Data)
	for i := 3; i < len(out); i += 4 {
		out[i] = 0
	}
	return segment.Segment{Start: s.Start, Data: out}
}
