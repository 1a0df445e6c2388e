package ops

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// FillOptions configures Fill (CLI flags /FR, /FP).
type FillOptions struct {
	Ranges []addrrange.Range
	// Pattern is repeated to cover each range. A nil/empty Pattern requests
	// a pseudo-random fill, deterministic only within a single process.
	Pattern []byte
	// Overwrite selects fill priority: false (default) makes the fill
	// low-priority (existing data wins, and gaps only are materialized);
	// true makes it high-priority (fill replaces existing data).
	Overwrite bool
}

// randomSeed is taken from process state once, so every random fill in one
// process starts from the same seed.
var randomSeed = uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())

// randomPattern is swapped out in tests that need a fixed sequence.
var randomPattern = func(n int) []byte {
	seed := randomSeed
	r := rand.New(rand.NewPCG(seed, seed>>1|1))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(r.Uint32())
	}
	return buf
}

// Fill materializes bytes over ranges from pattern (or, with an empty
// pattern, pseudo-random bytes), at the configured priority.
func Fill(hf *hexfile.HexFile, opts FillOptions) error {
	if len(opts.Pattern) == 0 {
		return fillRandom(hf, opts.Ranges, opts.Overwrite)
	}
	return fillPattern(hf, opts.Ranges, opts.Pattern, opts.Overwrite)
}

func fillPattern(hf *hexfile.HexFile, ranges []addrrange.Range, pattern []byte, overwrite bool) error {
	if len(pattern) == 0 {
		return fmt.Errorf("fill: pattern must not be empty")
	}
	for _, r := range addrrange.Union(ranges) {
		// Pattern repetition is anchored at the range start, so a gap
		// partway into the range continues the pattern rather than
		// restarting it.
		rangeStart := r.Start
		materialize(hf, r, overwrite, func(n int, addr uint32) []byte {
			buf := make([]byte, n)
			for i := range buf {
				buf[i] = pattern[(uint64(addr-rangeStart)+uint64(i))%uint64(len(pattern))]
			}
			return buf
		})
	}
	return nil
}

func fillRandom(hf *hexfile.HexFile, ranges []addrrange.Range, overwrite bool) error {
	for _, r := range addrrange.Union(ranges) {
		materialize(hf, r, overwrite, func(n int, addr uint32) []byte {
			return randomPattern(n)
		})
	}
	return nil
}

// materialize inserts fill bytes for range r. With overwrite=false, only the
// actual gaps within r (addresses not already covered by any raw segment)
// are filled, and the fill segments are inserted low priority so original
// data always wins on any residual overlap. With overwrite=true, the whole
// range is filled and inserted high priority.
func materialize(hf *hexfile.HexFile, r addrrange.Range, overwrite bool, gen func(n int, addr uint32) []byte) {
	if overwrite {
		data := gen(int(r.Length()), r.Start)
		seg, err := segment.New(r.Start, data)
		if err == nil {
			hf.AppendSegment(seg)
		}
		return
	}

	for _, gap := range gapsIn(hf, r) {
		data := gen(int(gap.Length()), gap.Start)
		seg, err := segment.New(gap.Start, data)
		if err == nil {
			hf.PrependSegment(seg)
		}
	}
}

// gapsIn returns the sub-ranges of r not covered by any existing raw
// segment. Cursor arithmetic is done in uint64 so that a covered range
// ending at the top of the 32-bit address space doesn't wrap around.
func gapsIn(hf *hexfile.HexFile, r addrrange.Range) []addrrange.Range {
	covered := []addrrange.Range{}
	for _, s := range hf.Normalize().RawSegments() {
		if inter, ok := s.Range().Intersection(r); ok {
			covered = append(covered, inter)
		}
	}
	covered = addrrange.Union(covered)

	var gaps []addrrange.Range
	cursor := uint64(r.Start)
	end := uint64(r.End)
	for _, c := range covered {
		if uint64(c.Start) > cursor {
			if g, err := addrrange.New(cursor32(cursor), c.Start-1); err == nil {
				gaps = append(gaps, g)
			}
		}
		if uint64(c.End)+1 > cursor {
			cursor = uint64(c.End) + 1
		}
		if cursor > end {
			return gaps
		}
	}
	if cursor <= end {
		if g, err := addrrange.New(cursor32(cursor), r.End); err == nil {
			gaps = append(gaps, g)
		}
	}
	return gaps
}

func cursor32(c uint64) uint32 {
	if c > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(c)
}

// FillAllGaps computes the raw span [SpanStart(),SpanEnd()] and fills every
// gap with b, collapsing the file into one contiguous segment (CLI flag
// /FA).
func FillAllGaps(hf *hexfile.HexFile, b byte) {
	if hf.IsEmpty() {
		return
	}
	buf := hf.AsContiguous(b)
	seg, err := segment.New(hf.SpanStart(), buf)
	if err != nil {
		return
	}
	hf.SetRawSegments([]segment.Segment{seg})
}
