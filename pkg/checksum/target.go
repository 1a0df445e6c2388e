package checksum

import (
	"fmt"
	"sort"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// Target is where the computed checksum bytes go.
type Target int

const (
	TargetAddress Target = iota
	TargetAppend
	TargetPrepend
	TargetOverwriteEnd
	TargetFile
)

// Options configures a single checksum pass.
type Options struct {
	Algorithm Algorithm
	Target    Target

	// Address is the destination for TargetAddress.
	Address uint32

	// Window forces the calculation to span every address in these ranges,
	// filling holes with FillByte. A nil/empty Window restricts the
	// calculation to actually-present bytes only, in address order.
	Window   []addrrange.Range
	FillByte byte

	// ExcludeRanges are addresses that never contribute to the checksum
	// regardless of Window.
	ExcludeRanges []addrrange.Range

	// TargetExclude auto-excludes the destination's own bytes from the
	// window when the target would otherwise overlap the data it is
	// summarizing.
	TargetExclude bool

	// Reverse reverses the computed result's byte order before placement
	// (CLI /CSR).
	Reverse bool
}

// Apply computes the checksum over hf per opts, places the result at the
// configured target, and returns the raw result bytes (used directly by
// TargetFile, which writes to an external file instead of mutating hf).
func Apply(hf *hexfile.HexFile, opts Options) ([]byte, error) {
	data := collect(hf, opts)
	result, err := Compute(opts.Algorithm, data)
	if err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}
	if opts.Reverse {
		result = reversed(result)
	}

	switch opts.Target {
	case TargetAddress:
		start, end := hf.SpanStart(), hf.SpanEnd()
		if hf.IsEmpty() || opts.Address < start || opts.Address > end {
			return nil, fmt.Errorf("checksum: address 0x%X outside data span [0x%X,0x%X]", opts.Address, start, end)
		}
		seg, err := segment.New(opts.Address, result)
		if err != nil {
			return nil, fmt.Errorf("checksum: %w", err)
		}
		hf.AppendSegment(seg)

	case TargetAppend:
		addr := uint32(0)
		if !hf.IsEmpty() {
			if uint64(hf.SpanEnd())+uint64(len(result)) > 0xFFFFFFFF {
				return nil, fmt.Errorf("checksum: append target overflows address space")
			}
			addr = hf.SpanEnd() + 1
		}
		seg, err := segment.New(addr, result)
		if err != nil {
			return nil, fmt.Errorf("checksum: %w", err)
		}
		hf.AppendSegment(seg)

	case TargetPrepend:
		addr := uint32(0)
		if !hf.IsEmpty() {
			end := hf.SpanStart()
			if uint32(len(result)) > end {
				return nil, fmt.Errorf("checksum: prepend target underflows address space")
			}
			addr = end - uint32(len(result))
		}
		seg, err := segment.New(addr, result)
		if err != nil {
			return nil, fmt.Errorf("checksum: %w", err)
		}
		hf.AppendSegment(seg)

	case TargetOverwriteEnd:
		raw := hf.RawSegments()
		if len(raw) == 0 {
			return nil, fmt.Errorf("checksum: overwrite-end target requires existing data")
		}
		last := raw[len(raw)-1]
		if last.Len() < len(result) {
			return nil, fmt.Errorf("checksum: last segment shorter than checksum result")
		}
		tailStart := last.Start + uint32(last.Len()-len(result))
		seg, err := segment.New(tailStart, result)
		if err != nil {
			return nil, fmt.Errorf("checksum: %w", err)
		}
		hf.AppendSegment(seg)

	case TargetFile:
		// Caller writes result to an external file; hf is untouched.

	default:
		return nil, fmt.Errorf("checksum: unknown target %v", opts.Target)
	}

	return result, nil
}

// collect gathers the bytes an algorithm runs over: a forced Window
// projects onto the full address range (holes become FillByte); without
// one, only present bytes contribute, in address order, so an unbounded
// sparse span never forces iteration over addresses with no data.
func collect(hf *hexfile.HexFile, opts Options) []byte {
	norm := hf.Normalize().RawSegments()
	exclude := append([]addrrange.Range{}, opts.ExcludeRanges...)
	if opts.TargetExclude {
		if tr, ok := targetByteRange(hf, opts); ok {
			exclude = append(exclude, tr)
		}
	}
	exclude = addrrange.Union(exclude)

	excluded := func(addr uint32) bool {
		for _, ex := range exclude {
			if ex.Contains(addr) {
				return true
			}
		}
		return false
	}

	var buf []byte
	if len(opts.Window) > 0 {
		for _, w := range addrrange.Union(opts.Window) {
			cursor := uint64(w.Start)
			end := uint64(w.End)
			for cursor <= end {
				addr := uint32(cursor)
				if !excluded(addr) {
					b, ok := lookupByte(norm, addr)
					if !ok {
						b = opts.FillByte
					}
					buf = append(buf, b)
				}
				cursor++
			}
		}
		return buf
	}

	for _, s := range norm {
		for i, b := range s.Data {
			addr := s.Start + uint32(i)
			if !excluded(addr) {
				buf = append(buf, b)
			}
		}
	}
	return buf
}

// targetByteRange reports the address range the result bytes would occupy,
// used to drive TargetExclude. TargetFile has no address-space footprint.
func targetByteRange(hf *hexfile.HexFile, opts Options) (addrrange.Range, bool) {
	size := uint32(opts.Algorithm.Size())
	if size == 0 {
		return addrrange.Range{}, false
	}
	switch opts.Target {
	case TargetAddress:
		r, err := addrrange.FromStartLength(opts.Address, size)
		return r, err == nil
	case TargetAppend:
		if hf.IsEmpty() {
			return addrrange.Range{}, false
		}
		r, err := addrrange.FromStartLength(hf.SpanEnd()+1, size)
		return r, err == nil
	case TargetPrepend:
		if hf.IsEmpty() || size > hf.SpanStart() {
			return addrrange.Range{}, false
		}
		r, err := addrrange.FromStartLength(hf.SpanStart()-size, size)
		return r, err == nil
	case TargetOverwriteEnd:
		raw := hf.RawSegments()
		if len(raw) == 0 || uint32(raw[len(raw)-1].Len()) < size {
			return addrrange.Range{}, false
		}
		last := raw[len(raw)-1]
		r, err := addrrange.FromStartLength(last.Start+uint32(last.Len())-size, size)
		return r, err == nil
	default:
		return addrrange.Range{}, false
	}
}

func lookupByte(norm []segment.Segment, addr uint32) (byte, bool) {
	i := sort.Search(len(norm), func(i int) bool { return uint64(norm[i].Start)+uint64(norm[i].Len()) > uint64(addr) })
	if i < len(norm) && norm[i].Start <= addr {
		return norm[i].Data[addr-norm[i].Start], true
	}
	return 0, false
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
