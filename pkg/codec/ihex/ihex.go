// Package ihex reads and writes the Intel HEX format: lines of the form
// :LLAAAATT[DD...]CC, with extended segment (02) and extended linear (04)
// address records carrying the upper address bits.
package ihex

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomrford/h3xy/pkg/checksum"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// DefaultRecordWidth is the data-byte count h3xy chunks records to on
// encode when the caller doesn't request a specific width.
const DefaultRecordWidth = 16

var recordPattern = regexp.MustCompile(`^:([0-9a-fA-F]{2})([0-9a-fA-F]{4})([0-9a-fA-F]{2})([0-9a-fA-F]*)([0-9a-fA-F]{2})$`)

// Decode parses an Intel HEX stream into a HexFile. Checksum mismatches are
// a hard error.
func Decode(r io.Reader) (*hexfile.HexFile, error) {
	hf := hexfile.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var baseAddress uint32
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		m := recordPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("ihex: invalid record at line %d: %q", lineNum, line)
		}
		byteCount, _ := strconv.ParseUint(m[1], 16, 8)
		address, _ := strconv.ParseUint(m[2], 16, 16)
		recordType, _ := strconv.ParseUint(m[3], 16, 8)
		dataHex := m[4]

		allBytes, err := hex.DecodeString(line[1:])
		if err != nil {
			return nil, fmt.Errorf("ihex: malformed hex digits at line %d: %w", lineNum, err)
		}
		sum, err := checksum.Compute(checksum.ByteSumLe, allBytes)
		if err != nil {
			return nil, fmt.Errorf("ihex: %w", err)
		}
		if sum[0] != 0 {
			return nil, fmt.Errorf("ihex: checksum mismatch at line %d", lineNum)
		}

		data, err := hex.DecodeString(dataHex)
		if err != nil {
			return nil, fmt.Errorf("ihex: invalid data field at line %d: %w", lineNum, err)
		}
		if uint64(len(data)) != byteCount {
			return nil, fmt.Errorf("ihex: byte count mismatch at line %d: header says %d, got %d", lineNum, byteCount, len(data))
		}

		switch recordType {
		case 0x00:
			if len(data) == 0 {
				continue
			}
			seg, err := segment.New(baseAddress+uint32(address), data)
			if err != nil {
				return nil, fmt.Errorf("ihex: line %d: %w", lineNum, err)
			}
			hf.AppendSegment(seg)

		case 0x01:
			return hf, nil

		case 0x02:
			if len(data) != 2 {
				return nil, fmt.Errorf("ihex: extended segment address record at line %d must carry 2 bytes", lineNum)
			}
			segmentAddr := uint32(data[0])<<8 | uint32(data[1])
			baseAddress = segmentAddr << 4

		case 0x04:
			if len(data) != 2 {
				return nil, fmt.Errorf("ihex: extended linear address record at line %d must carry 2 bytes", lineNum)
			}
			upper := uint32(data[0])<<8 | uint32(data[1])
			baseAddress = upper << 16

		case 0x03, 0x05:
			// Start segment/linear address: execution entry point, not data.

		default:
			return nil, fmt.Errorf("ihex: unsupported record type 0x%02X at line %d", recordType, lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ihex: %w", err)
	}
	return hf, nil
}

// AddressMode selects which extended-address record family Encode uses.
// AddressAuto picks none/segment(02)/linear(04) from the maximum address
// present; AddressForcedSegment and AddressForcedLinear override that
// choice unconditionally.
type AddressMode int

const (
	AddressAuto AddressMode = iota
	AddressForcedSegment
	AddressForcedLinear
)

// Encode writes hf in normalized, address-sorted order, chunked to width
// bytes per data record (0 selects DefaultRecordWidth), emitting extended
// address records per mode as needed, then a trailing EOF record. A
// record's data never crosses an extended-address-window boundary: a new
// extended-address record is emitted immediately before any record whose
// upper bits would otherwise differ from the current window.
func Encode(w io.Writer, hf *hexfile.HexFile, width int, mode AddressMode) error {
	if width <= 0 {
		width = DefaultRecordWidth
	}
	if width > 255 {
		return fmt.Errorf("ihex: record width %d exceeds the 255-byte record limit", width)
	}

	segs := hf.Normalize().RawSegments()
	maxAddr := maxAddress(segs)
	useSegment, useLinear := addressScheme(mode, maxAddr)
	if useSegment && maxAddr > 0xFFFFF {
		return fmt.Errorf("ihex: address 0x%X exceeds the 20-bit extended segment range", maxAddr)
	}

	// Both the segment (02) and linear (04) extended-address records carry
	// the upper 16 bits of a 64KB-aligned window; they differ only in how
	// that value is encoded on the wire (segment: paragraph number, the
	// window base divided by 16; linear: the window base's upper 16 bits
	// directly), so one window-tracking loop serves both.
	var windowHigh uint32
	haveWindow := false
	for _, seg := range segs {
		off := 0
		for off < len(seg.Data) {
			addr := seg.Start + uint32(off)
			high := addr >> 16

			if (useSegment || useLinear) && (!haveWindow || high != windowHigh) {
				windowHigh = high
				haveWindow = true
				if useLinear {
					if err := emitRecord(w, 0x04, 0, []byte{byte(high >> 8), byte(high)}); err != nil {
						return err
					}
				} else {
					segValue := uint16(high << 12)
					if err := emitRecord(w, 0x02, 0, []byte{byte(segValue >> 8), byte(segValue)}); err != nil {
						return err
					}
				}
			}

			// A record's data must not cross the 64KB window boundary.
			n := width
			if off+n > len(seg.Data) {
				n = len(seg.Data) - off
			}
			windowBase := high << 16
			if maxN := int(windowBase+0x10000) - int(addr); maxN > 0 && maxN < n {
				n = maxN
			}

			chunk := seg.Data[off : off+n]
			if err := emitRecord(w, 0x00, uint16(addr-windowBase), chunk); err != nil {
				return err
			}
			off += n
		}
	}
	return emitRecord(w, 0x01, 0, nil)
}

// addressScheme resolves mode (and, for AddressAuto, the file's maximum
// address) to which extended-address record family Encode emits.
func addressScheme(mode AddressMode, maxAddr uint32) (useSegment, useLinear bool) {
	switch mode {
	case AddressForcedSegment:
		return true, false
	case AddressForcedLinear:
		return false, true
	default:
		switch {
		case maxAddr <= 0xFFFF:
			return false, false
		case maxAddr <= 0xFFFFF:
			return true, false
		default:
			return false, true
		}
	}
}

func maxAddress(segs []segment.Segment) uint32 {
	var max uint32
	for _, s := range segs {
		if e := s.EndAddress(); e > max {
			max = e
		}
	}
	return max
}

func emitRecord(w io.Writer, recordType byte, addr uint16, data []byte) error {
	body := make([]byte, 0, 4+len(data))
	body = append(body, byte(len(data)))
	body = append(body, byte(addr>>8), byte(addr))
	body = append(body, recordType)
	body = append(body, data...)

	cs, err := checksum.Compute(checksum.TwosComplement, body)
	if err != nil {
		return fmt.Errorf("ihex: %w", err)
	}
	body = append(body, cs[0])

	_, err = fmt.Fprintf(w, ":%s\n", strings.ToUpper(hex.EncodeToString(body)))
	if err != nil {
		return fmt.Errorf("ihex: write failed: %w", err)
	}
	return nil
}
