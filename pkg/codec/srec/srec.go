// Package srec reads and writes the Motorola S-Record format: S0 header,
// S1/S2/S3 data records with 2/3/4 address bytes, S5/S6 count records,
// S7/S8/S9 terminators.
package srec

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// AddressWidth selects the forced record type's address byte count, or
// AddressAuto to select the smallest S1/S2/S3 that covers the maximum
// address.
type AddressWidth int

const (
	AddressAuto AddressWidth = iota
	Address16
	Address24
	Address32
)

var recordPattern = regexp.MustCompile(`^[sS]([0-9])([0-9a-fA-F]+)$`)

// Decode parses an S-Record stream into a HexFile. The lowercase "s"
// prefix is accepted on read.
func Decode(r io.Reader) (*hexfile.HexFile, error) {
	hf := hexfile.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		m := recordPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("srec: invalid record at line %d: %q", lineNum, line)
		}
		recordType, _ := strconv.ParseUint(m[1], 10, 8)
		hexDigits := m[2]

		body, err := hex.DecodeString(hexDigits)
		if err != nil {
			return nil, fmt.Errorf("srec: malformed hex digits at line %d: %w", lineNum, err)
		}
		if len(body) < 2 {
			return nil, fmt.Errorf("srec: record too short at line %d", lineNum)
		}
		count := body[0]
		if int(count) != len(body)-1 {
			return nil, fmt.Errorf("srec: count mismatch at line %d: header says %d, got %d", lineNum, count, len(body)-1)
		}
		payload, checksum := body[1:len(body)-1], body[len(body)-1]
		if computed := srecChecksum(body[:len(body)-1]); computed != checksum {
			return nil, fmt.Errorf("srec: checksum mismatch at line %d", lineNum)
		}

		switch recordType {
		case 0:
			// Header record: vendor/module name text, not address data.
		case 1, 2, 3:
			addrBytes := int(recordType) + 1
			if len(payload) < addrBytes {
				return nil, fmt.Errorf("srec: data record too short at line %d", lineNum)
			}
			addr := beUint(payload[:addrBytes])
			data := payload[addrBytes:]
			if len(data) == 0 {
				continue
			}
			seg, err := segment.New(addr, data)
			if err != nil {
				return nil, fmt.Errorf("srec: line %d: %w", lineNum, err)
			}
			hf.AppendSegment(seg)
		case 5, 6:
			// Record count: informational only.
		case 7, 8, 9:
			// Start address (termination record): not data.
		default:
			return nil, fmt.Errorf("srec: unsupported record type S%d at line %d", recordType, lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("srec: %w", err)
	}
	return hf, nil
}

// Encode writes hf in normalized, address-sorted order as S-Records,
// chunked to width data bytes per record (0 selects 16). addrWidth selects
// the forced S1/S2/S3 type; AddressAuto picks the smallest type that
// covers the maximum address across the whole file.
func Encode(w io.Writer, hf *hexfile.HexFile, width int, addrWidth AddressWidth) error {
	if width <= 0 {
		if addrWidth != AddressAuto {
			// A forced record type requires an explicit record length.
			return fmt.Errorf("srec: forced record type requires a record length")
		}
		width = 16
	}

	segs := hf.Normalize().RawSegments()

	dataType, termType := resolveWidth(addrWidth, maxAddress(segs))

	if err := emitRecord(w, 0, 0, []byte("h3xy")); err != nil {
		return err
	}

	count := 0
	for _, seg := range segs {
		off := 0
		for off < len(seg.Data) {
			n := width
			if off+n > len(seg.Data) {
				n = len(seg.Data) - off
			}
			addr := seg.Start + uint32(off)
			if err := emitRecord(w, dataType, addr, seg.Data[off:off+n]); err != nil {
				return err
			}
			count++
			off += n
		}
	}

	if err := emitRecord(w, countRecordType(count), uint32(count), nil); err != nil {
		return err
	}
	return emitRecord(w, termType, 0, nil)
}

func resolveWidth(addrWidth AddressWidth, maxAddr uint32) (dataType byte, termType byte) {
	switch addrWidth {
	case Address16:
		return 1, 9
	case Address24:
		return 2, 8
	case Address32:
		return 3, 7
	default:
		switch {
		case maxAddr <= 0xFFFF:
			return 1, 9
		case maxAddr <= 0xFFFFFF:
			return 2, 8
		default:
			return 3, 7
		}
	}
}

func countRecordType(count int) byte {
	if count > 0xFFFF {
		return 6
	}
	return 5
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

func emitRecord(w io.Writer, recordType byte, addr uint32, data []byte) error {
	addrBytes := addrByteCount(recordType)
	body := make([]byte, 0, 1+addrBytes+len(data)+1)
	body = append(body, 0) // count placeholder
	body = append(body, beBytes(addr, addrBytes)...)
	body = append(body, data...)
	body[0] = byte(len(body) - 1 + 1) // count covers address+data+checksum

	cs := srecChecksum(body)
	body = append(body, cs)

	_, err := fmt.Fprintf(w, "S%d%s\n", recordType, strings.ToUpper(hex.EncodeToString(body)))
	if err != nil {
		return fmt.Errorf("srec: write failed: %w", err)
	}
	return nil
}

func addrByteCount(recordType byte) int {
	switch recordType {
	case 1, 5, 9:
		return 2
	case 2, 6, 8:
		return 3
	case 3, 7:
		return 4
	default:
		return 2
	}
}

// srecChecksum computes ~(sum of all body bytes) & 0xFF.
func srecChecksum(body []byte) byte {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return ^sum
}

func beUint(b []byte) uint32 {
	var v uint32
	for _, x := range b {
		v = v<<8 | uint32(x)
	}
	return v
}

func beBytes(v uint32, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}
