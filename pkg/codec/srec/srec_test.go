package srec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

func TestDecodeSimpleDataRecord(t *testing.T) {
	// S1, count 5 (2 address + 2 data + 1 checksum), address 0x0000, data AA BB, checksum.
	// body = 05 00 00 AA BB -> sum=0x16A -> low byte 0x6A -> ~0x6A&0xFF=0x95
	in := "S10500 00AABB95\n"
	hf, err := Decode(strings.NewReader(strings.ReplaceAll(in, " ", "")))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	segs := hf.Normalize().RawSegments()
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Start != 0 || !bytes.Equal(segs[0].Data, []byte{0xAA, 0xBB}) {
		t.Fatalf("unexpected segment: %+v", segs[0])
	}
}

func TestDecodeLowercasePrefix(t *testing.T) {
	in := "s1050000AABB95\n"
	hf, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if hf.Normalize().Len() != 1 {
		t.Fatalf("expected 1 segment")
	}
}

func TestDecodeBadChecksum(t *testing.T) {
	in := "S10500 00AABB00\n"
	_, err := Decode(strings.NewReader(strings.ReplaceAll(in, " ", "")))
	if err == nil {
		t.Fatalf("expected checksum error")
	}
}

func TestEncodeAutoWidthPicksS1(t *testing.T) {
	hf := hexfile.New()
	seg, _ := segment.New(0x100, []byte{0x01, 0x02, 0x03})
	hf.AppendSegment(seg)

	var buf bytes.Buffer
	if err := Encode(&buf, hf, 0, AddressAuto); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "S1") {
		t.Fatalf("expected S1 data record for small address, got: %s", out)
	}
	if !strings.HasPrefix(out, "S0") {
		t.Fatalf("expected S0 header first, got: %s", out)
	}
}

func TestEncodeForcedAddress32(t *testing.T) {
	hf := hexfile.New()
	seg, _ := segment.New(0x100, []byte{0x01, 0x02})
	hf.AppendSegment(seg)

	var buf bytes.Buffer
	if err := Encode(&buf, hf, 16, Address32); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.Contains(buf.String(), "S3") {
		t.Fatalf("expected forced S3 data record, got: %s", buf.String())
	}
}

func TestEncodeForcedTypeRequiresRecordLength(t *testing.T) {
	hf := hexfile.New()
	seg, _ := segment.New(0x100, []byte{0x01})
	hf.AppendSegment(seg)

	var buf bytes.Buffer
	if err := Encode(&buf, hf, 0, Address32); err == nil {
		t.Fatalf("expected error for forced record type without record length")
	}
}

func TestRoundTrip(t *testing.T) {
	hf := hexfile.New()
	s1, _ := segment.New(0x1000, []byte{0x12, 0x34, 0x56, 0x78})
	s2, _ := segment.New(0x2000, []byte{0xAA, 0xBB})
	hf.AppendSegment(s1)
	hf.AppendSegment(s2)

	var buf bytes.Buffer
	if err := Encode(&buf, hf, 16, AddressAuto); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !hexfile.Equal(hf, decoded) {
		t.Fatalf("round trip mismatch")
	}
}
