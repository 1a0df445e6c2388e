package hexascii

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

func TestDecodeBasic(t *testing.T) {
	hf, err := Decode(strings.NewReader("AA BB CC DD"), 0x1000)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	segs := hf.Normalize().RawSegments()
	if len(segs) != 1 || segs[0].Start != 0x1000 {
		t.Fatalf("unexpected segments: %+v", segs)
	}
	if !bytes.Equal(segs[0].Data, []byte{0xAA, 0xBB, 0xCC, 0xDD}) {
		t.Fatalf("unexpected data: %x", segs[0].Data)
	}
}

func TestDecode0xPrefixTolerated(t *testing.T) {
	hf, err := Decode(strings.NewReader("0xAA,0xBB"), 0)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	segs := hf.Normalize().RawSegments()
	if !bytes.Equal(segs[0].Data, []byte{0xAA, 0xBB}) {
		t.Fatalf("unexpected data: %x", segs[0].Data)
	}
}

func TestDecodeOddDigitToken(t *testing.T) {
	hf, err := Decode(strings.NewReader("A BB"), 0)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	segs := hf.Normalize().RawSegments()
	if !bytes.Equal(segs[0].Data, []byte{0x0A, 0xBB}) {
		t.Fatalf("unexpected data: %x", segs[0].Data)
	}
}

func TestEncodeWithSeparatorAndGapFill(t *testing.T) {
	hf := hexfile.New()
	s1, _ := segment.New(0, []byte{0x01, 0x02})
	s2, _ := segment.New(4, []byte{0x03})
	hf.AppendSegment(s1)
	hf.AppendSegment(s2)

	var buf bytes.Buffer
	if err := Encode(&buf, hf, " ", 0xFF); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if buf.String() != "01 02 FF FF 03" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestEncodeEmptyFile(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, hexfile.New(), " ", 0xFF); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty output, got %q", buf.String())
	}
}
