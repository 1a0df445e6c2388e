package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/checksum"
)

func TestApplyRangeFilterThenIHexOutput(t *testing.T) {
	input := ":10010000214601360121470136007EFE09D2190140\n:00000001FF\n"
	r, err := addrrange.New(0x100, 0x10F)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cfg := Config{
		Inputs:      []Input{{Format: FormatIntelHex, Reader: strings.NewReader(input)}},
		RangeFilter: []addrrange.Range{r},
		Outputs:     []Output{{Format: FormatIntelHex, Writer: &out, RecordWidth: 16}},
	}
	if _, err := Apply(cfg); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	want := ":10010000214601360121470136007EFE09D2190140\n:00000001FF\n"
	if out.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestApplyChecksumAppendThenBinaryOutput(t *testing.T) {
	// Four zero bytes + CRC32/ISO-HDLC appended.
	var out bytes.Buffer
	cfg := Config{
		Inputs: []Input{{Format: FormatBinary, Reader: bytes.NewReader([]byte{0, 0, 0, 0}), BinBase: 0}},
		Checksums: []ChecksumStep{{
			Opts: checksum.Options{Algorithm: checksum.Crc32IsoHdlc, Target: checksum.TargetAppend},
		}},
		Outputs: []Output{{Format: FormatBinary, Writer: &out}},
	}
	if _, err := Apply(cfg); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	want := []byte{0, 0, 0, 0, 0x1C, 0xDF, 0x44, 0x21}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("got %x want %x", out.Bytes(), want)
	}
}

func TestApplyStopsAtFirstError(t *testing.T) {
	cfg := Config{
		Inputs:         []Input{{Format: FormatBinary, Reader: bytes.NewReader([]byte{1, 2, 3}), BinBase: 0x10}},
		UnscaleDivisor: func() *uint64 { v := uint64(3); return &v }(),
		Outputs:     []Output{{Format: FormatBinary, Writer: &bytes.Buffer{}}},
	}
	if _, err := Apply(cfg); err == nil {
		t.Fatalf("expected unscale divisibility error")
	}
}

func TestApplySkipsUnconfiguredSteps(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{
		Inputs:  []Input{{Format: FormatBinary, Reader: bytes.NewReader([]byte{9, 9}), BinBase: 0x10}},
		Outputs: []Output{{Format: FormatBinary, Writer: &out}},
	}
	if _, err := Apply(cfg); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !bytes.Equal(out.Bytes(), []byte{9, 9}) {
		t.Fatalf("got %x", out.Bytes())
	}
}
