package checksum

import (
	"testing"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

func mustSeg(t *testing.T, start uint32, data ...byte) segment.Segment {
	t.Helper()
	s, err := segment.New(start, data)
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}
	return s
}

func TestApplyAppendPlacesResultAfterSpan(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x00, 0x00, 0x00, 0x00, 0x00))

	result, err := Apply(hf, Options{Algorithm: Crc32IsoHdlc, Target: TargetAppend})
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 4 {
		t.Fatalf("got %d result bytes, want 4", len(result))
	}
	segs := hf.RawSegments()
	last := segs[len(segs)-1]
	if last.Start != 0x04 || last.Len() != 4 {
		t.Fatalf("checksum not appended at expected address: %+v", last)
	}
}

func TestApplyAddressRejectsOutOfSpan(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x10, 1, 2, 3))

	_, err := Apply(hf, Options{Algorithm: ByteSumLe, Target: TargetAddress, Address: 0x100})
	if err == nil {
		t.Fatalf("expected error for out-of-span address target")
	}
}

func TestApplyAddressOverwritesInPlace(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x10, 1, 2, 0xFF))

	if _, err := Apply(hf, Options{Algorithm: ByteSumLe, Target: TargetAddress, Address: 0x12, TargetExclude: true}); err != nil {
		t.Fatal(err)
	}
	segs := hf.Normalize().RawSegments()
	if segs[0].Data[2] != 0x03 {
		t.Fatalf("got %+v, want checksum byte 0x03 (1+2) at offset 2", segs[0].Data)
	}
}

func TestApplyOverwriteEndReplacesTailBytes(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x10, 1, 2, 3, 0, 0))

	if _, err := Apply(hf, Options{Algorithm: WordSumLe, Target: TargetOverwriteEnd, TargetExclude: true}); err != nil {
		t.Fatal(err)
	}
	segs := hf.Normalize().RawSegments()
	if len(segs[0].Data) != 5 {
		t.Fatalf("overwrite-end must not change segment length, got %+v", segs[0].Data)
	}
}

func TestApplyFileTargetDoesNotMutateHexFile(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x10, 1, 2, 3))
	original := hf.Clone()

	result, err := Apply(hf, Options{Algorithm: Crc32IsoHdlc, Target: TargetFile})
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 4 {
		t.Fatalf("expected 4 result bytes")
	}
	if !hexfile.Equal(original, hf) {
		t.Errorf("TargetFile must not mutate hf")
	}
}

func TestApplyReverseFlipsByteOrder(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x10, 1, 2, 3, 4))

	result, err := Apply(hf, Options{Algorithm: Crc32IsoHdlc, Target: TargetFile, Reverse: true})
	if err != nil {
		t.Fatal(err)
	}
	unreversed, err := Compute(Crc32IsoHdlc, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	for i := range result {
		if result[i] != unreversed[len(unreversed)-1-i] {
			t.Fatalf("reverse flag did not reverse byte order: got %+v from %+v", result, unreversed)
		}
	}
}

func TestCollectForcedWindowFillsGapsWithFillByte(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x00, 1, 2))
	hf.AppendSegment(mustSeg(t, 0x10, 3, 4))

	r, _ := addrrange.New(0x00, 0x11)
	got := collect(hf, Options{Window: []addrrange.Range{r}, FillByte: 0xFF})
	if len(got) != 0x12 {
		t.Fatalf("got %d bytes, want 18", len(got))
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 0xFF || got[0x10] != 3 || got[0x11] != 4 {
		t.Fatalf("got %+v", got)
	}
}

func TestCollectWithoutWindowOnlyPresentBytes(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x00, 1, 2))
	hf.AppendSegment(mustSeg(t, 0x1000000, 3, 4))

	got := collect(hf, Options{})
	if len(got) != 4 {
		t.Fatalf("sparse span without a forced window must not expand to cover the gap, got %d bytes", len(got))
	}
}

func TestCollectExcludeRangesSkipAddresses(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x00, 1, 2, 3, 4))

	ex, _ := addrrange.New(0x01, 0x02)
	got := collect(hf, Options{ExcludeRanges: []addrrange.Range{ex}})
	if len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Fatalf("got %+v", got)
	}
}
