package ops

import (
	"testing"

	"github.com/tomrford/h3xy/pkg/hexfile"
)

func TestSwapDWordReversesFourByteChunk(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1000, 0x12, 0x34, 0x56, 0x78))

	if err := Swap(hf, SwapDWord); err != nil {
		t.Fatal(err)
	}
	segs := hf.RawSegments()
	want := []byte{0x78, 0x56, 0x34, 0x12}
	for i := range want {
		if segs[0].Data[i] != want[i] {
			t.Fatalf("got %+v want %v", segs[0].Data, want)
		}
	}
}

func TestSwapDWordLeavesTrailingByteInPlace(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1000, 0x12, 0x34, 0x56, 0x78, 0xAA))

	if err := Swap(hf, SwapDWord); err != nil {
		t.Fatal(err)
	}
	segs := hf.RawSegments()
	want := []byte{0x78, 0x56, 0x34, 0x12, 0xAA}
	for i := range want {
		if segs[0].Data[i] != want[i] {
			t.Fatalf("got %+v want %v", segs[0].Data, want)
		}
	}
}

// For length-multiple-of-2 data, swapping twice restores the original.
func TestSwapInvolution(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1000, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66))
	original := hf.Clone()

	if err := Swap(hf, SwapWord); err != nil {
		t.Fatal(err)
	}
	if err := Swap(hf, SwapWord); err != nil {
		t.Fatal(err)
	}
	if !hexfile.Equal(original, hf) {
		t.Errorf("double word-swap must restore original data")
	}
}

func TestSwapOddTrailingByteUnchangedAfterEitherApplication(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1000, 0x11, 0x22, 0x33))

	if err := Swap(hf, SwapWord); err != nil {
		t.Fatal(err)
	}
	segs := hf.RawSegments()
	if segs[0].Data[2] != 0x33 {
		t.Errorf("trailing byte must be left in place after one swap, got 0x%02X", segs[0].Data[2])
	}

	if err := Swap(hf, SwapWord); err != nil {
		t.Fatal(err)
	}
	segs = hf.RawSegments()
	if segs[0].Data[2] != 0x33 {
		t.Errorf("trailing byte must be left in place after second swap, got 0x%02X", segs[0].Data[2])
	}
}

func TestSwapDoesNotCrossSegmentBoundary(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1000, 0x11))
	hf.AppendSegment(mustSeg(t, 0x1001, 0x22))

	if err := Swap(hf, SwapWord); err != nil {
		t.Fatal(err)
	}
	segs := hf.RawSegments()
	if segs[0].Data[0] != 0x11 || segs[1].Data[0] != 0x22 {
		t.Errorf("per-segment swap must not combine adjacent segments: %+v", segs)
	}
}
