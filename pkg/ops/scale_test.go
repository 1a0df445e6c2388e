package ops

import (
	"testing"

	"github.com/tomrford/h3xy/pkg/hexfile"
)

func TestScaleMultipliesStart(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x100, 1, 2, 3))

	if err := ScaleAddresses(hf, 2); err != nil {
		t.Fatal(err)
	}
	segs := hf.RawSegments()
	if segs[0].Start != 0x200 {
		t.Fatalf("got start 0x%X want 0x200", segs[0].Start)
	}
}

func TestScaleOverflowErrorsAndLeavesUnchanged(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0xFFFFFFFF, 1))

	err := ScaleAddresses(hf, 2)
	if err == nil {
		t.Fatalf("expected overflow error")
	}
	segs := hf.RawSegments()
	if segs[0].Start != 0xFFFFFFFF {
		t.Fatalf("hf must be left unchanged on error, got %+v", segs[0])
	}
}

func TestUnscaleRejectsNonDivisible(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x101, 1))

	err := UnscaleAddresses(hf, 2)
	if err == nil {
		t.Fatalf("expected non-divisible error")
	}
	segs := hf.RawSegments()
	if segs[0].Start != 0x101 {
		t.Fatalf("hf must be left unchanged on error, got %+v", segs[0])
	}
}

// TestScaleUnscaleRoundTrip checks the round-trip invariant:
// unscale(scale(h,k),k) == h for any k >= 1.
func TestScaleUnscaleRoundTrip(t *testing.T) {
	for _, k := range []uint64{1, 2, 4, 16} {
		hf := hexfile.New()
		hf.AppendSegment(mustSeg(t, 0x100, 1, 2, 3, 4))
		original := hf.Clone()

		if err := ScaleAddresses(hf, k); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if err := UnscaleAddresses(hf, k); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if !hexfile.Equal(original, hf) {
			t.Errorf("k=%d: round trip did not restore original", k)
		}
	}
}

func TestScaleRejectsZeroFactor(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x10, 1))
	if err := ScaleAddresses(hf, 0); err == nil {
		t.Fatalf("expected error for zero factor")
	}
	if err := UnscaleAddresses(hf, 0); err == nil {
		t.Fatalf("expected error for zero divisor")
	}
}
