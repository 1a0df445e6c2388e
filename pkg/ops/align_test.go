package ops

import (
	"testing"

	"github.com/tomrford/h3xy/pkg/hexfile"
)

func TestAlignPadsStartAndLength(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1001, 1, 2, 3, 4, 5))

	if err := Align(hf, 4, 0xFF, true); err != nil {
		t.Fatal(err)
	}

	segs := hf.RawSegments()
	if len(segs) != 1 {
		t.Fatalf("expected one merged segment, got %+v", segs)
	}
	want := []byte{0xFF, 1, 2, 3, 4, 5, 0xFF, 0xFF}
	if segs[0].Start != 0x1000 || len(segs[0].Data) != len(want) {
		t.Fatalf("got %+v", segs[0])
	}
	for i := range want {
		if segs[0].Data[i] != want[i] {
			t.Errorf("byte %d: got 0x%02X want 0x%02X", i, segs[0].Data[i], want[i])
		}
	}
}

func TestAlignWithoutLength(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1003, 9))

	if err := Align(hf, 4, 0, false); err != nil {
		t.Fatal(err)
	}
	segs := hf.RawSegments()
	if segs[0].Start != 0x1000 || len(segs[0].Data) != 4 {
		t.Fatalf("got %+v", segs[0])
	}
	if segs[0].Data[3] != 9 {
		t.Errorf("original byte displaced: %+v", segs[0].Data)
	}
}

func TestAlignAlreadyAligned(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x1000, 1, 2, 3, 4))

	if err := Align(hf, 4, 0xFF, true); err != nil {
		t.Fatal(err)
	}
	segs := hf.RawSegments()
	if segs[0].Start != 0x1000 || len(segs[0].Data) != 4 {
		t.Fatalf("already-aligned segment should be untouched, got %+v", segs[0])
	}
}

func TestAlignRejectsZero(t *testing.T) {
	hf := hexfile.New()
	hf.AppendSegment(mustSeg(t, 0x10, 1))
	if err := Align(hf, 0, 0, false); err == nil {
		t.Fatalf("expected error for alignment 0")
	}
}
