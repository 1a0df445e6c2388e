package uploader

import (
	"bytes"
	"testing"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/segment"
)

// fakeConn is an in-memory Conn backed by a byte-addressable buffer,
// used to exercise Device's framing without real hardware.
type fakeConn struct {
	mem      []byte
	inbound  bytes.Buffer
	requests int
}

func newFakeConn(size int) *fakeConn {
	return &fakeConn{mem: make([]byte, size)}
}

func (f *fakeConn) Read(p []byte) (int, error) {
	return f.inbound.Read(p)
}

// Write decodes one request frame and queues the matching response,
// simulating a device that honors reads and writes.
func (f *fakeConn) Write(data []byte) (int, error) {
	command, window, payload, err := decodeRequest(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	f.requests++

	var respData []byte
	switch command {
	case cmdWriteMem:
		copy(f.mem[window.Start:], payload)
	case cmdReadMem:
		respData = f.mem[window.Start : uint64(window.Start)+window.Length()]
	}
	f.inbound.Write(encodeResponse(0, 0, respData))
	return len(data), nil
}

func (f *fakeConn) Close() error { return nil }

func TestWriteSegmentThenReadBack(t *testing.T) {
	conn := newFakeConn(256)
	d := NewDevice(conn)

	seg, err := segment.New(0x10, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteSegment(seg, 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	window, _ := addrrange.FromStartLength(0x10, 4)
	got, err := d.ReadSegment(window)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !got.Equal(seg) {
		t.Fatalf("got %+v want %+v", got, seg)
	}
}

func TestWriteSegmentChunks(t *testing.T) {
	conn := newFakeConn(256)
	d := NewDevice(conn)

	seg, err := segment.New(0x20, []byte{1, 2, 3, 4, 5, 6, 7})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteSegment(seg, 3); err != nil {
		t.Fatalf("write segment failed: %v", err)
	}
	if conn.requests != 3 {
		t.Fatalf("expected 3 chunked transfers, got %d", conn.requests)
	}

	window, _ := addrrange.FromStartLength(0x20, 7)
	got, err := d.ReadSegment(window)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data, seg.Data) {
		t.Fatalf("got %x, want %x", got.Data, seg.Data)
	}
}

func TestBusWidthWidensUnalignedWrite(t *testing.T) {
	conn := newFakeConn(256)
	copy(conn.mem[0x20:], []byte{0x11, 0x22, 0x33, 0x44})

	d := NewDevice(conn)
	d.BusWidth = 4

	seg, err := segment.New(0x21, []byte{0xAA, 0xBB})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteSegment(seg, 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The untouched word bytes must survive the read-modify-write.
	want := []byte{0x11, 0xAA, 0xBB, 0x44}
	if !bytes.Equal(conn.mem[0x20:0x24], want) {
		t.Fatalf("got %x want %x", conn.mem[0x20:0x24], want)
	}
}

func TestBusWidthAlignedWriteSkipsReadBack(t *testing.T) {
	conn := newFakeConn(256)
	d := NewDevice(conn)
	d.BusWidth = 4

	seg, err := segment.New(0x40, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteSegment(seg, 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if conn.requests != 1 {
		t.Fatalf("aligned write must not read back, got %d transfers", conn.requests)
	}
}

func TestDecodeRequestRejectsZeroLengthWindow(t *testing.T) {
	packet := []byte{requestSync, cmdReadMem, 0, 0, 0, 0x10, 0, 0, 0, 0}
	packet = append(packet, xorSum(packet))
	if _, _, _, err := decodeRequest(bytes.NewReader(packet)); err == nil {
		t.Fatalf("expected error for zero-length request window")
	}
}

func TestDecodeRequestRejectsBadCheckByte(t *testing.T) {
	window, _ := addrrange.FromStartLength(0x10, 2)
	packet, err := encodeRequest(cmdWriteMem, window, []byte{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	packet[len(packet)-1] ^= 0xFF
	if _, _, _, err := decodeRequest(bytes.NewReader(packet)); err == nil {
		t.Fatalf("expected check byte mismatch error")
	}
}
