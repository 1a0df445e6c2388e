package uploader

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// Wire framing for the checksummed request/response protocol. Address and
// length fields are 32-bit, matching the segment model's address space, so
// any addrrange.Range a pipeline can produce is representable on the wire.
const (
	requestSync  byte = 0x55
	responseSync byte = 0xAA

	cmdReadMem  byte = 0x01
	cmdWriteMem byte = 0x02

	headerLen = 10 // sync, command, 4 address bytes, 4 length bytes
)

// Device frames segments onto a Conn.
//
// Request:  [0x55][CMD][ADDR:4][LEN:4][...DATA...][CHECK]
// Response: [0xAA][STATUS0][STATUS1][...DATA...][CHECK]
type Device struct {
	conn Conn

	// BusWidth, when > 1, makes every write land on BusWidth-aligned
	// boundaries: partially covered words are read back and the segment
	// is overlaid on top under last-writer-wins before the whole word
	// window is written.
	BusWidth int

	status0 byte
	status1 byte
}

// NewDevice wraps an already-opened Conn.
func NewDevice(conn Conn) *Device {
	return &Device{conn: conn}
}

// Close closes the underlying connection.
func (d *Device) Close() error {
	return d.conn.Close()
}

// Status returns the two status bytes from the most recent transfer.
func (d *Device) Status() (byte, byte) {
	return d.status0, d.status1
}

// WriteSegment streams seg to the device, maxChunk bytes per transfer
// (0 means a single transfer). With BusWidth > 1 each piece is widened to
// the bus boundary first.
func (d *Device) WriteSegment(seg segment.Segment, maxChunk int) error {
	for _, piece := range chunkSegment(seg, maxChunk) {
		if err := d.writePiece(piece); err != nil {
			return fmt.Errorf("uploader: writing segment at 0x%X: %w", piece.Start, err)
		}
	}
	return nil
}

// ReadSegment reads window back from the device as a single segment.
func (d *Device) ReadSegment(window addrrange.Range) (segment.Segment, error) {
	data, err := d.transfer(cmdReadMem, window, nil)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("uploader: reading 0x%X-0x%X: %w", window.Start, window.End, err)
	}
	return segment.New(window.Start, data)
}

// chunkSegment slices seg into consecutive sub-segments of at most max
// bytes, using the same range-slicing the operation library uses.
func chunkSegment(seg segment.Segment, max int) []segment.Segment {
	if max <= 0 || seg.Len() <= max {
		return []segment.Segment{seg}
	}
	pieces := make([]segment.Segment, 0, (seg.Len()+max-1)/max)
	for off := 0; off < seg.Len(); off += max {
		n := max
		if off+n > seg.Len() {
			n = seg.Len() - off
		}
		window, err := addrrange.FromStartLength(seg.Start+uint32(off), uint32(n))
		if err != nil {
			continue
		}
		if piece, ok := seg.Slice(window); ok {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}

func (d *Device) writePiece(seg segment.Segment) error {
	if d.BusWidth > 1 {
		widened, err := d.widenToBus(seg)
		if err != nil {
			return err
		}
		seg = widened
	}
	_, err := d.transfer(cmdWriteMem, seg.Range(), seg.Data)
	return err
}

// widenToBus grows seg to BusWidth-aligned boundaries. The partially
// covered words are read back as a segment and seg is overlaid on top:
// the later-inserted segment supplies the byte wherever both cover an
// address, which is exactly the model's priority rule.
func (d *Device) widenToBus(seg segment.Segment) (segment.Segment, error) {
	width := uint32(d.BusWidth)
	start := seg.Start - seg.Start%width
	end64 := uint64(seg.EndAddress()) + 1
	if rem := end64 % uint64(width); rem != 0 {
		end64 += uint64(width) - rem
	}
	if end64-1 > 0xFFFFFFFF {
		return segment.Segment{}, fmt.Errorf("bus alignment overflows the address space at 0x%X", seg.Start)
	}
	window, err := addrrange.New(start, uint32(end64-1))
	if err != nil {
		return segment.Segment{}, err
	}
	if window == seg.Range() {
		return seg, nil
	}

	block, err := d.ReadSegment(window)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("reading bus words for alignment: %w", err)
	}
	hf := hexfile.New()
	hf.AppendSegment(block)
	hf.AppendSegment(seg)
	merged := hf.Normalize().RawSegments()
	if len(merged) != 1 {
		return segment.Segment{}, fmt.Errorf("device returned %d bytes for 0x%X-0x%X", block.Len(), window.Start, window.End)
	}
	return merged[0], nil
}

func (d *Device) transfer(command byte, window addrrange.Range, data []byte) ([]byte, error) {
	d.status0, d.status1 = 0, 0

	packet, err := encodeRequest(command, window, data)
	if err != nil {
		return nil, err
	}
	if _, err := d.conn.Write(packet); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	readLen := 0
	if command == cmdReadMem {
		readLen = int(window.Length())
	}
	status0, status1, payload, err := decodeResponse(d.conn, readLen)
	if err != nil {
		return nil, err
	}
	d.status0, d.status1 = status0, status1
	return payload, nil
}

func encodeRequest(command byte, window addrrange.Range, data []byte) ([]byte, error) {
	length := window.Length()
	if length > 0xFFFFFFFF {
		return nil, fmt.Errorf("window 0x%X-0x%X exceeds a single transfer", window.Start, window.End)
	}
	if len(data) > 0 && uint64(len(data)) != length {
		return nil, fmt.Errorf("%d data bytes for a %d byte window", len(data), length)
	}
	packet := make([]byte, 0, headerLen+len(data)+1)
	packet = append(packet, requestSync, command)
	packet = binary.BigEndian.AppendUint32(packet, window.Start)
	packet = binary.BigEndian.AppendUint32(packet, uint32(length))
	packet = append(packet, data...)
	packet = append(packet, xorSum(packet))
	return packet, nil
}

// decodeRequest reads one request frame and resolves its address window
// through the range model, so a zero-length or overflowing window is
// rejected before it ever reaches hardware.
func decodeRequest(r io.Reader) (byte, addrrange.Range, []byte, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, addrrange.Range{}, nil, err
	}
	if header[0] != requestSync {
		return 0, addrrange.Range{}, nil, fmt.Errorf("uploader: bad request sync 0x%02X", header[0])
	}
	command := header[1]
	start := binary.BigEndian.Uint32(header[2:6])
	length := binary.BigEndian.Uint32(header[6:10])
	window, err := addrrange.FromStartLength(start, length)
	if err != nil {
		return 0, addrrange.Range{}, nil, fmt.Errorf("uploader: bad request window: %w", err)
	}

	var data []byte
	if command == cmdWriteMem {
		data = make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return 0, addrrange.Range{}, nil, fmt.Errorf("uploader: reading request data: %w", err)
		}
	}
	trailer := make([]byte, 1)
	if _, err := io.ReadFull(r, trailer); err != nil {
		return 0, addrrange.Range{}, nil, fmt.Errorf("uploader: reading request check byte: %w", err)
	}
	if xorSum(header)^xorSum(data) != trailer[0] {
		return 0, addrrange.Range{}, nil, fmt.Errorf("uploader: request check byte mismatch")
	}
	return command, window, data, nil
}

func encodeResponse(status0, status1 byte, data []byte) []byte {
	packet := make([]byte, 0, 3+len(data)+1)
	packet = append(packet, responseSync, status0, status1)
	packet = append(packet, data...)
	packet = append(packet, xorSum(packet))
	return packet
}

func decodeResponse(r io.Reader, readLen int) (byte, byte, []byte, error) {
	// Tolerate a bounded run of stray bytes before the sync marker.
	sync := make([]byte, 1)
	for tries := 0; ; tries++ {
		if _, err := io.ReadFull(r, sync); err != nil {
			return 0, 0, nil, fmt.Errorf("reading response sync: %w", err)
		}
		if sync[0] == responseSync {
			break
		}
		if tries >= 64 {
			return 0, 0, nil, fmt.Errorf("no response sync marker")
		}
	}

	status := make([]byte, 2)
	if _, err := io.ReadFull(r, status); err != nil {
		return 0, 0, nil, fmt.Errorf("reading status bytes: %w", err)
	}
	var data []byte
	if readLen > 0 {
		data = make([]byte, readLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return 0, 0, nil, fmt.Errorf("reading response data: %w", err)
		}
	}
	trailer := make([]byte, 1)
	if _, err := io.ReadFull(r, trailer); err != nil {
		return 0, 0, nil, fmt.Errorf("reading response check byte: %w", err)
	}
	if responseSync^status[0]^status[1]^xorSum(data) != trailer[0] {
		return 0, 0, nil, fmt.Errorf("response check byte mismatch")
	}
	return status[0], status[1], data, nil
}

func xorSum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum ^= v
	}
	return sum
}
