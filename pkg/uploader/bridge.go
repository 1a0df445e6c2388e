package uploader

import (
	"fmt"
	"io"
	"net"

	"github.com/tomrford/h3xy/pkg/segment"
)

// Bridge accepts the upload protocol over TCP and replays each request
// against a serial-attached device, so a pipeline run on another machine
// can address the device as host:port. It is not a raw byte relay: every
// request is decoded back into an address window and, for writes, a
// segment, so a malformed window or a bad check byte is rejected at the
// bridge instead of being passed through to the hardware.
type Bridge struct {
	listenAddr string
	serialPath string
	settings   SerialSettings
}

// NewBridge creates a TCP-to-serial bridge listening on host:port.
func NewBridge(host string, port int, serialPath string, settings SerialSettings) *Bridge {
	return &Bridge{
		listenAddr: fmt.Sprintf("%s:%d", host, port),
		serialPath: serialPath,
		settings:   settings,
	}
}

// Listen starts the TCP server and serves connections indefinitely; it
// returns only if the listener cannot be started. Accept errors are printed
// and the loop continues.
func (b *Bridge) Listen() error {
	listener, err := net.Listen("tcp", b.listenAddr)
	if err != nil {
		return fmt.Errorf("uploader: start TCP listener: %w", err)
	}
	defer listener.Close()

	fmt.Printf("listening on %s, relaying to %s\n", b.listenAddr, b.serialPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			fmt.Printf("accept error: %v\n", err)
			continue
		}
		fmt.Printf("connection from %s\n", conn.RemoteAddr())
		go b.serve(conn)
	}
}

// serve decodes requests from one TCP client and re-issues them through a
// Device on the serial side, one serial session per client.
func (b *Bridge) serve(tcpConn net.Conn) {
	defer tcpConn.Close()

	serialSide, err := openSerial(b.serialPath, b.settings)
	if err != nil {
		fmt.Printf("serial open error: %v\n", err)
		return
	}
	dev := NewDevice(serialSide)
	defer dev.Close()

	for {
		command, window, data, err := decodeRequest(tcpConn)
		if err != nil {
			if err != io.EOF {
				fmt.Printf("request error: %v\n", err)
			}
			return
		}

		var payload []byte
		switch command {
		case cmdWriteMem:
			var seg segment.Segment
			seg, err = segment.New(window.Start, data)
			if err == nil {
				err = dev.WriteSegment(seg, 0)
			}
		case cmdReadMem:
			var seg segment.Segment
			seg, err = dev.ReadSegment(window)
			payload = seg.Data
		default:
			err = fmt.Errorf("unknown command 0x%02X", command)
		}

		status0, status1 := dev.Status()
		if err != nil {
			fmt.Printf("relay error: %v\n", err)
			status0 = 0xFF
			// The response frame has no length field, so a failed read
			// still answers with the full window, zero-filled.
			if command == cmdReadMem {
				payload = make([]byte, window.Length())
			} else {
				payload = nil
			}
		}
		if _, werr := tcpConn.Write(encodeResponse(status0, status1, payload)); werr != nil {
			fmt.Printf("response write error: %v\n", werr)
			return
		}
	}
}
