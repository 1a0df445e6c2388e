package uploader

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialSettings configures the serial transport. The pipeline has no
// notion of a target CPU, only a baud rate and a read timeout.
type SerialSettings struct {
	BaudRate int
	Timeout  time.Duration
}

// DefaultSerialSettings matches common debug-bridge defaults.
func DefaultSerialSettings() SerialSettings {
	return SerialSettings{BaudRate: 115200, Timeout: 5 * time.Second}
}

// serialConn adapts a serial port to Conn. A timed-out read surfaces as
// an error instead of the port's zero-byte success, which would spin
// io.ReadFull forever; writes loop until the whole buffer is out.
type serialConn struct {
	port serial.Port
}

func openSerial(path string, settings SerialSettings) (Conn, error) {
	if settings.BaudRate == 0 {
		settings = DefaultSerialSettings()
	}
	mode := &serial.Mode{
		BaudRate: settings.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("uploader: opening serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(settings.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("uploader: setting read timeout: %w", err)
	}
	return &serialConn{port: port}, nil
}

func (s *serialConn) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err == nil && n == 0 && len(p) > 0 {
		return 0, fmt.Errorf("uploader: serial read timeout")
	}
	return n, err
}

func (s *serialConn) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.port.Write(p[total:])
		if err != nil {
			return total, fmt.Errorf("uploader: serial write: %w", err)
		}
		total += n
	}
	return total, nil
}

func (s *serialConn) Close() error {
	return s.port.Close()
}
