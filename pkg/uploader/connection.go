// Package uploader implements the optional device-upload post-step: after
// a pipeline run produces a HexFile, its segments can be streamed to a
// live target over a serial port or TCP instead of (or in addition to)
// being written to an output file. Every transfer is framed on a 32-bit
// address window from the segment model; the transports below only move
// the framed bytes.
package uploader

import (
	"fmt"
	"io"
	"strings"
)

// Conn is the byte transport a Device frames segments over. The serial
// and TCP transports both satisfy it; test fakes do too.
type Conn interface {
	io.ReadWriteCloser
}

// Dial opens target: a string containing ':' is treated as a TCP address
// ("192.168.1.114:2560"), anything else as a serial device path ("COM3",
// "/dev/ttyUSB0").
func Dial(target string, settings SerialSettings) (Conn, error) {
	if err := ValidatePort(target); err != nil {
		return nil, err
	}
	if strings.Contains(target, ":") {
		return dialTCP(target)
	}
	return openSerial(target, settings)
}

// ValidatePort performs basic validation on a port string.
func ValidatePort(port string) error {
	if port == "" {
		return fmt.Errorf("uploader: port cannot be empty")
	}
	return nil
}
