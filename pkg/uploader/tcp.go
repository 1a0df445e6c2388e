package uploader

import (
	"fmt"
	"net"
	"time"
)

const tcpDialTimeout = 10 * time.Second

// dialTCP connects to a TCP-attached target or a remote Bridge. A
// net.Conn already satisfies Conn, so no wrapper is needed.
func dialTCP(addr string) (Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, tcpDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("uploader: connecting to %s: %w", addr, err)
	}
	return conn, nil
}
