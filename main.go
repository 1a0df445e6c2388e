// h3xy - Command-line hex file processing engine
//
// Parses address-tagged byte images (Intel HEX, Motorola S-Record,
// HEX-ASCII, raw binary), runs a fixed-order operation pipeline over them
// (filter, cut, fill, merge, align, swap, checksum, ...), and writes the
// result back out or streams it to a connected device.
package main

import (
	"fmt"
	"os"

	"github.com/tomrford/h3xy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
