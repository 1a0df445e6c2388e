// Package ops implements the mutating operation library over a hexfile.HexFile:
// filter, cut, fill, fill-all-gaps, merge, align, split, swap, address
// scale/unscale, and the remap family.
package ops

import "fmt"

// Error wraps any inner error with the CLI flag tag of the operation that
// produced it, so every failure message names the flag it came from.
type Error struct {
	Op    string // e.g. "/SWAPWORD", "/MO", "/REMAP"
	Inner error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Inner)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Wrap tags err with op, unless err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Inner: err}
}
