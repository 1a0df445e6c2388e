// Package bin reads and writes raw binary images. Reading wraps an entire
// byte stream as one segment at a caller-supplied base address; writing
// concatenates segment data in raw (insertion) order, not normalized
// order, since that ordering is observable in the output.
package bin

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// Decode wraps the entire contents of r as a single segment at base.
func Decode(r io.Reader, base uint32) (*hexfile.HexFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bin: %w", err)
	}
	hf := hexfile.New()
	if len(data) == 0 {
		return hf, nil
	}
	seg, err := segment.New(base, data)
	if err != nil {
		return nil, fmt.Errorf("bin: %w", err)
	}
	hf.AppendSegment(seg)
	return hf, nil
}

// Encode concatenates hf's raw segments, in insertion order, filling any
// gap between consecutive raw segments with fillByte. Overlap between raw
// segments is resolved by simply writing each segment's bytes in order,
// later segments overwriting earlier ones in the output buffer: that
// matches last-writer-wins without forcing a normalize, which would
// reorder the very thing this format must preserve.
func Encode(w io.Writer, hf *hexfile.HexFile, fillByte byte) error {
	raw := hf.RawSegments()
	if len(raw) == 0 {
		return nil
	}

	start, end := hf.SpanStart(), hf.SpanEnd()
	size := uint64(end) - uint64(start) + 1
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = fillByte
	}
	for _, s := range raw {
		off := uint64(s.Start) - uint64(start)
		copy(buf[off:], s.Data)
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("bin: write failed: %w", err)
	}
	return nil
}

// EncodeSeparate writes one file per raw segment under dir, named
// <stem>_<addr8>.ext, where stem and ext are taken from baseName and addr8
// is the segment's base address as eight lowercase hex digits.
func EncodeSeparate(dir, baseName string, hf *hexfile.HexFile) ([]string, error) {
	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(filepath.Base(baseName), ext)

	var written []string
	for _, s := range hf.RawSegments() {
		name := fmt.Sprintf("%s_%08x%s", stem, s.Start, ext)
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("bin: %w", err)
		}
		_, werr := f.Write(s.Data)
		cerr := f.Close()
		if werr != nil {
			return written, fmt.Errorf("bin: write failed: %w", werr)
		}
		if cerr != nil {
			return written, fmt.Errorf("bin: close failed: %w", cerr)
		}
		written = append(written, path)
	}
	return written, nil
}
