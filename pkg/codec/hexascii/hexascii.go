// Package hexascii reads and writes the HEX-ASCII format: each byte
// rendered as two hex digits, with any non-hex character acting as a
// separator on read and a configurable separator on write.
package hexascii

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// Decode parses a HEX-ASCII stream into a single segment at base. Tokens of
// 1 or 2 hex digits are accepted; "0x" prefixes are tolerated; any
// non-hex-digit character is treated as a separator.
func Decode(r io.Reader, base uint32) (*hexfile.HexFile, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("hexascii: %w", err)
	}

	var data []byte
	text := string(raw)
	for len(text) > 0 {
		// Tolerate an "0x" prefix before scanning the digit run, since the
		// leading '0' would otherwise be consumed as a one-digit token.
		if len(text) >= 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
			text = text[2:]
			continue
		}
		i := 0
		for i < len(text) && isHexDigit(text[i]) {
			i++
		}
		if i == 0 {
			text = text[1:]
			continue
		}
		tok := text[:i]
		text = text[i:]
		if len(tok)%2 != 0 {
			tok = "0" + tok
		}
		b, err := hex.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("hexascii: invalid token %q: %w", tok, err)
		}
		data = append(data, b...)
	}

	hf := hexfile.New()
	if len(data) == 0 {
		return hf, nil
	}
	seg, err := segment.New(base, data)
	if err != nil {
		return nil, fmt.Errorf("hexascii: %w", err)
	}
	hf.AppendSegment(seg)
	return hf, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Encode renders hf's normalized, contiguous span as two-hex-digit bytes
// joined by sep. gapFill fills any gaps between segments in the span.
func Encode(w io.Writer, hf *hexfile.HexFile, sep string, gapFill byte) error {
	if hf.IsEmpty() {
		return nil
	}
	buf := hf.AsContiguous(gapFill)
	toks := make([]string, len(buf))
	for i, b := range buf {
		toks[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	_, err := io.WriteString(w, strings.Join(toks, sep))
	if err != nil {
		return fmt.Errorf("hexascii: write failed: %w", err)
	}
	return nil
}
