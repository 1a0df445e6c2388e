package ops

import (
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/segment"
)

// Split chops every segment longer than maxSize into consecutive pieces at
// maxSize boundaries, preserving addresses contiguously. maxSize == 0 is a
// no-op.
func Split(hf *hexfile.HexFile, maxSize int) {
	if maxSize == 0 {
		return
	}

	raw := hf.RawSegments()
	out := make([]segment.Segment, 0, len(raw))
	for _, s := range raw {
		if len(s.Data) <= maxSize {
			out = append(out, s)
			continue
		}
		for off := 0; off < len(s.Data); off += maxSize {
			end := off + maxSize
			if end > len(s.Data) {
				end = len(s.Data)
			}
			piece, err := segment.New(s.Start+uint32(off), s.Data[off:end])
			if err == nil {
				out = append(out, piece)
			}
		}
	}
	hf.SetRawSegments(out)
}
