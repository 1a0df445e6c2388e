// Package pipeline composes the operation library into a single fixed-order
// pass. The order itself is observable and deliberate: imports, range
// filter, merges, cuts, fills, fill-all-gaps, align, scale/unscale/mapping,
// swap, split, checksums, any mapping steps configured to run after
// checksums, then output. Operation errors surface through ops.Error so each
// carries the CLI flag tag that produced it; input and output errors are
// prefixed with "pipeline:" and the input or output index instead.
package pipeline

import (
	"fmt"
	"io"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/checksum"
	"github.com/tomrford/h3xy/pkg/codec/bin"
	"github.com/tomrford/h3xy/pkg/codec/hexascii"
	"github.com/tomrford/h3xy/pkg/codec/ihex"
	"github.com/tomrford/h3xy/pkg/codec/srec"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/ops"
)

// Format selects a codec for an input or output.
type Format int

const (
	FormatIntelHex Format = iota
	FormatSRecord
	FormatHexASCII
	FormatBinary
	FormatBinarySeparate
)

// Input describes one source to parse and merge into the working HexFile,
// in the order it appears in Config.Inputs. Multiple /I-family flags each
// contribute a segment set that is merged, overwrite priority, before the
// rest of the pipeline runs.
type Input struct {
	Format Format
	Reader io.Reader
	// BinBase is the base address for FormatBinary and FormatHexASCII,
	// which carry no address framing of their own.
	BinBase uint32
	// explicit marks this input as an explicit HEX-ASCII import: if its
	// address range overlaps data already present from any earlier input,
	// its contents are dropped and a warning logged instead.
	explicit bool
}

// NewHexASCIIInput marks an input as an explicit HEX-ASCII import for the
// overlap-drop rule.
func NewHexASCIIInput(r io.Reader, base uint32) Input {
	return Input{Format: FormatHexASCII, Reader: r, BinBase: base, explicit: true}
}

// Output describes one destination to render the final HexFile to.
type Output struct {
	Format Format
	Writer io.Writer

	// RecordWidth applies to FormatIntelHex and FormatSRecord (0 selects
	// each codec's default).
	RecordWidth int
	// IHexAddressMode applies to FormatIntelHex.
	IHexAddressMode ihex.AddressMode
	// SRecAddressWidth applies to FormatSRecord.
	SRecAddressWidth srec.AddressWidth
	// HexASCIISeparator applies to FormatHexASCII; GapFill applies to
	// FormatHexASCII and FormatBinary (FormatBinarySeparate fills no gaps).
	HexASCIISeparator string
	GapFill           byte

	// SeparateDir/SeparateBaseName apply to FormatBinarySeparate, which
	// emits one file per segment.
	SeparateDir      string
	SeparateBaseName string
}

// MergeStep configures one /MO or /MT invocation against an already-parsed
// HexFile (pipeline step 3, applied in user order).
type MergeStep struct {
	Other *hexfile.HexFile
	Opts  ops.MergeOptions
}

// FillStep configures one /FR invocation (pipeline step 5).
type FillStep = ops.FillOptions

// AlignStep configures /AD and /AL (pipeline step 7).
type AlignStep struct {
	Alignment  uint32
	FillByte   byte
	AlsoLength bool
}

// MappingStep is one address-rewrite operation from the /REMAP, /S08MAP,
// /S12MAP, /S12XMAP, /CDSPG, /CDSPX, /CDSPS family. Exactly one of Remap
// or DspicOp should be set.
type MappingStep struct {
	Tag   string // CLI flag, e.g. "/S12MAP", used for error context
	Remap ops.RemapFunc
	// DspicOp selects a data-transforming dsPIC variant instead of a pure
	// address RemapFunc, when non-nil.
	DspicOp func(hf *hexfile.HexFile)
}

func (m MappingStep) apply(hf *hexfile.HexFile) error {
	if m.DspicOp != nil {
		m.DspicOp(hf)
		return nil
	}
	return ops.Wrap(m.Tag, ops.Remap(hf, m.Remap))
}

// ChecksumStep configures one /CS0..N invocation (pipeline step 11,
// applied in user order). FilePath is used only for checksum.TargetFile.
type ChecksumStep struct {
	Opts     checksum.Options
	FilePath string
	// FileWriter, if set, receives the checksum.TargetFile result instead
	// of FilePath being opened by the caller; set by scriptfile/cmd
	// wiring so the core never opens files itself.
	FileWriter io.Writer
}

// Config aggregates every operation the fixed-order pipeline may run.
// Any field left at its zero value / nil / empty slice is skipped entirely.
type Config struct {
	Inputs []Input

	RangeFilter []addrrange.Range // step 2, CLI /AR
	Merges      []MergeStep       // step 3, CLI /MO, /MT
	Cuts        []addrrange.Range // step 4, CLI /CR

	Fills       []FillStep // step 5, CLI /FR, /FP
	FillAllGaps *byte      // step 6, CLI /FA (nil = not configured)

	Align *AlignStep // step 7, CLI /AD, /AL

	ScaleFactor    *uint64       // step 8, CLI /SB (scale)
	UnscaleDivisor *uint64       // step 8, CLI /SB (unscale)
	Mappings       []MappingStep // step 8, CLI /REMAP, /S08MAP, /S12MAP, /S12XMAP, /CDSP*

	Swap *ops.SwapMode // step 9, CLI /SWAPWORD, /SWAPLONG

	SplitMaxSize *int // step 10, CLI /SB split

	Checksums []ChecksumStep // step 11, CLI /CS0..N

	// LateMappings runs after Checksums. A CLI layer that observed /REMAP
	// appearing after a /CS flag on the command line routes it here
	// instead of into Mappings.
	LateMappings []MappingStep

	Outputs []Output // step 13

	// Warnf receives the one non-fatal warning (an explicit HEX-ASCII
	// import dropped because it overlaps an earlier input). Nil means
	// the warning is not reported anywhere.
	Warnf func(format string, args ...interface{})
}

// Apply runs cfg's operations, in the fixed pipeline order, over a fresh
// HexFile built from cfg.Inputs, and writes the result to cfg.Outputs.
// It stops at the first error.
func Apply(cfg Config) (*hexfile.HexFile, error) {
	hf, err := parseInputs(cfg.Inputs, cfg.Warnf)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if len(cfg.RangeFilter) > 0 {
		hf = ops.FilterRange(hf, cfg.RangeFilter)
	}

	for _, m := range cfg.Merges {
		if err := ops.Wrap(mergeTag(m.Opts.Mode), ops.Merge(hf, m.Other, m.Opts)); err != nil {
			return nil, err
		}
	}

	if len(cfg.Cuts) > 0 {
		hf = ops.Cut(hf, cfg.Cuts)
	}

	for _, f := range cfg.Fills {
		if err := ops.Wrap("/FR", ops.Fill(hf, f)); err != nil {
			return nil, err
		}
	}

	if cfg.FillAllGaps != nil {
		ops.FillAllGaps(hf, *cfg.FillAllGaps)
	}

	if cfg.Align != nil {
		if err := ops.Wrap("/AD", ops.Align(hf, cfg.Align.Alignment, cfg.Align.FillByte, cfg.Align.AlsoLength)); err != nil {
			return nil, err
		}
	}

	if cfg.ScaleFactor != nil {
		if err := ops.Wrap("/SB", ops.ScaleAddresses(hf, *cfg.ScaleFactor)); err != nil {
			return nil, err
		}
	}
	if cfg.UnscaleDivisor != nil {
		if err := ops.Wrap("/SB", ops.UnscaleAddresses(hf, *cfg.UnscaleDivisor)); err != nil {
			return nil, err
		}
	}
	for _, m := range cfg.Mappings {
		if err := m.apply(hf); err != nil {
			return nil, err
		}
	}

	if cfg.Swap != nil {
		tag := "/SWAPWORD"
		if *cfg.Swap == ops.SwapDWord {
			tag = "/SWAPLONG"
		}
		if err := ops.Wrap(tag, ops.Swap(hf, *cfg.Swap)); err != nil {
			return nil, err
		}
	}

	if cfg.SplitMaxSize != nil {
		ops.Split(hf, *cfg.SplitMaxSize)
	}

	for _, c := range cfg.Checksums {
		if err := applyChecksumStep(hf, c); err != nil {
			return nil, err
		}
	}

	for _, m := range cfg.LateMappings {
		if err := m.apply(hf); err != nil {
			return nil, err
		}
	}

	if err := writeOutputs(hf, cfg.Outputs); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return hf, nil
}

func mergeTag(mode ops.MergeMode) string {
	if mode == ops.MergePreserve {
		return "/MT"
	}
	return "/MO"
}

func applyChecksumStep(hf *hexfile.HexFile, c ChecksumStep) error {
	result, err := checksum.Apply(hf, c.Opts)
	if err != nil {
		return ops.Wrap(checksumTag(c.Opts.Algorithm), err)
	}
	if c.Opts.Target == checksum.TargetFile && c.FileWriter != nil {
		if _, werr := fmt.Fprintf(c.FileWriter, "%s", formatCommaHex(result)); werr != nil {
			return ops.Wrap("/CS", fmt.Errorf("writing checksum file: %w", werr))
		}
	}
	return nil
}

func checksumTag(a checksum.Algorithm) string {
	return fmt.Sprintf("/CS(%s)", a)
}

func formatCommaHex(b []byte) string {
	out := make([]byte, 0, len(b)*5)
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, []byte(fmt.Sprintf("0x%02X", v))...)
	}
	return string(out)
}

// parseInputs decodes each input in order and merges it into a single raw
// HexFile, later inputs high priority (last-writer-wins on normalize),
// applying the HEX-ASCII overlap-drop rule.
func parseInputs(inputs []Input, warnf func(string, ...interface{})) (*hexfile.HexFile, error) {
	hf := hexfile.New()
	for i, in := range inputs {
		parsed, err := decodeInput(in)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if in.explicit && overlapsExisting(hf, parsed) {
			// Dropped with a warning, not a hard error.
			if warnf != nil {
				warnf("input %d: HEX-ASCII contents overlap an earlier import, file ignored", i)
			}
			continue
		}
		for _, s := range parsed.RawSegments() {
			hf.AppendSegment(s)
		}
	}
	return hf, nil
}

func overlapsExisting(existing, incoming *hexfile.HexFile) bool {
	if existing.IsEmpty() || incoming.IsEmpty() {
		return false
	}
	for _, s := range incoming.RawSegments() {
		for _, e := range existing.RawSegments() {
			if s.Overlaps(e) {
				return true
			}
		}
	}
	return false
}

func decodeInput(in Input) (*hexfile.HexFile, error) {
	switch in.Format {
	case FormatIntelHex:
		return ihex.Decode(in.Reader)
	case FormatSRecord:
		return srec.Decode(in.Reader)
	case FormatHexASCII:
		return hexascii.Decode(in.Reader, in.BinBase)
	case FormatBinary, FormatBinarySeparate:
		return bin.Decode(in.Reader, in.BinBase)
	default:
		return nil, fmt.Errorf("unknown input format %d", in.Format)
	}
}

func writeOutputs(hf *hexfile.HexFile, outputs []Output) error {
	for i, out := range outputs {
		if err := writeOutput(hf, out); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return nil
}

func writeOutput(hf *hexfile.HexFile, out Output) error {
	switch out.Format {
	case FormatIntelHex:
		return ihex.Encode(out.Writer, hf, out.RecordWidth, out.IHexAddressMode)
	case FormatSRecord:
		return srec.Encode(out.Writer, hf, out.RecordWidth, out.SRecAddressWidth)
	case FormatHexASCII:
		sep := out.HexASCIISeparator
		return hexascii.Encode(out.Writer, hf, sep, out.GapFill)
	case FormatBinary:
		return bin.Encode(out.Writer, hf, out.GapFill)
	case FormatBinarySeparate:
		_, err := bin.EncodeSeparate(out.SeparateDir, out.SeparateBaseName, hf)
		return err
	default:
		return fmt.Errorf("unknown output format %d", out.Format)
	}
}
