// Package scriptfile loads a YAML batch-operation document (CLI flag /L)
// into a pipeline.Config, letting a caller describe a full h3xy run, every
// input, filter, fill, transform, checksum, and output, as data instead of
// repeated command-line flags.
package scriptfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/checksum"
	"github.com/tomrford/h3xy/pkg/codec/bin"
	"github.com/tomrford/h3xy/pkg/codec/hexascii"
	"github.com/tomrford/h3xy/pkg/codec/ihex"
	"github.com/tomrford/h3xy/pkg/codec/srec"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/ops"
	"github.com/tomrford/h3xy/pkg/pipeline"
)

// Document is the YAML shape of a /L script file: one entry per pipeline
// stage, in the pipeline's fixed order. Every field is optional; an absent
// field leaves that stage unconfigured, exactly as an absent CLI flag does.
type Document struct {
	Inputs []InputEntry `yaml:"inputs"`

	RangeFilter []string `yaml:"range_filter"`

	Merges []MergeEntry `yaml:"merge"`

	Cuts []string `yaml:"cut"`

	Fills []FillEntry `yaml:"fill"`

	FillAllGaps *int `yaml:"fill_all_gaps"`

	Align *AlignEntry `yaml:"align"`

	ScaleFactor    *uint64 `yaml:"scale"`
	UnscaleDivisor *uint64 `yaml:"unscale"`

	Swap string `yaml:"swap"` // "word" or "long"

	SplitMaxSize *int `yaml:"split"`

	Checksums []ChecksumEntry `yaml:"checksum"`

	Outputs []OutputEntry `yaml:"outputs"`
}

// InputEntry describes one /I-family source.
type InputEntry struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "ihex", "srec", "hexascii", "bin"
	Base   string `yaml:"base"`   // numeric literal (addrrange grammar), for hexascii/bin
}

// MergeEntry describes one /MO or /MT entry: another file parsed and
// merged into the working HexFile, optionally range-filtered and offset
// first.
type MergeEntry struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
	Base   string `yaml:"base"`   // numeric literal, for hexascii/bin sources
	Mode   string `yaml:"mode"`   // "overwrite" (default) or "preserve"
	Offset int64  `yaml:"offset"` // signed, applied after the range filter
	Range  string `yaml:"range"`  // optional range applied before the offset
}

// FillEntry describes one /FR entry.
type FillEntry struct {
	Ranges    []string `yaml:"ranges"`
	Pattern   string   `yaml:"pattern"` // hex digits, e.g. "AA" or "DEADBEEF"
	Overwrite bool     `yaml:"overwrite"`
}

// AlignEntry describes /AD and /AL.
type AlignEntry struct {
	Alignment  uint32 `yaml:"alignment"`
	FillByte   int    `yaml:"fill_byte"`
	AlsoLength bool   `yaml:"also_length"`
}

// ChecksumEntry describes one /CS0..N entry.
type ChecksumEntry struct {
	Algorithm     string   `yaml:"algorithm"`
	Target        string   `yaml:"target"` // "address", "append", "prepend", "overwrite_end", "file"
	Address       string   `yaml:"address"`
	Window        []string `yaml:"window"`
	FillByte      int      `yaml:"fill_byte"`
	ExcludeRanges []string `yaml:"exclude"`
	TargetExclude bool     `yaml:"target_exclude"`
	Reverse       bool     `yaml:"reverse"`
	FilePath      string   `yaml:"file"`
}

// OutputEntry describes one output destination.
type OutputEntry struct {
	Path        string `yaml:"path"`
	Format      string `yaml:"format"`
	RecordWidth int    `yaml:"record_width"`
	Separator   string `yaml:"separator"`
	GapFill     int    `yaml:"gap_fill"`
	AddressMode string `yaml:"address_mode"` // ihex: "auto","segment","linear"; srec: "auto","16","24","32"
}

// Load reads and parses a /L script file from path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scriptfile: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a /L script from r.
func Decode(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("scriptfile: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("scriptfile: invalid YAML: %w", err)
	}
	return &doc, nil
}

// openFiles collects everything Build opened so the caller can close it
// after pipeline.Apply runs (the core never owns file lifetime itself).
type openFiles struct {
	readers []io.Closer
	writers []io.Closer
}

func (o *openFiles) CloseAll() {
	for _, c := range o.readers {
		c.Close()
	}
	for _, c := range o.writers {
		c.Close()
	}
}

// Build turns doc into a pipeline.Config, opening every referenced file.
// The caller must call the returned closer once done with the resulting
// HexFile/output files.
func Build(doc *Document) (pipeline.Config, func(), error) {
	var files openFiles
	closeFn := files.CloseAll

	cfg := pipeline.Config{}

	for _, in := range doc.Inputs {
		f, err := os.Open(in.Path)
		if err != nil {
			closeFn()
			return cfg, nil, fmt.Errorf("scriptfile: input %q: %w", in.Path, err)
		}
		files.readers = append(files.readers, f)

		format, err := parseFormat(in.Format)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		base, err := parseBase(in.Base)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		if format == pipeline.FormatHexASCII {
			cfg.Inputs = append(cfg.Inputs, pipeline.NewHexASCIIInput(f, base))
		} else {
			cfg.Inputs = append(cfg.Inputs, pipeline.Input{Format: format, Reader: f, BinBase: base})
		}
	}

	if len(doc.RangeFilter) > 0 {
		ranges, err := parseRanges(doc.RangeFilter)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		cfg.RangeFilter = ranges
	}

	for _, me := range doc.Merges {
		step, err := buildMergeStep(me)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		cfg.Merges = append(cfg.Merges, step)
	}

	if len(doc.Cuts) > 0 {
		ranges, err := parseRanges(doc.Cuts)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		cfg.Cuts = ranges
	}

	for _, fe := range doc.Fills {
		ranges, err := parseRanges(fe.Ranges)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		pattern, err := parseHexPattern(fe.Pattern)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		cfg.Fills = append(cfg.Fills, ops.FillOptions{Ranges: ranges, Pattern: pattern, Overwrite: fe.Overwrite})
	}

	if doc.FillAllGaps != nil {
		b := byte(*doc.FillAllGaps)
		cfg.FillAllGaps = &b
	}

	if doc.Align != nil {
		cfg.Align = &pipeline.AlignStep{
			Alignment:  doc.Align.Alignment,
			FillByte:   byte(doc.Align.FillByte),
			AlsoLength: doc.Align.AlsoLength,
		}
	}

	cfg.ScaleFactor = doc.ScaleFactor
	cfg.UnscaleDivisor = doc.UnscaleDivisor

	if doc.Swap != "" {
		mode, err := parseSwapMode(doc.Swap)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		cfg.Swap = &mode
	}

	cfg.SplitMaxSize = doc.SplitMaxSize

	for _, ce := range doc.Checksums {
		step, err := buildChecksumStep(ce, &files)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		cfg.Checksums = append(cfg.Checksums, step)
	}

	for _, oe := range doc.Outputs {
		f, err := os.Create(oe.Path)
		if err != nil {
			closeFn()
			return cfg, nil, fmt.Errorf("scriptfile: output %q: %w", oe.Path, err)
		}
		files.writers = append(files.writers, f)

		out, err := buildOutput(oe, f)
		if err != nil {
			closeFn()
			return cfg, nil, err
		}
		cfg.Outputs = append(cfg.Outputs, out)
	}

	return cfg, closeFn, nil
}

// buildMergeStep parses the merge source eagerly, so the file handle
// doesn't have to outlive Build.
func buildMergeStep(me MergeEntry) (pipeline.MergeStep, error) {
	format, err := parseFormat(me.Format)
	if err != nil {
		return pipeline.MergeStep{}, err
	}
	base, err := parseBase(me.Base)
	if err != nil {
		return pipeline.MergeStep{}, err
	}
	mode, err := parseMergeMode(me.Mode)
	if err != nil {
		return pipeline.MergeStep{}, err
	}

	f, err := os.Open(me.Path)
	if err != nil {
		return pipeline.MergeStep{}, fmt.Errorf("scriptfile: merge input %q: %w", me.Path, err)
	}
	defer f.Close()
	other, err := decodeMergeSource(format, f, base)
	if err != nil {
		return pipeline.MergeStep{}, fmt.Errorf("scriptfile: merge input %q: %w", me.Path, err)
	}

	opts := ops.MergeOptions{Mode: mode, Offset: me.Offset}
	if me.Range != "" {
		r, err := addrrange.Parse(me.Range)
		if err != nil {
			return pipeline.MergeStep{}, fmt.Errorf("scriptfile: merge range: %w", err)
		}
		opts.Range = &r
	}
	return pipeline.MergeStep{Other: other, Opts: opts}, nil
}

func decodeMergeSource(format pipeline.Format, f *os.File, base uint32) (*hexfile.HexFile, error) {
	switch format {
	case pipeline.FormatIntelHex:
		return ihex.Decode(f)
	case pipeline.FormatSRecord:
		return srec.Decode(f)
	case pipeline.FormatHexASCII:
		return hexascii.Decode(f, base)
	case pipeline.FormatBinary:
		return bin.Decode(f, base)
	default:
		return nil, fmt.Errorf("scriptfile: unsupported merge format %d", format)
	}
}

func parseMergeMode(s string) (ops.MergeMode, error) {
	switch strings.ToLower(s) {
	case "", "overwrite":
		return ops.MergeOverwrite, nil
	case "preserve":
		return ops.MergePreserve, nil
	default:
		return 0, fmt.Errorf("scriptfile: unknown merge mode %q", s)
	}
}

func buildChecksumStep(ce ChecksumEntry, files *openFiles) (pipeline.ChecksumStep, error) {
	alg, err := parseAlgorithm(ce.Algorithm)
	if err != nil {
		return pipeline.ChecksumStep{}, err
	}
	target, err := parseTarget(ce.Target)
	if err != nil {
		return pipeline.ChecksumStep{}, err
	}
	window, err := parseRanges(ce.Window)
	if err != nil {
		return pipeline.ChecksumStep{}, err
	}
	exclude, err := parseRanges(ce.ExcludeRanges)
	if err != nil {
		return pipeline.ChecksumStep{}, err
	}
	address, err := parseBase(ce.Address)
	if err != nil {
		return pipeline.ChecksumStep{}, err
	}

	step := pipeline.ChecksumStep{
		Opts: checksum.Options{
			Algorithm:     alg,
			Target:        target,
			Address:       address,
			Window:        window,
			FillByte:      byte(ce.FillByte),
			ExcludeRanges: exclude,
			TargetExclude: ce.TargetExclude,
			Reverse:       ce.Reverse,
		},
		FilePath: ce.FilePath,
	}
	if target == checksum.TargetFile && ce.FilePath != "" {
		f, err := os.Create(ce.FilePath)
		if err != nil {
			return pipeline.ChecksumStep{}, fmt.Errorf("scriptfile: checksum file %q: %w", ce.FilePath, err)
		}
		files.writers = append(files.writers, f)
		step.FileWriter = f
	}
	return step, nil
}

func buildOutput(oe OutputEntry, w io.Writer) (pipeline.Output, error) {
	format, err := parseFormat(oe.Format)
	if err != nil {
		return pipeline.Output{}, err
	}
	out := pipeline.Output{
		Format:            format,
		Writer:            w,
		RecordWidth:       oe.RecordWidth,
		HexASCIISeparator: oe.Separator,
		GapFill:           byte(oe.GapFill),
	}
	switch format {
	case pipeline.FormatIntelHex:
		mode, err := parseIHexAddressMode(oe.AddressMode)
		if err != nil {
			return pipeline.Output{}, err
		}
		out.IHexAddressMode = mode
	case pipeline.FormatSRecord:
		width, err := parseSRecAddressWidth(oe.AddressMode)
		if err != nil {
			return pipeline.Output{}, err
		}
		out.SRecAddressWidth = width
	}
	return out, nil
}

func parseFormat(s string) (pipeline.Format, error) {
	switch strings.ToLower(s) {
	case "ihex", "intelhex", "":
		return pipeline.FormatIntelHex, nil
	case "srec", "s-record":
		return pipeline.FormatSRecord, nil
	case "hexascii", "hex-ascii":
		return pipeline.FormatHexASCII, nil
	case "bin", "binary":
		return pipeline.FormatBinary, nil
	case "bin-separate", "binary-separate":
		return pipeline.FormatBinarySeparate, nil
	default:
		return 0, fmt.Errorf("scriptfile: unknown format %q", s)
	}
}

func parseIHexAddressMode(s string) (ihex.AddressMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ihex.AddressAuto, nil
	case "segment":
		return ihex.AddressForcedSegment, nil
	case "linear":
		return ihex.AddressForcedLinear, nil
	default:
		return 0, fmt.Errorf("scriptfile: unknown ihex address mode %q", s)
	}
}

func parseSRecAddressWidth(s string) (srec.AddressWidth, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return srec.AddressAuto, nil
	case "16":
		return srec.Address16, nil
	case "24":
		return srec.Address24, nil
	case "32":
		return srec.Address32, nil
	default:
		return 0, fmt.Errorf("scriptfile: unknown srec address width %q", s)
	}
}

func parseSwapMode(s string) (ops.SwapMode, error) {
	switch strings.ToLower(s) {
	case "word":
		return ops.SwapWord, nil
	case "long", "dword":
		return ops.SwapDWord, nil
	default:
		return 0, fmt.Errorf("scriptfile: unknown swap mode %q", s)
	}
}

func parseAlgorithm(s string) (checksum.Algorithm, error) {
	switch strings.ToLower(s) {
	case "bytesumle":
		return checksum.ByteSumLe, nil
	case "bytesumbe":
		return checksum.ByteSumBe, nil
	case "wordsumle":
		return checksum.WordSumLe, nil
	case "wordsumbe":
		return checksum.WordSumBe, nil
	case "twoscomplement":
		return checksum.TwosComplement, nil
	case "crc16arc":
		return checksum.Crc16Arc, nil
	case "crc16xmodem":
		return checksum.Crc16XModem, nil
	case "crc16ibmsdlc":
		return checksum.Crc16IbmSdlc, nil
	case "crc16ccittbe":
		return checksum.Crc16CcittBe, nil
	case "crc16ccittle":
		return checksum.Crc16CcittLe, nil
	case "crc32isohdlc":
		return checksum.Crc32IsoHdlc, nil
	default:
		return 0, fmt.Errorf("scriptfile: unknown checksum algorithm %q", s)
	}
}

func parseTarget(s string) (checksum.Target, error) {
	switch strings.ToLower(s) {
	case "address":
		return checksum.TargetAddress, nil
	case "append":
		return checksum.TargetAppend, nil
	case "prepend":
		return checksum.TargetPrepend, nil
	case "overwrite_end", "overwrite-end":
		return checksum.TargetOverwriteEnd, nil
	case "file":
		return checksum.TargetFile, nil
	default:
		return 0, fmt.Errorf("scriptfile: unknown checksum target %q", s)
	}
}

func parseRanges(toks []string) ([]addrrange.Range, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	out := make([]addrrange.Range, 0, len(toks))
	for _, t := range toks {
		r, err := addrrange.Parse(t)
		if err != nil {
			return nil, fmt.Errorf("scriptfile: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseBase(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	return addrrange.ParseLiteral(s)
}

func parseHexPattern(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		var b int
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &b); err != nil {
			return nil, fmt.Errorf("scriptfile: invalid fill pattern %q: %w", s, err)
		}
		out[i] = byte(b)
	}
	return out, nil
}
