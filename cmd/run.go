package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/pipeline"
	"github.com/tomrford/h3xy/pkg/scriptfile"
)

var gapFillFlag byteValue

// runCmd executes a script file describing a full pipeline run
var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Run a batch-operation script",
	Long: `Run a pipeline described by a YAML script file: inputs, range filters,
cuts, fills, alignment, swaps, checksums and outputs, applied in the
pipeline's fixed order.

Example:
  h3xy run release.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScript(args[0])
	},
}

func runScript(path string) error {
	doc, err := scriptfile.Load(path)
	if err != nil {
		logger.Error(err)
		return err
	}

	pcfg, closeFiles, err := scriptfile.Build(doc)
	if err != nil {
		logger.Error(err)
		return err
	}
	defer closeFiles()

	pcfg.Warnf = logger.Warn
	if gapFillFlag.set {
		for i := range pcfg.Outputs {
			pcfg.Outputs[i].GapFill = gapFillFlag.b
		}
	}

	result, err := pipeline.Apply(pcfg)
	if err != nil {
		logger.Error(err)
		return err
	}

	printInfo("pipeline complete: %d segment(s), span 0x%X-0x%X",
		result.Normalize().Len(), result.SpanStart(), result.SpanEnd())
	return nil
}

// byteValue accepts any numeric literal from the range grammar (decimal,
// 0x-hex, h-suffixed, binary) and stores a single byte.
type byteValue struct {
	set bool
	b   byte
}

var _ pflag.Value = (*byteValue)(nil)

func (v *byteValue) String() string {
	if !v.set {
		return ""
	}
	return fmt.Sprintf("0x%02X", v.b)
}

func (v *byteValue) Set(s string) error {
	n, err := addrrange.ParseLiteral(s)
	if err != nil {
		return err
	}
	if n > 0xFF {
		return fmt.Errorf("value 0x%X does not fit in a byte", n)
	}
	v.b = byte(n)
	v.set = true
	return nil
}

func (v *byteValue) Type() string {
	return "byte"
}

func init() {
	runCmd.Flags().Var(&gapFillFlag, "gap-fill", "Override the gap fill byte for every binary/HEX-ASCII output")
	rootCmd.AddCommand(runCmd)
}
