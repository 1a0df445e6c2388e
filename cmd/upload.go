package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomrford/h3xy/pkg/addrrange"
	"github.com/tomrford/h3xy/pkg/codec/bin"
	"github.com/tomrford/h3xy/pkg/codec/ihex"
	"github.com/tomrford/h3xy/pkg/codec/srec"
	"github.com/tomrford/h3xy/pkg/hexfile"
	"github.com/tomrford/h3xy/pkg/uploader"
)

var (
	uploadPort     string
	uploadFormat   string
	uploadBase     string
	uploadChunk    int
	uploadBusWidth int
	uploadStopFile string
)

// uploadCmd streams a parsed hex file to a connected device
var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a hex file to a connected device",
	Long: `Parse a hex file and stream its segments to a device over a serial
port or TCP connection.

Example:
  h3xy upload program.hex --port /dev/ttyUSB0
  h3xy upload image.bin --port 192.168.1.114:2560 --format bin --base 0x380000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uploadFile(args[0])
	},
}

func uploadFile(path string) error {
	if err := uploader.ValidatePort(uploadPort); err != nil {
		printError("%v", err)
		return err
	}

	hf, err := parseUploadInput(path)
	if err != nil {
		logger.Error(err)
		return err
	}
	if hf.IsEmpty() {
		printInfo("%s contains no data, nothing to upload", path)
		return nil
	}

	conn, err := uploader.Dial(uploadPort, uploader.DefaultSerialSettings())
	if err != nil {
		logger.Error(err)
		return err
	}
	dev := uploader.NewDevice(conn)
	dev.BusWidth = uploadBusWidth
	defer dev.Close()

	ctx := context.Background()
	var stopped <-chan struct{}
	if uploadStopFile != "" {
		sf, err := uploader.NewStopFile(uploadStopFile)
		if err != nil {
			logger.Error(err)
			return err
		}
		defer sf.Close()
		stopped = sf.Watch(ctx)
	}

	for _, seg := range hf.Normalize().RawSegments() {
		if stopped != nil {
			select {
			case <-stopped:
				err := fmt.Errorf("upload cancelled by stop file %s", uploadStopFile)
				logger.Error(err)
				return err
			default:
			}
		}

		printInfo("writing %d bytes at 0x%X", seg.Len(), seg.Start)
		if err := dev.WriteSegment(seg, uploadChunk); err != nil {
			logger.Error(err)
			return err
		}
	}

	printInfo("upload complete")
	return nil
}

func parseUploadInput(path string) (*hexfile.HexFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(uploadFormat) {
	case "", "ihex", "intelhex":
		return ihex.Decode(f)
	case "srec", "s-record":
		return srec.Decode(f)
	case "bin", "binary":
		base, err := addrrange.ParseLiteral(uploadBase)
		if err != nil {
			return nil, err
		}
		return bin.Decode(f, base)
	default:
		return nil, fmt.Errorf("unknown upload format %q", uploadFormat)
	}
}

func init() {
	uploadCmd.Flags().StringVar(&uploadPort, "port", "", "Serial port or TCP address (e.g., COM3, /dev/ttyUSB0, 192.168.1.114:2560)")
	uploadCmd.Flags().StringVar(&uploadFormat, "format", "ihex", "Input format: ihex, srec, or bin")
	uploadCmd.Flags().StringVar(&uploadBase, "base", "0", "Base address for raw binary input")
	uploadCmd.Flags().IntVar(&uploadChunk, "chunk", 1024, "Maximum bytes per transfer (0 = single transfer)")
	uploadCmd.Flags().IntVar(&uploadBusWidth, "bus-width", 0, "Target bus width in bytes; widths > 1 use read-modify-write alignment")
	uploadCmd.Flags().StringVar(&uploadStopFile, "stop-file", "", "Cancel the upload when this file is created")
	rootCmd.AddCommand(uploadCmd)
}
