package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tomrford/h3xy/pkg/uploader"
)

var (
	bridgeHost     string
	bridgePort     int
	bridgeSerial   string
	bridgeBaudRate int
)

// bridgeCmd relays the upload protocol between TCP clients and a local
// serial port
var bridgeCmd = &cobra.Command{
	Use:   "tcp-bridge",
	Short: "Bridge TCP connections to a local serial port",
	Long: `Start a TCP server that relays upload requests to a locally attached
device, so a pipeline run on another machine can address it as host:port.

Example:
  h3xy tcp-bridge --serial /dev/ttyUSB0 --listen-port 2560`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := uploader.ValidatePort(bridgeSerial); err != nil {
			return err
		}
		settings := uploader.DefaultSerialSettings()
		settings.BaudRate = bridgeBaudRate
		b := uploader.NewBridge(bridgeHost, bridgePort, bridgeSerial, settings)
		return b.Listen()
	},
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeHost, "listen-host", "0.0.0.0", "Address to listen on")
	bridgeCmd.Flags().IntVar(&bridgePort, "listen-port", 2560, "TCP port to listen on")
	bridgeCmd.Flags().StringVar(&bridgeSerial, "serial", "", "Serial device to relay to")
	bridgeCmd.Flags().IntVar(&bridgeBaudRate, "baud", 115200, "Serial baud rate")
	rootCmd.AddCommand(bridgeCmd)
}
