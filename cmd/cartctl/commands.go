package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cedinu/flexicart-control/ninepin"
	"github.com/cedinu/flexicart-control/profile"
	"github.com/cedinu/flexicart-control/protocol"
	"github.com/cedinu/flexicart-control/timecode"
	"github.com/cedinu/flexicart-control/transport"
)

// Command flags
var (
	portName    string
	unitAddr    string
	dataByte    string
	execTimeout time.Duration

	scanPorts []string
	scanUnits string
)

func init() {
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(timecodeCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(portsCmd)

	execCmd.Flags().StringVarP(&portName, "port", "p", "", "Serial port or tcp://host:port (required)")
	execCmd.Flags().StringVarP(&unitAddr, "unit", "u", "0x01", "Unit address")
	execCmd.Flags().StringVarP(&dataByte, "data", "d", "", "Override the command's data byte, e.g. a bin number")
	execCmd.Flags().DurationVarP(&execTimeout, "timeout", "t", 0, "Response timeout (profile default when zero)")
	_ = execCmd.MarkFlagRequired("port")

	scanCmd.Flags().StringSliceVar(&scanPorts, "ports", nil, "Ports to scan (all system ports when empty)")
	scanCmd.Flags().StringVar(&scanUnits, "units", "0x01-0x08", "Unit addresses, e.g. 1-4,0x10")
}

var execCmd = &cobra.Command{
	Use:   "exec COMMAND",
	Short: "Execute a catalog command",
	Long: `Send one catalog command to a unit and print the classified response.

Macro commands wait until a status poll reports completion or the poll
attempts run out.`,
	Example: `  # Query status of unit 1
  cartctl exec status --port /dev/ttyUSB0

  # Load bin 7 on an early-firmware robot
  cartctl exec load --port /dev/ttyUSB0 --data 7 -P flexicart-early

  # Play a VTR
  cartctl exec play --port /dev/ttyUSB1 -P vtr`,
	Args: cobra.ExactArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	eng, p, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	spec, ok := eng.Catalog().Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q (see 'cartctl commands')", args[0])
	}

	unit, err := parseByte(unitAddr)
	if err != nil {
		return fmt.Errorf("invalid unit: %w", err)
	}
	if dataByte != "" {
		d, err := parseByte(dataByte)
		if err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
		spec = spec.WithData(d)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	addr := protocol.DeviceAddress{Endpoint: protocol.EndpointID(portName), Unit: unit}
	frame, err := eng.Execute(ctx, spec, addr, execTimeout)
	if err != nil {
		return err
	}

	fmt.Printf("%s -> %s\n", spec, frame)

	if p.IsNinePin() && spec.Name == ninepin.CmdTimecodeSense {
		printNinePinTimecode(frame.Raw)
	}

	return nil
}

func printNinePinTimecode(raw []byte) {
	payload, err := ninepin.Payload(raw)
	if err != nil {
		fmt.Printf("timecode: %v\n", err)
		return
	}

	if tc, format, ok := timecode.DecodeFormat(payload); ok {
		fmt.Printf("timecode: %s (%s)\n", tc, format)
		return
	}
	fmt.Println("timecode: unavailable")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe ports for responding units",
	Long: `Send the profile's probe command to every unit address on every port and
list the units that answered. Ports that cannot be opened are skipped.`,
	Example: `  # Scan units 1-8 on all ports
  cartctl scan

  # Scan two ports for units 1-4 and 16
  cartctl scan --ports /dev/ttyUSB0,/dev/ttyUSB1 --units 1-4,0x10`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, _, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	units, err := parseUnits(scanUnits)
	if err != nil {
		return fmt.Errorf("invalid units: %w", err)
	}

	endpoints := make([]protocol.EndpointID, 0, len(scanPorts))
	for _, p := range scanPorts {
		endpoints = append(endpoints, protocol.EndpointID(p))
	}
	if len(endpoints) == 0 {
		if endpoints, err = transport.ListPorts(); err != nil {
			return err
		}
	}
	if len(endpoints) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("Scanning %d port(s) x %d unit(s)...\n\n", len(endpoints), len(units))

	found, err := eng.ScanDevices(ctx, endpoints, units)
	for i, addr := range found {
		fmt.Printf("%d. %s\n", i+1, addr)
	}
	if len(found) == 0 {
		fmt.Println("No devices found.")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

var timecodeCmd = &cobra.Command{
	Use:   "timecode HEX",
	Short: "Decode a raw timecode payload",
	Example: `  cartctl timecode 12345607
  cartctl timecode "32 2E 07"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := hex.DecodeString(strings.Join(strings.Fields(strings.Join(args, "")), ""))
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}

		tc, format, ok := timecode.DecodeFormat(raw)
		if !ok {
			fmt.Println("unavailable")
			return nil
		}
		fmt.Printf("%s (%s)\n", tc, format)

		return nil
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the commands of the selected profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, p, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		fmt.Printf("Profile %s (%s):\n", p.Name, protocolName(p))
		for _, cat := range []protocol.Category{protocol.Immediate, protocol.Control, protocol.Macro} {
			fmt.Printf("\n%s:\n", cat)
			for _, s := range eng.Catalog().ByCategory(cat) {
				fmt.Printf("  %-18s %02X/%02X/%02X\n", s.Name, s.Command, s.Control, s.Data)
			}
		}

		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
		}
		for _, p := range ports {
			fmt.Println(p)
		}

		return nil
	},
}

func protocolName(p *profile.Profile) string {
	if p.IsNinePin() {
		return "9-pin"
	}

	return "cart"
}

// parseByte parses a decimal or 0x-prefixed byte value.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, err
	}

	return byte(v), nil
}

// parseUnits parses a comma-separated list of unit addresses and inclusive
// ranges such as "1-4,0x10".
func parseUnits(s string) ([]byte, error) {
	var units []byte
	seen := make(map[byte]bool)

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi := part, part
		if i := strings.Index(part, "-"); i > 0 {
			lo, hi = part[:i], part[i+1:]
		}

		from, err := parseByte(lo)
		if err != nil {
			return nil, err
		}
		to, err := parseByte(hi)
		if err != nil {
			return nil, err
		}
		if from > to {
			return nil, fmt.Errorf("range %q is reversed", part)
		}

		for u := int(from); u <= int(to); u++ {
			if !seen[byte(u)] {
				seen[byte(u)] = true
				units = append(units, byte(u))
			}
		}
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no units in %q", s)
	}

	return units, nil
}
