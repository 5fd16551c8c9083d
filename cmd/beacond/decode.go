package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/beacond/internal/beacon"
)

// Decode statuses.
const (
	statusBeacon    = "beacon"
	statusNotBeacon = "not_beacon"
	statusMalformed = "malformed"
	statusInvalid   = "invalid_hex"
)

type decodeOptions struct {
	format   string
	rssi     int
	cycle    uint32
	deviceID uint8
}

// decodeResult is the decoded form of one payload argument.
type decodeResult struct {
	Payload string `json:"payload"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Vendor  string `json:"vendor,omitempty"`
	Tag     string `json:"tag,omitempty"`
	ID      string `json:"id,omitempty"`
	UUID    *uint8 `json:"uuid,omitempty"`
	TxPower *int8  `json:"tx_power,omitempty"`
	Query   string `json:"query,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	opts := &decodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode <hex-payload>...",
		Short: "Decode raw advertisement payloads",
		Long: `Decode raw advertisement payloads given as hex and show whether each one is
a beacon, its identity and TX power, and the query it would be reported with.

Whitespace and ':' separators inside a payload are ignored.`,
		Example: `  beacond decode 05ffffff4648051646595009020afc
  beacond decode --rssi -67 --cycle 12 --format json "05 ff ff ff 46 48"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format (text, json)")
	cmd.Flags().IntVar(&opts.rssi, "rssi", 0, "RSSI to use for the query preview")
	cmd.Flags().Uint32Var(&opts.cycle, "cycle", 0, "Scan cycle id to use for the query preview")
	cmd.Flags().Uint8Var(&opts.deviceID, "device-id", 1, "Device id to use for the query preview")
	return cmd
}

func runDecode(cmd *cobra.Command, opts *decodeOptions, args []string) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [text json]", opts.format)
	}
	if opts.rssi < -128 || opts.rssi > 127 {
		return fmt.Errorf("invalid rssi %d: must be -128..127", opts.rssi)
	}
	cmd.SilenceUsage = true

	results := make([]decodeResult, 0, len(args))
	for _, arg := range args {
		results = append(results, decodePayload(arg, opts))
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printDecodeText(out, results)
	return nil
}

func decodePayload(arg string, opts *decodeOptions) decodeResult {
	clean := strings.ReplaceAll(strings.Join(strings.Fields(arg), ""), ":", "")
	res := decodeResult{Payload: strings.ToLower(clean)}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		res.Status = statusInvalid
		res.Error = err.Error()
		return res
	}

	if v, ok := beacon.ParseVendor(raw); ok {
		res.Vendor = v.String()
	}

	f, err := beacon.Decode(raw)
	switch {
	case errors.Is(err, beacon.ErrNotABeacon):
		res.Status = statusNotBeacon
		return res
	case err != nil:
		res.Status = statusMalformed
		res.Error = err.Error()
		return res
	}

	s := beacon.NewSighting(f, int8(opts.rssi), opts.cycle, opts.deviceID)
	uuid := s.BeaconID.Short()
	tx := s.TxPower
	res.Status = statusBeacon
	res.Tag = hex.EncodeToString(s.ManufacturerTag[:])
	res.ID = s.BeaconID.String()
	res.UUID = &uuid
	res.TxPower = &tx
	res.Query = s.Query()
	return res
}

func printDecodeText(w io.Writer, results []decodeResult) {
	colored := isTerminal(w)
	paint := func(attr color.Attribute) func(a ...interface{}) string {
		c := color.New(attr)
		if !colored {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	green, yellow, red := paint(color.FgGreen), paint(color.FgYellow), paint(color.FgRed)

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "payload:  %s\n", r.Payload)
		switch r.Status {
		case statusBeacon:
			fmt.Fprintf(w, "status:   %s\n", green("beacon"))
			fmt.Fprintf(w, "tag:      %s\n", r.Tag)
			fmt.Fprintf(w, "id:       %s (uuid=%d)\n", r.ID, *r.UUID)
			fmt.Fprintf(w, "tx power: %d dBm\n", *r.TxPower)
			fmt.Fprintf(w, "query:    %s\n", r.Query)
		case statusNotBeacon:
			fmt.Fprintf(w, "status:   %s\n", yellow("not a beacon"))
			if r.Vendor != "" {
				fmt.Fprintf(w, "vendor:   %s\n", r.Vendor)
			}
		default:
			fmt.Fprintf(w, "status:   %s\n", red(strings.ReplaceAll(r.Status, "_", " ")))
			fmt.Fprintf(w, "error:    %s\n", r.Error)
		}
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
