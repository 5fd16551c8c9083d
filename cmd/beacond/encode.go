package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/beacond/internal/beacon"
	"github.com/srg/beacond/internal/transport"
	"github.com/srg/beacond/node"
)

type encodeOptions struct {
	id       string
	rssi     int
	txPower  int
	cycle    uint32
	deviceID int
	request  bool
	url      bool
}

func newEncodeCmd() *cobra.Command {
	opts := &encodeOptions{}
	cmd := &cobra.Command{
		Use:     "encode-query",
		Aliases: []string{"encode"},
		Short:   "Show the backend request for a sighting",
		Long: `Build a sighting from flags and print the query the node would report it
with. With --request the full legacy TCP request is printed, with --url the
HTTP transport URL; both use the backend from the configuration.`,
		Example: `  beacond encode-query --id 46595009 --rssi=-67 --cycle 12
  beacond encode-query --id 46595009 --rssi=-67 --cycle 12 --request`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEncode(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.id, "id", "", "Beacon identity as 8 hex digits (service data)")
	cmd.Flags().IntVar(&opts.rssi, "rssi", 0, "Received signal strength in dBm")
	cmd.Flags().IntVar(&opts.txPower, "tx-power", 0, "Advertised TX power in dBm")
	cmd.Flags().Uint32Var(&opts.cycle, "cycle", 1, "Scan cycle id")
	cmd.Flags().IntVar(&opts.deviceID, "device-id", -1, "Device id (defaults to the configured one)")
	cmd.Flags().BoolVar(&opts.request, "request", false, "Print the full legacy TCP request")
	cmd.Flags().BoolVar(&opts.url, "url", false, "Print the HTTP transport URL")
	cmd.MarkFlagsMutuallyExclusive("request", "url")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (o *encodeOptions) sighting(defaultDevice uint8) (beacon.Sighting, error) {
	raw, err := hex.DecodeString(o.id)
	if err != nil || len(raw) != beacon.ServiceDataLen {
		return beacon.Sighting{}, fmt.Errorf("invalid beacon id %q: must be %d bytes of hex", o.id, beacon.ServiceDataLen)
	}
	if o.rssi < -128 || o.rssi > 127 {
		return beacon.Sighting{}, fmt.Errorf("invalid rssi %d: must be -128..127", o.rssi)
	}
	if o.txPower < -128 || o.txPower > 127 {
		return beacon.Sighting{}, fmt.Errorf("invalid tx power %d: must be -128..127", o.txPower)
	}
	device := defaultDevice
	if o.deviceID >= 0 {
		if o.deviceID > 255 {
			return beacon.Sighting{}, fmt.Errorf("invalid device id %d: must be 0-255", o.deviceID)
		}
		device = uint8(o.deviceID)
	}

	f := beacon.Fields{ManufacturerData: beacon.Tag, TxPower: int8(o.txPower)}
	copy(f.ServiceData[:], raw)
	return beacon.NewSighting(f, int8(o.rssi), o.cycle, device), nil
}

func runEncode(cmd *cobra.Command, opts *encodeOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := opts.sighting(cfg.DeviceID)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ep := node.Endpoint(cfg)
	topts := transport.DefaultOptions()
	if cfg.Backend.TxBufferSize > 0 {
		topts.TxBufferSize = cfg.Backend.TxBufferSize
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.request:
		req := transport.NewLegacyTCP(ep, topts, nil).Request(s)
		if len(req) > topts.TxBufferSize {
			return fmt.Errorf("%w: %d bytes, buffer is %d", transport.ErrRequestTooLarge, len(req), topts.TxBufferSize)
		}
		_, err = fmt.Fprint(out, req)
	case opts.url:
		_, err = fmt.Fprintln(out, transport.NewHTTP(ep, topts, nil).URL(s))
	default:
		_, err = fmt.Fprintln(out, s.PathAndQuery(ep.Resource))
	}
	return err
}
