package main

import (
	"errors"
	"strings"

	"github.com/srg/beacond/internal/link"
	"github.com/srg/beacond/internal/radio"
	"github.com/srg/beacond/internal/transport"
)

// FormatUserError turns an error into a message for the terminal, adding a
// hint for failures the user can fix.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	switch {
	case errors.Is(err, radio.ErrRadioOff):
		return msg + "\nHint: turn Bluetooth on and check that the adapter is not blocked (rfkill list)"
	case errors.Is(err, radio.ErrUnsupported):
		return msg + "\nHint: use --radio tinygo or --replay <capture.yaml> on this platform"
	case errors.Is(err, radio.ErrScanInProgress):
		return msg + "\nHint: another process is scanning; stop it and retry"
	case errors.Is(err, link.ErrProviderClosed):
		return msg + "\nHint: the link monitor stopped; set link.provider to probe or static"
	case errors.Is(err, transport.ErrRequestTooLarge):
		return msg + "\nHint: raise backend.tx_buffer_size or shorten backend.resource"
	}

	// errors.Join renders one problem per line; indent them under the first line.
	if lines := strings.Split(msg, "\n"); len(lines) > 1 {
		return lines[0] + "\n  " + strings.Join(lines[1:], "\n  ")
	}
	return msg
}
