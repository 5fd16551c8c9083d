//go:build darwin

package radio

import "github.com/go-ble/ble/darwin"

func newPlatformDevice() (ScanDevice, error) {
	return darwin.NewDevice()
}
