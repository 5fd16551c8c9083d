//go:build linux

package radio

import "github.com/go-ble/ble/linux"

func newPlatformDevice() (ScanDevice, error) {
	return linux.NewDevice()
}
