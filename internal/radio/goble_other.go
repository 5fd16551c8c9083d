//go:build !linux && !darwin

package radio

func newPlatformDevice() (ScanDevice, error) {
	return nil, ErrUnsupported
}
