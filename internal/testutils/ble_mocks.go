package testutils

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockAdvertisement implements ble.Advertisement for testing.
type MockAdvertisement struct {
	mock.Mock
}

func (m *MockAdvertisement) LocalName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAdvertisement) ManufacturerData() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockAdvertisement) ServiceData() []ble.ServiceData {
	args := m.Called()
	return args.Get(0).([]ble.ServiceData)
}

func (m *MockAdvertisement) Services() []ble.UUID {
	args := m.Called()
	return args.Get(0).([]ble.UUID)
}

func (m *MockAdvertisement) OverflowService() []ble.UUID {
	args := m.Called()
	return args.Get(0).([]ble.UUID)
}

func (m *MockAdvertisement) TxPowerLevel() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockAdvertisement) Connectable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockAdvertisement) SolicitedService() []ble.UUID {
	args := m.Called()
	return args.Get(0).([]ble.UUID)
}

func (m *MockAdvertisement) RSSI() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockAdvertisement) Addr() ble.Addr {
	args := m.Called()
	return args.Get(0).(ble.Addr)
}

// RawMockAdvertisement is a MockAdvertisement that also exposes the raw
// packet, like go-ble's HCI advertisements do.
type RawMockAdvertisement struct {
	MockAdvertisement
	Raw []byte
}

func (m *RawMockAdvertisement) Data() []byte {
	return m.Raw
}

// MockAddr implements ble.Addr for testing.
type MockAddr struct {
	Address string
}

func (m *MockAddr) String() string {
	return m.Address
}

// MockScanDevice is a scan-only BLE device. Scan replays the configured
// advertisements and then blocks until its context ends.
type MockScanDevice struct {
	mock.Mock
	Advertisements []ble.Advertisement
}

func (m *MockScanDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	args := m.Called(ctx, allowDup, h)
	if err := args.Error(0); err != nil {
		return err
	}
	for _, adv := range m.Advertisements {
		h(adv)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockScanDevice) Stop() error {
	args := m.Called()
	return args.Error(0)
}

// NewBeaconMockAdvertisement returns a parsed-only advertisement carrying the
// beacon tag, a 16-bit service-data element holding id and the given TX power.
func NewBeaconMockAdvertisement(id [4]byte, txPower int, rssi int) *MockAdvertisement {
	adv := &MockAdvertisement{}
	adv.On("ManufacturerData").Return([]byte{0xFF, 0xFF, 'F', 'H'})
	adv.On("ServiceData").Return([]ble.ServiceData{{UUID: ble.UUID(id[:2]), Data: id[2:]}})
	adv.On("TxPowerLevel").Return(txPower)
	adv.On("RSSI").Return(rssi)
	adv.On("Addr").Return(&MockAddr{Address: "aa:bb:cc:dd:ee:ff"}).Maybe()
	return adv
}
