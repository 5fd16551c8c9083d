package testutils

import (
	"encoding/hex"

	"github.com/srg/beacond/internal/beacon"
)

// AdvertisementBuilder builds raw BLE advertisement payloads for testing.
// Sections are emitted in the order they were added, as AD structures
// ([len][type][data...]).
type AdvertisementBuilder struct {
	sections [][]byte
	tail     []byte
}

// NewAdvertisementBuilder creates an empty AdvertisementBuilder.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{}
}

// NewBeaconAdvertisement returns a builder pre-filled with a well-formed beacon
// advertisement: flags, the beacon tag, the given identity and TX power.
func NewBeaconAdvertisement(id beacon.ID, txPower int8) *AdvertisementBuilder {
	return NewAdvertisementBuilder().
		WithFlags(0x06).
		WithTag().
		WithIdentity(id).
		WithTxPower(txPower)
}

// BeaconID returns an identity whose last byte is short and the rest is fixed.
func BeaconID(short byte) beacon.ID {
	return beacon.ID{'F', 'Y', 'P', short}
}

// WithSection appends an arbitrary AD structure.
func (b *AdvertisementBuilder) WithSection(typ byte, data []byte) *AdvertisementBuilder {
	b.sections = append(b.sections, beacon.AppendSection(nil, typ, data))
	return b
}

// WithFlags appends the flags AD structure.
func (b *AdvertisementBuilder) WithFlags(flags byte) *AdvertisementBuilder {
	return b.WithSection(0x01, []byte{flags})
}

// WithTag appends the beacon manufacturer-specific data section.
func (b *AdvertisementBuilder) WithTag() *AdvertisementBuilder {
	return b.WithManufacturerData(beacon.Tag[:])
}

// WithManufacturerData appends a manufacturer-specific data section.
func (b *AdvertisementBuilder) WithManufacturerData(data []byte) *AdvertisementBuilder {
	return b.WithSection(beacon.ADTypeManufacturerData, data)
}

// WithIdentity appends a four byte service-data section carrying id.
func (b *AdvertisementBuilder) WithIdentity(id beacon.ID) *AdvertisementBuilder {
	return b.WithServiceData(id[:])
}

// WithServiceData appends a service-data section with arbitrary bytes.
func (b *AdvertisementBuilder) WithServiceData(data []byte) *AdvertisementBuilder {
	return b.WithSection(beacon.ADTypeServiceData16, data)
}

// WithTxPower appends the TX power level section.
func (b *AdvertisementBuilder) WithTxPower(power int8) *AdvertisementBuilder {
	return b.WithSection(beacon.ADTypeTxPower, []byte{byte(power)})
}

// WithLocalName appends a complete local name section.
func (b *AdvertisementBuilder) WithLocalName(name string) *AdvertisementBuilder {
	return b.WithSection(0x09, []byte(name))
}

// WithRawTail appends bytes verbatim after all sections, for malformed payloads.
func (b *AdvertisementBuilder) WithRawTail(tail ...byte) *AdvertisementBuilder {
	b.tail = append(b.tail, tail...)
	return b
}

// Build returns the raw payload.
func (b *AdvertisementBuilder) Build() []byte {
	var out []byte
	for _, s := range b.sections {
		out = append(out, s...)
	}
	return append(out, b.tail...)
}

// BuildHex returns the raw payload as a hex string.
func (b *AdvertisementBuilder) BuildHex() string {
	return hex.EncodeToString(b.Build())
}
