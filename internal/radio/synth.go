package radio

import (
	"encoding/binary"

	"github.com/srg/beacond/internal/beacon"
)

// serviceData is one service-data element as parsed by a BLE stack: the
// 16-bit UUID in wire (little-endian) order followed by the payload.
type serviceData struct {
	uuid []byte
	data []byte
}

// synthesize rebuilds an AD payload from fields a stack has already parsed.
// Only the sections beacon decoding looks at are produced.
func synthesize(manufacturer []byte, services []serviceData, txPower int) []byte {
	raw := make([]byte, 0, 31)
	if len(manufacturer) > 0 {
		raw = beacon.AppendSection(raw, beacon.ADTypeManufacturerData, manufacturer)
	}
	for _, sd := range services {
		if len(sd.uuid) != 2 {
			continue
		}
		body := make([]byte, 0, len(sd.uuid)+len(sd.data))
		body = append(body, sd.uuid...)
		body = append(body, sd.data...)
		raw = beacon.AppendSection(raw, beacon.ADTypeServiceData16, body)
	}
	if txPower != TxPowerUnknown {
		raw = beacon.AppendSection(raw, beacon.ADTypeTxPower, []byte{byte(int8(txPower))})
	}
	return raw
}

// companyData prefixes data with a little-endian company identifier, the
// layout of a manufacturer-specific data section.
func companyData(companyID uint16, data []byte) []byte {
	out := make([]byte, 2, 2+len(data))
	binary.LittleEndian.PutUint16(out, companyID)
	return append(out, data...)
}
