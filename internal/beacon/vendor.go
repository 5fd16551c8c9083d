package beacon

import (
	"encoding/binary"
	"fmt"
)

// TagCompanyID is the company identifier carried in the first two Tag bytes
// (0xFFFF, reserved by the Bluetooth SIG for testing).
const TagCompanyID uint16 = 0xFFFF

// knownVendors names the company identifiers most often heard next to beacons.
var knownVendors = map[uint16]string{
	0x0006: "Microsoft",
	0x004C: "Apple, Inc.",
	0x0059: "Nordic Semiconductor ASA",
	0x0075: "Samsung Electronics Co. Ltd.",
	0x00E0: "Google",
	0x0171: "Amazon.com Services, LLC",
	0xFFFF: "Reserved (test)",
}

// Vendor identifies who sent an advertisement, per its manufacturer-specific data.
type Vendor struct {
	CompanyID uint16
	Name      string // empty when the company is not known
}

func (v Vendor) String() string {
	if v.Name == "" {
		return fmt.Sprintf("0x%04X", v.CompanyID)
	}
	return fmt.Sprintf("0x%04X (%s)", v.CompanyID, v.Name)
}

// ParseVendor extracts the company identifier from the manufacturer-specific
// data of raw (first two bytes, little-endian). It returns false when raw has
// no manufacturer data section or the section is too short to carry one.
func ParseVendor(raw []byte) (Vendor, bool) {
	msd, ok := findSection(raw, ADTypeManufacturerData)
	if !ok || len(msd) < 2 {
		return Vendor{}, false
	}
	id := binary.LittleEndian.Uint16(msd[:2])
	return Vendor{CompanyID: id, Name: knownVendors[id]}, true
}
