package beacon

// AD structure types used by beacons (Bluetooth Core Supplement, Part A).
const (
	ADTypeTxPower          byte = 0x0A
	ADTypeServiceData16    byte = 0x16
	ADTypeManufacturerData byte = 0xFF
)

// Section lengths, in bytes, of a well-formed beacon advertisement.
const (
	ManufacturerDataLen = 4
	ServiceDataLen      = 4
	TxPowerLen          = 1
)

// Tag is the manufacturer-specific data every beacon advertises.
var Tag = [ManufacturerDataLen]byte{0xFF, 0xFF, 'F', 'H'}

// Fields holds the typed sections of a beacon advertisement.
type Fields struct {
	ManufacturerData [ManufacturerDataLen]byte
	ServiceData      [ServiceDataLen]byte
	TxPower          int8
}

// BeaconID returns the beacon identity carried in the service-data section.
func (f Fields) BeaconID() ID {
	return ID(f.ServiceData)
}

// Decode parses a raw advertisement payload.
//
// It returns ErrNotABeacon when the payload does not carry the beacon Tag and a
// *DecodeError (matching ErrMalformedSection) when a tagged payload is missing a
// section or carries one with the wrong length. Decode never panics.
func Decode(raw []byte) (Fields, error) {
	var f Fields

	msd, ok := findSection(raw, ADTypeManufacturerData)
	if !ok || len(msd) != ManufacturerDataLen || [ManufacturerDataLen]byte(msd) != Tag {
		return f, ErrNotABeacon
	}
	copy(f.ManufacturerData[:], msd)

	sd, ok := findSection(raw, ADTypeServiceData16)
	if err := checkLen(SectionServiceData, sd, ok, ServiceDataLen); err != nil {
		return f, err
	}
	copy(f.ServiceData[:], sd)

	tx, ok := findSection(raw, ADTypeTxPower)
	if err := checkLen(SectionTxPower, tx, ok, TxPowerLen); err != nil {
		return f, err
	}
	f.TxPower = int8(tx[0])

	return f, nil
}

// IsBeacon reports whether raw carries the beacon Tag.
func IsBeacon(raw []byte) bool {
	msd, ok := findSection(raw, ADTypeManufacturerData)
	return ok && len(msd) == ManufacturerDataLen && [ManufacturerDataLen]byte(msd) == Tag
}

func checkLen(s Section, data []byte, present bool, want int) error {
	if !present {
		return &DecodeError{Section: s, Want: want, Got: -1}
	}
	if len(data) != want {
		return &DecodeError{Section: s, Want: want, Got: len(data)}
	}
	return nil
}

// findSection returns the data of the first AD structure of type typ.
// A zero length byte ends the significant part of the payload; a length
// running past the end of raw ends the walk.
func findSection(raw []byte, typ byte) ([]byte, bool) {
	for i := 0; i < len(raw); {
		l := int(raw[i])
		if l == 0 {
			return nil, false
		}
		end := i + 1 + l
		if end > len(raw) {
			return nil, false
		}
		if raw[i+1] == typ {
			return raw[i+2 : end], true
		}
		i = end
	}
	return nil, false
}

// AppendSection appends one AD structure to dst. Data longer than an AD
// structure can carry is truncated.
func AppendSection(dst []byte, typ byte, data []byte) []byte {
	if len(data) > 254 {
		data = data[:254]
	}
	dst = append(dst, byte(len(data)+1), typ)
	return append(dst, data...)
}
