package beacon

import (
	"errors"
	"fmt"
)

// Decode outcomes that are not beacons. Callers drop the advertisement and continue.
var (
	// ErrNotABeacon reports that the payload does not carry the beacon tag.
	// This is the common case for foreign advertisements and is not a failure.
	ErrNotABeacon = errors.New("not a beacon")

	// ErrMalformedSection matches every *DecodeError via errors.Is.
	ErrMalformedSection = errors.New("malformed section")
)

// Section names an AD structure the decoder extracts. A missing or mis-sized
// manufacturer tag is not a section error: the advertisement is simply not a
// beacon (ErrNotABeacon).
type Section string

const (
	SectionServiceData Section = "service_data"
	SectionTxPower     Section = "tx_power"
)

// DecodeError describes a beacon-tagged advertisement with a missing or mis-sized section.
type DecodeError struct {
	Section Section
	Want    int // expected section length in bytes
	Got     int // actual length, -1 when the section is absent
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Got < 0 {
		return fmt.Sprintf("%s: %s section missing", ErrMalformedSection, e.Section)
	}
	return fmt.Sprintf("%s: %s section is %d bytes, want %d", ErrMalformedSection, e.Section, e.Got, e.Want)
}

// Is lets errors.Is match any DecodeError against ErrMalformedSection.
func (e *DecodeError) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == ErrMalformedSection {
		return true
	}
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return e.Section == t.Section
}
