// Package beacon decodes raw BLE advertisement payloads emitted by proximity
// beacons and defines the fixed-size sighting record handed from the scan
// path to the reporting path.
//
// A beacon is recognised by its manufacturer-specific data section, which
// must be exactly the four byte Tag. Beacons additionally carry a four byte
// service-data section (the beacon identity) and a one byte TX power section.
package beacon
