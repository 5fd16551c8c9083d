package beacon

import (
	"encoding/hex"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ID is the four byte beacon identity taken from the service-data section.
type ID [ServiceDataLen]byte

// String renders the identity as lowercase hex.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the last identity byte, the value reported upstream.
func (id ID) Short() uint8 {
	return id[ServiceDataLen-1]
}

// Sighting is one deduplicated observation of a beacon during one scan cycle.
//
// It is a plain value type: it holds no slices or pointers so it can be
// copied through the sighting queue without sharing memory between tasks.
type Sighting struct {
	ManufacturerTag [ManufacturerDataLen]byte
	BeaconID        ID
	TxPower         int8
	RSSI            int8
	ScanCycleID     uint32
	DeviceID        uint8
}

// NewSighting builds a Sighting from decoded fields and observation metadata.
func NewSighting(f Fields, rssi int8, cycleID uint32, deviceID uint8) Sighting {
	return Sighting{
		ManufacturerTag: f.ManufacturerData,
		BeaconID:        f.BeaconID(),
		TxPower:         f.TxPower,
		RSSI:            rssi,
		ScanCycleID:     cycleID,
		DeviceID:        deviceID,
	}
}

// Query parameter names of the backend submit endpoint, in wire order.
const (
	ParamPacketGroup = "pkGroup"
	ParamUUID        = "uuid"
	ParamRSSI        = "rssi"
	ParamDeviceID    = "deviceID"
)

// Params returns the query parameters of s in wire order.
func (s Sighting) Params() *orderedmap.OrderedMap[string, string] {
	params := orderedmap.New[string, string]()
	params.Set(ParamPacketGroup, strconv.FormatUint(uint64(s.ScanCycleID), 10))
	params.Set(ParamUUID, strconv.FormatUint(uint64(s.BeaconID.Short()), 10))
	params.Set(ParamRSSI, strconv.FormatInt(int64(s.RSSI), 10))
	params.Set(ParamDeviceID, strconv.FormatUint(uint64(s.DeviceID), 10))
	return params
}

// Query serializes s into the backend query string, e.g.
// "pkGroup=3&uuid=42&rssi=-67&deviceID=1". Values are decimal and need no escaping.
func (s Sighting) Query() string {
	var b strings.Builder
	for pair := s.Params().Oldest(); pair != nil; pair = pair.Next() {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pair.Key)
		b.WriteByte('=')
		b.WriteString(pair.Value)
	}
	return b.String()
}

// PathAndQuery joins the backend resource and the query, e.g. "rssi_submit?pkGroup=3&...".
func (s Sighting) PathAndQuery(resource string) string {
	return resource + "?" + s.Query()
}
