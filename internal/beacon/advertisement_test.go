package beacon_test

import (
	"testing"

	"github.com/srg/beacond/internal/beacon"
	"github.com/srg/beacond/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type DecodeTestSuite struct {
	suite.Suite
}

func (suite *DecodeTestSuite) TestDecode_WellFormedBeacon() {
	// GOAL: Verify a tagged advertisement with all sections decodes into typed fields
	//
	// TEST SCENARIO: flags + tag + identity + tx power → fields copied verbatim

	raw := testutils.NewBeaconAdvertisement(testutils.BeaconID(42), -59).
		WithLocalName("tag-42").
		Build()

	f, err := beacon.Decode(raw)

	suite.Require().NoError(err, "well-formed beacon MUST decode")
	suite.Equal(beacon.Tag, f.ManufacturerData)
	suite.Equal(beacon.ID{'F', 'Y', 'P', 42}, f.BeaconID())
	suite.Equal(int8(-59), f.TxPower)
	suite.True(beacon.IsBeacon(raw))
}

func (suite *DecodeTestSuite) TestDecode_SectionOrderDoesNotMatter() {
	raw := testutils.NewAdvertisementBuilder().
		WithTxPower(4).
		WithIdentity(testutils.BeaconID(7)).
		WithTag().
		Build()

	f, err := beacon.Decode(raw)

	suite.Require().NoError(err)
	suite.Equal(uint8(7), f.BeaconID().Short())
	suite.Equal(int8(4), f.TxPower)
}

func (suite *DecodeTestSuite) TestDecode_NotABeacon() {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty payload", raw: nil},
		{name: "no manufacturer data", raw: testutils.NewAdvertisementBuilder().WithFlags(0x06).WithLocalName("x").Build()},
		{name: "foreign manufacturer data", raw: testutils.NewAdvertisementBuilder().WithManufacturerData([]byte{0x4C, 0x00, 0x02, 0x15}).Build()},
		{name: "tag prefix but longer section", raw: testutils.NewAdvertisementBuilder().WithManufacturerData([]byte{0xFF, 0xFF, 'F', 'H', 0x00}).Build()},
		{name: "truncated tag", raw: testutils.NewAdvertisementBuilder().WithManufacturerData([]byte{0xFF, 0xFF, 'F'}).Build()},
		{name: "tag after zero terminator", raw: testutils.NewAdvertisementBuilder().WithFlags(0x06).WithRawTail(0x00, 0x05, 0xFF, 0xFF, 0xFF, 'F', 'H').Build()},
		{name: "overrunning length", raw: []byte{0x1F, 0xFF, 0xFF, 0xFF, 'F', 'H'}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := beacon.Decode(tt.raw)

			suite.ErrorIs(err, beacon.ErrNotABeacon, "payload MUST be classified as not a beacon")
			suite.NotErrorIs(err, beacon.ErrMalformedSection)
			suite.False(beacon.IsBeacon(tt.raw))
		})
	}
}

func (suite *DecodeTestSuite) TestDecode_MalformedSections() {
	// GOAL: Verify tagged advertisements with missing or mis-sized sections are rejected
	//
	// TEST SCENARIO: each broken section → *DecodeError naming it, matching ErrMalformedSection

	tests := []struct {
		name    string
		raw     []byte
		section beacon.Section
		got     int
	}{
		{
			name:    "missing service data",
			raw:     testutils.NewAdvertisementBuilder().WithTag().WithTxPower(0).Build(),
			section: beacon.SectionServiceData,
			got:     -1,
		},
		{
			name:    "short service data",
			raw:     testutils.NewAdvertisementBuilder().WithTag().WithServiceData([]byte{1, 2}).WithTxPower(0).Build(),
			section: beacon.SectionServiceData,
			got:     2,
		},
		{
			name:    "missing tx power",
			raw:     testutils.NewAdvertisementBuilder().WithTag().WithIdentity(testutils.BeaconID(1)).Build(),
			section: beacon.SectionTxPower,
			got:     -1,
		},
		{
			name:    "two byte tx power",
			raw:     testutils.NewAdvertisementBuilder().WithTag().WithIdentity(testutils.BeaconID(1)).WithSection(beacon.ADTypeTxPower, []byte{1, 2}).Build(),
			section: beacon.SectionTxPower,
			got:     2,
		},
		{
			name:    "tx power cut by truncated payload",
			raw:     testutils.NewAdvertisementBuilder().WithTag().WithIdentity(testutils.BeaconID(1)).WithRawTail(0x02, beacon.ADTypeTxPower).Build(),
			section: beacon.SectionTxPower,
			got:     -1,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := beacon.Decode(tt.raw)

			suite.Require().Error(err)
			suite.ErrorIs(err, beacon.ErrMalformedSection, "error MUST match ErrMalformedSection")
			suite.NotErrorIs(err, beacon.ErrNotABeacon)

			var derr *beacon.DecodeError
			suite.Require().ErrorAs(err, &derr)
			suite.Equal(tt.section, derr.Section)
			suite.Equal(tt.got, derr.Got)
			suite.Contains(err.Error(), string(tt.section))
		})
	}
}

func TestDecodeTestSuite(t *testing.T) {
	suite.Run(t, new(DecodeTestSuite))
}

func FuzzDecode(f *testing.F) {
	f.Add(testutils.NewBeaconAdvertisement(testutils.BeaconID(1), -40).Build())
	f.Add([]byte{0xFF})
	f.Add([]byte{0x01})
	f.Add([]byte{0x05, 0xFF, 0xFF, 0xFF, 'F', 'H', 0xFF, 0x16})

	f.Fuzz(func(t *testing.T, raw []byte) {
		fields, err := beacon.Decode(raw)
		if err == nil {
			if fields.ManufacturerData != beacon.Tag {
				t.Fatalf("decoded payload without tag: %x", raw)
			}
			return
		}
		if beacon.IsBeacon(raw) == (err == beacon.ErrNotABeacon) {
			t.Fatalf("IsBeacon disagrees with Decode for %x: %v", raw, err)
		}
	})
}
