package main

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srg/beacond/internal/testutils"
)

type EncodeCommandTestSuite struct {
	CommandTestSuite
}

func (s *EncodeCommandTestSuite) TestQuery() {
	out, _, err := s.ExecuteCommand("encode-query", "--id", "46595009", "--rssi=-67", "--cycle", "12")
	s.Require().NoError(err)
	s.Equal("rssi_submit?pkGroup=12&uuid=9&rssi=-67&deviceID=1\n", out)
}

func (s *EncodeCommandTestSuite) TestLegacyRequest() {
	// GOAL: Verify the printed request is byte-for-byte what the legacy transport writes
	//
	// TEST SCENARIO: Sighting of uuid 9 in cycle 12 with a configured backend → request line, Host header and empty line, all CRLF

	cfg := s.WriteFile("beacond.yaml", "device_id: 4\nbackend:\n  host: 10.0.0.2\n  port: 8080\n  resource: submit\n")

	out, _, err := s.ExecuteCommand("encode", "--config", cfg, "--id", "46595009", "--rssi=-70", "--cycle", "12", "--request")
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(out,
		"POST /submit?pkGroup=12&uuid=9&rssi=-70&deviceID=4 HTTP/1.0\r\nHost: 10.0.0.2:8080\r\n\r\n")
}

func (s *EncodeCommandTestSuite) TestURL() {
	out, _, err := s.ExecuteCommand("encode", "--id", "46595009", "--device-id", "2", "--url")
	s.Require().NoError(err)
	s.Equal("http://159.196.72.33:5000/rssi_submit?pkGroup=1&uuid=9&rssi=0&deviceID=2\n", out)
}

func (s *EncodeCommandTestSuite) TestRequestTooLarge() {
	cfg := s.WriteFile("beacond.yaml", "backend:\n  tx_buffer_size: 32\n")

	_, _, err := s.ExecuteCommand("encode", "--config", cfg, "--id", "46595009", "--request")
	s.Require().Error(err)
	s.Contains(FormatUserError(err), "tx_buffer_size", "the hint MUST name the setting")
}

func (s *EncodeCommandTestSuite) TestInvalidInput() {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing id", []string{"encode"}, `required flag(s) "id" not set`},
		{"short id", []string{"encode", "--id", "4659"}, "invalid beacon id"},
		{"bad hex", []string{"encode", "--id", "zz595009"}, "invalid beacon id"},
		{"rssi range", []string{"encode", "--id", "46595009", "--rssi", "300"}, "invalid rssi"},
		{"device range", []string{"encode", "--id", "46595009", "--device-id", "256"}, "invalid device id"},
		{"exclusive outputs", []string{"encode", "--id", "46595009", "--url", "--request"}, "none of the others can be"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, _, err := s.ExecuteCommand(tt.args...)
			s.Require().Error(err)
			s.Contains(err.Error(), tt.want)
		})
	}
}

func TestEncodeCommandTestSuite(t *testing.T) {
	suite.Run(t, new(EncodeCommandTestSuite))
}
