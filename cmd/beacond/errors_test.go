package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/beacond/internal/link"
	"github.com/srg/beacond/internal/radio"
)

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{
			name: "radio off",
			err:  fmt.Errorf("failed to start scanning: %w", radio.ErrRadioOff),
			want: "failed to start scanning: bluetooth radio is off\nHint: turn Bluetooth on and check that the adapter is not blocked (rfkill list)",
		},
		{
			name: "provider closed",
			err:  link.ErrProviderClosed,
			want: "link provider event stream closed\nHint: the link monitor stopped; set link.provider to probe or static",
		},
		{
			name: "joined",
			err:  fmt.Errorf("invalid configuration: %w", errors.Join(errors.New("a"), errors.New("b"))),
			want: "invalid configuration: a\n  b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.0", formatVersion("1.2.0"))
	assert.Equal(t, "dev", formatVersion("dev"))
}
