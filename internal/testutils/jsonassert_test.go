package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONAsserter_DefaultOptions(t *testing.T) {
	opts := NewJSONAsserter(t).Options()

	assert.True(t, opts.IgnoreExtraKeys)
	assert.True(t, opts.AllowPresencePlaceholder)
	assert.False(t, opts.IgnoreArrayOrder)
	assert.Empty(t, opts.IgnoredFields)
}

func TestJSONAsserter_Diff(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		actual    string
		expected  string
		wantMatch bool
	}{
		{
			name:      "extra keys ignored by default",
			actual:    `{"status":"beacon","id":"46595009","query":"pkGroup=1"}`,
			expected:  `{"status":"beacon","id":"46595009"}`,
			wantMatch: true,
		},
		{
			name:     "extra keys compared when asked",
			opts:     []Option{WithIgnoreExtraKeys(false)},
			actual:   `{"status":"beacon","id":"46595009"}`,
			expected: `{"status":"beacon"}`,
		},
		{
			name:      "presence placeholder",
			actual:    `{"session":"0b9e","cycle":3}`,
			expected:  `{"session":"<<PRESENCE>>","cycle":3}`,
			wantMatch: true,
		},
		{
			name:     "presence placeholder requires the key",
			actual:   `{"cycle":3}`,
			expected: `{"session":"<<PRESENCE>>","cycle":3}`,
		},
		{
			name:     "root arrays compared element-wise",
			actual:   `[{"uuid":1},{"uuid":2}]`,
			expected: `[{"uuid":2},{"uuid":1}]`,
		},
		{
			name:      "array order ignored",
			opts:      []Option{WithIgnoreArrayOrder(true)},
			actual:    `[{"uuid":1},{"uuid":2}]`,
			expected:  `[{"uuid":2},{"uuid":1}]`,
			wantMatch: true,
		},
		{
			name:      "ignored fields at any depth",
			opts:      []Option{WithIgnoreExtraKeys(false), WithIgnoredFields("started")},
			actual:    `{"cycle":{"id":1,"started":"now"}}`,
			expected:  `{"cycle":{"id":1,"started":"then"}}`,
			wantMatch: true,
		},
		{
			name:     "value mismatch",
			actual:   `{"rssi":-67}`,
			expected: `{"rssi":-60}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := NewJSONAsserter(t, tt.opts...).Diff(tt.actual, tt.expected)
			if tt.wantMatch {
				assert.Empty(t, diff)
			} else {
				assert.NotEmpty(t, diff)
			}
		})
	}
}

func TestJSONAsserter_InvalidJSON(t *testing.T) {
	rec := &recordingT{}
	ok := NewJSONAsserter(rec).Assert(`{`, `{}`)

	assert.False(t, ok)
	if assert.Len(t, rec.errors, 1) {
		assert.Contains(t, rec.errors[0], "invalid actual JSON")
	}
}
