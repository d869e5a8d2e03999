package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v int64) *int64 { return &v }

func TestFormatStat(t *testing.T) {
	tests := []struct {
		name  string
		value *int64
		want  string
	}{
		{"absent", nil, Placeholder},
		{"zero", ptr(0), "0"},
		{"small", ptr(100), "100"},
		{"thousands", ptr(1234), "1,234"},
		{"millions", ptr(1234567), "1,234,567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatStat(tt.value))
		})
	}
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, Placeholder, FormatDelta(nil))
	assert.Equal(t, "+1,500", FormatDelta(ptr(1500)))
	assert.Equal(t, "0", FormatDelta(ptr(0)))
}
