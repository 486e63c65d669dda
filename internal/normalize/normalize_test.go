package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

func TestParseValue(t *testing.T) {
	key := catalog.MetricKey{Command: "df", Dimension: "/", Field: "Use%"}
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"43", 43, false},
		{" 10.5 ", 10.5, false},
		{"43%", 43, false},
		{"-0", 0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"+Inf", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseValue(key, tt.raw)
			if tt.wantErr {
				var perr *MetricParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, key, perr.Key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	key := catalog.MetricKey{Command: "vmstat", Field: "free"}
	desc := catalog.MetricDescriptor{Category: "Memory", Name: "Free", Unit: "kb", Multiplier: 4096}

	m := Normalize(key, desc, 2, at)
	assert.Equal(t, "vmstat", m.Command)
	assert.Equal(t, "Memory", m.Category)
	assert.Equal(t, "Free", m.Name)
	assert.Equal(t, "kb", m.Unit)
	assert.Equal(t, 8192.0, m.Value)
	assert.Equal(t, at, m.Timestamp)
	assert.Equal(t, "Memory/Free", m.Path())
}

func TestNormalize_ZeroMultiplierIsIdentity(t *testing.T) {
	m := Normalize(catalog.MetricKey{Command: "df", Dimension: "/export/home", Field: "Used"},
		catalog.MetricDescriptor{Category: "Disk", Name: "Used", Unit: "kb"}, 7, time.Time{})
	assert.Equal(t, 7.0, m.Value)
	assert.Equal(t, "Disk/export/home/Used", m.Path())
}
