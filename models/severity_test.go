package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityTierString(t *testing.T) {
	assert.Equal(t, "low", SeverityLow.String())
	assert.Equal(t, "medium", SeverityMedium.String())
	assert.Equal(t, "high", SeverityHigh.String())
	assert.Equal(t, "critical", SeverityCritical.String())
}

func TestSeverityTierOrdering(t *testing.T) {
	// Comparisons on the raw value drive fail-on and sorting.
	assert.True(t, SeverityLow < SeverityMedium)
	assert.True(t, SeverityMedium < SeverityHigh)
	assert.True(t, SeverityHigh < SeverityCritical)
}

func TestParseSeverityTier(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected SeverityTier
		wantErr  bool
	}{
		{"low", "low", SeverityLow, false},
		{"uppercase", "HIGH", SeverityHigh, false},
		{"mixed case", "Critical", SeverityCritical, false},
		{"unknown", "urgent", 0, true},
		{"empty", "", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tier, err := ParseSeverityTier(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, tier)
		})
	}
}

func TestSeverityTierJSON(t *testing.T) {
	data, err := json.Marshal(SeverityHigh)
	require.NoError(t, err)
	assert.Equal(t, `"high"`, string(data))

	var tier SeverityTier
	require.NoError(t, json.Unmarshal([]byte(`"critical"`), &tier))
	assert.Equal(t, SeverityCritical, tier)

	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &tier))
}
