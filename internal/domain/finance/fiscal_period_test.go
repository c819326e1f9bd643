package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFiscalPeriod(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"FY2025-2026-P01", true},
		{"FY2025-2026-P12", true},
		{"FY2024-2025-P07", true},
		{"FY2025-2026-P00", false},
		{"FY2025-2026-P13", false},
		{"FY2025-2027-P01", false}, // non-consecutive years
		{"FY25-26-P01", false},
		{"2025-2026-P01", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			fp, err := ParseFiscalPeriod(tt.input)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.input, fp.String())
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFiscalPeriodOf(t *testing.T) {
	tests := []struct {
		date time.Time
		want FiscalPeriod
	}{
		{time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), "FY2025-2026-P01"},
		{time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), "FY2025-2026-P06"},
		{time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "FY2025-2026-P07"},
		{time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), "FY2025-2026-P12"},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, FiscalPeriodOf(tt.date))
		})
	}
}

func TestFiscalPeriod_Month(t *testing.T) {
	assert.Equal(t, time.July, FiscalPeriod("FY2025-2026-P01").Month())
	assert.Equal(t, time.December, FiscalPeriod("FY2025-2026-P06").Month())
	assert.Equal(t, time.January, FiscalPeriod("FY2025-2026-P07").Month())
	assert.Equal(t, time.June, FiscalPeriod("FY2025-2026-P12").Month())
}
