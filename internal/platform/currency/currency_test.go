package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"whole small", "800", "$800"},
		{"whole with grouping", "1000", "$1,000"},
		{"large grouping", "1250000", "$1,250,000"},
		{"cents kept", "9999.99", "$9,999.99"},
		{"single cent digit padded", "42.50", "$42.50"},
		{"negative shown as magnitude", "-800", "$800"},
		{"zero", "0", "$0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUSD(decimal.RequireFromString(tt.amount)))
		})
	}
}
