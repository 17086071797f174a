package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriceLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    Cents
		wantErr bool
	}{
		{label: "$50.00", want: 5000},
		{label: "50", want: 5000},
		{label: " 1,299.99 ", want: 129999},
		{label: "USD 0.5", want: 50},
		{label: "₩12,000", want: 1200000},
		{label: "", wantErr: true},
		{label: "free", wantErr: true},
		{label: "-$5.00", wantErr: true},
		{label: "$10.005", wantErr: true},
		{label: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParsePriceLabel(tt.label)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPriceLabel)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$50.00", FormatCents(5000, "$"))
	assert.Equal(t, "$0.05", FormatCents(5, "$"))
	assert.Equal(t, "-$1.50", FormatCents(-150, "$"))
	assert.Equal(t, "12.34", Cents(1234).String())
}
