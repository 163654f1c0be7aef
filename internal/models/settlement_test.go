package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSettleGuarantee(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name     string
		garantia string
		costo    string
		aplicado string
		devuelto string
	}{
		{"no guarantee held", "0", "500", "0", "0"},
		{"zero cost refunds everything", "300", "0", "0", "300"},
		{"partial cost splits", "300", "120.50", "120.50", "179.50"},
		{"cost equal to guarantee", "300", "300", "300", "0"},
		{"cost above guarantee is capped", "300", "450", "300", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aplicado, devuelto := SettleGuarantee(d(tt.garantia), d(tt.costo))
			assert.True(t, d(tt.aplicado).Equal(aplicado), "aplicado = %s", aplicado)
			assert.True(t, d(tt.devuelto).Equal(devuelto), "devuelto = %s", devuelto)
		})
	}
}
