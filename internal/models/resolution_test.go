package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionEffect(t *testing.T) {
	tests := []struct {
		name      string
		tipo      string
		resultado string
		effect    StockEffect
		wantErr   bool
	}{
		{"reparable repuesto restocks", IncidenteReparable, ResultadoRepuesto, StockEffectRestock, false},
		{"irreparable repuesto restocks", IncidenteIrreparable, ResultadoRepuesto, StockEffectRestock, false},
		{"reparable sin_accion no-op", IncidenteReparable, ResultadoSinAccion, StockEffectNone, false},
		{"irreparable sin_accion no-op", IncidenteIrreparable, ResultadoSinAccion, StockEffectNone, false},
		{"reparable reintegrado no-op", IncidenteReparable, ResultadoReintegrado, StockEffectNone, false},
		{"irreparable reintegrado rejected", IncidenteIrreparable, ResultadoReintegrado, StockEffectNone, true},
		{"unknown resultado rejected", IncidenteReparable, "desaparecido", StockEffectNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect, err := ResolutionEffect(tt.tipo, tt.resultado)
			if tt.wantErr {
				var ierr *InvalidResolutionError
				assert.ErrorAs(t, err, &ierr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.effect, effect)
		})
	}
}

func TestNormalizeRepuesta(t *testing.T) {
	// omitted quantity defaults to the affected quantity
	n, err := NormalizeRepuesta(5, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = NormalizeRepuesta(5, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = NormalizeRepuesta(5, 6)
	var qerr *InvalidQuantityError
	assert.ErrorAs(t, err, &qerr)
	assert.Equal(t, 5, qerr.Max)
}
