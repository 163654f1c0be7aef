package service

import (
	"testing"

	"rental-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPricing() *Pricing {
	zones := map[string]decimal.Decimal{
		"Zona Macrocentro": decimal.NewFromInt(2800),
		"Zona Norte":       decimal.NewFromInt(3000),
		"Zona Oeste":       decimal.NewFromInt(4000),
		"Zona Este":        decimal.NewFromInt(5000),
		"Zona Sur":         decimal.NewFromInt(5500),
	}
	return NewPricing(zones, decimal.RequireFromString("0.15"), decimal.RequireFromString("0.20"))
}

func TestQuoteDelivery(t *testing.T) {
	p := testPricing()

	lines := []models.OrderLine{
		{ProductoID: 1, Cantidad: 2, PrecioUnit: decimal.NewFromInt(1000)},
	}

	quote, err := p.Quote(lines, models.TipoEntregaEntrega, "Zona Norte")
	require.NoError(t, err)

	assert.True(t, quote.SubtotalProductos.Equal(decimal.NewFromInt(2000)))
	assert.True(t, quote.CostoFlete.Equal(decimal.NewFromInt(3000)))
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(5000)))
	// garantia covers products only, flete excluded
	assert.True(t, quote.GarantiaSugerida.Equal(decimal.NewFromInt(300)))
	assert.True(t, quote.SeniaSugerida.Equal(decimal.NewFromInt(1000)))
}

func TestQuotePickupHasNoFlete(t *testing.T) {
	p := testPricing()

	lines := []models.OrderLine{
		{ProductoID: 1, Cantidad: 10, PrecioUnit: decimal.NewFromInt(150)},
		{ProductoID: 2, Cantidad: 4, PrecioUnit: decimal.RequireFromString("262.50")},
	}

	quote, err := p.Quote(lines, models.TipoEntregaRetiro, "Zona Sur")
	require.NoError(t, err)

	assert.True(t, quote.CostoFlete.IsZero())
	assert.True(t, quote.SubtotalProductos.Equal(decimal.NewFromInt(2550)))
	assert.True(t, quote.Total.Equal(quote.SubtotalProductos))
	assert.True(t, quote.GarantiaSugerida.Equal(decimal.RequireFromString("382.50")))
	assert.True(t, quote.SeniaSugerida.Equal(decimal.NewFromInt(510)))
}

func TestQuoteUnknownZone(t *testing.T) {
	p := testPricing()

	lines := []models.OrderLine{
		{ProductoID: 1, Cantidad: 1, PrecioUnit: decimal.NewFromInt(500)},
	}

	_, err := p.Quote(lines, models.TipoEntregaEntrega, "Zona Centro")
	require.Error(t, err)

	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "zona_entrega", verr.Field)
}

func TestQuoteEmptyLines(t *testing.T) {
	p := testPricing()

	quote, err := p.Quote(nil, models.TipoEntregaRetiro, "")
	require.NoError(t, err)

	assert.True(t, quote.Total.IsZero())
	assert.True(t, quote.GarantiaSugerida.IsZero())
}
