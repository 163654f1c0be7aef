package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStockDisponible(t *testing.T) {
	p := &Product{Stock: 10, StockReservado: 8}
	assert.Equal(t, 2, p.StockDisponible())

	// an over-reserved ledger never reports negative availability
	p = &Product{Stock: 5, StockReservado: 7}
	assert.Equal(t, 0, p.StockDisponible())
}

func TestOrderEditable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	o := &Order{Estado: OrderEstadoPendiente, FechaEvento: now.Add(96 * time.Hour)}
	assert.True(t, o.Editable(now))

	// locks exactly at the 72h boundary
	o.FechaEvento = now.Add(72 * time.Hour)
	assert.True(t, o.Editable(now))
	o.FechaEvento = now.Add(71 * time.Hour)
	assert.False(t, o.Editable(now))

	o = &Order{Estado: OrderEstadoCancelado, FechaEvento: now.Add(240 * time.Hour)}
	assert.False(t, o.Editable(now))

	o = &Order{Estado: OrderEstadoEntregado, FechaEvento: now.Add(240 * time.Hour)}
	assert.False(t, o.Editable(now))

	o = &Order{Estado: OrderEstadoFinalizado, FechaEvento: now.Add(240 * time.Hour)}
	assert.False(t, o.Editable(now))
}

func TestLineSubtotal(t *testing.T) {
	l := &OrderLine{Cantidad: 3, PrecioUnit: decimal.RequireFromString("199.99")}
	assert.True(t, l.Subtotal().Equal(decimal.RequireFromString("599.97")))
}
