package service

import (
	"fmt"
	"testing"

	"rental-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConfirmedAmount(t *testing.T) {
	suggested := decimal.NewFromInt(300)

	// operator override wins when positive
	assert.True(t, confirmedAmount(decimal.NewFromInt(450), suggested).Equal(decimal.NewFromInt(450)))
	// zero or unset falls back to the suggestion
	assert.True(t, confirmedAmount(decimal.Zero, suggested).Equal(suggested))
}

func TestRejectReason(t *testing.T) {
	insufficient := fmt.Errorf("creating order: %w",
		&models.InsufficientStockError{ProductID: 1, Requested: 5, Available: 2})
	assert.Equal(t, "insufficient_stock", rejectReason(insufficient))

	assert.Equal(t, "invalid_request",
		rejectReason(&models.InvalidQuantityError{Field: "cantidad", Value: 0}))

	assert.Equal(t, "db_error", rejectReason(fmt.Errorf("connection refused")))
}

func TestToLineData(t *testing.T) {
	lines := []models.OrderLine{
		{ProductoID: 3, Cantidad: 2, PrecioUnit: decimal.RequireFromString("1250.50")},
	}

	data := toLineData(lines)
	assert.Len(t, data, 1)
	assert.Equal(t, int64(3), data[0].ProductoID)
	assert.Equal(t, "1250.5", data[0].PrecioUnit)
}

func TestBuildLines(t *testing.T) {
	// Requires a mocked store for product lookups
	t.Skip("Requires mocked store")
}
