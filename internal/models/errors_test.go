package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	conflict := fmt.Errorf("reserving stock: %w",
		&InsufficientStockError{ProductID: 1, Requested: 3, Available: 2})
	assert.True(t, IsConflict(conflict))
	assert.False(t, IsValidation(conflict))
	assert.False(t, IsNotFound(conflict))

	validation := &InvalidQuantityError{Field: "cantidad", Value: -1}
	assert.True(t, IsValidation(validation))
	assert.False(t, IsConflict(validation))

	notFound := fmt.Errorf("loading order 42: %w", ErrOrderNotFound)
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsConflict(notFound))

	assert.True(t, IsConflict(ErrOpenIncidents))
	assert.True(t, IsConflict(&OrderLockedError{OrderID: 7, Reason: "estado cancelado"}))
	assert.True(t, IsConflict(&CashboxClosedError{Operation: "create order"}))
}
