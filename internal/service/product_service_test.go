package service

import (
	"context"
	"testing"

	"rental-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestockRejectsNonPositiveQuantity(t *testing.T) {
	// Validation runs before any store access.
	svc := NewProductService(nil, nil)

	for _, cantidad := range []int{0, -3} {
		err := svc.Restock(context.Background(), 1, cantidad)

		var invalid *models.InvalidQuantityError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "cantidad", invalid.Field)
		assert.Equal(t, cantidad, invalid.Value)
		assert.True(t, models.IsValidation(err))
	}
}
