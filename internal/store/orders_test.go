package store

import (
	"errors"
	"testing"

	"rental-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(productID int64, cantidad int) models.OrderLine {
	return models.OrderLine{ProductoID: productID, Cantidad: cantidad}
}

func TestLineDeltas(t *testing.T) {
	oldLines := []models.OrderLine{line(3, 5), line(1, 2)}
	newLines := []models.OrderLine{line(1, 4), line(7, 1)}

	deltas := lineDeltas(oldLines, newLines)

	require.Equal(t, []lineDelta{
		{ProductID: 1, Old: 2, New: 4}, // increased
		{ProductID: 3, Old: 5, New: 0}, // removed
		{ProductID: 7, Old: 0, New: 1}, // added
	}, deltas, "deltas cover both sides, ascending by product id")
}

func TestLineDeltasSumsDuplicateLines(t *testing.T) {
	oldLines := []models.OrderLine{line(1, 2), line(1, 3)}
	newLines := []models.OrderLine{line(1, 4)}

	deltas := lineDeltas(oldLines, newLines)

	require.Len(t, deltas, 1)
	assert.Equal(t, lineDelta{ProductID: 1, Old: 5, New: 4}, deltas[0])
}

func TestLineDeltasUnchangedProduct(t *testing.T) {
	lines := []models.OrderLine{line(2, 6)}

	deltas := lineDeltas(lines, lines)

	require.Len(t, deltas, 1)
	assert.Equal(t, deltas[0].Old, deltas[0].New)
}

func TestReportOwnHolding(t *testing.T) {
	// An order holding 4 units asks for 10; only 3 are free besides its own
	// reservation. The caller should see 3+4 available, not 3.
	base := &models.InsufficientStockError{ProductID: 9, Requested: 6, Available: 3}

	err := reportOwnHolding(base, 9, 10, 4)

	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(9), insufficient.ProductID)
	assert.Equal(t, 10, insufficient.Requested)
	assert.Equal(t, 7, insufficient.Available)
}

func TestReportOwnHoldingPassesThroughOtherErrors(t *testing.T) {
	base := errors.New("connection reset")
	assert.Equal(t, base, reportOwnHolding(base, 1, 2, 3))
}
