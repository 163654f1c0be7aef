package service

import (
	"testing"

	"rental-service/internal/models"
	"rental-service/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestDecideGuaranteeState(t *testing.T) {
	// any open incident freezes the guarantee
	estado := decideGuaranteeState(&store.GuaranteeSummary{Abiertos: 1, ConCosto: 2})
	assert.Equal(t, models.GarantiaEstadoPendiente, estado)

	// all resolved with at least one billed replacement
	estado = decideGuaranteeState(&store.GuaranteeSummary{Abiertos: 0, ConCosto: 1})
	assert.Equal(t, models.GarantiaEstadoDescontada, estado)

	// clean order, guarantee goes back to the client
	estado = decideGuaranteeState(&store.GuaranteeSummary{})
	assert.Equal(t, models.GarantiaEstadoDevuelta, estado)
}
