package service

import (
	"fmt"

	"rental-service/internal/models"

	"github.com/shopspring/decimal"
)

// Quote is the derived pricing for a set of order lines. All amounts are
// suggestions until the operator confirms them; persisted order amounts are
// snapshots, not continuously recalculated.
type Quote struct {
	SubtotalProductos decimal.Decimal `json:"subtotal_productos"`
	CostoFlete        decimal.Decimal `json:"costo_flete"`
	Total             decimal.Decimal `json:"total"`
	GarantiaSugerida  decimal.Decimal `json:"garantia_sugerida"`
	SeniaSugerida     decimal.Decimal `json:"senia_sugerida"`
}

// Pricing derives totals, delivery fee, guarantee and deposit suggestions
// from order lines. Pure calculation, no side effects.
type Pricing struct {
	zoneFees     map[string]decimal.Decimal
	garantiaRate decimal.Decimal
	seniaRate    decimal.Decimal
}

// NewPricing creates a pricing calculator from the configured zone fee table
// and rates.
func NewPricing(zoneFees map[string]decimal.Decimal, garantiaRate, seniaRate decimal.Decimal) *Pricing {
	return &Pricing{
		zoneFees:     zoneFees,
		garantiaRate: garantiaRate,
		seniaRate:    seniaRate,
	}
}

// Zones returns the configured delivery zones and their flat fees.
func (p *Pricing) Zones() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.zoneFees))
	for zona, fee := range p.zoneFees {
		out[zona] = fee
	}
	return out
}

// Quote computes the full pricing breakdown. The delivery fee applies only to
// ENTREGA orders; the guarantee is a share of the product subtotal alone, the
// flete stays out because the garantia protects against product damage, not
// logistics cost. The deposit is a share of the final total.
func (p *Pricing) Quote(lines []models.OrderLine, tipoEntrega, zonaEntrega string) (*Quote, error) {
	subtotal := decimal.Zero
	for i := range lines {
		subtotal = subtotal.Add(lines[i].Subtotal())
	}

	flete := decimal.Zero
	if tipoEntrega == models.TipoEntregaEntrega {
		fee, ok := p.zoneFees[zonaEntrega]
		if !ok {
			return nil, &models.ValidationError{
				Field: "zona_entrega",
				Msg:   fmt.Sprintf("unknown delivery zone %q", zonaEntrega),
			}
		}
		flete = fee
	}

	total := subtotal.Add(flete)

	return &Quote{
		SubtotalProductos: subtotal,
		CostoFlete:        flete,
		Total:             total,
		GarantiaSugerida:  subtotal.Mul(p.garantiaRate).Round(2),
		SeniaSugerida:     total.Mul(p.seniaRate).Round(2),
	}, nil
}
