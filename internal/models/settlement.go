package models

import "github.com/shopspring/decimal"

// SettleGuarantee splits the held guarantee between the amount kept to cover
// incident costs (aplicado) and the amount returned to the customer
// (devuelto). A non-positive guarantee settles to zero on both sides;
// costs above the guarantee are capped at it.
func SettleGuarantee(garantia, costo decimal.Decimal) (aplicado, devuelto decimal.Decimal) {
	zero := decimal.Zero
	if garantia.LessThanOrEqual(zero) {
		return zero, zero
	}
	if costo.LessThanOrEqual(zero) {
		return zero, garantia
	}
	if costo.LessThan(garantia) {
		return costo, garantia.Sub(costo)
	}
	return garantia, zero
}
