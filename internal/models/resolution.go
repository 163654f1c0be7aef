package models

// StockEffect is what a resolution outcome does to the product ledger.
type StockEffect int

const (
	// StockEffectNone leaves the ledger untouched. This covers reintegrado
	// (the unit never left owned stock, only its exposure was flagged) and
	// sin_accion (the source system never decrements stock on a loss; kept
	// as-is pending a product decision).
	StockEffectNone StockEffect = iota

	// StockEffectRestock adds replacement units to the product's stock.
	StockEffectRestock
)

// ResolutionEffect is the decision table {tipo_incidente, resultado_final} ->
// StockEffect. Every combination is explicit so each one stays auditable.
func ResolutionEffect(tipoIncidente, resultadoFinal string) (StockEffect, error) {
	switch resultadoFinal {
	case ResultadoReintegrado:
		// A write-off can't come back repaired.
		if tipoIncidente == IncidenteIrreparable {
			return StockEffectNone, &InvalidResolutionError{
				TipoIncidente:  tipoIncidente,
				ResultadoFinal: resultadoFinal,
			}
		}
		return StockEffectNone, nil
	case ResultadoRepuesto:
		return StockEffectRestock, nil
	case ResultadoSinAccion:
		return StockEffectNone, nil
	default:
		return StockEffectNone, &InvalidResolutionError{
			TipoIncidente:  tipoIncidente,
			ResultadoFinal: resultadoFinal,
		}
	}
}

// NormalizeRepuesta resolves the effective replaced quantity for a repuesto
// outcome: omitted or non-positive defaults to the affected quantity, and it
// can never exceed it.
func NormalizeRepuesta(cantidadAfectada, cantidadRepuesta int) (int, error) {
	if cantidadRepuesta <= 0 {
		return cantidadAfectada, nil
	}
	if cantidadRepuesta > cantidadAfectada {
		return 0, &InvalidQuantityError{
			Field: "cantidad_repuesta",
			Value: cantidadRepuesta,
			Max:   cantidadAfectada,
		}
	}
	return cantidadRepuesta, nil
}
