package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rental-service/internal/models"

	"github.com/shopspring/decimal"
)

// OpenIncidentTx records a damage/loss report against an order line. The line
// row is locked while the remaining exposure is computed so two concurrent
// reports cannot jointly exceed the line's quantity.
func (s *Store) OpenIncidentTx(ctx context.Context, inc *models.Incident) error {
	if inc.CantidadAfectada <= 0 {
		return &models.InvalidQuantityError{Field: "cantidad_afectada", Value: inc.CantidadAfectada}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var lineCantidad int
	err = tx.GetContext(ctx, &lineCantidad,
		"SELECT cantidad FROM order_lines WHERE id = $1 FOR UPDATE", inc.LineID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrLineNotFound, inc.LineID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock order line: %w", err)
	}

	var abiertos int
	err = tx.GetContext(ctx, &abiertos, `
		SELECT COALESCE(SUM(cantidad_afectada), 0) FROM incidents
		WHERE line_id = $1 AND estado_incidente = $2`,
		inc.LineID, models.IncidenteEstadoAbierto)
	if err != nil {
		return fmt.Errorf("failed to sum open incidents: %w", err)
	}

	maxDisponible := lineCantidad - abiertos
	if maxDisponible <= 0 {
		return &models.NoAvailabilityError{LineID: inc.LineID}
	}
	if inc.CantidadAfectada > maxDisponible {
		return &models.ExceedsAvailableQuantityError{
			LineID:    inc.LineID,
			Requested: inc.CantidadAfectada,
			Available: maxDisponible,
		}
	}

	err = tx.GetContext(ctx, inc, `
		INSERT INTO incidents (line_id, tipo_incidente, estado_incidente, cantidad_afectada, descripcion)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, estado_incidente, cantidad_repuesta, fecha_incidente`,
		inc.LineID, inc.TipoIncidente, models.IncidenteEstadoAbierto,
		inc.CantidadAfectada, inc.Descripcion)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}

	return tx.Commit()
}

// ResolveIncidentTx closes an incident with its final outcome and applies the
// outcome's stock effect in the same transaction. The abierto -> resuelto
// transition is one way; a second resolution fails.
func (s *Store) ResolveIncidentTx(ctx context.Context, id int64, resultadoFinal string, cantidadRepuesta int) (*models.Incident, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var inc models.Incident
	err = tx.GetContext(ctx, &inc, "SELECT * FROM incidents WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrIncidentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock incident: %w", err)
	}

	if inc.EstadoIncidente == models.IncidenteEstadoResuelto {
		return nil, &models.IncidentClosedError{IncidentID: id}
	}

	effect, err := models.ResolutionEffect(inc.TipoIncidente, resultadoFinal)
	if err != nil {
		return nil, err
	}

	repuesta := 0
	if resultadoFinal == models.ResultadoRepuesto {
		repuesta, err = models.NormalizeRepuesta(inc.CantidadAfectada, cantidadRepuesta)
		if err != nil {
			return nil, err
		}
	}

	if effect == models.StockEffectRestock {
		var productoID int64
		err = tx.GetContext(ctx, &productoID,
			"SELECT producto_id FROM order_lines WHERE id = $1", inc.LineID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve line product: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE products SET stock = stock + $1 WHERE id = $2", repuesta, productoID)
		if err != nil {
			return nil, fmt.Errorf("failed to restock product: %w", err)
		}
	}

	err = tx.GetContext(ctx, &inc, `
		UPDATE incidents
		SET estado_incidente = $1, resultado_final = $2, cantidad_repuesta = $3, fecha_resolucion = NOW()
		WHERE id = $4
		RETURNING *`,
		models.IncidenteEstadoResuelto, resultadoFinal, repuesta, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}

	return &inc, tx.Commit()
}

// DeleteIncident removes an incident; only resolved incidents can go.
func (s *Store) DeleteIncident(ctx context.Context, id int64) (*models.Incident, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var inc models.Incident
	err = tx.GetContext(ctx, &inc, "SELECT * FROM incidents WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrIncidentNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if inc.EstadoIncidente != models.IncidenteEstadoResuelto {
		return nil, &models.IncidentOpenError{IncidentID: id}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM incidents WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to delete incident: %w", err)
	}

	return &inc, tx.Commit()
}

// GetIncidentByID retrieves an incident by ID
func (s *Store) GetIncidentByID(ctx context.Context, id int64) (*models.Incident, error) {
	var inc models.Incident
	err := s.db.GetContext(ctx, &inc, "SELECT * FROM incidents WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrIncidentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

// ListIncidents retrieves incidents, optionally filtered by state and line.
func (s *Store) ListIncidents(ctx context.Context, estado string, lineID int64) ([]models.Incident, error) {
	query := "SELECT * FROM incidents WHERE 1=1"
	args := []interface{}{}
	if estado != "" {
		args = append(args, estado)
		query += fmt.Sprintf(" AND estado_incidente = $%d", len(args))
	}
	if lineID > 0 {
		args = append(args, lineID)
		query += fmt.Sprintf(" AND line_id = $%d", len(args))
	}
	query += " ORDER BY fecha_incidente DESC, id"

	var incidents []models.Incident
	err := s.db.SelectContext(ctx, &incidents, query, args...)
	return incidents, err
}

// GuaranteeSummary is what the reconciler needs to decide an order's
// garantia_estado after an incident mutation.
type GuaranteeSummary struct {
	Abiertos int `db:"abiertos"`
	ConCosto int `db:"con_costo"`
}

// GetGuaranteeSummary aggregates incident state across all of an order's lines.
func (s *Store) GetGuaranteeSummary(ctx context.Context, orderID int64) (*GuaranteeSummary, error) {
	var sum GuaranteeSummary
	err := s.db.GetContext(ctx, &sum, `
		SELECT
			COUNT(*) FILTER (WHERE i.estado_incidente = $2) AS abiertos,
			COUNT(*) FILTER (WHERE i.resultado_final = $3) AS con_costo
		FROM incidents i
		JOIN order_lines l ON l.id = i.line_id
		WHERE l.order_id = $1`,
		orderID, models.IncidenteEstadoAbierto, models.ResultadoRepuesto)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// GetRepuestoCost totals the replacement cost charged against an order's
// guarantee: cantidad_repuesta x precio_unit over its resolved repuesto
// incidents.
func (s *Store) GetRepuestoCost(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var cost decimal.Decimal
	err := s.db.GetContext(ctx, &cost, `
		SELECT COALESCE(SUM(i.cantidad_repuesta * l.precio_unit), 0)
		FROM incidents i
		JOIN order_lines l ON l.id = i.line_id
		WHERE l.order_id = $1 AND i.estado_incidente = $2 AND i.resultado_final = $3`,
		orderID, models.IncidenteEstadoResuelto, models.ResultadoRepuesto)
	if err != nil {
		return decimal.Zero, err
	}
	return cost, nil
}
