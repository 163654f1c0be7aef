package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// StockShort reports a release that had to be floored at zero for a product.
type StockShort struct {
	ProductID int64
	Short     int
}

// CreateOrderTx inserts the order with its lines and reserves stock for every
// line inside one transaction. One invalid line rejects the whole order.
func (s *Store) CreateOrderTx(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock products in id order so concurrent orders can't deadlock.
	for _, pid := range sortedProductIDs(lines, nil) {
		if err := reserveStockLocked(ctx, tx, pid, sumCantidad(lines, pid)); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO orders (cliente_id, estado, tipo_entrega, zona_entrega, direccion_evento,
			fecha_evento, fecha_devolucion, subtotal, costo_flete, total, senia, forma_pago,
			garantia_monto, garantia_estado, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.ClienteID, order.Estado, order.TipoEntrega, order.ZonaEntrega, order.DireccionEvento,
		order.FechaEvento, order.FechaDevolucion, order.Subtotal, order.CostoFlete, order.Total,
		order.Senia, order.FormaPago, order.GarantiaMonto, order.GarantiaEstado,
		nullableKey(order.IdempotencyKey))
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := insertLines(ctx, tx, order.ID, lines); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateOrderLinesTx replaces an order's lines, reconciling the ledger by the
// per-product delta: increasing a line only needs the extra units to be
// available, the order's own prior reservation is kept out of the check.
func (s *Store) UpdateOrderLinesTx(ctx context.Context, order *models.Order, lines []models.OrderLine) ([]StockShort, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var oldLines []models.OrderLine
	err = tx.SelectContext(ctx, &oldLines,
		"SELECT * FROM order_lines WHERE order_id = $1", order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current lines: %w", err)
	}

	var shorts []StockShort
	for _, d := range lineDeltas(oldLines, lines) {
		switch {
		case d.New > d.Old:
			if err := reserveStockLocked(ctx, tx, d.ProductID, d.New-d.Old); err != nil {
				return nil, reportOwnHolding(err, d.ProductID, d.New, d.Old)
			}
		case d.New < d.Old:
			short, err := releaseStockLocked(ctx, tx, d.ProductID, d.Old-d.New)
			if err != nil {
				return nil, err
			}
			if short > 0 {
				shorts = append(shorts, StockShort{ProductID: d.ProductID, Short: short})
			}
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = $1", order.ID); err != nil {
		return nil, fmt.Errorf("failed to clear lines: %w", err)
	}
	if err := insertLines(ctx, tx, order.ID, lines); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET subtotal = $1, costo_flete = $2, total = $3, senia = $4,
			garantia_monto = $5, updated_at = NOW()
		WHERE id = $6`,
		order.Subtotal, order.CostoFlete, order.Total, order.Senia, order.GarantiaMonto, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update order totals: %w", err)
	}

	return shorts, tx.Commit()
}

// CancelOrderTx marks the order cancelled and releases every line's
// reservation in the same transaction.
func (s *Store) CancelOrderTx(ctx context.Context, orderID int64) ([]StockShort, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var lines []models.OrderLine
	err = tx.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines: %w", err)
	}

	var shorts []StockShort
	for _, pid := range sortedProductIDs(lines, nil) {
		short, err := releaseStockLocked(ctx, tx, pid, sumCantidad(lines, pid))
		if err != nil {
			return nil, err
		}
		if short > 0 {
			shorts = append(shorts, StockShort{ProductID: pid, Short: short})
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET estado = $1, updated_at = NOW() WHERE id = $2",
		models.OrderEstadoCancelado, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	return shorts, tx.Commit()
}

// DeliverOrderTx marks the order delivered and consumes every line's
// reservation: the units physically leave the warehouse.
func (s *Store) DeliverOrderTx(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var lines []models.OrderLine
	err = tx.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to load lines: %w", err)
	}

	for _, pid := range sortedProductIDs(lines, nil) {
		if err := consumeStockLocked(ctx, tx, pid, sumCantidad(lines, pid)); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET estado = $1, updated_at = NOW() WHERE id = $2",
		models.OrderEstadoEntregado, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order delivered: %w", err)
	}

	return tx.Commit()
}

// FinalizeOrderTx closes a delivered order and records the guarantee
// settlement payments in one transaction. The estado guard doubles as the
// concurrency check: a second finalize sees zero rows updated.
func (s *Store) FinalizeOrderTx(ctx context.Context, orderID int64, garantiaEstado string, aplicado, devuelto decimal.Decimal, cashboxID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET estado = $1, garantia_estado = $2, updated_at = NOW()
		WHERE id = $3 AND estado = $4`,
		models.OrderEstadoFinalizado, garantiaEstado, orderID, models.OrderEstadoEntregado)
	if err != nil {
		return fmt.Errorf("failed to finalize order: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return &models.OrderLockedError{OrderID: orderID, Reason: "order is not entregado"}
	}

	settlements := []struct {
		tipo  string
		monto decimal.Decimal
	}{
		{models.PagoAplicacionGarantia, aplicado},
		{models.PagoDevolucionGarantia, devuelto},
	}
	for _, p := range settlements {
		if !p.monto.IsPositive() {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payments (order_id, cashbox_id, tipo_pago, metodo, monto, notas)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, cashboxID, p.tipo, models.MetodoEfectivo, p.monto, "liquidacion de garantia")
		if err != nil {
			return fmt.Errorf("failed to record settlement payment: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderLines retrieves all lines for an order
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// GetOrderLineByID retrieves one order line
func (s *Store) GetOrderLineByID(ctx context.Context, id int64) (*models.OrderLine, error) {
	var line models.OrderLine
	err := s.db.GetContext(ctx, &line, "SELECT * FROM order_lines WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrLineNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, estado string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET estado = $1, updated_at = NOW() WHERE id = $2",
		estado, orderID)
	return err
}

// UpdateGuaranteeState moves the order's garantia_estado.
func (s *Store) UpdateGuaranteeState(ctx context.Context, orderID int64, estado string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET garantia_estado = $1, updated_at = NOW() WHERE id = $2",
		estado, orderID)
	return err
}

func insertLines(ctx context.Context, tx *sqlx.Tx, orderID int64, lines []models.OrderLine) error {
	for i := range lines {
		lines[i].OrderID = orderID
		err := tx.GetContext(ctx, &lines[i].ID, `
			INSERT INTO order_lines (order_id, producto_id, cantidad, precio_unit)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			orderID, lines[i].ProductoID, lines[i].Cantidad, lines[i].PrecioUnit)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

// lineDelta is one product's reservation change when an order's lines are
// replaced.
type lineDelta struct {
	ProductID int64
	Old, New  int
}

// lineDeltas computes the per-product quantity change from oldLines to
// newLines, in ascending product id order. Duplicate lines for the same
// product are summed.
func lineDeltas(oldLines, newLines []models.OrderLine) []lineDelta {
	var deltas []lineDelta
	for _, pid := range sortedProductIDs(newLines, oldLines) {
		deltas = append(deltas, lineDelta{
			ProductID: pid,
			Old:       sumCantidad(oldLines, pid),
			New:       sumCantidad(newLines, pid),
		})
	}
	return deltas
}

// reportOwnHolding rewrites an insufficient-stock error so availability is
// reported as seen by the order being edited: free stock plus the units it
// already holds. Other errors pass through unchanged.
func reportOwnHolding(err error, productID int64, requested, held int) error {
	var insufficient *models.InsufficientStockError
	if errors.As(err, &insufficient) {
		return &models.InsufficientStockError{
			ProductID: productID,
			Requested: requested,
			Available: insufficient.Available + held,
		}
	}
	return err
}

func sortedProductIDs(a, b []models.OrderLine) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, l := range a {
		if !seen[l.ProductoID] {
			seen[l.ProductoID] = true
			ids = append(ids, l.ProductoID)
		}
	}
	for _, l := range b {
		if !seen[l.ProductoID] {
			seen[l.ProductoID] = true
			ids = append(ids, l.ProductoID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sumCantidad(lines []models.OrderLine, productID int64) int {
	total := 0
	for _, l := range lines {
		if l.ProductoID == productID {
			total += l.Cantidad
		}
	}
	return total
}

func nullableKey(key string) interface{} {
	if key == "" {
		return nil
	}
	return key
}
