package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rental-service/internal/models"

	"github.com/shopspring/decimal"
)

// OpenCashbox opens a new cashbox. The partial unique index on open
// cashboxes rejects a second one.
func (s *Store) OpenCashbox(ctx context.Context, montoInicial decimal.Decimal, notas string) (*models.Cashbox, error) {
	var caja models.Cashbox
	err := s.db.GetContext(ctx, &caja, `
		INSERT INTO cashboxes (estado, monto_inicial, notas_apertura)
		VALUES ($1, $2, $3)
		RETURNING *`,
		models.CajaAbierta, montoInicial, notas)
	if err != nil {
		return nil, fmt.Errorf("failed to open cashbox: %w", err)
	}
	return &caja, nil
}

// CloseCashbox closes the currently open cashbox with its final count.
func (s *Store) CloseCashbox(ctx context.Context, montoFinal decimal.Decimal, notas string) (*models.Cashbox, error) {
	var caja models.Cashbox
	err := s.db.GetContext(ctx, &caja, `
		UPDATE cashboxes
		SET estado = $1, monto_final = $2, notas_cierre = $3, fecha_cierre = NOW()
		WHERE estado = $4
		RETURNING *`,
		models.CajaCerrada, montoFinal, notas, models.CajaAbierta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoCashboxOpen
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close cashbox: %w", err)
	}
	return &caja, nil
}

// CurrentCashbox returns the open cashbox, or ErrNoCashboxOpen.
func (s *Store) CurrentCashbox(ctx context.Context) (*models.Cashbox, error) {
	var caja models.Cashbox
	err := s.db.GetContext(ctx, &caja,
		"SELECT * FROM cashboxes WHERE estado = $1", models.CajaAbierta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoCashboxOpen
	}
	if err != nil {
		return nil, err
	}
	return &caja, nil
}

// CreatePayment records a payment against an order through a cashbox.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, cashbox_id, tipo_pago, metodo, monto, notas)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.CashboxID, payment.TipoPago,
		payment.Metodo, payment.Monto, payment.Notas)
}

// GetPaymentsByOrderID retrieves payments recorded for an order.
func (s *Store) GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC", orderID)
	return payments, err
}
