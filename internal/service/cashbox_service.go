package service

import (
	"context"
	"errors"
	"fmt"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CashboxService manages the caja and the payments recorded through it.
// Order intake is gated on an open cashbox.
type CashboxService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCashboxService creates a new cashbox service
func NewCashboxService(store *store.Store) *CashboxService {
	return &CashboxService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// OpenCashboxRequest opens the day's cashbox with its starting count.
type OpenCashboxRequest struct {
	MontoInicial decimal.Decimal `json:"monto_inicial"`
	Notas        string          `json:"notas"`
}

// CloseCashboxRequest closes the open cashbox with its final count.
type CloseCashboxRequest struct {
	MontoFinal decimal.Decimal `json:"monto_final"`
	Notas      string          `json:"notas"`
}

// RecordPaymentRequest registers a payment for an order.
type RecordPaymentRequest struct {
	OrderID  int64           `json:"order_id" binding:"required"`
	TipoPago string          `json:"tipo_pago" binding:"required,oneof=SENIA SALDO GARANTIA"`
	Metodo   string          `json:"metodo" binding:"required,oneof=EFECTIVO TRANSFERENCIA"`
	Monto    decimal.Decimal `json:"monto" binding:"required"`
	Notas    string          `json:"notas"`
}

// Open opens a cashbox; only one can be open at a time.
func (s *CashboxService) Open(ctx context.Context, req *OpenCashboxRequest) (*models.Cashbox, error) {
	caja, err := s.store.OpenCashbox(ctx, req.MontoInicial, req.Notas)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Cashbox opened", zap.Int64("cashbox_id", caja.ID))
	return caja, nil
}

// Close closes the open cashbox.
func (s *CashboxService) Close(ctx context.Context, req *CloseCashboxRequest) (*models.Cashbox, error) {
	caja, err := s.store.CloseCashbox(ctx, req.MontoFinal, req.Notas)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Cashbox closed", zap.Int64("cashbox_id", caja.ID))
	return caja, nil
}

// Current returns the open cashbox.
func (s *CashboxService) Current(ctx context.Context) (*models.Cashbox, error) {
	return s.store.CurrentCashbox(ctx)
}

// CanCreateOrder is the capability check the order service runs before
// intake: nil when a cashbox is open.
func (s *CashboxService) CanCreateOrder(ctx context.Context) error {
	_, err := s.store.CurrentCashbox(ctx)
	if errors.Is(err, models.ErrNoCashboxOpen) {
		return &models.CashboxClosedError{Operation: "create order"}
	}
	return err
}

// RecordPayment registers a payment against the open cashbox. A GARANTIA
// payment also marks the order's guarantee as received.
func (s *CashboxService) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "CashboxService.RecordPayment")
	defer span.End()

	if !req.Monto.IsPositive() {
		return nil, &models.ValidationError{Field: "monto", Msg: "must be positive"}
	}

	caja, err := s.store.CurrentCashbox(ctx)
	if errors.Is(err, models.ErrNoCashboxOpen) {
		return nil, &models.CashboxClosedError{Operation: "record payment"}
	}
	if err != nil {
		return nil, err
	}

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderID:   order.ID,
		CashboxID: caja.ID,
		TipoPago:  req.TipoPago,
		Metodo:    req.Metodo,
		Monto:     req.Monto,
		Notas:     req.Notas,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	util.PaymentsRecordedTotal.WithLabelValues(payment.TipoPago).Inc()
	s.logger.Info("Payment recorded",
		zap.Int64("order_id", order.ID),
		zap.String("tipo", payment.TipoPago),
		zap.String("monto", payment.Monto.String()))

	if payment.TipoPago == models.PagoGarantia && order.GarantiaEstado == models.GarantiaEstadoPendiente {
		if err := s.store.UpdateGuaranteeState(ctx, order.ID, models.GarantiaEstadoRecibida); err != nil {
			s.logger.Error("Failed to mark guarantee received", zap.Error(err))
		}
	}

	return payment, nil
}

// GetPayments returns the payments recorded for an order.
func (s *CashboxService) GetPayments(ctx context.Context, orderID int64) ([]models.Payment, error) {
	return s.store.GetPaymentsByOrderID(ctx, orderID)
}
