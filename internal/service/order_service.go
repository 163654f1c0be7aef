package service

import (
	"context"
	"fmt"
	"time"

	"rental-service/internal/broker"
	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService implements order intake and line revision against the stock
// ledger: quantities are committed all-or-nothing, and every check happens in
// the same transaction as the reservation it guards.
type OrderService struct {
	store          *store.Store
	ledger         *StockLedger
	cashbox        *CashboxService
	pricing        *Pricing
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store *store.Store,
	ledger *StockLedger,
	cashbox *CashboxService,
	pricing *Pricing,
	eventPublisher *broker.EventPublisher,
) *OrderService {
	return &OrderService{
		store:          store,
		ledger:         ledger,
		cashbox:        cashbox,
		pricing:        pricing,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// OrderItemRequest is one requested product line. PrecioUnit overrides the
// catalog price when set; either way the chosen price is snapshotted onto the
// line and never revised afterwards.
type OrderItemRequest struct {
	ProductoID int64           `json:"producto_id" binding:"required"`
	Cantidad   int             `json:"cantidad" binding:"required"`
	PrecioUnit decimal.Decimal `json:"precio_unit"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	ClienteID       int64              `json:"cliente_id" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1"`
	TipoEntrega     string             `json:"tipo_entrega" binding:"required,oneof=RETIRO ENTREGA"`
	ZonaEntrega     string             `json:"zona_entrega"`
	DireccionEvento string             `json:"direccion_evento"`
	FechaEvento     time.Time          `json:"fecha_evento" binding:"required"`
	FechaDevolucion time.Time          `json:"fecha_devolucion" binding:"required"`
	Senia           decimal.Decimal    `json:"senia"`
	GarantiaMonto   decimal.Decimal    `json:"garantia_monto"`
	FormaPago       string             `json:"forma_pago"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
}

// UpdateOrderLinesRequest revises an order's committed lines.
type UpdateOrderLinesRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1"`
}

// OrderSnapshot is the order with its lines as returned to callers.
type OrderSnapshot struct {
	Order *models.Order      `json:"order"`
	Lines []models.OrderLine `json:"lines"`
}

// CreateOrder validates availability, reserves stock for every line and
// persists the order in one transaction. Rejections leave no partial state.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := s.cashbox.CanCreateOrder(ctx); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("cashbox_closed").Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("order_id", existing.ID))
			return s.snapshot(ctx, existing)
		}
	}

	if !req.FechaDevolucion.After(req.FechaEvento) {
		util.OrdersRejectedTotal.WithLabelValues("invalid_dates").Inc()
		return nil, &models.ValidationError{
			Field: "fecha_devolucion",
			Msg:   "must be after fecha_evento",
		}
	}

	lines, err := s.buildLines(ctx, req.Items, nil)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	quote, err := s.pricing.Quote(lines, req.TipoEntrega, req.ZonaEntrega)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("invalid_zone").Inc()
		return nil, err
	}

	order := &models.Order{
		ClienteID:       req.ClienteID,
		Estado:          models.OrderEstadoPendiente,
		TipoEntrega:     req.TipoEntrega,
		ZonaEntrega:     req.ZonaEntrega,
		DireccionEvento: req.DireccionEvento,
		FechaEvento:     req.FechaEvento,
		FechaDevolucion: req.FechaDevolucion,
		Subtotal:        quote.SubtotalProductos,
		CostoFlete:      quote.CostoFlete,
		Total:           quote.Total,
		Senia:           confirmedAmount(req.Senia, quote.SeniaSugerida),
		FormaPago:       req.FormaPago,
		GarantiaMonto:   confirmedAmount(req.GarantiaMonto, quote.GarantiaSugerida),
		GarantiaEstado:  models.GarantiaEstadoPendiente,
		IdempotencyKey:  req.IdempotencyKey,
	}

	start := time.Now()
	err = s.store.CreateOrderTx(ctx, order, lines)
	util.ReservationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.Total.String()))

	for _, l := range lines {
		s.ledger.AdjustCache(ctx, l.ProductoID, 0, l.Cantidad)
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderCreated),
		OrderID:   order.ID,
		ClienteID: order.ClienteID,
		Total:     order.Total.String(),
		Lines:     toLineData(lines),
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &OrderSnapshot{Order: order, Lines: lines}, nil
}

// UpdateOrderLines replaces an order's lines while it is still editable.
// Only the per-product delta has to be available, so growing a line never
// competes with the reservation the order already holds.
func (s *OrderService) UpdateOrderLines(ctx context.Context, orderID int64, req *UpdateOrderLinesRequest) (*OrderSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderLines")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEditable(order); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("locked").Inc()
		return nil, err
	}

	oldLines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	lines, err := s.buildLines(ctx, req.Items, oldLines)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	quote, err := s.pricing.Quote(lines, order.TipoEntrega, order.ZonaEntrega)
	if err != nil {
		return nil, err
	}
	order.Subtotal = quote.SubtotalProductos
	order.CostoFlete = quote.CostoFlete
	order.Total = quote.Total
	order.Senia = quote.SeniaSugerida
	order.GarantiaMonto = quote.GarantiaSugerida

	start := time.Now()
	shorts, err := s.store.UpdateOrderLinesTx(ctx, order, lines)
	util.ReservationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	s.ledger.logShorts(orderID, shorts)

	util.OrdersUpdatedTotal.Inc()
	s.logger.Info("Order lines updated",
		zap.Int64("order_id", orderID),
		zap.Int("lines", len(lines)))

	s.refreshProducts(ctx, append(oldLines, lines...))

	event := &models.OrderUpdatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderUpdated),
		OrderID:   orderID,
		Total:     order.Total.String(),
		Lines:     toLineData(lines),
	}
	if err := s.eventPublisher.PublishOrderUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderUpdated event", zap.Error(err))
	}

	return &OrderSnapshot{Order: order, Lines: lines}, nil
}

// ConfirmOrder moves a pending order to confirmado.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ConfirmOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Estado != models.OrderEstadoPendiente {
		return nil, &models.OrderLockedError{
			OrderID: orderID,
			Reason:  fmt.Sprintf("cannot confirm from estado %q", order.Estado),
		}
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderEstadoConfirmado); err != nil {
		return nil, fmt.Errorf("failed to confirm order: %w", err)
	}
	order.Estado = models.OrderEstadoConfirmado

	event := &models.OrderConfirmedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderConfirmed),
		OrderID:   orderID,
	}
	if err := s.eventPublisher.PublishOrderConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}

	return order, nil
}

// CancelOrder cancels an undelivered order and releases every reservation it
// holds.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, reason string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Estado != models.OrderEstadoPendiente && order.Estado != models.OrderEstadoConfirmado {
		return nil, &models.OrderLockedError{
			OrderID: orderID,
			Reason:  fmt.Sprintf("cannot cancel from estado %q", order.Estado),
		}
	}

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	shorts, err := s.store.CancelOrderTx(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.ledger.logShorts(orderID, shorts)
	order.Estado = models.OrderEstadoCancelado

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.String("reason", reason))

	s.refreshProducts(ctx, lines)

	event := &models.OrderCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   orderID,
		Reason:    reason,
		Lines:     toLineData(lines),
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	return order, nil
}

// DeliverOrder marks the order delivered: every line's units leave owned
// stock and its reservation is consumed.
func (s *OrderService) DeliverOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.DeliverOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Estado != models.OrderEstadoPendiente && order.Estado != models.OrderEstadoConfirmado {
		return nil, &models.OrderLockedError{
			OrderID: orderID,
			Reason:  fmt.Sprintf("cannot deliver from estado %q", order.Estado),
		}
	}

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeliverOrderTx(ctx, orderID); err != nil {
		util.OrdersRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	order.Estado = models.OrderEstadoEntregado

	util.OrdersDeliveredTotal.Inc()
	s.logger.Info("Order delivered", zap.Int64("order_id", orderID))

	s.refreshProducts(ctx, lines)

	event := &models.OrderDeliveredEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderDelivered),
		OrderID:   orderID,
		Lines:     toLineData(lines),
	}
	if err := s.eventPublisher.PublishOrderDelivered(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDelivered event", zap.Error(err))
	}

	return order, nil
}

// GuaranteeSettlement is the outcome of closing a rental: how the held
// guarantee was split against incident costs.
type GuaranteeSettlement struct {
	Order           *models.Order   `json:"order"`
	TotalIncidentes decimal.Decimal `json:"total_incidentes"`
	Aplicado        decimal.Decimal `json:"aplicado"`
	Devuelto        decimal.Decimal `json:"devuelto"`
}

// FinalizeOrder closes a delivered rental: it totals replacement costs from
// resolved repuesto incidents, splits the guarantee into an applied and a
// returned share, and records both movements through the open cashbox. Open
// incidents block settlement.
func (s *OrderService) FinalizeOrder(ctx context.Context, orderID int64) (*GuaranteeSettlement, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.FinalizeOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Estado != models.OrderEstadoEntregado {
		return nil, &models.OrderLockedError{
			OrderID: orderID,
			Reason:  fmt.Sprintf("cannot finalize from estado %q", order.Estado),
		}
	}

	summary, err := s.store.GetGuaranteeSummary(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if summary.Abiertos > 0 {
		return nil, fmt.Errorf("%w: order %d", models.ErrOpenIncidents, orderID)
	}

	cost, err := s.store.GetRepuestoCost(ctx, orderID)
	if err != nil {
		return nil, err
	}
	aplicado, devuelto := models.SettleGuarantee(order.GarantiaMonto, cost)

	garantiaEstado := models.GarantiaEstadoDevuelta
	if cost.IsPositive() {
		garantiaEstado = models.GarantiaEstadoDescontada
	}

	// Settlement payments move money, so they need an open cashbox. A rental
	// with nothing to apply or return settles without one.
	var cashboxID int64
	if aplicado.IsPositive() || devuelto.IsPositive() {
		caja, err := s.cashbox.Current(ctx)
		if err != nil {
			return nil, err
		}
		cashboxID = caja.ID
	}

	if err := s.store.FinalizeOrderTx(ctx, orderID, garantiaEstado, aplicado, devuelto, cashboxID); err != nil {
		return nil, err
	}
	order.Estado = models.OrderEstadoFinalizado
	order.GarantiaEstado = garantiaEstado

	util.OrdersFinalizedTotal.Inc()
	s.logger.Info("Order finalized",
		zap.Int64("order_id", orderID),
		zap.String("garantia_estado", garantiaEstado),
		zap.String("aplicado", aplicado.String()),
		zap.String("devuelto", devuelto.String()))

	event := &models.OrderFinalizedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeOrderFinalized),
		OrderID:        orderID,
		GarantiaEstado: garantiaEstado,
		Aplicado:       aplicado.String(),
		Devuelto:       devuelto.String(),
	}
	if err := s.eventPublisher.PublishOrderFinalized(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderFinalized event", zap.Error(err))
	}

	return &GuaranteeSettlement{
		Order:           order,
		TotalIncidentes: cost,
		Aplicado:        aplicado,
		Devuelto:        devuelto,
	}, nil
}

// GetOrder retrieves an order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderSnapshot, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, order)
}

func (s *OrderService) snapshot(ctx context.Context, order *models.Order) (*OrderSnapshot, error) {
	lines, err := s.store.GetOrderLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderSnapshot{Order: order, Lines: lines}, nil
}

func (s *OrderService) checkEditable(order *models.Order) error {
	if order.Editable(time.Now()) {
		return nil
	}
	reason := "within 72 hours of the event"
	if order.Estado != models.OrderEstadoPendiente && order.Estado != models.OrderEstadoConfirmado {
		reason = fmt.Sprintf("estado is %q", order.Estado)
	}
	return &models.OrderLockedError{OrderID: order.ID, Reason: reason}
}

// buildLines validates requested items and snapshots a unit price for each.
// Products already present on the order keep their original snapshot; new
// products take the request's override or the catalog price.
func (s *OrderService) buildLines(ctx context.Context, items []OrderItemRequest, existing []models.OrderLine) ([]models.OrderLine, error) {
	productIDs := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Cantidad <= 0 {
			return nil, &models.InvalidQuantityError{Field: "cantidad", Value: item.Cantidad}
		}
		productIDs = append(productIDs, item.ProductoID)
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	prior := make(map[int64]decimal.Decimal, len(existing))
	for _, l := range existing {
		prior[l.ProductoID] = l.PrecioUnit
	}

	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		product, ok := productMap[item.ProductoID]
		if !ok || !product.Activo {
			return nil, fmt.Errorf("%w: %d", models.ErrProductNotFound, item.ProductoID)
		}

		precio, snapshotted := prior[item.ProductoID]
		if !snapshotted {
			precio = product.Precio
			if item.PrecioUnit.IsPositive() {
				precio = item.PrecioUnit
			}
		}

		lines = append(lines, models.OrderLine{
			ProductoID: item.ProductoID,
			Cantidad:   item.Cantidad,
			PrecioUnit: precio,
		})
	}
	return lines, nil
}

func (s *OrderService) refreshProducts(ctx context.Context, lines []models.OrderLine) {
	seen := make(map[int64]bool)
	for _, l := range lines {
		if seen[l.ProductoID] {
			continue
		}
		seen[l.ProductoID] = true
		if err := s.ledger.Refresh(ctx, l.ProductoID); err != nil {
			s.logger.Warn("Failed to refresh availability cache",
				zap.Int64("product_id", l.ProductoID),
				zap.Error(err))
		}
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func toLineData(lines []models.OrderLine) []models.OrderLineData {
	data := make([]models.OrderLineData, 0, len(lines))
	for _, l := range lines {
		data = append(data, models.OrderLineData{
			ProductoID: l.ProductoID,
			Cantidad:   l.Cantidad,
			PrecioUnit: l.PrecioUnit.String(),
		})
	}
	return data
}

func confirmedAmount(override, suggested decimal.Decimal) decimal.Decimal {
	if override.IsPositive() {
		return override
	}
	return suggested
}

func rejectReason(err error) string {
	if models.IsConflict(err) {
		return "insufficient_stock"
	}
	if models.IsValidation(err) {
		return "invalid_request"
	}
	return "db_error"
}
