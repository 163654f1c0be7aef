package models

import "time"

// Event types
const (
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeOrderUpdated     = "ORDER_UPDATED"
	EventTypeOrderConfirmed   = "ORDER_CONFIRMED"
	EventTypeOrderCancelled   = "ORDER_CANCELLED"
	EventTypeOrderDelivered   = "ORDER_DELIVERED"
	EventTypeOrderFinalized   = "ORDER_FINALIZED"
	EventTypeIncidentOpened   = "INCIDENT_OPENED"
	EventTypeIncidentResolved = "INCIDENT_RESOLVED"
	EventTypeIncidentDeleted  = "INCIDENT_DELETED"
	EventTypeGuaranteeUpdated = "GUARANTEE_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderLineData represents line data carried inside order events.
type OrderLineData struct {
	ProductoID int64  `json:"producto_id"`
	Cantidad   int    `json:"cantidad"`
	PrecioUnit string `json:"precio_unit"`
}

// OrderCreatedEvent published once an order and all its reservations commit.
type OrderCreatedEvent struct {
	BaseEvent
	OrderID   int64           `json:"order_id"`
	ClienteID int64           `json:"cliente_id"`
	Total     string          `json:"total"`
	Lines     []OrderLineData `json:"lines"`
}

// OrderUpdatedEvent published when an order's lines are revised.
type OrderUpdatedEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	Total   string          `json:"total"`
	Lines   []OrderLineData `json:"lines"`
}

// OrderConfirmedEvent published on pendiente -> confirmado.
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}

// OrderCancelledEvent published when an order is cancelled and its
// reservations released.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	Reason  string          `json:"reason,omitempty"`
	Lines   []OrderLineData `json:"lines"`
}

// OrderDeliveredEvent published when units leave the warehouse.
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	Lines   []OrderLineData `json:"lines"`
}

// OrderFinalizedEvent published when a delivered rental is closed and its
// guarantee settled.
type OrderFinalizedEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	GarantiaEstado string `json:"garantia_estado"`
	Aplicado       string `json:"aplicado"`
	Devuelto       string `json:"devuelto"`
}

// IncidentOpenedEvent published when damage or loss is reported on a line.
type IncidentOpenedEvent struct {
	BaseEvent
	IncidentID       int64  `json:"incident_id"`
	OrderID          int64  `json:"order_id"`
	LineID           int64  `json:"line_id"`
	ProductoID       int64  `json:"producto_id"`
	TipoIncidente    string `json:"tipo_incidente"`
	CantidadAfectada int    `json:"cantidad_afectada"`
}

// IncidentResolvedEvent published when an incident reaches its terminal state.
type IncidentResolvedEvent struct {
	BaseEvent
	IncidentID       int64  `json:"incident_id"`
	OrderID          int64  `json:"order_id"`
	LineID           int64  `json:"line_id"`
	ProductoID       int64  `json:"producto_id"`
	ResultadoFinal   string `json:"resultado_final"`
	CantidadRepuesta int    `json:"cantidad_repuesta"`
}

// IncidentDeletedEvent published when a resolved incident is removed; the
// guarantee reconciler re-evaluates the order on it.
type IncidentDeletedEvent struct {
	BaseEvent
	IncidentID int64 `json:"incident_id"`
	OrderID    int64 `json:"order_id"`
	LineID     int64 `json:"line_id"`
	ProductoID int64 `json:"producto_id"`
}

// GuaranteeUpdatedEvent published by the reconciler after it moves an
// order's garantia_estado.
type GuaranteeUpdatedEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	GarantiaEstado string `json:"garantia_estado"`
}
