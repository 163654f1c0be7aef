package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a rentable catalog item together with its stock ledger
// counters. Available stock is always derived from stock - stock_reservado,
// never stored on its own.
type Product struct {
	ID             int64           `db:"id" json:"id"`
	Nombre         string          `db:"nombre" json:"nombre"`
	Descripcion    string          `db:"descripcion" json:"descripcion,omitempty"`
	Categoria      string          `db:"categoria" json:"categoria"`
	Precio         decimal.Decimal `db:"precio" json:"precio"`
	Stock          int             `db:"stock" json:"stock"`
	StockReservado int             `db:"stock_reservado" json:"stock_reservado"`
	Activo         bool            `db:"activo" json:"activo"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// StockDisponible returns units not committed to an active order, floored at 0.
func (p *Product) StockDisponible() int {
	if d := p.Stock - p.StockReservado; d > 0 {
		return d
	}
	return 0
}

// Product categories
const (
	CategoriaVajilla     = "vajilla"
	CategoriaCristaleria = "cristaleria"
	CategoriaManteleria  = "manteleria"
	CategoriaDecoracion  = "decoracion"
	CategoriaSalon       = "salon"
	CategoriaMobiliario  = "mobiliario"
)

// Order represents a pedido: the rental order a client places before the event.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	ClienteID       int64           `db:"cliente_id" json:"cliente_id"`
	Estado          string          `db:"estado" json:"estado"`
	TipoEntrega     string          `db:"tipo_entrega" json:"tipo_entrega"`
	ZonaEntrega     string          `db:"zona_entrega" json:"zona_entrega,omitempty"`
	DireccionEvento string          `db:"direccion_evento" json:"direccion_evento,omitempty"`
	FechaEvento     time.Time       `db:"fecha_evento" json:"fecha_evento"`
	FechaDevolucion time.Time       `db:"fecha_devolucion" json:"fecha_devolucion"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	CostoFlete      decimal.Decimal `db:"costo_flete" json:"costo_flete"`
	Total           decimal.Decimal `db:"total" json:"total"`
	Senia           decimal.Decimal `db:"senia" json:"senia"`
	FormaPago       string          `db:"forma_pago" json:"forma_pago,omitempty"`
	GarantiaMonto   decimal.Decimal `db:"garantia_monto" json:"garantia_monto"`
	GarantiaEstado  string          `db:"garantia_estado" json:"garantia_estado"`
	IdempotencyKey  string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// editLockWindow is how long before the event an order becomes read-only.
const editLockWindow = 72 * time.Hour

// Editable reports whether the order may still be revised at the given
// instant. Cancelled and delivered orders are always locked, and any order
// freezes 72 hours before its event.
func (o *Order) Editable(now time.Time) bool {
	if o.Estado == OrderEstadoCancelado || o.Estado == OrderEstadoEntregado || o.Estado == OrderEstadoFinalizado {
		return false
	}
	if o.FechaEvento.IsZero() {
		return true
	}
	return o.FechaEvento.Sub(now) >= editLockWindow
}

// OrderLine is one det_alquiler: a product line committed inside an order.
// PrecioUnit is a snapshot taken at order time and never revised afterwards.
type OrderLine struct {
	ID         int64           `db:"id" json:"id"`
	OrderID    int64           `db:"order_id" json:"order_id"`
	ProductoID int64           `db:"producto_id" json:"producto_id"`
	Cantidad   int             `db:"cantidad" json:"cantidad"`
	PrecioUnit decimal.Decimal `db:"precio_unit" json:"precio_unit"`
}

// Subtotal returns cantidad x precio_unit for the line.
func (l *OrderLine) Subtotal() decimal.Decimal {
	return l.PrecioUnit.Mul(decimal.NewFromInt(int64(l.Cantidad)))
}

// Order statuses
const (
	OrderEstadoPendiente  = "pendiente"
	OrderEstadoConfirmado = "confirmado"
	OrderEstadoCancelado  = "cancelado"
	OrderEstadoEntregado  = "entregado"
	OrderEstadoFinalizado = "finalizado"
)

// Delivery types
const (
	TipoEntregaRetiro  = "RETIRO"
	TipoEntregaEntrega = "ENTREGA"
)

// Guarantee states
const (
	GarantiaEstadoPendiente  = "pendiente"
	GarantiaEstadoRecibida   = "recibida"
	GarantiaEstadoDevuelta   = "devuelta"
	GarantiaEstadoDescontada = "descontada"
)

// Incident records reported damage or loss against one order line. Stock and
// guarantee consequences are deferred until the incident is resolved.
type Incident struct {
	ID               int64      `db:"id" json:"id"`
	LineID           int64      `db:"line_id" json:"line_id"`
	TipoIncidente    string     `db:"tipo_incidente" json:"tipo_incidente"`
	EstadoIncidente  string     `db:"estado_incidente" json:"estado_incidente"`
	CantidadAfectada int        `db:"cantidad_afectada" json:"cantidad_afectada"`
	Descripcion      string     `db:"descripcion" json:"descripcion,omitempty"`
	ResultadoFinal   string     `db:"resultado_final" json:"resultado_final,omitempty"`
	CantidadRepuesta int        `db:"cantidad_repuesta" json:"cantidad_repuesta"`
	FechaIncidente   time.Time  `db:"fecha_incidente" json:"fecha_incidente"`
	FechaResolucion  *time.Time `db:"fecha_resolucion" json:"fecha_resolucion,omitempty"`
}

// Incident types
const (
	IncidenteReparable   = "reparable"
	IncidenteIrreparable = "irreparable"
)

// Incident states
const (
	IncidenteEstadoAbierto  = "abierto"
	IncidenteEstadoResuelto = "resuelto"
)

// Incident resolution outcomes
const (
	ResultadoReintegrado = "reintegrado"
	ResultadoRepuesto    = "repuesto"
	ResultadoSinAccion   = "sin_accion"
)

// Cashbox represents the caja; order intake is gated on one being open.
type Cashbox struct {
	ID            int64           `db:"id" json:"id"`
	Estado        string          `db:"estado" json:"estado"`
	MontoInicial  decimal.Decimal `db:"monto_inicial" json:"monto_inicial"`
	MontoFinal    decimal.Decimal `db:"monto_final" json:"monto_final"`
	NotasApertura string          `db:"notas_apertura" json:"notas_apertura,omitempty"`
	NotasCierre   string          `db:"notas_cierre" json:"notas_cierre,omitempty"`
	FechaApertura time.Time       `db:"fecha_apertura" json:"fecha_apertura"`
	FechaCierre   *time.Time      `db:"fecha_cierre" json:"fecha_cierre,omitempty"`
}

// Cashbox states
const (
	CajaAbierta = "ABIERTA"
	CajaCerrada = "CERRADA"
)

// Payment is a pago registered against an order through the open cashbox.
type Payment struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	CashboxID int64           `db:"cashbox_id" json:"cashbox_id"`
	TipoPago  string          `db:"tipo_pago" json:"tipo_pago"`
	Metodo    string          `db:"metodo" json:"metodo"`
	Monto     decimal.Decimal `db:"monto" json:"monto"`
	Notas     string          `db:"notas" json:"notas,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Payment kinds
const (
	PagoSenia    = "SENIA"
	PagoSaldo    = "SALDO"
	PagoGarantia = "GARANTIA"

	// Settlement payments written by finalization, never accepted over the API.
	PagoAplicacionGarantia = "APLICACION_GARANTIA"
	PagoDevolucionGarantia = "DEVOLUCION_GARANTIA"
)

// Payment methods
const (
	MetodoEfectivo      = "EFECTIVO"
	MetodoTransferencia = "TRANSFERENCIA"
)

// ProcessedEvent keeps worker handlers idempotent across redeliveries.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
