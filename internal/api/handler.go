package api

import (
	"net/http"
	"strconv"
	"time"

	"rental-service/internal/models"
	"rental-service/internal/service"
	"rental-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	orders    *service.OrderService
	incidents *service.IncidentService
	ledger    *service.StockLedger
	cashbox   *service.CashboxService
	pricing   *service.Pricing
	products  *service.ProductService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	incidents *service.IncidentService,
	ledger *service.StockLedger,
	cashbox *service.CashboxService,
	pricing *service.Pricing,
	products *service.ProductService,
) *Handler {
	return &Handler{
		orders:    orders,
		incidents: incidents,
		ledger:    ledger,
		cashbox:   cashbox,
		pricing:   pricing,
		products:  products,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/availability", h.getAvailability)
		v1.POST("/products", h.createProduct)
		v1.POST("/products/:id/stock", h.restockProduct)
		v1.DELETE("/products/:id", h.deleteProduct)

		v1.POST("/quotes", h.quote)
		v1.GET("/zones", h.zones)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/lines", h.updateOrderLines)
		v1.POST("/orders/:id/confirm", h.confirmOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.POST("/orders/:id/deliver", h.deliverOrder)
		v1.POST("/orders/:id/finalize", h.finalizeOrder)
		v1.GET("/orders/:id/payments", h.getOrderPayments)

		v1.POST("/incidents", h.openIncident)
		v1.GET("/incidents", h.listIncidents)
		v1.GET("/incidents/:id", h.getIncident)
		v1.PATCH("/incidents/:id", h.resolveIncident)
		v1.DELETE("/incidents/:id", h.deleteIncident)

		v1.POST("/cashbox/open", h.openCashbox)
		v1.POST("/cashbox/close", h.closeCashbox)
		v1.GET("/cashbox/current", h.currentCashbox)

		v1.POST("/payments", h.recordPayment)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps domain errors to HTTP statuses: malformed input is 400,
// state conflicts (stock, locks, terminal incidents, closed cashbox) are 409.
func respondError(c *gin.Context, err error) {
	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// listProducts handles product listing with optional filters
func (h *Handler) listProducts(c *gin.Context) {
	soloActivos := c.Query("activo") != "false"
	products, err := h.products.List(c.Request.Context(), c.Query("categoria"), soloActivos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct returns a product with its derived availability
func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":          product,
		"stock_disponible": product.StockDisponible(),
	})
}

// getAvailability answers availability from the cache without a DB round trip
func (h *Handler) getAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	available, err := h.ledger.Available(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"producto_id":      id,
		"stock_disponible": available,
	})
}

// createProduct handles product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	product, err := h.products.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// restockProduct adds purchased units to a product's owned stock
func (h *Handler) restockProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Cantidad int `json:"cantidad" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.products.Restock(c.Request.Context(), id, req.Cantidad); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteProduct handles product deletion
func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// quote handles pricing previews without touching any state
func (h *Handler) quote(c *gin.Context) {
	var req struct {
		Items       []service.OrderItemRequest `json:"items" binding:"required,min=1"`
		TipoEntrega string                     `json:"tipo_entrega" binding:"required,oneof=RETIRO ENTREGA"`
		ZonaEntrega string                     `json:"zona_entrega"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	lines := make([]models.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Cantidad <= 0 || !item.PrecioUnit.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quote items need cantidad > 0 and precio_unit > 0"})
			return
		}
		lines = append(lines, models.OrderLine{
			ProductoID: item.ProductoID,
			Cantidad:   item.Cantidad,
			PrecioUnit: item.PrecioUnit,
		})
	}

	quote, err := h.pricing.Quote(lines, req.TipoEntrega, req.ZonaEntrega)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// zones returns the configured delivery zones and fees
func (h *Handler) zones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"zones": h.pricing.Zones()})
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	snapshot, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	snapshot, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// updateOrderLines handles line revisions on an editable order
func (h *Handler) updateOrderLines(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateOrderLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	snapshot, err := h.orders.UpdateOrderLines(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// confirmOrder handles pendiente -> confirmado
func (h *Handler) confirmOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.ConfirmOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// cancelOrder releases reservations and cancels the order
func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	order, err := h.orders.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// deliverOrder consumes reservations and marks the order delivered
func (h *Handler) deliverOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.DeliverOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// finalizeOrder closes a delivered rental and settles its guarantee
func (h *Handler) finalizeOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	settlement, err := h.orders.FinalizeOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// getOrderPayments lists the payments recorded for an order
func (h *Handler) getOrderPayments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payments, err := h.cashbox.GetPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// openIncident handles damage/loss reports
func (h *Handler) openIncident(c *gin.Context) {
	var req service.OpenIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	incident, err := h.incidents.OpenIncident(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, incident)
}

// listIncidents handles incident listing with UI filters
func (h *Handler) listIncidents(c *gin.Context) {
	var lineID int64
	if raw := c.Query("line"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line filter"})
			return
		}
		lineID = id
	}

	incidents, err := h.incidents.ListIncidents(c.Request.Context(), c.Query("estado"), lineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": incidents})
}

// getIncident handles get incident by ID
func (h *Handler) getIncident(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	incident, err := h.incidents.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// resolveIncident closes an incident with its final outcome
func (h *Handler) resolveIncident(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.ResolveIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	incident, err := h.incidents.ResolveIncident(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// deleteIncident removes a resolved incident
func (h *Handler) deleteIncident(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.incidents.DeleteIncident(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// openCashbox opens the day's cashbox
func (h *Handler) openCashbox(c *gin.Context) {
	var req service.OpenCashboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if req.MontoInicial.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monto_inicial cannot be negative"})
		return
	}

	caja, err := h.cashbox.Open(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, caja)
}

// closeCashbox closes the open cashbox
func (h *Handler) closeCashbox(c *gin.Context) {
	var req service.CloseCashboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.MontoFinal = decimal.Zero
	}

	caja, err := h.cashbox.Close(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, caja)
}

// currentCashbox returns the open cashbox
func (h *Handler) currentCashbox(c *gin.Context) {
	caja, err := h.cashbox.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, caja)
}

// recordPayment registers a payment through the open cashbox
func (h *Handler) recordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	payment, err := h.cashbox.RecordPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
