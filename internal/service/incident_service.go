package service

import (
	"context"

	"rental-service/internal/broker"
	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// IncidentService tracks damage/loss reports against order lines and drives
// each one through its single abierto -> resuelto transition. Stock and
// guarantee consequences happen only at resolution; opening an incident just
// marks exposure.
type IncidentService struct {
	store          *store.Store
	ledger         *StockLedger
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewIncidentService creates a new incident service
func NewIncidentService(
	store *store.Store,
	ledger *StockLedger,
	eventPublisher *broker.EventPublisher,
) *IncidentService {
	return &IncidentService{
		store:          store,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// OpenIncidentRequest reports damage or loss on an order line.
type OpenIncidentRequest struct {
	LineID           int64  `json:"det_alquiler" binding:"required"`
	TipoIncidente    string `json:"tipo_incidente" binding:"required,oneof=reparable irreparable"`
	CantidadAfectada int    `json:"cantidad_afectada" binding:"required"`
	Descripcion      string `json:"descripcion"`
}

// ResolveIncidentRequest closes an incident with its final outcome.
type ResolveIncidentRequest struct {
	ResultadoFinal   string `json:"resultado_final" binding:"required"`
	CantidadRepuesta int    `json:"cantidad_repuesta"`
}

// OpenIncident records a new incident, bounded by how much of the line is
// not already covered by other open incidents.
func (s *IncidentService) OpenIncident(ctx context.Context, req *OpenIncidentRequest) (*models.Incident, error) {
	ctx, span := util.StartSpan(ctx, "IncidentService.OpenIncident")
	defer span.End()

	inc := &models.Incident{
		LineID:           req.LineID,
		TipoIncidente:    req.TipoIncidente,
		CantidadAfectada: req.CantidadAfectada,
		Descripcion:      req.Descripcion,
	}

	if err := s.store.OpenIncidentTx(ctx, inc); err != nil {
		util.IncidentsRejectedTotal.WithLabelValues("open").Inc()
		return nil, err
	}

	util.IncidentsOpenedTotal.Inc()
	s.logger.Info("Incident opened",
		zap.Int64("incident_id", inc.ID),
		zap.Int64("line_id", inc.LineID),
		zap.String("tipo", inc.TipoIncidente),
		zap.Int("cantidad_afectada", inc.CantidadAfectada))

	line, err := s.store.GetOrderLineByID(ctx, inc.LineID)
	if err != nil {
		s.logger.Error("Failed to load line for incident event", zap.Error(err))
		return inc, nil
	}

	event := &models.IncidentOpenedEvent{
		BaseEvent:        newBaseEvent(models.EventTypeIncidentOpened),
		IncidentID:       inc.ID,
		OrderID:          line.OrderID,
		LineID:           inc.LineID,
		ProductoID:       line.ProductoID,
		TipoIncidente:    inc.TipoIncidente,
		CantidadAfectada: inc.CantidadAfectada,
	}
	if err := s.eventPublisher.PublishIncidentOpened(ctx, event); err != nil {
		s.logger.Error("Failed to publish IncidentOpened event", zap.Error(err))
	}

	return inc, nil
}

// ResolveIncident applies the decision table {tipo_incidente, resultado_final}
// and freezes the incident. The transition is terminal: a second resolution
// is rejected, never silently accepted.
func (s *IncidentService) ResolveIncident(ctx context.Context, id int64, req *ResolveIncidentRequest) (*models.Incident, error) {
	ctx, span := util.StartSpan(ctx, "IncidentService.ResolveIncident")
	defer span.End()

	inc, err := s.store.ResolveIncidentTx(ctx, id, req.ResultadoFinal, req.CantidadRepuesta)
	if err != nil {
		util.IncidentsRejectedTotal.WithLabelValues("resolve").Inc()
		return nil, err
	}

	util.IncidentsResolvedTotal.WithLabelValues(inc.ResultadoFinal).Inc()
	s.logger.Info("Incident resolved",
		zap.Int64("incident_id", inc.ID),
		zap.String("resultado", inc.ResultadoFinal),
		zap.Int("cantidad_repuesta", inc.CantidadRepuesta))

	line, err := s.store.GetOrderLineByID(ctx, inc.LineID)
	if err != nil {
		s.logger.Error("Failed to load line for incident event", zap.Error(err))
		return inc, nil
	}

	if inc.ResultadoFinal == models.ResultadoRepuesto {
		// Replacement units joined owned stock in the resolution tx.
		s.ledger.AdjustCache(ctx, line.ProductoID, inc.CantidadRepuesta, 0)
	}

	event := &models.IncidentResolvedEvent{
		BaseEvent:        newBaseEvent(models.EventTypeIncidentResolved),
		IncidentID:       inc.ID,
		OrderID:          line.OrderID,
		LineID:           inc.LineID,
		ProductoID:       line.ProductoID,
		ResultadoFinal:   inc.ResultadoFinal,
		CantidadRepuesta: inc.CantidadRepuesta,
	}
	if err := s.eventPublisher.PublishIncidentResolved(ctx, event); err != nil {
		s.logger.Error("Failed to publish IncidentResolved event", zap.Error(err))
	}

	return inc, nil
}

// DeleteIncident removes a resolved incident. Open ones cannot go; they
// still bound their line's exposure.
func (s *IncidentService) DeleteIncident(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "IncidentService.DeleteIncident")
	defer span.End()

	inc, err := s.store.DeleteIncident(ctx, id)
	if err != nil {
		util.IncidentsRejectedTotal.WithLabelValues("delete").Inc()
		return err
	}

	s.logger.Info("Incident deleted", zap.Int64("incident_id", id))

	line, err := s.store.GetOrderLineByID(ctx, inc.LineID)
	if err != nil {
		s.logger.Error("Failed to load line for incident event", zap.Error(err))
		return nil
	}

	event := &models.IncidentDeletedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeIncidentDeleted),
		IncidentID: id,
		OrderID:    line.OrderID,
		LineID:     inc.LineID,
		ProductoID: line.ProductoID,
	}
	if err := s.eventPublisher.PublishIncidentDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish IncidentDeleted event", zap.Error(err))
	}

	return nil
}

// GetIncident retrieves one incident.
func (s *IncidentService) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	return s.store.GetIncidentByID(ctx, id)
}

// ListIncidents retrieves incidents filtered by state and/or line.
func (s *IncidentService) ListIncidents(ctx context.Context, estado string, lineID int64) ([]models.Incident, error) {
	return s.store.ListIncidents(ctx, estado, lineID)
}
