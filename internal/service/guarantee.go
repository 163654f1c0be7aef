package service

import (
	"context"
	"fmt"

	"rental-service/internal/broker"
	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// GuaranteeReconciler keeps an order's garantia_estado in step with its
// incidents. The rule, applied after every incident mutation:
//
//	any open incident            -> pendiente
//	none open, any costed result -> descontada
//	otherwise                    -> devuelta
//
// Resolution itself never touches the guarantee inline; this reconciler
// reacts to incident events, so the engine stays free of cross-aggregate
// writes.
type GuaranteeReconciler struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewGuaranteeReconciler creates a new reconciler
func NewGuaranteeReconciler(store *store.Store, eventPublisher *broker.EventPublisher) *GuaranteeReconciler {
	return &GuaranteeReconciler{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// HandleIncidentOpened re-evaluates the order's guarantee after a new report.
func (r *GuaranteeReconciler) HandleIncidentOpened(ctx context.Context, event *models.IncidentOpenedEvent) error {
	return r.reconcile(ctx, event.BaseEvent, event.OrderID)
}

// HandleIncidentResolved re-evaluates the order's guarantee after a resolution.
func (r *GuaranteeReconciler) HandleIncidentResolved(ctx context.Context, event *models.IncidentResolvedEvent) error {
	return r.reconcile(ctx, event.BaseEvent, event.OrderID)
}

// HandleIncidentDeleted re-evaluates the order's guarantee after a removal.
func (r *GuaranteeReconciler) HandleIncidentDeleted(ctx context.Context, event *models.IncidentDeletedEvent) error {
	return r.reconcile(ctx, event.BaseEvent, event.OrderID)
}

func (r *GuaranteeReconciler) reconcile(ctx context.Context, base models.BaseEvent, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "GuaranteeReconciler.reconcile")
	defer span.End()

	processed, err := r.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		r.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	order, err := r.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	summary, err := r.store.GetGuaranteeSummary(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to summarize incidents: %w", err)
	}

	estado := decideGuaranteeState(summary)
	if estado != order.GarantiaEstado {
		if err := r.store.UpdateGuaranteeState(ctx, orderID, estado); err != nil {
			return fmt.Errorf("failed to update guarantee state: %w", err)
		}

		util.GuaranteeUpdatesTotal.WithLabelValues(estado).Inc()
		r.logger.Info("Guarantee state updated",
			zap.Int64("order_id", orderID),
			zap.String("from", order.GarantiaEstado),
			zap.String("to", estado))

		updated := &models.GuaranteeUpdatedEvent{
			BaseEvent:      newBaseEvent(models.EventTypeGuaranteeUpdated),
			OrderID:        orderID,
			GarantiaEstado: estado,
		}
		if err := r.eventPublisher.PublishGuaranteeUpdated(ctx, updated); err != nil {
			r.logger.Error("Failed to publish GuaranteeUpdated event", zap.Error(err))
		}
	}

	if err := r.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		r.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

func decideGuaranteeState(summary *store.GuaranteeSummary) string {
	switch {
	case summary.Abiertos > 0:
		return models.GarantiaEstadoPendiente
	case summary.ConCosto > 0:
		return models.GarantiaEstadoDescontada
	default:
		return models.GarantiaEstadoDevuelta
	}
}
