package worker

import (
	"context"
	"log"

	"rental-service/internal/broker"
	"rental-service/internal/models"
	"rental-service/internal/service"
)

// GuaranteeWorker consumes incident events and runs the guarantee
// reconciliation for the affected order.
type GuaranteeWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewGuaranteeWorker creates a new guarantee worker
func NewGuaranteeWorker(consumer *broker.Consumer, reconciler *service.GuaranteeReconciler) *GuaranteeWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnIncidentOpened(reconciler.HandleIncidentOpened)
	eventHandler.OnIncidentResolved(reconciler.HandleIncidentResolved)
	eventHandler.OnIncidentDeleted(reconciler.HandleIncidentDeleted)

	return &GuaranteeWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *GuaranteeWorker) Start(ctx context.Context) error {
	log.Println("Starting guarantee worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *GuaranteeWorker) Stop() error {
	log.Println("Stopping guarantee worker...")
	return w.consumer.Close()
}

// CacheWorker consumes stock-affecting events and overwrites the affected
// products' availability cache entries with the database truth.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewCacheWorker creates a new cache refresher worker
func NewCacheWorker(consumer *broker.Consumer, ledger *service.StockLedger) *CacheWorker {
	eventHandler := broker.NewEventHandler()

	refreshLines := func(ctx context.Context, lines []models.OrderLineData) error {
		seen := make(map[int64]bool)
		for _, l := range lines {
			if seen[l.ProductoID] {
				continue
			}
			seen[l.ProductoID] = true
			if err := ledger.Refresh(ctx, l.ProductoID); err != nil {
				log.Printf("Cache refresh failed for product %d: %v", l.ProductoID, err)
			}
		}
		return nil
	}

	eventHandler.OnOrderCreated(func(ctx context.Context, e *models.OrderCreatedEvent) error {
		return refreshLines(ctx, e.Lines)
	})
	eventHandler.OnOrderUpdated(func(ctx context.Context, e *models.OrderUpdatedEvent) error {
		return refreshLines(ctx, e.Lines)
	})
	eventHandler.OnOrderCancelled(func(ctx context.Context, e *models.OrderCancelledEvent) error {
		return refreshLines(ctx, e.Lines)
	})
	eventHandler.OnOrderDelivered(func(ctx context.Context, e *models.OrderDeliveredEvent) error {
		return refreshLines(ctx, e.Lines)
	})
	eventHandler.OnIncidentResolved(func(ctx context.Context, e *models.IncidentResolvedEvent) error {
		if err := ledger.Refresh(ctx, e.ProductoID); err != nil {
			log.Printf("Cache refresh failed for product %d: %v", e.ProductoID, err)
		}
		return nil
	})

	return &CacheWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	log.Println("Starting cache worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	log.Println("Stopping cache worker...")
	return w.consumer.Close()
}
