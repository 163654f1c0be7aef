package service

import (
	"context"
	"fmt"

	"rental-service/internal/redisclient"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// StockLedger is the read side of the product stock ledger. Mutations happen
// inside store transactions so checks and commits stay atomic; this service
// answers availability questions cheaply through Redis and keeps the cache in
// step with the database.
type StockLedger struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewStockLedger creates a new stock ledger view
func NewStockLedger(store *store.Store, redis *redisclient.Client) *StockLedger {
	return &StockLedger{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// Available returns the units of a product not committed to an active order.
// Cache hit answers from Redis; a miss reads the database and primes the
// cache for the next caller.
func (sl *StockLedger) Available(ctx context.Context, productID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Available")
	defer span.End()

	stock, reservado, found, err := sl.redis.GetStock(ctx, productID)
	if err == nil && found {
		if d := stock - reservado; d > 0 {
			return d, nil
		}
		return 0, nil
	}
	if err != nil {
		sl.logger.Warn("Availability cache read failed, falling back to DB",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}

	product, err := sl.store.GetProductByID(ctx, productID)
	if err != nil {
		return 0, err
	}

	if err := sl.redis.SetStock(ctx, productID, product.Stock, product.StockReservado); err != nil {
		sl.logger.Warn("Failed to prime availability cache",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}

	return product.StockDisponible(), nil
}

// AdjustCache applies a ledger delta to the cache after a committed database
// mutation. Best effort: the refresher worker repairs any miss.
func (sl *StockLedger) AdjustCache(ctx context.Context, productID int64, stockDelta, reservedDelta int) {
	if err := sl.redis.AdjustStock(ctx, productID, stockDelta, reservedDelta); err != nil {
		util.CacheRefreshFailedTotal.Inc()
		sl.logger.Warn("Failed to adjust availability cache",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// Refresh overwrites a product's cache entry with the database truth.
func (sl *StockLedger) Refresh(ctx context.Context, productID int64) error {
	product, err := sl.store.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}
	if err := sl.redis.SetStock(ctx, productID, product.Stock, product.StockReservado); err != nil {
		util.CacheRefreshFailedTotal.Inc()
		return fmt.Errorf("failed to refresh cache for product %d: %w", productID, err)
	}
	return nil
}

// Invalidate drops a product's cache entry, e.g. when the product is removed
// from the catalog.
func (sl *StockLedger) Invalidate(ctx context.Context, productID int64) {
	if err := sl.redis.InvalidateStock(ctx, productID); err != nil {
		sl.logger.Warn("Failed to invalidate availability cache",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// SyncAll primes the cache with every product's ledger counters at startup.
func (sl *StockLedger) SyncAll(ctx context.Context) error {
	sl.logger.Info("Starting stock ledger cache sync")

	products, err := sl.store.GetProducts(ctx, "", false)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	for i := range products {
		p := &products[i]
		if err := sl.redis.SetStock(ctx, p.ID, p.Stock, p.StockReservado); err != nil {
			sl.logger.Error("Failed to cache product ledger",
				zap.Int64("product_id", p.ID),
				zap.Error(err))
		}
	}

	sl.logger.Info("Stock ledger cache sync completed", zap.Int("count", len(products)))
	return nil
}

// logShorts surfaces floored releases: a release that had to clamp at zero
// means reserve/release calls went out of balance somewhere upstream.
func (sl *StockLedger) logShorts(orderID int64, shorts []store.StockShort) {
	for _, s := range shorts {
		util.StockReleaseClampedTotal.Inc()
		sl.logger.Error("Stock release clamped at zero, ledger out of balance",
			zap.Int64("order_id", orderID),
			zap.Int64("product_id", s.ProductID),
			zap.Int("short", s.Short))
	}
}
