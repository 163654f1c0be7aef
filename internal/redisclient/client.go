package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/adjust_stock.lua
var adjustStockScript string

// Client is a read-side cache of the product stock ledger. The database is
// authoritative; entries here exist so availability reads don't hit Postgres,
// and they are repaired by the cache refresher worker after every
// stock-affecting event.
type Client struct {
	rdb          *redis.Client
	adjustScript *redis.Script
}

// NewClient creates a new Redis client with the ledger script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:          rdb,
		adjustScript: redis.NewScript(adjustStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetStock writes a full ledger snapshot for a product.
func (c *Client) SetStock(ctx context.Context, productID int64, stock, reservado int) error {
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, stockKey(productID), "stock", stock, "reserved", reservado)
	_, err := pipe.Exec(ctx)
	return err
}

// AdjustStock applies deltas to a cached entry atomically, floored at zero on
// both counters. It is a no-op when the product was never cached.
func (c *Client) AdjustStock(ctx context.Context, productID int64, stockDelta, reservedDelta int) error {
	_, err := c.adjustScript.Run(ctx, c.rdb, []string{stockKey(productID)},
		stockDelta, reservedDelta).Result()
	if err != nil {
		return fmt.Errorf("adjust stock script failed: %w", err)
	}
	return nil
}

// GetStock reads a product's cached ledger entry. found is false on a cache
// miss; callers fall back to the database.
func (c *Client) GetStock(ctx context.Context, productID int64) (stock, reservado int, found bool, err error) {
	result, err := c.rdb.HGetAll(ctx, stockKey(productID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, false, nil
	}

	stock, _ = strconv.Atoi(result["stock"])
	reservado, _ = strconv.Atoi(result["reserved"])
	return stock, reservado, true, nil
}

// InvalidateStock drops a product's cached entry.
func (c *Client) InvalidateStock(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, stockKey(productID)).Err()
}
