package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves products, optionally filtered by category and active flag.
func (s *Store) GetProducts(ctx context.Context, categoria string, soloActivos bool) ([]models.Product, error) {
	query := "SELECT * FROM products WHERE 1=1"
	args := []interface{}{}
	if categoria != "" {
		args = append(args, categoria)
		query += fmt.Sprintf(" AND categoria = $%d", len(args))
	}
	if soloActivos {
		query += " AND activo"
	}
	query += " ORDER BY nombre, id"

	var products []models.Product
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// CreateProduct inserts a product with its opening stock.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (nombre, descripcion, categoria, precio, stock, stock_reservado, activo)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING id, stock_reservado, created_at`

	return s.db.GetContext(ctx, p, query,
		p.Nombre, p.Descripcion, p.Categoria, p.Precio, p.Stock, p.Activo)
}

// DeleteProduct removes a product unless an open incident still references
// one of its order lines.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var abiertos bool
	err = tx.GetContext(ctx, &abiertos, `
		SELECT EXISTS(
			SELECT 1 FROM incidents i
			JOIN order_lines l ON l.id = i.line_id
			WHERE l.producto_id = $1 AND i.estado_incidente = $2
		)`, id, models.IncidenteEstadoAbierto)
	if err != nil {
		return err
	}
	if abiertos {
		return fmt.Errorf("%w: product %d", models.ErrOpenIncidents, id)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
	}

	return tx.Commit()
}

// reserveStockLocked locks the product row and moves qty into stock_reservado.
// Availability is derived inside the same transaction so check and commit are
// one atomic unit.
func reserveStockLocked(ctx context.Context, tx *sqlx.Tx, productID int64, qty int) error {
	var p struct {
		Stock          int `db:"stock"`
		StockReservado int `db:"stock_reservado"`
	}
	err := tx.GetContext(ctx, &p,
		"SELECT stock, stock_reservado FROM products WHERE id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrProductNotFound, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock product %d: %w", productID, err)
	}

	available := p.Stock - p.StockReservado
	if available < 0 {
		available = 0
	}
	if qty > available {
		return &models.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: available,
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE products SET stock_reservado = stock_reservado + $1 WHERE id = $2",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	return nil
}

// releaseStockLocked decrements stock_reservado, floored at zero. It returns
// the shortfall so callers can surface a floored release as the consistency
// bug it is instead of clamping silently.
func releaseStockLocked(ctx context.Context, tx *sqlx.Tx, productID int64, qty int) (int, error) {
	var reserved int
	err := tx.GetContext(ctx, &reserved,
		"SELECT stock_reservado FROM products WHERE id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", models.ErrProductNotFound, productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}

	short := 0
	release := qty
	if release > reserved {
		short = release - reserved
		release = reserved
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE products SET stock_reservado = stock_reservado - $1 WHERE id = $2",
		release, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to release stock: %w", err)
	}
	return short, nil
}

// consumeStockLocked moves qty out of the warehouse at delivery time: both
// stock and stock_reservado drop.
func consumeStockLocked(ctx context.Context, tx *sqlx.Tx, productID int64, qty int) error {
	var p struct {
		Stock          int `db:"stock"`
		StockReservado int `db:"stock_reservado"`
	}
	err := tx.GetContext(ctx, &p,
		"SELECT stock, stock_reservado FROM products WHERE id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrProductNotFound, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock product %d: %w", productID, err)
	}

	if qty > p.StockReservado || qty > p.Stock {
		return &models.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: p.StockReservado,
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, stock_reservado = stock_reservado - $1 WHERE id = $2",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to consume stock: %w", err)
	}
	return nil
}

// ReserveStock reserves qty units in its own transaction.
func (s *Store) ReserveStock(ctx context.Context, productID int64, qty int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := reserveStockLocked(ctx, tx, productID, qty); err != nil {
		return err
	}
	return tx.Commit()
}

// ReleaseStock releases qty reserved units in its own transaction. The
// returned shortfall is non-zero when the release had to be floored.
func (s *Store) ReleaseStock(ctx context.Context, productID int64, qty int) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	short, err := releaseStockLocked(ctx, tx, productID, qty)
	if err != nil {
		return 0, err
	}
	return short, tx.Commit()
}

// AddStock grows a product's owned stock. Replenishment purchases enter the
// ledger through here; the restock of a repuesto resolution happens inside
// its own transaction instead.
func (s *Store) AddStock(ctx context.Context, productID int64, qty int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1 WHERE id = $2", qty, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", models.ErrProductNotFound, productID)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
