package service

import (
	"context"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductService manages the rental catalog
type ProductService struct {
	store  *store.Store
	ledger *StockLedger
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store *store.Store, ledger *StockLedger) *ProductService {
	return &ProductService{
		store:  store,
		ledger: ledger,
		logger: util.GetLogger(),
	}
}

// CreateProductRequest is the catalog creation payload
type CreateProductRequest struct {
	Nombre      string          `json:"nombre" binding:"required"`
	Descripcion string          `json:"descripcion"`
	Categoria   string          `json:"categoria" binding:"required,oneof=vajilla cristaleria manteleria decoracion salon mobiliario"`
	Precio      decimal.Decimal `json:"precio" binding:"required"`
	Stock       int             `json:"stock"`
}

// List returns catalog products, optionally filtered by category. By default
// only active items are returned.
func (s *ProductService) List(ctx context.Context, categoria string, soloActivos bool) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.List")
	defer span.End()

	return s.store.GetProducts(ctx, categoria, soloActivos)
}

// Get returns a product by ID
func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Get")
	defer span.End()

	return s.store.GetProductByID(ctx, id)
}

// Available answers how many units of a product can still be committed.
func (s *ProductService) Available(ctx context.Context, id int64) (int, error) {
	return s.ledger.Available(ctx, id)
}

// Create adds a product to the catalog and primes its cache entry.
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Create")
	defer span.End()

	if !req.Precio.IsPositive() {
		return nil, &models.ValidationError{Field: "precio", Msg: "must be positive"}
	}
	if req.Stock < 0 {
		return nil, &models.ValidationError{Field: "stock", Msg: "cannot be negative"}
	}

	product := &models.Product{
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Categoria:   req.Categoria,
		Precio:      req.Precio,
		Stock:       req.Stock,
		Activo:      true,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	if err := s.ledger.Refresh(ctx, product.ID); err != nil {
		s.logger.Warn("Failed to prime cache for new product",
			zap.Int64("product_id", product.ID),
			zap.Error(err))
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("nombre", product.Nombre),
		zap.String("categoria", product.Categoria))

	return product, nil
}

// Restock grows a product's owned stock by a replenishment purchase and
// refreshes its cached availability.
func (s *ProductService) Restock(ctx context.Context, id int64, cantidad int) error {
	ctx, span := util.StartSpan(ctx, "ProductService.Restock")
	defer span.End()

	if cantidad <= 0 {
		return &models.InvalidQuantityError{Field: "cantidad", Value: cantidad}
	}

	if err := s.store.AddStock(ctx, id, cantidad); err != nil {
		return err
	}

	if err := s.ledger.Refresh(ctx, id); err != nil {
		s.logger.Warn("Failed to refresh cache after restock",
			zap.Int64("product_id", id),
			zap.Error(err))
	}

	s.logger.Info("Product restocked",
		zap.Int64("product_id", id),
		zap.Int("cantidad", cantidad))
	return nil
}

// Delete removes a product. Products referenced by open incidents cannot be
// deleted until those incidents are resolved.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "ProductService.Delete")
	defer span.End()

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.ledger.Invalidate(ctx, id)

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}
