package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Omni-crm/talpan-bot-sub000/internal/recordstore"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

type ProductRepositoryInterface interface {
	GetAll(ctx context.Context) ([]*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByName(ctx context.Context, name string) (*models.Product, error)
	Add(ctx context.Context, product *models.Product) (*models.Product, error)
	SetStock(ctx context.Context, id string, stock int) (*models.Product, error)
}

// ProductRepository maps raw product rows to typed records at the
// record-store boundary.
type ProductRepository struct {
	store  recordstore.Store
	logger *logger.Logger
}

func NewProductRepository(store recordstore.Store, log *logger.Logger) *ProductRepository {
	return &ProductRepository{
		store:  store,
		logger: log.WithComponent("product_repository"),
	}
}

// GetAll retrieves all products
func (r *ProductRepository) GetAll(ctx context.Context) ([]*models.Product, error) {
	rows, err := r.store.Select(ctx, recordstore.TableProducts, nil)
	if err != nil {
		r.logger.Error("Failed to select products", "error", err)
		return nil, fmt.Errorf("failed to select products: %v", err)
	}

	products := make([]*models.Product, 0, len(rows))
	for _, row := range rows {
		product, err := mapProduct(row)
		if err != nil {
			r.logger.Error("Failed to map product row", "error", err)
			return nil, err
		}
		products = append(products, product)
	}

	r.logger.Debug("Retrieved products", "count", len(products))
	return products, nil
}

// GetByID retrieves a single product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product ID cannot be empty")
	}

	rows, err := r.store.Select(ctx, recordstore.TableProducts, recordstore.Filter{"id": id})
	if err != nil {
		r.logger.Error("Failed to select product", "product_id", id, "error", err)
		return nil, fmt.Errorf("failed to select product %s: %v", id, err)
	}
	if len(rows) == 0 {
		r.logger.Warn("Product not found", "product_id", id)
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	return mapProduct(rows[0])
}

// GetByName retrieves a single product by name. Persisted line items address
// products by name, so the fulfillment saga resolves stock records this way.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*models.Product, error) {
	if name == "" {
		return nil, fmt.Errorf("product name cannot be empty")
	}

	rows, err := r.store.Select(ctx, recordstore.TableProducts, recordstore.Filter{"name": name})
	if err != nil {
		r.logger.Error("Failed to select product by name", "name", name, "error", err)
		return nil, fmt.Errorf("failed to select product %q: %v", name, err)
	}
	if len(rows) == 0 {
		r.logger.Warn("Product not found", "name", name)
		return nil, fmt.Errorf("product %q: %w", name, ErrNotFound)
	}

	return mapProduct(rows[0])
}

// Add stores a new product
func (r *ProductRepository) Add(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := validateProduct(product); err != nil {
		r.logger.Error("Failed to validate product", "error", err)
		return nil, err
	}

	row := recordstore.Row{
		"name":       product.Name,
		"stock":      product.Stock,
		"unit_price": product.UnitPrice,
	}
	if product.ID != "" {
		row["id"] = product.ID
	}

	inserted, err := r.store.Insert(ctx, recordstore.TableProducts, row)
	if err != nil {
		r.logger.Error("Failed to insert product", "name", product.Name, "error", err)
		return nil, fmt.Errorf("failed to insert product: %v", err)
	}

	stored, err := mapProduct(inserted)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Added product", "product_id", stored.ID, "name", stored.Name, "stock", stored.Stock)
	return stored, nil
}

// SetStock writes an absolute stock value and returns the updated record.
// The stock column never goes negative; the caller validates before writing
// and this is the backstop.
func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, fmt.Errorf("stock for product %s cannot be negative, got %d", id, stock)
	}

	affected, err := r.store.Update(ctx, recordstore.TableProducts,
		recordstore.Patch{"stock": stock},
		recordstore.Filter{"id": id})
	if err != nil {
		r.logger.Error("Failed to update product stock", "product_id", id, "stock", stock, "error", err)
		return nil, fmt.Errorf("failed to update stock for product %s: %v", id, err)
	}
	if len(affected) == 0 {
		r.logger.Warn("Stock update matched no rows", "product_id", id)
		return nil, fmt.Errorf("product %s stock update: %w", id, recordstore.ErrNoRowsAffected)
	}

	product, err := mapProduct(affected[0])
	if err != nil {
		return nil, err
	}

	r.logger.Info("Updated product stock", "product_id", id, "stock", stock)
	return product, nil
}

// mapProduct builds a typed product from a raw row with defensive coercion.
func mapProduct(row recordstore.Row) (*models.Product, error) {
	stock, err := fieldInt(row, "stock")
	if err != nil {
		return nil, fmt.Errorf("product row: %v", err)
	}

	unitPrice, err := fieldFloat(row, "unit_price")
	if err != nil {
		return nil, fmt.Errorf("product row: %v", err)
	}

	product := &models.Product{
		ID:        fieldString(row, "id"),
		Name:      fieldString(row, "name"),
		Stock:     stock,
		UnitPrice: unitPrice,
	}

	if product.ID == "" {
		return nil, errors.New("product row: missing id")
	}
	if product.Name == "" {
		return nil, fmt.Errorf("product row %s: missing name", product.ID)
	}
	return product, nil
}

// validateProduct validates product data
func validateProduct(product *models.Product) error {
	if product == nil {
		return errors.New("product cannot be nil")
	}
	if product.Name == "" {
		return errors.New("product name cannot be empty")
	}
	if product.Stock < 0 {
		return fmt.Errorf("product %q: stock cannot be negative", product.Name)
	}
	if product.UnitPrice < 0 {
		return fmt.Errorf("product %q: unit price cannot be negative", product.Name)
	}
	return nil
}
