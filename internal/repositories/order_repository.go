package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/internal/recordstore"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

type OrderRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Insert(ctx context.Context, order *models.Order) (*models.Order, error)
	SetStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	Complete(ctx context.Context, id, courierID, courierName string, deliveredAt time.Time) (*models.Order, error)
	AssignCourier(ctx context.Context, id, courierID, courierName string, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

// OrderRepository maps raw order rows to typed records at the record-store
// boundary. Line items are parsed here, exactly once; raw encoded strings
// never travel past this package.
type OrderRepository struct {
	store  recordstore.Store
	logger *logger.Logger
}

func NewOrderRepository(store recordstore.Store, log *logger.Logger) *OrderRepository {
	return &OrderRepository{
		store:  store,
		logger: log.WithComponent("order_repository"),
	}
}

// GetByID retrieves a single order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("order ID cannot be empty")
	}

	rows, err := r.store.Select(ctx, recordstore.TableOrders, recordstore.Filter{"id": id})
	if err != nil {
		r.logger.Error("Failed to select order", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to select order %s: %v", id, err)
	}
	if len(rows) == 0 {
		r.logger.Warn("Order not found", "order_id", id)
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}

	order, err := mapOrder(rows[0])
	if err != nil {
		r.logger.Error("Failed to map order row", "order_id", id, "error", err)
		return nil, err
	}
	return order, nil
}

// Insert stores a newly confirmed order. The id is minted by the store when
// absent; CreatedAt is stamped here.
func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := validateOrder(order); err != nil {
		r.logger.Error("Failed to validate order", "error", err)
		return nil, err
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	row, err := encodeOrder(order)
	if err != nil {
		return nil, err
	}

	inserted, err := r.store.Insert(ctx, recordstore.TableOrders, row)
	if err != nil {
		r.logger.Error("Failed to insert order", "customer", order.CustomerName, "error", err)
		return nil, fmt.Errorf("failed to insert order: %v", err)
	}

	stored, err := mapOrder(inserted)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Inserted order", "order_id", stored.ID, "customer", stored.CustomerName, "total", stored.TotalAmount)
	return stored, nil
}

// SetStatus writes a new status for the order and returns the updated record.
// Zero affected rows is reported as ErrNoRowsAffected.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("invalid order status: %s", status)
	}

	affected, err := r.store.Update(ctx, recordstore.TableOrders,
		recordstore.Patch{"status": string(status)},
		recordstore.Filter{"id": id})
	if err != nil {
		r.logger.Error("Failed to update order status", "order_id", id, "status", status, "error", err)
		return nil, fmt.Errorf("failed to update order %s status: %v", id, err)
	}
	if len(affected) == 0 {
		r.logger.Warn("Order status update matched no rows", "order_id", id, "status", status)
		return nil, fmt.Errorf("order %s status update: %w", id, recordstore.ErrNoRowsAffected)
	}

	order, err := mapOrder(affected[0])
	if err != nil {
		return nil, err
	}

	r.logger.Info("Updated order status", "order_id", id, "status", status)
	return order, nil
}

// AssignCourier writes courier identity and status in one patch, used by the
// accept and delay transitions.
func (r *OrderRepository) AssignCourier(ctx context.Context, id, courierID, courierName string, status models.OrderStatus) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("invalid order status: %s", status)
	}

	affected, err := r.store.Update(ctx, recordstore.TableOrders,
		recordstore.Patch{
			"courier_id":   courierID,
			"courier_name": courierName,
			"status":       string(status),
		},
		recordstore.Filter{"id": id})
	if err != nil {
		r.logger.Error("Failed to assign courier", "order_id", id, "courier_id", courierID, "error", err)
		return nil, fmt.Errorf("failed to assign courier to order %s: %v", id, err)
	}
	if len(affected) == 0 {
		return nil, fmt.Errorf("order %s courier assignment: %w", id, recordstore.ErrNoRowsAffected)
	}

	order, err := mapOrder(affected[0])
	if err != nil {
		return nil, err
	}

	r.logger.Info("Assigned courier", "order_id", id, "courier_id", courierID, "status", status)
	return order, nil
}

// Complete writes the terminal completion patch: courier identity, completed
// status and the delivered timestamp together.
func (r *OrderRepository) Complete(ctx context.Context, id, courierID, courierName string, deliveredAt time.Time) (*models.Order, error) {
	delivered := deliveredAt.UTC()

	affected, err := r.store.Update(ctx, recordstore.TableOrders,
		recordstore.Patch{
			"courier_id":   courierID,
			"courier_name": courierName,
			"status":       string(models.StatusCompleted),
			"delivered_at": encodeTime(&delivered),
		},
		recordstore.Filter{"id": id})
	if err != nil {
		r.logger.Error("Failed to complete order", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to complete order %s: %v", id, err)
	}
	if len(affected) == 0 {
		r.logger.Warn("Order completion matched no rows", "order_id", id)
		return nil, fmt.Errorf("order %s completion: %w", id, recordstore.ErrNoRowsAffected)
	}

	order, err := mapOrder(affected[0])
	if err != nil {
		return nil, err
	}

	r.logger.Info("Completed order", "order_id", id, "courier_id", courierID)
	return order, nil
}

// Delete removes an order by ID
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	deleted, err := r.store.Delete(ctx, recordstore.TableOrders, recordstore.Filter{"id": id})
	if err != nil {
		r.logger.Error("Failed to delete order", "order_id", id, "error", err)
		return fmt.Errorf("failed to delete order %s: %v", id, err)
	}
	if !deleted {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}

	r.logger.Info("Deleted order", "order_id", id)
	return nil
}

// mapOrder builds a typed order from a raw row, rejecting structurally
// malformed line-item payloads with zero tolerance: non-list, non-object
// entries and missing or negative quantities all fail the whole mapping.
func mapOrder(row recordstore.Row) (*models.Order, error) {
	total, err := fieldFloat(row, "total_amount")
	if err != nil {
		return nil, fmt.Errorf("order row: %v", err)
	}

	deliveredAt, err := fieldTime(row, "delivered_at")
	if err != nil {
		return nil, fmt.Errorf("order row: %v", err)
	}

	createdAt, err := fieldTime(row, "created_at")
	if err != nil {
		return nil, fmt.Errorf("order row: %v", err)
	}

	items, err := decodeLineItems(fieldString(row, "line_items"))
	if err != nil {
		return nil, fmt.Errorf("order %s: %v", fieldString(row, "id"), err)
	}

	order := &models.Order{
		ID:              fieldString(row, "id"),
		CustomerName:    fieldString(row, "customer_name"),
		CustomerHandle:  fieldString(row, "customer_handle"),
		CustomerPhone:   fieldString(row, "customer_phone"),
		CustomerAddress: fieldString(row, "customer_address"),
		Items:           items,
		Status:          models.OrderStatus(fieldString(row, "status")),
		TotalAmount:     total,
		CourierID:       fieldString(row, "courier_id"),
		CourierName:     fieldString(row, "courier_name"),
		DeliveredAt:     deliveredAt,
	}
	if createdAt != nil {
		order.CreatedAt = *createdAt
	}

	if order.ID == "" {
		return nil, errors.New("order row: missing id")
	}
	return order, nil
}

func encodeOrder(order *models.Order) (recordstore.Row, error) {
	encoded, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line items: %v", err)
	}

	row := recordstore.Row{
		"customer_name":    order.CustomerName,
		"customer_handle":  order.CustomerHandle,
		"customer_phone":   order.CustomerPhone,
		"customer_address": order.CustomerAddress,
		"line_items":       string(encoded),
		"status":           string(order.Status),
		"total_amount":     order.TotalAmount,
		"courier_id":       order.CourierID,
		"courier_name":     order.CourierName,
		"delivered_at":     encodeTime(order.DeliveredAt),
		"created_at":       encodeTime(&order.CreatedAt),
	}
	if order.ID != "" {
		row["id"] = order.ID
	}
	return row, nil
}

// decodeLineItems parses the serialized line-item wire format defensively.
func decodeLineItems(raw string) ([]models.LineItem, error) {
	if raw == "" {
		return nil, errors.New("line items payload is empty")
	}

	var items []models.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("line items payload is not a list of items: %v", err)
	}

	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("line item %d: %v", i, err)
		}
	}
	return items, nil
}

// validateOrder validates order data before insert
func validateOrder(order *models.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	if order.CustomerName == "" {
		return errors.New("customer name cannot be empty")
	}
	if len(order.Items) == 0 {
		return errors.New("order must have at least one item")
	}
	if !models.ValidStatus(order.Status) {
		return fmt.Errorf("invalid order status: %s", order.Status)
	}
	for i, item := range order.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %v", i, err)
		}
	}
	return nil
}
