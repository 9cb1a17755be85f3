package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/internal/repositories"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

type OrderServiceInterface interface {
	PlaceOrder(ctx context.Context, draft *models.DraftOrder) (*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
}

// OrderService turns a confirmed draft into a persisted order. The builder
// never touches the order after this; only courier-facing transitions and
// the fulfillment saga mutate it.
type OrderService struct {
	orders      repositories.OrderRepositoryInterface
	callTimeout time.Duration
	logger      *logger.Logger
}

func NewOrderService(orders repositories.OrderRepositoryInterface, callTimeout time.Duration, log *logger.Logger) *OrderService {
	return &OrderService{
		orders:      orders,
		callTimeout: callTimeout,
		logger:      log.WithComponent("order_service"),
	}
}

// PlaceOrder serializes the draft's cart into the line-item wire format and
// inserts a new order with status pending.
func (s *OrderService) PlaceOrder(ctx context.Context, draft *models.DraftOrder) (*models.Order, error) {
	if err := validateDraft(draft); err != nil {
		s.logger.Warn("Draft failed validation at placement", "error", err)
		return nil, err
	}

	order := &models.Order{
		CustomerName:    draft.Customer.Name,
		CustomerHandle:  draft.Customer.Handle,
		CustomerPhone:   draft.Customer.Phone,
		CustomerAddress: draft.Customer.Address,
		Items:           draft.WireItems(),
		Status:          models.StatusPending,
		TotalAmount:     draft.Total(),
	}

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	placed, err := s.orders.Insert(cctx, order)
	if err != nil {
		s.logger.Error("Failed to place order", "customer", draft.Customer.Name, "error", err)
		return nil, err
	}

	s.logger.Info("Order placed", "order_id", placed.ID, "customer", placed.CustomerName, "total", placed.TotalAmount)
	return placed, nil
}

// GetOrder retrieves a persisted order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.orders.GetByID(cctx, id)
}

// validateDraft checks the draft is complete enough to persist.
func validateDraft(draft *models.DraftOrder) error {
	if draft == nil {
		return fmt.Errorf("draft cannot be nil")
	}
	if draft.Customer.Name == "" {
		return fmt.Errorf("customer name is required")
	}
	if draft.Customer.Address == "" {
		return fmt.Errorf("delivery address is required")
	}
	if len(draft.Lines) == 0 {
		return fmt.Errorf("order must have at least one cart line")
	}
	for i, line := range draft.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("cart line %d: quantity must be positive", i+1)
		}
		if line.UnitPrice < 0 {
			return fmt.Errorf("cart line %d: unit price cannot be negative", i+1)
		}
	}
	return nil
}
