package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/internal/repositories"
	"github.com/Omni-crm/talpan-bot-sub000/internal/saga"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

type FulfillmentServiceInterface interface {
	Complete(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error)
}

// FulfillmentService completes a placed order: it decrements stock for every
// aggregated line item and flips the order to completed, against a record
// store that offers no transactions. Consistency comes from the saga's
// validate-then-commit-with-compensation protocol, with a fresh read
// immediately before every write that depends on it.
type FulfillmentService struct {
	orders      repositories.OrderRepositoryInterface
	products    repositories.ProductRepositoryInterface
	executor    *saga.Executor
	callTimeout time.Duration
	logger      *logger.Logger
}

func NewFulfillmentService(
	orders repositories.OrderRepositoryInterface,
	products repositories.ProductRepositoryInterface,
	executor *saga.Executor,
	callTimeout time.Duration,
	log *logger.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		orders:      orders,
		products:    products,
		executor:    executor,
		callTimeout: callTimeout,
		logger:      log.WithComponent("fulfillment_service"),
	}
}

// stockPlan is the per-product application plan. AppliedOld/AppliedNew are
// recorded by the apply step as it succeeds and drive exact compensation.
type stockPlan struct {
	ProductID  string
	Name       string
	Need       int
	Snapshot   int
	AppliedOld int
	AppliedNew int
}

// Complete runs the fulfillment saga for one order. The returned error is
// user-reportable through errors.Is: ErrAlreadyCompleted, ErrInsufficientStock,
// ErrConcurrentModification, or a generic failure; in every failure case stock
// is back at its pre-saga values (or an explicit RollbackError says it isn't).
func (s *FulfillmentService) Complete(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error) {
	log := s.logger.WithContext("order_id", orderID, "courier_id", courierID)
	log.Info("Starting order fulfillment")

	// Step 1: idempotency guard. Re-checked again immediately before the
	// final status write, because another courier may complete the race
	// between here and there.
	order, err := s.fetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := completedGuard(order); err != nil {
		log.Warn("Order already completed", "status", order.Status)
		return nil, err
	}

	// Step 2: the line items were parsed and structurally validated at the
	// record-store boundary; an empty list still aborts with no side effects.
	if len(order.Items) == 0 {
		log.Warn("Order has no line items")
		return nil, fmt.Errorf("order %s: %w", orderID, ErrEmptyOrder)
	}

	// Step 3: aggregate duplicate products so each is decremented exactly
	// once per unit, not once per cart occurrence.
	aggregated := models.AggregateLineItems(order.Items)

	// Step 4: all-or-nothing pre-check. Every product is validated against
	// current stock before anything is written.
	plans, err := s.validateStock(ctx, log, aggregated)
	if err != nil {
		return nil, err
	}

	// Steps 5-6 run under the saga executor: per-product stock writes with
	// fresh-read revalidation and read-back verification, then the terminal
	// status commit, compensating applied decrements on any failure.
	steps := make([]saga.Step, 0, len(plans)+1)
	for _, plan := range plans {
		steps = append(steps, s.stockStep(plan, log))
	}
	steps = append(steps, s.commitStep(orderID, courierID, courierName, log))

	if err := s.executor.Run(ctx, "fulfillment:"+orderID, steps); err != nil {
		var rollbackErr *saga.RollbackError
		if errors.As(err, &rollbackErr) {
			log.Error("Fulfillment failed and rollback is incomplete",
				"failed_step", rollbackErr.Step, "compensation_failures", len(rollbackErr.Failures))
		}
		return nil, err
	}

	completed, err := s.fetchOrder(ctx, orderID)
	if err != nil {
		// The commit is verified; a read failure here only affects the
		// returned snapshot.
		log.Warn("Failed to re-read completed order", "error", err)
		now := time.Now().UTC()
		order.Status = models.StatusCompleted
		order.CourierID = courierID
		order.CourierName = courierName
		order.DeliveredAt = &now
		return order, nil
	}

	log.Info("Order fulfilled", "total", completed.TotalAmount, "items", len(completed.Items))
	return completed, nil
}

// validateStock performs the all-or-nothing pre-check: every aggregated
// product must exist and have enough stock, or nothing is written at all.
func (s *FulfillmentService) validateStock(ctx context.Context, log *logger.Logger, items []models.LineItem) ([]*stockPlan, error) {
	plans := make([]*stockPlan, 0, len(items))
	var problems []string

	for _, item := range items {
		product, err := s.fetchProduct(ctx, item.Name)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				problems = append(problems, fmt.Sprintf("product %q not found", item.Name))
				continue
			}
			return nil, err
		}

		newStock := product.Stock - item.Quantity
		if newStock < 0 {
			log.Warn("Insufficient stock",
				"product_id", product.ID, "product", product.Name,
				"stock", product.Stock, "need", item.Quantity)
			problems = append(problems, fmt.Sprintf("%s: need %d, have %d", product.Name, item.Quantity, product.Stock))
			continue
		}

		plans = append(plans, &stockPlan{
			ProductID: product.ID,
			Name:      product.Name,
			Need:      item.Quantity,
			Snapshot:  product.Stock,
		})
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, strings.Join(problems, "; "))
	}
	return plans, nil
}

// stockStep builds the saga step for one product: re-fetch immediately
// before writing, revalidate against the fresh value if it moved, write the
// decrement, read back to confirm, and know how to put the old value back.
func (s *FulfillmentService) stockStep(plan *stockPlan, log *logger.Logger) saga.Step {
	return saga.Step{
		Name: "stock:" + plan.Name,
		Apply: func(ctx context.Context) error {
			fresh, err := s.fetchProduct(ctx, plan.Name)
			if err != nil {
				return err
			}

			newStock := plan.Snapshot - plan.Need
			if fresh.Stock != plan.Snapshot {
				// Someone moved the stock since validation. Recompute and
				// revalidate against the fresh value.
				log.Warn("Stock moved since validation",
					"product_id", plan.ProductID, "product", plan.Name,
					"snapshot", plan.Snapshot, "fresh", fresh.Stock)
				newStock = fresh.Stock - plan.Need
				if newStock < 0 {
					return fmt.Errorf("product %q: stock moved %d -> %d, need %d: %w",
						plan.Name, plan.Snapshot, fresh.Stock, plan.Need, ErrConcurrentModification)
				}
			}

			if _, err := s.writeStock(ctx, plan.ProductID, newStock); err != nil {
				return err
			}

			plan.AppliedOld = fresh.Stock
			plan.AppliedNew = newStock
			log.Info("Stock decremented",
				"product_id", plan.ProductID, "product", plan.Name,
				"old_stock", plan.AppliedOld, "new_stock", plan.AppliedNew)
			return nil
		},
		Verify: func(ctx context.Context) error {
			fresh, err := s.fetchProduct(ctx, plan.Name)
			if err != nil {
				return err
			}
			if fresh.Stock != plan.AppliedNew {
				return fmt.Errorf("product %q: wrote stock %d but read back %d: %w",
					plan.Name, plan.AppliedNew, fresh.Stock, ErrWriteNotConfirmed)
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if _, err := s.writeStock(ctx, plan.ProductID, plan.AppliedOld); err != nil {
				return err
			}
			fresh, err := s.fetchProduct(ctx, plan.Name)
			if err != nil {
				return err
			}
			if fresh.Stock != plan.AppliedOld {
				return fmt.Errorf("product %q: rollback wrote stock %d but read back %d: %w",
					plan.Name, plan.AppliedOld, fresh.Stock, ErrWriteNotConfirmed)
			}
			log.Info("Stock restored",
				"product_id", plan.ProductID, "product", plan.Name, "stock", plan.AppliedOld)
			return nil
		},
	}
}

// commitStep writes courier identity, completed status and the delivered
// timestamp, re-checking idempotency immediately before the write and
// verifying the write with a re-read. It has no compensation: if it verifies,
// the saga is done; if it fails, the stock steps roll back.
func (s *FulfillmentService) commitStep(orderID, courierID, courierName string, log *logger.Logger) saga.Step {
	return saga.Step{
		Name: "commit-status",
		Apply: func(ctx context.Context) error {
			fresh, err := s.fetchOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if err := completedGuard(fresh); err != nil {
				// Lost the race to another courier between the initial guard
				// and here; back out the stock decrements.
				log.Warn("Order completed concurrently, backing out")
				return err
			}

			cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
			defer cancel()
			_, err = s.orders.Complete(cctx, orderID, courierID, courierName, time.Now())
			return err
		},
		Verify: func(ctx context.Context) error {
			fresh, err := s.fetchOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if fresh.Status != models.StatusCompleted || fresh.DeliveredAt == nil {
				return fmt.Errorf("order %s: completion not reflected by re-read: %w",
					orderID, ErrWriteNotConfirmed)
			}
			return nil
		},
	}
}

// completedGuard enforces the idempotency rule: a terminal status or an
// existing delivered timestamp means this completion already happened.
func completedGuard(order *models.Order) error {
	if order.Status.IsTerminal() || order.DeliveredAt != nil {
		return fmt.Errorf("order %s has status %s: %w", order.ID, order.Status, ErrAlreadyCompleted)
	}
	return nil
}

// fetchOrder reads an order with the per-call timeout.
func (s *FulfillmentService) fetchOrder(ctx context.Context, orderID string) (*models.Order, error) {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.orders.GetByID(cctx, orderID)
}

// fetchProduct reads a product by name with the per-call timeout.
func (s *FulfillmentService) fetchProduct(ctx context.Context, name string) (*models.Product, error) {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.products.GetByName(cctx, name)
}

// writeStock writes a stock value with the per-call timeout.
func (s *FulfillmentService) writeStock(ctx context.Context, productID string, stock int) (*models.Product, error) {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.products.SetStock(cctx, productID, stock)
}
