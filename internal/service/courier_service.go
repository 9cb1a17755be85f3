package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/internal/repositories"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

type CourierServiceInterface interface {
	Accept(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error)
	Delay(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error)
	Complete(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error)
}

// CourierService drives the courier-facing order transitions. Accept and
// delay are plain status writes; complete delegates to the fulfillment saga.
type CourierService struct {
	orders      repositories.OrderRepositoryInterface
	fulfillment FulfillmentServiceInterface
	callTimeout time.Duration
	logger      *logger.Logger
}

func NewCourierService(
	orders repositories.OrderRepositoryInterface,
	fulfillment FulfillmentServiceInterface,
	callTimeout time.Duration,
	log *logger.Logger,
) *CourierService {
	return &CourierService{
		orders:      orders,
		fulfillment: fulfillment,
		callTimeout: callTimeout,
		logger:      log.WithComponent("courier_service"),
	}
}

// Accept assigns the courier and moves the order to active.
func (s *CourierService) Accept(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error) {
	return s.transition(ctx, orderID, courierID, courierName, models.StatusActive)
}

// Delay assigns the courier and marks the order delayed.
func (s *CourierService) Delay(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error) {
	return s.transition(ctx, orderID, courierID, courierName, models.StatusDelay)
}

// Complete runs the fulfillment saga for the order.
func (s *CourierService) Complete(ctx context.Context, orderID, courierID, courierName string) (*models.Order, error) {
	s.logger.Info("Courier completing order", "order_id", orderID, "courier_id", courierID)
	return s.fulfillment.Complete(ctx, orderID, courierID, courierName)
}

func (s *CourierService) transition(ctx context.Context, orderID, courierID, courierName string, target models.OrderStatus) (*models.Order, error) {
	log := s.logger.WithContext("order_id", orderID, "courier_id", courierID, "target", target)

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	order, err := s.orders.GetByID(cctx, orderID)
	cancel()
	if err != nil {
		log.Warn("Order lookup failed", "error", err)
		return nil, err
	}

	if !allowedTransition(order.Status, target) {
		log.Warn("Transition not permitted", "status", order.Status)
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrInvalidTransition)
	}

	cctx, cancel = context.WithTimeout(ctx, s.callTimeout)
	updated, err := s.orders.AssignCourier(cctx, orderID, courierID, courierName, target)
	cancel()
	if err != nil {
		log.Error("Transition write failed", "error", err)
		return nil, err
	}

	log.Info("Order transitioned", "status", updated.Status)
	return updated, nil
}

// allowedTransition encodes the courier-facing status machine: pending and
// delayed orders can be accepted, pending and active ones delayed. Terminal
// orders move nowhere; completion is the saga's business, not a plain write.
func allowedTransition(from, to models.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case models.StatusActive:
		return from == models.StatusPending || from == models.StatusDelay
	case models.StatusDelay:
		return from == models.StatusPending || from == models.StatusActive
	}
	return false
}
