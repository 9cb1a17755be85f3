package service

import "errors"

var (
	// ErrAlreadyCompleted guards the fulfillment saga's idempotency: the
	// order already carries a terminal status or a delivered timestamp.
	ErrAlreadyCompleted = errors.New("order already completed")

	// ErrInsufficientStock aborts fulfillment when a decrement would take a
	// product's stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConcurrentModification marks a stock value that changed between the
	// validation snapshot and the write in a way that invalidates the plan.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrWriteNotConfirmed marks a write whose post-write read did not
	// reflect it; it is treated identically to a failed write.
	ErrWriteNotConfirmed = errors.New("write not confirmed by re-read")

	// ErrInvalidTransition rejects a courier status change the current order
	// status does not permit.
	ErrInvalidTransition = errors.New("status transition not permitted")

	// ErrEmptyOrder rejects fulfillment of an order whose line items decode
	// to an empty list.
	ErrEmptyOrder = errors.New("order has no line items")
)
