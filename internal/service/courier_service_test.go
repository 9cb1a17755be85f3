package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omni-crm/talpan-bot-sub000/internal/recordstore"
	"github.com/Omni-crm/talpan-bot-sub000/internal/repositories"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

func newCourierFixture(t *testing.T) (*CourierService, *fulfillmentFixture) {
	t.Helper()
	f := newFulfillmentFixture(t)
	svc := NewCourierService(f.orders, f.service, time.Second, logger.NewNop())
	return svc, f
}

func TestCourier_AcceptPendingOrder(t *testing.T) {
	svc, f := newCourierFixture(t)
	order := f.insertOrder(t, standardItems())

	accepted, err := svc.Accept(context.Background(), order.ID, "c-9", "Lev")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, accepted.Status)
	assert.Equal(t, "c-9", accepted.CourierID)
	assert.Equal(t, "Lev", accepted.CourierName)
	assert.Equal(t, 50, f.stockOf(t, "Bread"), "accepting moves no stock")
}

func TestCourier_DelayActiveOrder(t *testing.T) {
	svc, f := newCourierFixture(t)
	order := f.insertOrder(t, standardItems())

	_, err := svc.Accept(context.Background(), order.ID, "c-9", "Lev")
	require.NoError(t, err)

	delayed, err := svc.Delay(context.Background(), order.ID, "c-9", "Lev")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelay, delayed.Status)

	// And back to active again.
	resumed, err := svc.Accept(context.Background(), order.ID, "c-9", "Lev")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, resumed.Status)
}

func TestCourier_TerminalOrdersRejectTransitions(t *testing.T) {
	svc, f := newCourierFixture(t)
	order := f.insertOrder(t, standardItems())

	_, err := svc.Complete(context.Background(), order.ID, "c-9", "Lev")
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), order.ID, "c-10", "Mia")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Delay(context.Background(), order.ID, "c-10", "Mia")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCourier_RedundantAcceptRejected(t *testing.T) {
	svc, f := newCourierFixture(t)
	order := f.insertOrder(t, standardItems())

	_, err := svc.Accept(context.Background(), order.ID, "c-9", "Lev")
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), order.ID, "c-10", "Mia")
	assert.ErrorIs(t, err, ErrInvalidTransition, "active to active is not a transition")
}

func TestCourier_CompleteDelegatesToFulfillment(t *testing.T) {
	svc, f := newCourierFixture(t)
	order := f.insertOrder(t, standardItems())

	completed, err := svc.Complete(context.Background(), order.ID, "c-9", "Lev")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, 48, f.stockOf(t, "Bread"))
	assert.Equal(t, 29, f.stockOf(t, "Milk"))
}

func TestCourier_UnknownOrder(t *testing.T) {
	svc, _ := newCourierFixture(t)

	_, err := svc.Accept(context.Background(), "ghost", "c-9", "Lev")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCourier_CancelledOrderStaysCancelled(t *testing.T) {
	svc, f := newCourierFixture(t)
	order := f.insertOrder(t, standardItems())

	_, err := f.store.Update(context.Background(), recordstore.TableOrders,
		recordstore.Patch{"status": string(models.StatusCancelled)},
		recordstore.Filter{"id": order.ID})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), order.ID, "c-9", "Lev")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAllowedTransition_Table(t *testing.T) {
	tests := []struct {
		from models.OrderStatus
		to   models.OrderStatus
		want bool
	}{
		{models.StatusPending, models.StatusActive, true},
		{models.StatusDelay, models.StatusActive, true},
		{models.StatusPending, models.StatusDelay, true},
		{models.StatusActive, models.StatusDelay, true},
		{models.StatusActive, models.StatusActive, false},
		{models.StatusDelay, models.StatusDelay, false},
		{models.StatusCompleted, models.StatusActive, false},
		{models.StatusCancelled, models.StatusDelay, false},
		{models.StatusPending, models.StatusCompleted, false},
	}

	for _, tt := range tests {
		got := allowedTransition(tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}
