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

func newOrderService() *OrderService {
	store := recordstore.NewMemoryStore()
	repo := repositories.NewOrderRepository(store, logger.NewNop())
	return NewOrderService(repo, time.Second, logger.NewNop())
}

func confirmedDraft() *models.DraftOrder {
	draft := &models.DraftOrder{
		Customer: models.Customer{
			Name:    "Dana",
			Handle:  "@dana",
			Phone:   "+7 900 123-45-67",
			Address: "12 Main St",
		},
		Cursor: models.StateDone,
	}
	bread := models.CartLine{ProductID: "p-bread", Name: "Bread", UnitPrice: 8.5, StockSnapshot: 50}
	bread.SetQuantity(2)
	milk := models.CartLine{ProductID: "p-milk", Name: "Milk", UnitPrice: 6.0, StockSnapshot: 30}
	milk.SetQuantity(1)
	draft.Lines = []models.CartLine{bread, milk}
	return draft
}

func TestPlaceOrder_PersistsDraft(t *testing.T) {
	svc := newOrderService()
	ctx := context.Background()

	placed, err := svc.PlaceOrder(ctx, confirmedDraft())
	require.NoError(t, err)
	require.NotEmpty(t, placed.ID)

	assert.Equal(t, models.StatusPending, placed.Status)
	assert.Equal(t, "Dana", placed.CustomerName)
	assert.Equal(t, "@dana", placed.CustomerHandle)
	assert.InDelta(t, 23.0, placed.TotalAmount, 1e-9)
	assert.Nil(t, placed.DeliveredAt)
	assert.Empty(t, placed.CourierID)

	require.Len(t, placed.Items, 2)
	assert.Equal(t, "Bread", placed.Items[0].Name)
	assert.Equal(t, 2, placed.Items[0].Quantity)
	assert.InDelta(t, 17.0, placed.Items[0].TotalPrice, 1e-9)
}

func TestPlaceOrder_RoundTripsThroughStorage(t *testing.T) {
	svc := newOrderService()
	ctx := context.Background()

	placed, err := svc.PlaceOrder(ctx, confirmedDraft())
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
	assert.Equal(t, placed.Items, got.Items)
	assert.InDelta(t, placed.TotalAmount, got.TotalAmount, 1e-9)
}

func TestPlaceOrder_RejectsIncompleteDrafts(t *testing.T) {
	svc := newOrderService()
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, nil)
	assert.Error(t, err)

	anonymous := confirmedDraft()
	anonymous.Customer.Name = ""
	_, err = svc.PlaceOrder(ctx, anonymous)
	assert.Error(t, err)

	empty := confirmedDraft()
	empty.Lines = nil
	_, err = svc.PlaceOrder(ctx, empty)
	assert.Error(t, err)
}

func TestGetOrder_Unknown(t *testing.T) {
	svc := newOrderService()

	_, err := svc.GetOrder(context.Background(), "ghost")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestAggregateLineItems(t *testing.T) {
	items := []models.LineItem{
		{Name: "Bread", Quantity: 2, UnitPrice: 8.5, TotalPrice: 17.0},
		{Name: "Milk", Quantity: 1, UnitPrice: 6.0, TotalPrice: 6.0},
		{Name: "Bread", Quantity: 3, UnitPrice: 8.0, TotalPrice: 24.0},
	}

	merged := models.AggregateLineItems(items)
	require.Len(t, merged, 2)
	assert.Equal(t, "Bread", merged[0].Name, "first-seen order preserved")
	assert.Equal(t, 5, merged[0].Quantity)
	assert.InDelta(t, 41.0, merged[0].TotalPrice, 1e-9)
	assert.Equal(t, "Milk", merged[1].Name)
	assert.Equal(t, 1, merged[1].Quantity)
}
