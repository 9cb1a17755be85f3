package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omni-crm/talpan-bot-sub000/internal/recordstore"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

func newOrderRepo() (*OrderRepository, *recordstore.MemoryStore) {
	store := recordstore.NewMemoryStore()
	return NewOrderRepository(store, logger.NewNop()), store
}

func sampleOrder() *models.Order {
	return &models.Order{
		CustomerName:    "Dana",
		CustomerHandle:  "@dana",
		CustomerPhone:   "+7 900 000-00-00",
		CustomerAddress: "12 Main St",
		Items: []models.LineItem{
			{Name: "Bread", Quantity: 2, UnitPrice: 8.5, TotalPrice: 17.0},
			{Name: "Milk", Quantity: 1, UnitPrice: 6.0, TotalPrice: 6.0},
		},
		Status:      models.StatusPending,
		TotalAmount: 23.0,
	}
}

func TestOrderRepository_InsertAndGetByID(t *testing.T) {
	repo, _ := newOrderRepo()
	ctx := context.Background()

	stored, err := repo.Insert(ctx, sampleOrder())
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.CustomerName)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.DeliveredAt)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Bread", got.Items[0].Name)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.InDelta(t, 23.0, got.TotalAmount, 1e-9)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	repo, _ := newOrderRepo()

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), "")
	assert.Error(t, err)
}

func TestOrderRepository_InsertRejectsInvalidOrders(t *testing.T) {
	repo, _ := newOrderRepo()
	ctx := context.Background()

	empty := sampleOrder()
	empty.Items = nil
	_, err := repo.Insert(ctx, empty)
	assert.Error(t, err, "order needs at least one item")

	anonymous := sampleOrder()
	anonymous.CustomerName = ""
	_, err = repo.Insert(ctx, anonymous)
	assert.Error(t, err)

	badStatus := sampleOrder()
	badStatus.Status = "shipped"
	_, err = repo.Insert(ctx, badStatus)
	assert.Error(t, err)
}

func TestOrderRepository_SetStatus(t *testing.T) {
	repo, _ := newOrderRepo()
	ctx := context.Background()

	stored, err := repo.Insert(ctx, sampleOrder())
	require.NoError(t, err)

	updated, err := repo.SetStatus(ctx, stored.ID, models.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)

	_, err = repo.SetStatus(ctx, "ghost", models.StatusActive)
	assert.ErrorIs(t, err, recordstore.ErrNoRowsAffected)

	_, err = repo.SetStatus(ctx, stored.ID, "shipped")
	assert.Error(t, err, "unknown status never reaches the store")
}

func TestOrderRepository_AssignCourier(t *testing.T) {
	repo, _ := newOrderRepo()
	ctx := context.Background()

	stored, err := repo.Insert(ctx, sampleOrder())
	require.NoError(t, err)

	updated, err := repo.AssignCourier(ctx, stored.ID, "c-9", "Lev", models.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, "c-9", updated.CourierID)
	assert.Equal(t, "Lev", updated.CourierName)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Nil(t, updated.DeliveredAt, "accepting does not deliver")
}

func TestOrderRepository_Complete(t *testing.T) {
	repo, _ := newOrderRepo()
	ctx := context.Background()

	stored, err := repo.Insert(ctx, sampleOrder())
	require.NoError(t, err)

	delivered := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	completed, err := repo.Complete(ctx, stored.ID, "c-9", "Lev", delivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, "c-9", completed.CourierID)
	require.NotNil(t, completed.DeliveredAt)
	assert.True(t, completed.DeliveredAt.Equal(delivered))

	_, err = repo.Complete(ctx, "ghost", "c-9", "Lev", delivered)
	assert.ErrorIs(t, err, recordstore.ErrNoRowsAffected)
}

func TestOrderRepository_Delete(t *testing.T) {
	repo, _ := newOrderRepo()
	ctx := context.Background()

	stored, err := repo.Insert(ctx, sampleOrder())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, stored.ID))
	assert.ErrorIs(t, repo.Delete(ctx, stored.ID), ErrNotFound)
}

func TestOrderRepository_RejectsMalformedLineItems(t *testing.T) {
	repo, store := newOrderRepo()
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty payload", raw: ""},
		{name: "not a list", raw: `{"name":"Bread"}`},
		{name: "non-object entry", raw: `[42]`},
		{name: "missing quantity", raw: `[{"name":"Bread"}]`},
		{name: "negative quantity", raw: `[{"name":"Bread","quantity":-1}]`},
		{name: "missing name", raw: `[{"quantity":2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := recordstore.Row{
				"customer_name": "Dana",
				"line_items":    tt.raw,
				"status":        "pending",
				"total_amount":  1.0,
				"created_at":    "2026-01-02T03:04:05Z",
			}
			inserted, err := store.Insert(ctx, recordstore.TableOrders, row)
			require.NoError(t, err)

			_, err = repo.GetByID(ctx, inserted["id"].(string))
			assert.Error(t, err, "malformed payload must fail the whole mapping")
		})
	}
}
