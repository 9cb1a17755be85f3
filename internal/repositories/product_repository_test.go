package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omni-crm/talpan-bot-sub000/internal/recordstore"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

func newProductRepo() *ProductRepository {
	return NewProductRepository(recordstore.NewMemoryStore(), logger.NewNop())
}

func TestProductRepository_AddAndGet(t *testing.T) {
	repo := newProductRepo()
	ctx := context.Background()

	stored, err := repo.Add(ctx, &models.Product{Name: "Bread", Stock: 50, UnitPrice: 8.5})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	byID, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bread", byID.Name)
	assert.Equal(t, 50, byID.Stock)
	assert.InDelta(t, 8.5, byID.UnitPrice, 1e-9)

	byName, err := repo.GetByName(ctx, "Bread")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, byName.ID)
}

func TestProductRepository_GetAll(t *testing.T) {
	repo := newProductRepo()
	ctx := context.Background()

	_, err := repo.Add(ctx, &models.Product{Name: "Bread", Stock: 50, UnitPrice: 8.5})
	require.NoError(t, err)
	_, err = repo.Add(ctx, &models.Product{Name: "Milk", Stock: 30, UnitPrice: 6.0})
	require.NoError(t, err)

	products, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestProductRepository_NotFound(t *testing.T) {
	repo := newProductRepo()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByName(ctx, "Caviar")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, "")
	assert.Error(t, err)

	_, err = repo.GetByName(ctx, "")
	assert.Error(t, err)
}

func TestProductRepository_AddRejectsInvalid(t *testing.T) {
	repo := newProductRepo()
	ctx := context.Background()

	_, err := repo.Add(ctx, &models.Product{Name: "", Stock: 1})
	assert.Error(t, err)

	_, err = repo.Add(ctx, &models.Product{Name: "Bread", Stock: -1})
	assert.Error(t, err)

	_, err = repo.Add(ctx, &models.Product{Name: "Bread", Stock: 1, UnitPrice: -0.5})
	assert.Error(t, err)
}

func TestProductRepository_SetStock(t *testing.T) {
	repo := newProductRepo()
	ctx := context.Background()

	stored, err := repo.Add(ctx, &models.Product{Name: "Bread", Stock: 50, UnitPrice: 8.5})
	require.NoError(t, err)

	updated, err := repo.SetStock(ctx, stored.ID, 48)
	require.NoError(t, err)
	assert.Equal(t, 48, updated.Stock)

	updated, err = repo.SetStock(ctx, stored.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock, "zero is a legal stock value")

	_, err = repo.SetStock(ctx, stored.ID, -1)
	assert.Error(t, err, "negative stock never reaches the store")

	_, err = repo.SetStock(ctx, "ghost", 10)
	assert.ErrorIs(t, err, recordstore.ErrNoRowsAffected)
}
