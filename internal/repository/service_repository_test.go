package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/testutil"
)

func TestServiceCRUD(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewServiceRepo(db)
	cats := NewCategoryRepo(db)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, "Pat", "pat@example.com", model.RoleProvider)
	stranger := testutil.SeedUser(t, db, "Quinn", "quinn@example.com", model.RoleProvider)

	cat, err := cats.Create(ctx, "Cleaning")
	require.NoError(t, err)
	_, err = cats.Create(ctx, "Cleaning")
	assert.ErrorIs(t, err, ErrConflict)

	s, err := repo.Create(ctx, ServiceInput{ProviderID: owner, CategoryID: &cat.ID, Name: "Window wash", Price: 25, BaseHours: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, s.MaxWorkers, "max workers defaults to 1")
	assert.Equal(t, "Pat", s.ProviderName)
	assert.Equal(t, "Cleaning", s.CategoryName)
	require.NotNil(t, s.CategoryID)

	price := 30.0
	_, err = repo.Update(ctx, s.ID, stranger, ServicePatch{Price: &price})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	updated, err := repo.Update(ctx, s.ID, owner, ServicePatch{Price: &price})
	require.NoError(t, err)
	assert.InDelta(t, 30.0, updated.Price, 0.001)
	assert.Equal(t, "Window wash", updated.Name)

	same, err := repo.Update(ctx, s.ID, owner, ServicePatch{Price: &price})
	require.NoError(t, err, "an unchanged update still resolves the row")
	assert.Equal(t, s.ID, same.ID)

	_, err = repo.Delete(ctx, s.ID, stranger)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	deleted, err := repo.Delete(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, s.ID, deleted.ID)
	_, err = repo.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestServiceListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewServiceRepo(db)
	ctx := context.Background()
	p1 := testutil.SeedUser(t, db, "Pat", "pat@example.com", model.RoleProvider)
	p2 := testutil.SeedUser(t, db, "Quinn", "quinn@example.com", model.RoleProvider)
	testutil.SeedService(t, db, p1, "Garden care", 15, 1, 1)
	testutil.SeedService(t, db, p1, "Deep clean", 50, 4, 3)
	testutil.SeedService(t, db, p2, "Gutter clean", 80, 2, 2)

	minPrice := 20.0
	got, err := repo.List(ctx, ServiceFilter{MinPrice: &minPrice, Name: "CLEAN", Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalItems)

	got, err = repo.List(ctx, ServiceFilter{ProviderID: &p1, Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	require.Len(t, got.Data, 2)
	assert.Equal(t, "Garden care", got.Data[0].Name, "ordered by id")

	admin, err := repo.ListAdmin(ctx, AdminServiceFilter{SortBy: "price", SortOrder: "desc", Page: NewPage(1, 10, 10)})
	require.NoError(t, err)
	require.Len(t, admin.Data, 3)
	assert.Equal(t, "Gutter clean", admin.Data[0].Name)
	assert.Equal(t, "Quinn", admin.Data[0].ProviderName)

	list, err := NewCategoryRepo(db).List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
