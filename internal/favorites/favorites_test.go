package favorites

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/models"
)

func newTestRepo(t *testing.T) (*GormRepo, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Favorite{}))
	return &GormRepo{DB: db}, db
}

func seedProduct(t *testing.T, db *gorm.DB, title string) *models.Product {
	t.Helper()
	p := &models.Product{SellerID: 1, Title: title, Price: decimal.NewFromInt(10), Stock: 1, Active: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestToggleFlipsMembership(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	p := seedProduct(t, db, "taza")

	on, err := repo.Toggle(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.True(t, on)

	// toggling twice never duplicates the row
	off, err := repo.Toggle(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.False(t, off)

	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	_, err = repo.Toggle(ctx, 1, p.ID+100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTogglePerUser(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	p := seedProduct(t, db, "taza")

	_, err := repo.Toggle(ctx, 1, p.ID)
	require.NoError(t, err)
	on, err := repo.Toggle(ctx, 2, p.ID)
	require.NoError(t, err)
	assert.True(t, on, "wishlists are independent per user")

	list, err := repo.Wishlist(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWishlistPreservesInsertionOrder(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	first := seedProduct(t, db, "primero")
	second := seedProduct(t, db, "segundo")
	third := seedProduct(t, db, "tercero")

	for _, p := range []*models.Product{third, first, second} {
		_, err := repo.Toggle(ctx, 1, p.ID)
		require.NoError(t, err)
	}

	list, err := repo.Wishlist(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, third.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, second.ID, list[2].ID)
}

func TestWishlistEmpty(t *testing.T) {
	repo, _ := newTestRepo(t)

	list, err := repo.Wishlist(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
