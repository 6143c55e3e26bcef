package catalog

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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))
	return &Service{Repo: &GormRepo{DB: db}}, db
}

type recordingCache struct {
	invalidated []uint
}

func (c *recordingCache) Invalidate(ctx context.Context, productID uint) error {
	c.invalidated = append(c.invalidated, productID)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateProductDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, 7, CreateRequest{
		Title: "Mate imperial",
		Price: decimal.RequireFromString("1500.00"),
		Stock: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.SellerID)
	assert.Equal(t, "Generico", p.Brand, "empty brand falls back to the default")
	assert.True(t, p.Active, "stock > 0 publishes the listing")

	hidden, err := svc.CreateProduct(ctx, 7, CreateRequest{
		Title: "Sin stock",
		Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.False(t, hidden.Active, "zero stock starts hidden")
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, 1, CreateRequest{Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, 1, CreateRequest{Title: "x", Price: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, 1, CreateRequest{Title: "x", Category: "naves espaciales"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, 1, CreateRequest{Title: "x", Category: "hogar"})
	require.NoError(t, err)
}

func TestPatchProductOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, 1, CreateRequest{Title: "mío", Price: decimal.NewFromInt(5), Stock: 1})
	require.NoError(t, err)

	_, err = svc.PatchProduct(ctx, 2, p.ID, PatchRequest{Title: strPtr("ajeno")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.PatchProduct(ctx, 1, p.ID+50, PatchRequest{})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.PatchProduct(ctx, 1, p.ID, PatchRequest{Title: strPtr("renombrado")})
	require.NoError(t, err)
	assert.Equal(t, "renombrado", got.Title)
}

func TestPatchProductInvalidatesEmbeddingOnTextChange(t *testing.T) {
	svc, _ := newTestService(t)
	cache := &recordingCache{}
	svc.Cache = cache
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, 1, CreateRequest{Title: "original", Price: decimal.NewFromInt(5), Stock: 1})
	require.NoError(t, err)

	// price-only patches leave the cached embedding alone
	price := decimal.NewFromInt(9)
	_, err = svc.PatchProduct(ctx, 1, p.ID, PatchRequest{Price: &price})
	require.NoError(t, err)
	assert.Empty(t, cache.invalidated)

	// same text again is not a change
	_, err = svc.PatchProduct(ctx, 1, p.ID, PatchRequest{Title: strPtr("original")})
	require.NoError(t, err)
	assert.Empty(t, cache.invalidated)

	_, err = svc.PatchProduct(ctx, 1, p.ID, PatchRequest{Description: strPtr("ahora con descripción")})
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, cache.invalidated)
}

func TestDeactivateProduct(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, 1, CreateRequest{Title: "visible", Price: decimal.NewFromInt(5), Stock: 2})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeactivateProduct(ctx, 2, p.ID), ErrForbidden)
	require.NoError(t, svc.DeactivateProduct(ctx, 1, p.ID))

	total, items, err := svc.ListActive(ctx, ListFilter{}, 0, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	// the seller still sees the hidden row
	mine, err := svc.ListBySeller(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.False(t, mine[0].Active)

	var stored models.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.False(t, stored.Active)
}

func TestListActiveFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mk := func(title, category, brand string) {
		_, err := svc.CreateProduct(ctx, 1, CreateRequest{
			Title:    title,
			Category: category,
			Brand:    brand,
			Price:    decimal.NewFromInt(10),
			Stock:    1,
		})
		require.NoError(t, err)
	}
	mk("Pelota de fútbol", "deportes", "Adidas")
	mk("Zapatillas running", "deportes", "Nike")
	mk("Lámpara de pie", "hogar", "")

	total, items, err := svc.ListActive(ctx, ListFilter{Category: "deportes"}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	total, items, err = svc.ListActive(ctx, ListFilter{Brand: "Nike"}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Zapatillas running", items[0].Title)

	total, _, err = svc.ListActive(ctx, ListFilter{Query: "pelota"}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	// pagination window
	total, items, err = svc.ListActive(ctx, ListFilter{}, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 2)
	_, rest, err := svc.ListActive(ctx, ListFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
