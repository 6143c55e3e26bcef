package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ProductEmbedding{}))
	return db
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func (f *fakeEmbedder) EmbeddingModel() string { return "fake-embed-001" }

func seedProduct(t *testing.T, db *gorm.DB, title string, active bool) *models.Product {
	t.Helper()
	p := &models.Product{
		SellerID: 1,
		Title:    title,
		Price:    decimal.NewFromInt(10),
		Stock:    3,
		Active:   active,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedVector(t *testing.T, db *gorm.DB, productID uint, vec []float32) {
	t.Helper()
	raw, err := EncodeVector(vec)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.ProductEmbedding{
		ProductID: productID,
		Model:     "fake-embed-001",
		Vector:    raw,
	}).Error)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// symmetry
	a := []float32{0.3, 0.7, 0.1}
	b := []float32{0.5, 0.2, 0.9}
	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-9)

	// zero vectors and length mismatches score zero instead of NaN
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{0, 0}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestVectorRoundTrip(t *testing.T) {
	raw, err := EncodeVector([]float32{0.5, -1.25, 3})
	require.NoError(t, err)
	vec, err := DecodeVector(raw)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1.25, 3}, vec)

	_, err = DecodeVector("not json")
	require.Error(t, err)
}

func TestSimilarRanksByScoreThenID(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{Repo: &GormRepo{DB: db}, AI: &fakeEmbedder{}}
	ctx := context.Background()

	target := seedProduct(t, db, "target", true)
	a := seedProduct(t, db, "a", true)
	b := seedProduct(t, db, "b", true)
	c := seedProduct(t, db, "c", true)

	seedVector(t, db, target.ID, []float32{1, 0})
	seedVector(t, db, a.ID, []float32{1, 0})
	seedVector(t, db, b.ID, []float32{0, 1})
	seedVector(t, db, c.ID, []float32{0, 0})

	got, err := svc.Similar(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// a scores 1.0; b and c both score 0 and tie-break by id
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)
	assert.Equal(t, c.ID, got[2].ID)
}

func TestSimilarExcludesTargetAndInactive(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{Repo: &GormRepo{DB: db}, AI: &fakeEmbedder{}}
	ctx := context.Background()

	target := seedProduct(t, db, "target", true)
	twin := seedProduct(t, db, "twin", true)
	hidden := seedProduct(t, db, "hidden", false)

	seedVector(t, db, target.ID, []float32{1, 0})
	seedVector(t, db, twin.ID, []float32{1, 0})
	seedVector(t, db, hidden.ID, []float32{1, 0})

	got, err := svc.Similar(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, twin.ID, got[0].ID)
}

func TestSimilarCapsAtTopK(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{Repo: &GormRepo{DB: db}, AI: &fakeEmbedder{}}
	ctx := context.Background()

	target := seedProduct(t, db, "target", true)
	seedVector(t, db, target.ID, []float32{1, 0})
	for i := 0; i < TopK+3; i++ {
		p := seedProduct(t, db, fmt.Sprintf("cand-%d", i), true)
		seedVector(t, db, p.ID, []float32{1, 0})
	}

	got, err := svc.Similar(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, got, TopK)
}

func TestSimilarEmbedsAndCachesTargetOnMiss(t *testing.T) {
	db := newTestDB(t)
	ai := &fakeEmbedder{vectors: map[string][]float32{}}
	svc := &Service{Repo: &GormRepo{DB: db}, AI: ai}
	ctx := context.Background()

	target := seedProduct(t, db, "fresh product", true)
	target.Description = "brand new"
	require.NoError(t, db.Save(target).Error)
	ai.vectors[EmbeddingText(target)] = []float32{1, 0}

	other := seedProduct(t, db, "other", true)
	seedVector(t, db, other.ID, []float32{1, 0})

	got, err := svc.Similar(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, ai.calls)

	// the miss is now cached
	var stored models.ProductEmbedding
	require.NoError(t, db.Where("product_id = ?", target.ID).First(&stored).Error)
	assert.Equal(t, "fake-embed-001", stored.Model)

	_, err = svc.Similar(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ai.calls, "second call hits the cache")
}

func TestSimilarDegradesToEmptyWhenEmbedderDown(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{Repo: &GormRepo{DB: db}, AI: &fakeEmbedder{err: errors.New("quota exceeded")}}
	ctx := context.Background()

	target := seedProduct(t, db, "target", true)
	other := seedProduct(t, db, "other", true)
	seedVector(t, db, other.ID, []float32{1, 0})

	got, err := svc.Similar(ctx, target.ID)
	require.NoError(t, err, "embedding outage must not surface as an error")
	assert.Empty(t, got)
}

func TestSimilarUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{Repo: &GormRepo{DB: db}, AI: &fakeEmbedder{}}

	_, err := svc.Similar(context.Background(), 12345)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSimilarBackfillPolicy(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, backfill bool) (*Service, *fakeEmbedder, *models.Product, *models.Product) {
		db := newTestDB(t)
		ai := &fakeEmbedder{vectors: map[string][]float32{}}
		svc := &Service{Repo: &GormRepo{DB: db}, AI: ai, Backfill: backfill}

		target := seedProduct(t, db, "target", true)
		seedVector(t, db, target.ID, []float32{1, 0})
		missing := seedProduct(t, db, "no vector yet", true)
		ai.vectors[EmbeddingText(missing)] = []float32{1, 0}
		return svc, ai, target, missing
	}

	t.Run("off skips unembedded candidates", func(t *testing.T) {
		svc, ai, target, _ := setup(t, false)
		got, err := svc.Similar(ctx, target.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, ai.calls)
	})

	t.Run("on embeds and ranks them", func(t *testing.T) {
		svc, ai, target, missing := setup(t, true)
		got, err := svc.Similar(ctx, target.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, missing.ID, got[0].ID)
		assert.Equal(t, 1, ai.calls)
	})
}

func TestInvalidateDropsCachedVector(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{Repo: &GormRepo{DB: db}, AI: &fakeEmbedder{}}
	ctx := context.Background()

	p := seedProduct(t, db, "target", true)
	seedVector(t, db, p.ID, []float32{1, 0})

	require.NoError(t, svc.Invalidate(ctx, p.ID))

	cached, err := svc.Repo.GetEmbedding(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
