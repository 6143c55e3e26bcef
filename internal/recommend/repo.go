package recommend

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) GetEmbedding(ctx context.Context, productID uint) (*models.ProductEmbedding, error) {
	var e models.ProductEmbedding
	err := r.DB.WithContext(ctx).Where("product_id = ?", productID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *GormRepo) SaveEmbedding(ctx context.Context, productID uint, model, vector string) error {
	e := models.ProductEmbedding{
		ProductID: productID,
		Model:     model,
		Vector:    vector,
		UpdatedAt: time.Now().UTC(),
	}
	var existing models.ProductEmbedding
	err := r.DB.WithContext(ctx).Where("product_id = ?", productID).First(&existing).Error
	switch {
	case err == nil:
		existing.Model = model
		existing.Vector = vector
		existing.UpdatedAt = e.UpdatedAt
		return r.DB.WithContext(ctx).Save(&existing).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.DB.WithContext(ctx).Create(&e).Error
	default:
		return err
	}
}

// DeleteEmbedding drops the cached vector, typically because the
// product text changed and the cache went stale.
func (r *GormRepo) DeleteEmbedding(ctx context.Context, productID uint) error {
	return r.DB.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.ProductEmbedding{}).Error
}

// Candidates returns every active product except the target, in
// creation order so equal scores rank deterministically downstream.
func (r *GormRepo) Candidates(ctx context.Context, excludeID uint) ([]models.Product, error) {
	var products []models.Product
	err := r.DB.WithContext(ctx).
		Where("active = ? AND id <> ?", true, excludeID).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// EmbeddingsByProduct loads cached vectors for a set of products.
func (r *GormRepo) EmbeddingsByProduct(ctx context.Context, productIDs []uint) (map[uint]string, error) {
	if len(productIDs) == 0 {
		return map[uint]string{}, nil
	}
	var rows []models.ProductEmbedding
	if err := r.DB.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]string, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Vector
	}
	return out, nil
}
