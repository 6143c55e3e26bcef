package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

type ListFilter struct {
	Query    string
	Category string
	Brand    string
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive pages through the public catalog, newest first.
func (r *GormRepo) ListActive(ctx context.Context, f ListFilter, offset, limit int) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{}).Where("active = ?", true)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Brand != "" {
		q = q.Where("brand = ?", f.Brand)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		// sqlite has no ILIKE; its LIKE is already case-insensitive.
		op := "LIKE"
		if r.DB.Dialector.Name() == "postgres" {
			op = "ILIKE"
		}
		q = q.Where("title "+op+" ? OR description "+op+" ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// ListBySeller includes inactive rows: sellers see their hidden products.
func (r *GormRepo) ListBySeller(ctx context.Context, sellerID uint) ([]models.Product, error) {
	var items []models.Product
	err := r.DB.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Save(p).Error
}
