package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/models"
)

var (
	ErrValidation = errors.New("catalog: validation")
	ErrNotFound   = errors.New("catalog: not found")
	ErrForbidden  = errors.New("catalog: not the seller")
)

var Categories = []string{
	"electronica",
	"hogar",
	"ropa",
	"deportes",
	"juguetes",
	"libros",
	"otros",
}

func validCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Invalidator drops derived caches keyed by product when its text
// changes. The recommendation embedding cache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, productID uint) error
}

type Service struct {
	Repo  *GormRepo
	Cache Invalidator
}

type CreateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       uint            `json:"stock"`
	ImagePath   string          `json:"image_path"`
}

type PatchRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Brand       *string          `json:"brand"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *uint            `json:"stock"`
	ImagePath   *string          `json:"image_path"`
	Active      *bool            `json:"active"`
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) ListActive(ctx context.Context, f ListFilter, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListActive(ctx, f, offset, limit)
}

func (s *Service) ListBySeller(ctx context.Context, sellerID uint) ([]models.Product, error) {
	return s.Repo.ListBySeller(ctx, sellerID)
}

func (s *Service) CreateProduct(ctx context.Context, sellerID uint, req CreateRequest) (*models.Product, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("el título es obligatorio: %w", ErrValidation)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("el precio no puede ser negativo: %w", ErrValidation)
	}
	if req.Category != "" && !validCategory(req.Category) {
		return nil, fmt.Errorf("categoría desconocida %q: %w", req.Category, ErrValidation)
	}

	p := &models.Product{
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Brand:       req.Brand,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		ImagePath:   req.ImagePath,
		Active:      req.Stock > 0,
	}
	if p.Brand == "" {
		p.Brand = "Generico"
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) PatchProduct(ctx context.Context, sellerID, id uint, req PatchRequest) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, ErrForbidden
	}

	textChanged := false
	if req.Title != nil && *req.Title != p.Title {
		if *req.Title == "" {
			return nil, fmt.Errorf("el título es obligatorio: %w", ErrValidation)
		}
		p.Title = *req.Title
		textChanged = true
	}
	if req.Description != nil && *req.Description != p.Description {
		p.Description = *req.Description
		textChanged = true
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Category != nil {
		if *req.Category != "" && !validCategory(*req.Category) {
			return nil, fmt.Errorf("categoría desconocida %q: %w", *req.Category, ErrValidation)
		}
		p.Category = *req.Category
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("el precio no puede ser negativo: %w", ErrValidation)
		}
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.ImagePath != nil {
		p.ImagePath = *req.ImagePath
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		return nil, err
	}

	if textChanged && s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, p.ID); err != nil {
			logging.FromContext(ctx).Warn("embedding invalidation failed", "product_id", p.ID, "error", err)
		}
	}
	return p, nil
}

// DeactivateProduct is the soft delete: the listing disappears from the
// public catalog but the seller keeps the record.
func (s *Service) DeactivateProduct(ctx context.Context, sellerID, id uint) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if p.SellerID != sellerID {
		return ErrForbidden
	}
	p.Active = false
	return s.Repo.SaveProduct(ctx, p)
}
