package favorites

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/models"
)

var ErrNotFound = errors.New("favorites: product not found")

type GormRepo struct {
	DB *gorm.DB
}

// Toggle adds the product to the user's wishlist, or removes it when
// already present. Returns true when the product ends up favorited.
func (r *GormRepo) Toggle(ctx context.Context, userID, productID uint) (bool, error) {
	favorited := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var fav models.Favorite
		err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&fav).Error
		switch {
		case err == nil:
			return tx.Delete(&fav).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			favorited = true
			return tx.Create(&models.Favorite{UserID: userID, ProductID: productID}).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return favorited, nil
}

// Wishlist returns the user's favorited products in the order they
// were added.
func (r *GormRepo) Wishlist(ctx context.Context, userID uint) ([]models.Product, error) {
	var favs []models.Favorite
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&favs).Error; err != nil {
		return nil, err
	}
	if len(favs) == 0 {
		return []models.Product{}, nil
	}

	ids := make([]uint, len(favs))
	for i, f := range favs {
		ids[i] = f.ProductID
	}
	var products []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(favs))
	for _, f := range favs {
		if p, ok := byID[f.ProductID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
