package cartops

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mimercado/marketplace/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// lockProduct reads one product row FOR UPDATE so concurrent cart
// mutations serialize on its stock. sqlite has no row locks; there the
// whole database write lock does the serializing.
func lockProduct(tx *gorm.DB, productID uint) (*models.Product, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p models.Product
	if err := q.Where("id = ?", productID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) Product(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) getOrCreateCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// ViewCart returns the user's cart, creating an empty one on first use.
func (r *GormRepo) ViewCart(ctx context.Context, userID uint) (*models.Cart, []models.CartItem, error) {
	var (
		cart  *models.Cart
		items []models.CartItem
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cart, err = r.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		return tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, items, nil
}

// AddToCart moves qty units from product stock into the user's cart.
// The gate is cumulative: the quantity already in the cart plus the
// requested quantity must not exceed the remaining stock. Both writes
// commit together or not at all.
func (r *GormRepo) AddToCart(ctx context.Context, userID, productID uint, qty uint, reservedUntil time.Time) (*models.CartItem, error) {
	var out models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := lockProduct(tx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !product.Active && product.Stock > 0 {
			return ErrNotFound
		}

		cart, err := r.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		found := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item)
		if found.Error != nil && !errors.Is(found.Error, gorm.ErrRecordNotFound) {
			return found.Error
		}
		if item.Quantity+qty > product.Stock {
			return ErrInsufficientStock
		}

		switch {
		case found.Error == nil:
			item.Quantity += qty
			item.ReservedUntil = reservedUntil
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		default:
			item = models.CartItem{
				CartID:        cart.ID,
				ProductID:     productID,
				Quantity:      qty,
				ReservedUntil: reservedUntil,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		product.Stock -= qty
		if product.Stock == 0 {
			product.Active = false
		}
		if err := tx.Save(product).Error; err != nil {
			return err
		}

		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromCart returns the whole reserved quantity to stock and drops
// the item. Reactivates a product that zero stock had hidden; a seller's
// soft delete stays hidden.
func (r *GormRepo) RemoveFromCart(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	var removed models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := lockProduct(tx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		cart, err := r.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if product.Stock == 0 {
			product.Active = true
		}
		product.Stock += item.Quantity
		if err := tx.Save(product).Error; err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}

		removed = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// UpdateQuantity moves a single unit between product stock and the cart
// item. The cart floor is one unit; RemoveFromCart drops the item.
func (r *GormRepo) UpdateQuantity(ctx context.Context, userID, productID uint, dir Direction, reservedUntil time.Time) (*models.CartItem, error) {
	var out models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := lockProduct(tx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		cart, err := r.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		switch dir {
		case Increase:
			if product.Stock < 1 {
				return ErrInsufficientStock
			}
			product.Stock -= 1
			item.Quantity += 1
			if product.Stock == 0 {
				product.Active = false
			}
		case Decrease:
			if item.Quantity <= 1 {
				return ErrMinimumQuantity
			}
			item.Quantity -= 1
			if product.Stock == 0 {
				product.Active = true
			}
			product.Stock += 1
		default:
			return ErrValidation
		}

		item.ReservedUntil = reservedUntil
		if err := tx.Save(product).Error; err != nil {
			return err
		}
		if err := tx.Save(&item).Error; err != nil {
			return err
		}

		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder snapshots the cart into an order and clears the items.
// Reserved stock was already deducted at add time, so stock is untouched.
func (r *GormRepo) CreateOrder(ctx context.Context, userID uint, order *models.Order, build func(items []models.CartItem, products map[uint]models.Product) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := r.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		products := make(map[uint]models.Product, len(items))
		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			products[it.ProductID] = p
		}

		if err := build(items, products); err != nil {
			return err
		}

		if err := tx.Create(order).Error; err != nil {
			return err
		}
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			p := products[it.ProductID]
			orderItems = append(orderItems, models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Title:     p.Title,
				UnitPrice: p.Price,
				Quantity:  it.Quantity,
			})
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return err
		}

		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
}

// ExpiredItems lists cart items whose reservation TTL has passed.
func (r *GormRepo) ExpiredItems(ctx context.Context, now time.Time) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("reserved_until < ?", now).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ReleaseItem returns one expired reservation to stock. Skips silently
// when the item disappeared between listing and release.
func (r *GormRepo) ReleaseItem(ctx context.Context, itemID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		product, err := lockProduct(tx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Delete(&item).Error
			}
			return err
		}

		if product.Stock == 0 {
			product.Active = true
		}
		product.Stock += item.Quantity
		if err := tx.Save(product).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
}
