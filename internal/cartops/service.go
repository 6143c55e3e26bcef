package cartops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/models"
	"github.com/mimercado/marketplace/internal/payments"
)

const conflictRetries = 3

// PaymentClient is the outward checkout collaborator: line items in,
// redirect URL out.
type PaymentClient interface {
	CreatePreference(ctx context.Context, ref uuid.UUID, items []payments.LineItem, urls payments.CallbackURLs) (string, error)
}

type CartService struct {
	Repo           *GormRepo
	Payments       PaymentClient
	ReservationTTL time.Duration
}

func (s *CartService) ttl() time.Duration {
	if s.ReservationTTL <= 0 {
		return 24 * time.Hour
	}
	return s.ReservationTTL
}

func (s *CartService) reservedUntil() time.Time {
	return time.Now().UTC().Add(s.ttl())
}

// retryable reports whether the error looks like a lost race on the
// product row rather than a business failure.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy")
}

// withConflictRetry reruns op on serialization failures. After the
// retry budget the caller sees insufficient stock, the only honest
// answer once another buyer won the row.
func withConflictRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = op()
		if !retryable(err) {
			return err
		}
		logging.FromContext(ctx).Warn("cart transaction conflict, retrying", "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("%w: %v", ErrInsufficientStock, err)
}

func (s *CartService) ViewCart(ctx context.Context, userID uint) (*models.Cart, []models.CartItem, error) {
	return s.Repo.ViewCart(ctx, userID)
}

func (s *CartService) AddToCart(ctx context.Context, userID, productID, qty uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("product_id requerido: %w", ErrValidation)
	}
	if qty < 1 {
		return nil, fmt.Errorf("la cantidad debe ser al menos 1: %w", ErrValidation)
	}

	var item *models.CartItem
	err := withConflictRetry(ctx, func() error {
		var opErr error
		item, opErr = s.Repo.AddToCart(ctx, userID, productID, qty, s.reservedUntil())
		return opErr
	})
	return item, err
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("product_id requerido: %w", ErrValidation)
	}

	var item *models.CartItem
	err := withConflictRetry(ctx, func() error {
		var opErr error
		item, opErr = s.Repo.RemoveFromCart(ctx, userID, productID)
		return opErr
	})
	return item, err
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID uint, dir Direction) (*models.CartItem, error) {
	if dir != Increase && dir != Decrease {
		return nil, fmt.Errorf("direction debe ser increase o decrease: %w", ErrValidation)
	}

	var item *models.CartItem
	err := withConflictRetry(ctx, func() error {
		var opErr error
		item, opErr = s.Repo.UpdateQuantity(ctx, userID, productID, dir, s.reservedUntil())
		return opErr
	})
	return item, err
}

type CheckoutResult struct {
	Order   *models.Order
	Items   []payments.LineItem
	InitURL string
}

// Checkout prices the cart, asks the payment collaborator for a
// redirect URL and snapshots the order. Stock was reserved at add time,
// so nothing moves here. The preference call runs inside the order
// transaction: a provider failure rolls the whole checkout back and
// the cart survives untouched.
func (s *CartService) Checkout(ctx context.Context, userID uint, urls payments.CallbackURLs) (*CheckoutResult, error) {
	order := &models.Order{
		UserID:    userID,
		Status:    "new",
		Reference: uuid.New(),
	}

	var (
		lines   []payments.LineItem
		initURL string
	)
	err := s.Repo.CreateOrder(ctx, userID, order, func(items []models.CartItem, products map[uint]models.Product) error {
		total := decimal.Zero
		lines = make([]payments.LineItem, 0, len(items))
		for _, it := range items {
			p := products[it.ProductID]
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			lines = append(lines, payments.LineItem{
				Title:     p.Title,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
				Currency:  payments.DefaultCurrency,
			})
		}
		order.Total = total

		url, err := s.Payments.CreatePreference(ctx, order.Reference, lines, urls)
		if err != nil {
			logging.FromContext(ctx).Error("payment preference failed", "reference", order.Reference, "error", err)
			return fmt.Errorf("iniciar pago: %w", payments.ErrUnavailable)
		}
		initURL = url
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{Order: order, Items: lines, InitURL: initURL}, nil
}

// Total prices a set of cart items against their products.
func Total(items []models.CartItem, products map[uint]models.Product) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if p, ok := products[it.ProductID]; ok {
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return total
}
