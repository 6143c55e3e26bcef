package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"not null"                 json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	SellerID    uint            `gorm:"index;not null"              json:"seller_id"`
	Title       string          `gorm:"not null"                    json:"title"`
	Description string          `json:"description"`
	Brand       string          `gorm:"default:Generico"            json:"brand"`
	Category    string          `gorm:"index"                       json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       uint            `gorm:"not null;default:1"          json:"stock"`
	ImagePath   string          `json:"image_path,omitempty"`
	Active      bool            `gorm:"not null;default:true"       json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) IsAvailable() bool {
	return p.Active && p.Stock > 0
}

type Cart struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"        json:"user_id"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// CartItem is the stock reservation record: quantity held for the user
// until checkout or until ReservedUntil passes.
type CartItem struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"                    json:"id"`
	CartID        uint      `gorm:"uniqueIndex:idx_cart_product;not null"       json:"cart_id"`
	ProductID     uint      `gorm:"uniqueIndex:idx_cart_product;index;not null" json:"product_id"`
	Quantity      uint      `gorm:"not null;default:1;check:quantity>0"         json:"quantity"`
	ReservedUntil time.Time `gorm:"index;not null"                              json:"reserved_until"`
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"          json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_fav;not null" json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_user_fav;not null" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductEmbedding caches the vector for one product. Derived data only:
// rows are dropped when the product text changes and rebuilt on demand.
type ProductEmbedding struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"uniqueIndex;not null"     json:"product_id"`
	Model     string    `gorm:"not null"                 json:"model"`
	Vector    string    `gorm:"type:text;not null"       json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID    uint            `gorm:"index;not null"              json:"user_id"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status    string          `gorm:"not null;default:new"        json:"status"`
	Reference uuid.UUID       `gorm:"type:uuid;uniqueIndex"       json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Title     string          `gorm:"not null"                    json:"title"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity  uint            `gorm:"not null"                    json:"quantity"`
}
