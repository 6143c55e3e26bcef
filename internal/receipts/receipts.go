package receipts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mimercado/marketplace/internal/models"
)

// Receipt is the cart summary document. It is informational only: not
// an invoice, not a proof of purchase.
type Receipt struct {
	Store       string        `json:"store"`
	Username    string        `json:"username"`
	Email       string        `json:"email,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Lines       []ReceiptLine `json:"lines"`
	Total       string        `json:"total"`
	Note        string        `json:"note"`
}

type ReceiptLine struct {
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  uint   `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

const note = "Este es un resumen informativo de tu carrito. " +
	"No constituye una factura ni un comprobante de compra."

// Build prices each cart line and totals the document.
func Build(user *models.User, items []models.CartItem, products map[uint]models.Product) Receipt {
	lines := make([]ReceiptLine, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(subtotal)
		lines = append(lines, ReceiptLine{
			Title:     p.Title,
			UnitPrice: p.Price.StringFixed(2),
			Quantity:  it.Quantity,
			Subtotal:  subtotal.StringFixed(2),
		})
	}

	return Receipt{
		Store:       "Mi Mercado",
		Username:    user.Username,
		Email:       user.Email,
		GeneratedAt: time.Now().UTC(),
		Lines:       lines,
		Total:       total.StringFixed(2),
		Note:        note,
	}
}
