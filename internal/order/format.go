// Package order turns a cart ledger into texts for the shopper and for the
// shop, and hands finished orders to a notifier.
package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/korjavin/tienda/internal/cart"
	"github.com/korjavin/tienda/internal/pricing"
)

const emptyCartText = "No hay productos en el carrito."

// Line is one rendered line item.
type Line struct {
	cart.LineItem
	Text     string          `json:"text"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Summary is the shopper-facing view of a ledger.
type Summary struct {
	DisplayText   string          `json:"display_text"`
	Lines         []Line          `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	TotalText     string          `json:"total_text"`
	TotalQuantity int             `json:"total_quantity"`
	// PriceErr lists prices that were counted as zero, nil when all parsed.
	PriceErr error `json:"-"`
}

// FormatSummary renders every line as "2 x Pan Lactal ($1500 c/u)", followed
// by the grand total and the number of units.
func FormatSummary(l *cart.Ledger) Summary {
	items := l.Items()
	total, priceErr := l.TotalAmount()

	s := Summary{
		Lines:         make([]Line, 0, len(items)),
		Total:         total,
		TotalText:     pricing.FormatAmount(total),
		TotalQuantity: l.TotalQuantity(),
		PriceErr:      priceErr,
	}
	if len(items) == 0 {
		s.DisplayText = emptyCartText
		return s
	}

	var b strings.Builder
	for _, li := range items {
		sub, _ := li.Subtotal()
		line := Line{
			LineItem: li,
			Text:     fmt.Sprintf("%d x %s ($%s c/u)", li.Quantity, li.Name, li.Price),
			Subtotal: sub,
		}
		s.Lines = append(s.Lines, line)
		b.WriteString(line.Text)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "TOTAL: $%s\n", s.TotalText)
	fmt.Fprintf(&b, "Cantidad total de productos llevados: %d", s.TotalQuantity)
	s.DisplayText = b.String()
	return s
}
