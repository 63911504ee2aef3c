package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/korjavin/tienda/internal/cart"
	"github.com/korjavin/tienda/internal/notify"
)

// ErrEmptyOrder is returned when submitting a ledger with no line items.
var ErrEmptyOrder = errors.New("order has no products")

// Receipt describes an order that the notifier accepted.
type Receipt struct {
	Customer      string          `json:"customer"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	Total         decimal.Decimal `json:"total"`
	TotalText     string          `json:"total_text"`
	TotalQuantity int             `json:"total_quantity"`
	Lines         int             `json:"lines"`
}

// Dispatcher sends finished orders to a fixed destination.
type Dispatcher struct {
	notifier    notify.Notifier
	destination string
}

// NewDispatcher returns a Dispatcher delivering to destination through n.
func NewDispatcher(n notify.Notifier, destination string) *Dispatcher {
	return &Dispatcher{notifier: n, destination: destination}
}

// Submit sends the order payload and clears l once the notifier accepted it.
// On any error l is left exactly as it was so the shopper can retry.
func (d *Dispatcher) Submit(ctx context.Context, l *cart.Ledger, customer string, now time.Time) (Receipt, error) {
	if l.Len() == 0 {
		return Receipt{}, ErrEmptyOrder
	}

	summary := FormatSummary(l)
	if summary.PriceErr != nil {
		slog.WarnContext(ctx, "order contains unreadable prices, counted as zero", "error", summary.PriceErr)
	}
	payload := ToOrderPayload(l, customer, now)

	if err := d.notifier.Send(ctx, payload, d.destination); err != nil {
		return Receipt{}, fmt.Errorf("submit order: %w", err)
	}

	r := Receipt{
		Customer:      customer,
		SubmittedAt:   now,
		Total:         summary.Total,
		TotalText:     summary.TotalText,
		TotalQuantity: summary.TotalQuantity,
		Lines:         l.Len(),
	}
	l.Clear()
	return r, nil
}
