// Package cart holds the per-session order being assembled.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/korjavin/tienda/internal/pricing"
)

var (
	// ErrInvalidQuantity is returned by Add when quantity is below one.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrIndexOutOfRange is returned by RemoveAt for a position that does not exist.
	ErrIndexOutOfRange = errors.New("line item index out of range")
)

// LineItem is one "add" action: a product and how many units of it.
type LineItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// UnitPrice parses the raw price. See pricing.Parse for the zero fallback.
func (li LineItem) UnitPrice() (decimal.Decimal, error) {
	return pricing.Parse(li.Price)
}

// Subtotal is UnitPrice times Quantity.
func (li LineItem) Subtotal() (decimal.Decimal, error) {
	unit, err := li.UnitPrice()
	return unit.Mul(decimal.NewFromInt(int64(li.Quantity))), err
}

// Ledger is an ordered list of line items. Adding the same product twice
// gives two lines; quantities are never merged.
//
// A Ledger is not safe for concurrent use.
type Ledger struct {
	items []LineItem
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add appends a line item. The ledger is left untouched on error.
func (l *Ledger) Add(name, price string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("add %q x%d: %w", name, quantity, ErrInvalidQuantity)
	}
	l.items = append(l.items, LineItem{Name: name, Price: price, Quantity: quantity})
	return nil
}

// RemoveAt deletes the item at index, keeping the order of the rest.
func (l *Ledger) RemoveAt(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("remove %d of %d: %w", index, len(l.items), ErrIndexOutOfRange)
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return nil
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.items = nil
}

// Len returns the number of line items.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Items returns a copy of the line items in insertion order.
func (l *Ledger) Items() []LineItem {
	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// TotalQuantity sums the quantities of all items.
func (l *Ledger) TotalQuantity() int {
	total := 0
	for _, li := range l.items {
		total += li.Quantity
	}
	return total
}

// TotalAmount sums unit price times quantity over all items. An item whose
// price cannot be parsed counts as zero; the returned error joins those
// failures and never invalidates the total.
func (l *Ledger) TotalAmount() (decimal.Decimal, error) {
	total := decimal.Zero
	var errs []error
	for i, li := range l.items {
		sub, err := li.Subtotal()
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d (%s): %w", i, li.Name, err))
		}
		total = total.Add(sub)
	}
	return total, errors.Join(errs...)
}
