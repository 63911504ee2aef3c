package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/korjavin/tienda/internal/cart"
	"github.com/korjavin/tienda/internal/pricing"
)

const (
	unknownCustomer = "Cliente Desconocido"
	timestampLayout = "2006-01-02 15:04:05"
)

// ToOrderPayload composes the message announcing a new order to the shop.
// It only builds text; sending it is the notifier's job.
func ToOrderPayload(l *cart.Ledger, customerName string, ts time.Time) string {
	customer := strings.TrimSpace(customerName)
	if customer == "" {
		customer = unknownCustomer
	}

	var b strings.Builder
	b.WriteString("🛍️ *¡NUEVO PEDIDO RECIBIDO!* 🛍️\n\n")
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n", customer)
	fmt.Fprintf(&b, "📅 *Fecha y Hora:* %s\n\n", ts.Format(timestampLayout))
	b.WriteString("*Productos:*\n")

	items := l.Items()
	if len(items) == 0 {
		b.WriteString("  _No hay productos en este pedido._\n")
	}
	for _, li := range items {
		unit, _ := li.UnitPrice()
		sub, _ := li.Subtotal()
		fmt.Fprintf(&b, "- %d x %s (%s c/u) = *%s*\n",
			li.Quantity, li.Name, pricing.FormatPrice(unit), pricing.FormatPrice(sub))
	}

	total, _ := l.TotalAmount()
	fmt.Fprintf(&b, "\n*Total del Pedido:* %s\n", pricing.FormatPrice(total))
	fmt.Fprintf(&b, "*Cantidad Total de Productos:* %d\n\n", l.TotalQuantity())
	b.WriteString("¡Revisa tu tienda!")
	return b.String()
}
