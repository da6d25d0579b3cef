// Package receipt renders an order snapshot into a line-itemized bill. The
// on-screen summary and the printable text are both derived from the same
// Receipt value so the two can never disagree.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/checkout"
)

// Item is one printed line: name, quantity as chosen, and the line price.
type Item struct {
	Name     string
	Quantity string
	Price    decimal.Decimal
}

// Receipt is a pure value built from an order snapshot.
type Receipt struct {
	OrderID        string
	StoreName      string
	Customer       checkout.Customer
	Items          []Item
	Subtotal       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
	IssuedAt       time.Time
}

// FromOrder builds a receipt from a submitted order. It performs no I/O and
// reads only the frozen snapshot: totals come from the order, not from a
// recomputation.
func FromOrder(o *checkout.Order, storeName string) Receipt {
	items := make([]Item, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = Item{Name: l.Name, Quantity: l.Display, Price: l.Price}
	}
	return Receipt{
		OrderID:        o.ID,
		StoreName:      storeName,
		Customer:       o.Customer,
		Items:          items,
		Subtotal:       o.Subtotal(),
		DeliveryCharge: o.DeliveryCharge,
		Total:          o.Total,
		IssuedAt:       o.CreatedAt,
	}
}

// Text renders the printable bill.
func (r Receipt) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.StoreName)
	fmt.Fprintf(&b, "Order %s\n", r.OrderID)
	fmt.Fprintf(&b, "%s\n", r.IssuedAt.Format("02 Jan 2006 15:04"))
	if r.Customer.Name != "" {
		fmt.Fprintf(&b, "Customer: %s\n", r.Customer.Name)
	}
	b.WriteString(strings.Repeat("-", 38) + "\n")

	for _, item := range r.Items {
		fmt.Fprintf(&b, "%-20s %8s %8s\n", clip(item.Name, 20), item.Quantity, "PKR "+item.Price.String())
	}

	b.WriteString(strings.Repeat("-", 38) + "\n")
	fmt.Fprintf(&b, "%-29s %8s\n", "Subtotal", "PKR "+r.Subtotal.String())
	if r.DeliveryCharge.IsPositive() {
		fmt.Fprintf(&b, "%-29s %8s\n", "Delivery", "PKR "+r.DeliveryCharge.String())
	}
	fmt.Fprintf(&b, "%-29s %8s\n", "Total", "PKR "+r.Total.String())

	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
