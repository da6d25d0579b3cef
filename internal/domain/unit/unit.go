// Package unit defines the measurement model for the product catalog:
// the supported unit kinds, customer quantity selections, and the single
// canonical conversion and display rules shared by every pricing call site.
package unit

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Kind enumerates how a product is measured and priced.
type Kind string

const (
	// Weight is priced per kilogram; quantities may be fractional.
	Weight Kind = "kg"
	// Volume is priced per liter; quantities may be fractional.
	Volume Kind = "liter"
	// Count is priced per piece.
	Count Kind = "piece"
	// Dozen is priced per dozen. Base quantities are counts of dozens,
	// not pieces.
	Dozen Kind = "dozen"
)

// Valid reports whether k is one of the supported unit kinds.
func (k Kind) Valid() bool {
	switch k {
	case Weight, Volume, Count, Dozen:
		return true
	}
	return false
}

// Fractional reports whether base quantities of this kind may carry a
// fractional part.
func (k Kind) Fractional() bool {
	return k == Weight || k == Volume
}

// InvalidSelectionError indicates a quantity selection that resolves to a
// zero or negative base quantity, or does not match the product's unit kind.
type InvalidSelectionError struct {
	Kind   Kind
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid %s selection: %s", e.Kind, e.Reason)
}

var thousand = decimal.NewFromInt(1000)

// Selection is a customer's raw quantity input for a single product, before
// conversion to base units. Construct values with the Grams, Milliliters,
// Pieces and Dozens helpers, or the mixed-entry KilogramsGrams and
// LitersMilliliters helpers.
type Selection struct {
	kind Kind
	base decimal.Decimal
}

// Kind returns the unit kind this selection was phrased in.
func (s Selection) Kind() Kind { return s.kind }

// KilogramsGrams builds a weight selection from a mixed kilograms + grams
// entry. Either part may be zero; "1kg + 250g" and "1250g" resolve equal.
func KilogramsGrams(kilograms, grams int64) Selection {
	return Grams(kilograms*1000 + grams)
}

// Grams builds a weight selection from a raw total in grams.
func Grams(grams int64) Selection {
	return Selection{kind: Weight, base: decimal.NewFromInt(grams).Div(thousand)}
}

// LitersMilliliters builds a volume selection from a mixed liters +
// milliliters entry.
func LitersMilliliters(liters, milliliters int64) Selection {
	return Milliliters(liters*1000 + milliliters)
}

// Milliliters builds a volume selection from a raw total in milliliters.
func Milliliters(milliliters int64) Selection {
	return Selection{kind: Volume, base: decimal.NewFromInt(milliliters).Div(thousand)}
}

// Pieces builds a count selection.
func Pieces(n int64) Selection {
	return Selection{kind: Count, base: decimal.NewFromInt(n)}
}

// Dozens builds a dozen selection. The base quantity is n dozens, matching
// how dozen-priced products store their base price.
func Dozens(n int64) Selection {
	return Selection{kind: Dozen, base: decimal.NewFromInt(n)}
}

// Quantity is a selection resolved into a product's base unit: a single
// exact decimal amount plus the kind it is measured in.
type Quantity struct {
	Kind Kind
	Base decimal.Decimal
}

// Resolve converts a selection into a base quantity for a product measured
// in kind. It fails with *InvalidSelectionError when the selection was
// phrased in a different kind or resolves to a non-positive amount.
func Resolve(kind Kind, sel Selection) (Quantity, error) {
	if !kind.Valid() {
		return Quantity{}, &InvalidSelectionError{Kind: kind, Reason: "unknown unit kind"}
	}
	if sel.kind != kind {
		return Quantity{}, &InvalidSelectionError{
			Kind:   kind,
			Reason: fmt.Sprintf("selection phrased in %s", sel.kind),
		}
	}
	if !sel.base.IsPositive() {
		return Quantity{}, &InvalidSelectionError{Kind: kind, Reason: "quantity must be greater than zero"}
	}
	return Quantity{Kind: kind, Base: sel.base}, nil
}

// Add returns a quantity with the other amount accumulated. Both quantities
// must share a kind; callers merge lines per product so this holds by
// construction.
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{Kind: q.Kind, Base: q.Base.Add(other.Base)}
}

// Display renders the canonical human-readable string for q.
//
// Weight below one kilogram shows integer grams ("750g"); whole kilograms
// show without decimals ("2kg"); anything else shows two decimals
// ("1.25kg"). Volume follows the same shape with "ml"/"L". Counts and
// dozens pluralize: "1 Piece", "3 Pieces", "2 Dozens".
func (q Quantity) Display() string {
	switch q.Kind {
	case Weight:
		return displayMetric(q.Base, "g", "kg")
	case Volume:
		return displayMetric(q.Base, "ml", "L")
	case Count:
		return displayCounted(q.Base, "Piece")
	case Dozen:
		return displayCounted(q.Base, "Dozen")
	}
	return q.Base.String()
}

func displayMetric(base decimal.Decimal, subSuffix, suffix string) string {
	if base.LessThan(decimal.NewFromInt(1)) {
		return base.Mul(thousand).Round(0).String() + subSuffix
	}
	if base.IsInteger() {
		return base.String() + suffix
	}
	return base.StringFixed(2) + suffix
}

func displayCounted(base decimal.Decimal, noun string) string {
	n := base.IntPart()
	s := strconv.FormatInt(n, 10) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}
