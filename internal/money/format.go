package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NotApplicable is how undefined rates, values and quantities are displayed.
const NotApplicable = "N/A"

// Formatter renders amounts for human-facing exports.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter builds a Formatter for the given locale tag, e.g. "en-IN".
func NewFormatter(tag string) Formatter {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.Make("en-IN")
	}
	return Formatter{printer: message.NewPrinter(lang), symbol: "₹"}
}

// Money renders m with the rupee symbol and locale digit grouping.
func (f Formatter) Money(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
	}
	return sign + f.symbol + f.group(m.Decimal().Abs(), MoneyPlaces)
}

// NullMoney renders n, or "N/A" when undefined.
func (f Formatter) NullMoney(n NullMoney) string {
	if !n.Valid {
		return NotApplicable
	}
	return f.Money(n.Money)
}

// Quantity renders q in tons with locale digit grouping.
func (f Formatter) Quantity(q Quantity) string {
	sign := ""
	if q < 0 {
		sign = "-"
	}
	return sign + f.group(q.Decimal().Abs(), QuantityPlaces)
}

// group renders the non-negative d with places decimals, grouping only the
// integer digits so no value passes through a float.
func (f Formatter) group(d decimal.Decimal, places int32) string {
	whole, frac, _ := strings.Cut(d.StringFixed(places), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return d.StringFixed(places)
	}
	out := f.printer.Sprint(number.Decimal(n))
	if frac != "" {
		out += "." + frac
	}
	return out
}

// NullQuantity renders n, or "N/A" when unknown.
func (f Formatter) NullQuantity(n NullQuantity) string {
	if !n.Valid {
		return NotApplicable
	}
	return f.Quantity(n.Quantity)
}
