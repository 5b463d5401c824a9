// Package money formats monetary amounts for display. The locale and
// currency are configuration; the defaults are th-TH / THB.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders decimal amounts as localized 2-decimal currency strings.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter builds a Formatter for the given BCP 47 locale tag and ISO
// 4217 currency code, e.g. ("th-TH", "THB").
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", locale)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, errors.Wrapf(err, "parse currency %q", code)
	}
	return &Formatter{
		unit:    unit,
		printer: message.NewPrinter(tag),
	}, nil
}

// Format renders the amount with the currency symbol and exactly two
// fraction digits.
func (f *Formatter) Format(amount decimal.Decimal) string {
	v, _ := amount.Round(2).Float64()
	return f.printer.Sprintf("%v%v",
		currency.Symbol(f.unit),
		number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)),
	)
}

// FormatDiscount renders a discount for display: flat discounts as a
// currency amount, percentage discounts as "N%", none as an empty string.
func (f *Formatter) FormatDiscount(discountType string, value decimal.Decimal) string {
	switch discountType {
	case "flat":
		return f.Format(value)
	case "percentage":
		return value.String() + "%"
	default:
		return ""
	}
}
