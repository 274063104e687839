// Package money formats and compares VND amounts. Amounts are whole đồng held
// in int64; nothing here converts through floating point.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Symbol is appended to formatted amounts.
const Symbol = "₫"

var printer = message.NewPrinter(language.Vietnamese)

// FormatVND renders amount with Vietnamese digit grouping, e.g. "2.500.000 ₫".
func FormatVND(amount int64) string {
	return printer.Sprintf("%d", amount) + " " + Symbol
}

var hundred = decimal.NewFromInt(100)

// DiscountPercent is the whole-number percentage saved against original,
// rounded half up. It is 0 when there is no original price or the original
// is not above the current price.
func DiscountPercent(current int64, original *int64) int {
	if original == nil || *original <= current || *original <= 0 {
		return 0
	}
	saved := decimal.NewFromInt(*original - current)
	pct := saved.Mul(hundred).Div(decimal.NewFromInt(*original)).Round(0)
	return int(pct.IntPart())
}

// Savings is the amount saved against original, or 0.
func Savings(current int64, original *int64) int64 {
	if original == nil || *original <= current {
		return 0
	}
	return *original - current
}
