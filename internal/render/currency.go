// Package render turns selection state into what the available trips page
// shows: card pricing, the summary panel, the running total and the continue
// control.
package render

import (
    "math"

    "golang.org/x/text/language"
    "golang.org/x/text/message"
)

// DefaultLocale and DefaultSymbol match the peso pricing of the booking site.
const (
    DefaultLocale = "en-PH"
    DefaultSymbol = "₱"
)

// Currency formats amounts with two fraction digits using locale grouping.
type Currency struct {
    printer *message.Printer
    symbol  string
}

// NewCurrency builds a formatter for locale.  An unparseable locale falls back
// to English.
func NewCurrency(locale, symbol string) Currency {
    tag, err := language.Parse(locale)
    if err != nil {
        tag = language.English
    }
    if symbol == "" {
        symbol = DefaultSymbol
    }
    return Currency{printer: message.NewPrinter(tag), symbol: symbol}
}

// Format renders v as e.g. "₱1,800.50".  Non-finite values render as zero.
func (c Currency) Format(v float64) string {
    if math.IsNaN(v) || math.IsInf(v, 0) {
        v = 0
    }
    if c.printer == nil {
        c = NewCurrency(DefaultLocale, c.symbol)
    }
    sign := ""
    if v < 0 {
        sign = "-"
        v = -v
    }
    return sign + c.symbol + c.printer.Sprintf("%.2f", v)
}

// Zero is the text shown for an empty total.
func (c Currency) Zero() string { return c.Format(0) }
