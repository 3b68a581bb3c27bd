// Package format renders numbers for display using the process locale.
package format

import (
	"math"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// maxFractionDigits matches the default of browser number formatting.
const maxFractionDigits = 3

// Formatter formats numbers with the grouping rules of one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a Formatter for tag.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Default returns a Formatter for the runtime default locale.
func Default() *Formatter {
	return NewFormatter(DefaultLocale())
}

// Locale returns the formatter's locale.
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Number formats v with grouping separators and at most three fraction digits.
func (f *Formatter) Number(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(maxFractionDigits)))
}

// Summary builds the "<value> <label>" text shown for a tab's latest point.
func (f *Formatter) Summary(v float64, label string) string {
	return f.Number(v) + " " + label
}

// DefaultLocale reads the locale from LC_ALL, LC_NUMERIC and LANG, in that
// order. Unset, C and POSIX locales fall back to American English.
func DefaultLocale() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return ParseLocale(v)
		}
	}
	return language.AmericanEnglish
}

// ParseLocale converts a POSIX locale name such as "de_DE.UTF-8" into a
// language tag.
func ParseLocale(s string) language.Tag {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return language.AmericanEnglish
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}
