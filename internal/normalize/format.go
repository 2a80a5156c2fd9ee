package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultDateLayout = "02 Jan 2006"

// Formatter renders currency and date labels embedded in normalized output.
type Formatter interface {
	Currency(amount decimal.Decimal) string
	Date(t time.Time) string
}

type localeFormatter struct {
	group   string
	decimal string
	symbol  string
	layout  string
}

// NewFormatter builds a Formatter for the BCP 47 locale. Unknown locales fall
// back to English grouping; an empty layout uses "02 Jan 2006".
func NewFormatter(locale, symbol, dateLayout string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	if dateLayout == "" {
		dateLayout = defaultDateLayout
	}
	group, point := separators(message.NewPrinter(tag))
	return localeFormatter{
		group:   group,
		decimal: point,
		symbol:  strings.TrimSpace(symbol),
		layout:  dateLayout,
	}
}

func (f localeFormatter) Currency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	formatted := f.group3(rounded.StringFixed(2))
	if f.symbol == "" {
		return sign + formatted
	}
	return sign + f.symbol + " " + formatted
}

// group3 inserts the locale separators into a plain "1234567.89" string.
func (f localeFormatter) group3(fixed string) string {
	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(f.group)
		}
		b.WriteRune(r)
	}
	b.WriteString(f.decimal)
	b.WriteString(frac)
	return b.String()
}

// separators reads the grouping and decimal marks the printer uses for the
// locale by formatting a known sample.
func separators(p *message.Printer) (group, point string) {
	sample := p.Sprintf("%.2f", 1234.5)
	i := strings.IndexRune(sample, '1')
	j := strings.IndexRune(sample, '2')
	k := strings.IndexRune(sample, '4')
	l := strings.IndexRune(sample, '5')
	if i < 0 || j < i || k < 0 || l < k {
		return ",", "."
	}
	return sample[i+1 : j], sample[k+1 : l]
}

func (f localeFormatter) Date(t time.Time) string {
	return t.Format(f.layout)
}
