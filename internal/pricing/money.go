package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is a monetary value in centavos.
type Cents = int64

// FromCents converts centavos into a real-valued amount in reais.
func FromCents(c Cents) float64 {
	return float64(c) / 100
}

// ToCents rounds an amount in reais half-up to centavos.
func ToCents(v float64) Cents {
	return decimal.NewFromFloat(v).Round(2).Shift(2).IntPart()
}

// FormatBRL renders an amount in reais as a pt-BR currency string,
// e.g. 1234.5 -> "R$ 1.234,50". Rounding to two places happens here and
// only here; intermediate computation keeps full precision.
func FormatBRL(v float64) string {
	return formatBRL(decimal.NewFromFloat(v))
}

// FormatCents renders a centavo amount as a pt-BR currency string.
func FormatCents(c Cents) string {
	return formatBRL(decimal.New(c, -2))
}

func formatBRL(d decimal.Decimal) string {
	fixed := d.Round(2).StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	if negative {
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative {
		b.WriteString("-")
	}
	b.WriteString("R$ ")
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}
