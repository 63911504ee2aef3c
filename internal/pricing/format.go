package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders d with two decimals, "." between thousands and ","
// before the decimals: 1234.5 -> "1.234,50". The rule is fixed and does not
// depend on the process locale.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	// digits + separators + sign + ",dd"
	b.Grow(len(intPart) + len(intPart)/3 + 4)
	if neg && strings.Trim(intPart+fracPart, "0") != "" {
		b.WriteByte('-')
	}

	rem := len(intPart) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(intPart[:rem])
	for i := rem; i < len(intPart); i += 3 {
		b.WriteByte('.')
		b.WriteString(intPart[i : i+3])
	}

	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}

// FormatPrice is FormatAmount with the "$" prefix used in order texts.
func FormatPrice(d decimal.Decimal) string {
	s := FormatAmount(d)
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}
