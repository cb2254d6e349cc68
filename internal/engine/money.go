package engine

import "strconv"

// FormatAmount renders a value with two decimals and a period separator
func FormatAmount(v float64) string {
	if v == 0 {
		v = 0 // normalise negative zero
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatMoney renders a currency amount, e.g. "CHF 2000.00"
func FormatMoney(v float64) string {
	return Currency + " " + FormatAmount(v)
}
