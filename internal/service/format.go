package service

import (
	"fmt"
	"strings"
	"time"
)

// formatBRL renders centavos as "R$ 1.234,56".
func formatBRL(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	whole := cents / 100
	fraction := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, strings.Join(groups, "."), fraction)
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
