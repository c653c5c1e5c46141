package ladderbook

import (
	"strings"

	"github.com/shopspring/decimal"
)

// priceKey returns a canonical string key for a price, independent of how
// many trailing zeros the original JSON number carried ("2.5" and "2.50"
// must collide to the same ladder level). decimal.Decimal intentionally
// does not implement a reliable == for this reason (two decimals with the
// same numeric value can have different internal exponents), so it must
// never be used directly as a map key — see shopspring/decimal's own
// documentation on Equal vs ==.
func priceKey(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
