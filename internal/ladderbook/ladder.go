package ladderbook

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
)

// level is one price/size pair held in a ladder side.
type level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// side identifies which ordering and capacity rule a ladder side follows.
type side int

const (
	sideBack   side = iota // atb: descending price, top 10
	sideLay                // atl: ascending price, top 10
	sideTraded             // trd: ascending price, unbounded
)

const maxDepth = 10

// mergeSide merges updates into current, drops non-positive sizes, and for
// atb/atl retains only the top maxDepth prices by the side's order. A price
// evicted by the cap is gone from state entirely — if it reappears later
// with a zero-size removal that removal is a silent no-op.
func mergeSide(current map[string]level, updates []bfdata.PriceSize, s side) map[string]level {
	merged := make(map[string]level, len(current)+len(updates))
	for k, v := range current {
		merged[k] = v
	}
	for _, u := range updates {
		merged[priceKey(u.Price)] = level{Price: u.Price, Size: u.Size}
	}
	for k, v := range merged {
		if v.Size.Sign() <= 0 {
			delete(merged, k)
		}
	}

	if s == sideTraded {
		return merged
	}

	entries := sortedLevels(merged, s == sideLay)
	if len(entries) > maxDepth {
		entries = entries[:maxDepth]
	}
	capped := make(map[string]level, len(entries))
	for _, e := range entries {
		capped[priceKey(e.Price)] = e
	}
	return capped
}

// sortedLevels returns the levels of m ordered ascending (if ascending) or
// descending by price.
func sortedLevels(m map[string]level, ascending bool) []level {
	out := make([]level, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].Price.LessThan(out[j].Price)
		}
		return out[i].Price.GreaterThan(out[j].Price)
	})
	return out
}

// bestPrice returns the best (first, per ordering) price in the side, or
// the given default if the side is empty.
func bestPrice(m map[string]level, ascending bool, empty decimal.Decimal) decimal.Decimal {
	entries := sortedLevels(m, ascending)
	if len(entries) == 0 {
		return empty
	}
	return entries[0].Price
}
