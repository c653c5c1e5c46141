// Package ladderbook maintains the per-runner, per-market limit order book
// (the "ladder") for a single Betfair market, derives individual trades
// from cumulative traded-volume deltas, and formats snapshots for the
// downstream document store.
package ladderbook

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
)

// Trade is one inferred fill: a positive volume delta at a price, appended
// as soon as it is derived and cleared at the start of each packet cycle.
type Trade struct {
	Price decimal.Decimal
	Delta decimal.Decimal
	Side  string // "b" (back hit), "l" (lay hit), or "nan"
}

// MarshalJSON emits the [price, delta, side] triple.
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{t.Price, t.Delta, t.Side})
}

const (
	SideBack = "b"
	SideLay  = "l"
	SideNone = "nan"
)

// RunnerBook is the authoritative per-runner state: sorted price ladders,
// cumulative traded volume, the running trade list for the current packet,
// and the scalar fields Betfair reports per runner.
type RunnerBook struct {
	ID int64

	atb map[string]level // descending, capped at 10
	atl map[string]level // ascending, capped at 10
	trd map[string]level // ascending, uncapped

	Trades []Trade

	LTP   decimal.Decimal
	TV    decimal.Decimal
	TTRDV decimal.Decimal

	// BBP/BLP are the best-back/best-lay prices as of the end of the last
	// applied packet. BLP is nil when the lay ladder is empty (the
	// conventional "+Inf" sentinel); BBP is the zero value (0) when atb is
	// empty.
	BBP decimal.Decimal
	BLP *decimal.Decimal
}

// NewRunnerBook returns an empty book for a single runner.
func NewRunnerBook(id int64) *RunnerBook {
	return &RunnerBook{
		ID:  id,
		atb: map[string]level{},
		atl: map[string]level{},
		trd: map[string]level{},
	}
}

// ApplyChange applies one packet's RunnerChange to this book, in order:
// derive trades (using the pre-packet book), then merge atb, atl, trd,
// then the ltp/tv scalar updates, then recompute the best prices carried
// into the next packet.
func (rb *RunnerBook) ApplyChange(rc bfdata.RunnerChange) {
	rb.Trades = rb.deriveTrades(rc.TRD)

	rb.atb = mergeSide(rb.atb, rc.ATB, sideBack)
	rb.atl = mergeSide(rb.atl, rc.ATL, sideLay)
	rb.trd = mergeSide(rb.trd, rc.TRD, sideTraded)

	rb.LTP = applyScalar(rb.LTP, rc.LTP)
	rb.TV = applyScalar(rb.TV, rc.TV)

	rb.refreshBestPrices()
}

// refreshBestPrices recomputes BBP/BLP from the current atb/atl state.
// Called after every packet so arbitrage checks and the next packet's
// trade classification see the post-packet ladder.
func (rb *RunnerBook) refreshBestPrices() {
	rb.BBP = bestPrice(rb.atb, false, decimal.Zero)
	if len(rb.atl) == 0 {
		rb.BLP = nil
		return
	}
	blp := bestPrice(rb.atl, true, decimal.Zero)
	rb.BLP = &blp
}

// deriveTrades must run before trd is merged: it diffs each incoming
// cumulative traded-volume entry against the book's prior cumulative value
// at that price, using the PRE-packet bbp/blp for side classification.
func (rb *RunnerBook) deriveTrades(updates []bfdata.PriceSize) []Trade {
	if len(updates) == 0 {
		return nil
	}
	trades := make([]Trade, 0, len(updates))
	for _, u := range updates {
		prior := decimal.Zero
		if e, ok := rb.trd[priceKey(u.Price)]; ok {
			prior = e.Size
		}
		delta := u.Size.Sub(prior).Round(2)
		if delta.Sign() <= 0 {
			// Negative/zero deltas come from FX-rate revaluations of
			// already-traded volume, not new trades.
			continue
		}
		rb.TTRDV = rb.TTRDV.Add(delta).Round(2)
		trades = append(trades, Trade{Price: u.Price, Delta: delta, Side: rb.classify(u.Price)})
	}
	return trades
}

// classify assigns a trade its side using the pre-packet best prices.
// "b" takes precedence over "l" — by construction a price cannot satisfy
// both since bbp < blp in a non-crossed book.
func (rb *RunnerBook) classify(price decimal.Decimal) string {
	if !price.GreaterThan(rb.BBP) {
		return SideBack
	}
	if rb.BLP != nil && !price.LessThan(*rb.BLP) {
		return SideLay
	}
	return SideNone
}

// applyScalar implements truthy-update semantics: a present-but-zero
// value does not overwrite the prior one, matching a
// `value if value else prior` update rule.
func applyScalar(prior decimal.Decimal, next *decimal.Decimal) decimal.Decimal {
	if next != nil && !next.IsZero() {
		return *next
	}
	return prior
}

// ClearTrades resets the trade list, called once per packet after the
// snapshot has been formatted and appended.
func (rb *RunnerBook) ClearTrades() {
	rb.Trades = nil
}

// ATB returns the back ladder, descending by price.
func (rb *RunnerBook) ATB() [][2]decimal.Decimal { return pairs(rb.atb, false) }

// ATL returns the lay ladder, ascending by price.
func (rb *RunnerBook) ATL() [][2]decimal.Decimal { return pairs(rb.atl, true) }

// TRD returns the traded-volume ladder keyed by a canonical price string
// (the document store requires string keys). Every key carries a decimal
// point, so a price of 3 is keyed "3.0". The returned map has no order.
func (rb *RunnerBook) TRD() map[string]decimal.Decimal {
	if len(rb.trd) == 0 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(rb.trd))
	for _, e := range sortedLevels(rb.trd, true) {
		k := priceKey(e.Price)
		if !strings.Contains(k, ".") {
			k += ".0"
		}
		out[k] = e.Size
	}
	return out
}

func pairs(m map[string]level, ascending bool) [][2]decimal.Decimal {
	entries := sortedLevels(m, ascending)
	if len(entries) == 0 {
		return nil
	}
	out := make([][2]decimal.Decimal, len(entries))
	for i, e := range entries {
		out[i] = [2]decimal.Decimal{e.Price, e.Size}
	}
	return out
}
