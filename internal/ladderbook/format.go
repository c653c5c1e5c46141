package ladderbook

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// FormattedRunner is the per-runner projection emitted in a ladder
// snapshot: only fields with a truthy value are present. An entirely
// empty book formats to an empty object.
type FormattedRunner struct {
	ATB    [][2]decimal.Decimal       `json:"-"`
	ATL    [][2]decimal.Decimal       `json:"-"`
	TRD    map[string]decimal.Decimal `json:"-"`
	LTP    *decimal.Decimal           `json:"-"`
	TV     *decimal.Decimal           `json:"-"`
	TTRDV  *decimal.Decimal           `json:"-"`
	Trades []Trade                    `json:"-"`
}

// MarshalJSON emits only the truthy fields rather than relying on Go's
// struct-tag omitempty (which cannot express "omit this decimal.Decimal
// if it's zero").
func (r FormattedRunner) MarshalJSON() ([]byte, error) {
	m := r.asMap()
	return json.Marshal(m)
}

func (r FormattedRunner) asMap() map[string]any {
	m := map[string]any{}
	if len(r.ATB) > 0 {
		m["atb"] = r.ATB
	}
	if len(r.ATL) > 0 {
		m["atl"] = r.ATL
	}
	if len(r.TRD) > 0 {
		m["trd"] = r.TRD
	}
	if r.LTP != nil {
		m["ltp"] = *r.LTP
	}
	if r.TV != nil {
		m["tv"] = *r.TV
	}
	if r.TTRDV != nil {
		m["ttrdv"] = *r.TTRDV
	}
	if len(r.Trades) > 0 {
		m["trades"] = r.Trades
	}
	return m
}

// Clone deep-copies the runner projection so a later mutation of the live
// book (or a later snapshot) cannot retroactively change a ladder already
// captured for pre-in-play sampling or already appended to the ladder
// time series.
func (r FormattedRunner) Clone() FormattedRunner {
	out := FormattedRunner{LTP: r.LTP, TV: r.TV, TTRDV: r.TTRDV}
	if len(r.ATB) > 0 {
		out.ATB = append([][2]decimal.Decimal(nil), r.ATB...)
	}
	if len(r.ATL) > 0 {
		out.ATL = append([][2]decimal.Decimal(nil), r.ATL...)
	}
	if len(r.TRD) > 0 {
		out.TRD = make(map[string]decimal.Decimal, len(r.TRD))
		for k, v := range r.TRD {
			out.TRD[k] = v
		}
	}
	if len(r.Trades) > 0 {
		out.Trades = append([]Trade(nil), r.Trades...)
	}
	return out
}

// Format projects the current book state into a FormattedRunner.
func (rb *RunnerBook) Format() FormattedRunner {
	f := FormattedRunner{
		ATB: rb.ATB(),
		ATL: rb.ATL(),
		TRD: rb.TRD(),
	}
	if !rb.LTP.IsZero() {
		ltp := rb.LTP
		f.LTP = &ltp
	}
	if !rb.TV.IsZero() {
		tv := rb.TV
		f.TV = &tv
	}
	if !rb.TTRDV.IsZero() {
		ttrdv := rb.TTRDV.Round(2)
		f.TTRDV = &ttrdv
	}
	if len(rb.Trades) > 0 {
		f.Trades = append([]Trade(nil), rb.Trades...)
	}
	return f
}
