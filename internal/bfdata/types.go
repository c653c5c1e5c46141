// Package bfdata defines the wire shapes of Betfair exchange stream (MCM)
// market-change packets. These structs map 1:1 to the JSON lines found in
// historical Betfair marketdata files — one packet per line, one market
// per packet.
//
// MarketDefinition is treated as mostly-opaque: it's an open-ended object
// with many vendor-defined fields. Rather than model every possible
// field, each definition keeps the fully-decoded JSON object in Raw (a
// map[string]any) alongside typed accessors for the handful of fields the
// pipeline actually reads. Raw is what gets deep-copied and re-emitted
// into metadata and ladder snapshot documents, so unknown fields never
// get silently dropped.
package bfdata

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Packet is a single line of the marketdata stream: one timestamp, one
// market's changes. A file with |mc| != 1 is not a single-market file and
// must be rejected by the decoder.
type Packet struct {
	PT  int64          `json:"pt"`
	MC  []MarketChange `json:"mc"`
	Clk string         `json:"clk,omitempty"`
	Op  string         `json:"op,omitempty"`

	// Raw is the full decoded JSON object this packet came from, kept for
	// RawPacketRewrite (which must preserve unrecognized fields while
	// stripping clk/op and replacing pt/metadata).
	Raw map[string]any `json:"-"`
}

// MarketChange carries either a market definition refresh, a batch of
// runner-level changes, or both.
type MarketChange struct {
	ID               string            `json:"id"`
	RC               []RunnerChange    `json:"rc,omitempty"`
	MarketDefinition *MarketDefinition `json:"marketDefinition,omitempty"`
}

// PriceSize is a single [price, size] pair as Betfair encodes ladder levels.
// A size of zero denotes removal of that price level.
type PriceSize struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// UnmarshalJSON accepts Betfair's wire format: a two-element JSON array.
func (p *PriceSize) UnmarshalJSON(data []byte) error {
	var pair [2]decimal.Decimal
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("bfdata: decode price/size pair: %w", err)
	}
	p.Price, p.Size = pair[0], pair[1]
	return nil
}

// MarshalJSON emits the two-element array Betfair and the downstream
// document store both expect.
func (p PriceSize) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]decimal.Decimal{p.Price, p.Size})
}

// RunnerChange is one runner's delta within a MarketChange. Any of ATB,
// ATL, TRD, LTP, TV may be absent — absence means "unchanged". LTP and TV
// use *decimal.Decimal so a present-but-zero value can be told apart from
// an absent one (see RunnerBook's truthy-update semantics).
type RunnerChange struct {
	ID  int64            `json:"id"`
	ATB []PriceSize      `json:"atb,omitempty"`
	ATL []PriceSize      `json:"atl,omitempty"`
	TRD []PriceSize      `json:"trd,omitempty"`
	LTP *decimal.Decimal `json:"ltp,omitempty"`
	TV  *decimal.Decimal `json:"tv,omitempty"`
}

// RunnerDefinition describes a single runner within a MarketDefinition.
type RunnerDefinition struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name,omitempty"`
	Status string           `json:"status"`
	BSP    *decimal.Decimal `json:"bsp,omitempty"`
}

// mdWire is the subset of MarketDefinition fields the pipeline reads
// directly; everything else only ever travels through Raw.
type mdWire struct {
	EventID     string             `json:"eventId"`
	MarketType  string             `json:"marketType"`
	CountryCode string             `json:"countryCode"`
	Name        string             `json:"name"`
	OpenDate    string             `json:"openDate"`
	MarketTime  string             `json:"marketTime"`
	SuspendTime string             `json:"suspendTime"`
	InPlay      bool               `json:"inPlay"`
	Runners     []RunnerDefinition `json:"runners"`
}

// MarketDefinition is the (mostly) opaque market metadata block periodically
// re-sent within the packet stream.
type MarketDefinition struct {
	mdWire
	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes both the typed fields used by the pipeline and the
// full object into Raw, so callers can re-emit unrecognized fields.
func (d *MarketDefinition) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &d.mdWire); err != nil {
		return fmt.Errorf("bfdata: decode marketDefinition: %w", err)
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bfdata: decode marketDefinition raw: %w", err)
	}
	d.Raw = raw
	return nil
}

// MarshalJSON re-emits Raw when present (preserving unknown fields);
// otherwise falls back to the typed fields.
func (d MarketDefinition) MarshalJSON() ([]byte, error) {
	if d.Raw != nil {
		return json.Marshal(d.Raw)
	}
	return json.Marshal(d.mdWire)
}

// Clone returns a deep copy of the definition, used wherever a snapshot
// must be immune to later mutation (pre-in-play capture, metadata base
// construction).
func (d *MarketDefinition) Clone() *MarketDefinition {
	if d == nil {
		return nil
	}
	out := &MarketDefinition{mdWire: d.mdWire}
	out.Runners = append([]RunnerDefinition(nil), d.mdWire.Runners...)
	if d.Raw != nil {
		out.Raw = deepCopyMap(d.Raw)
	}
	return out
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}

// Runner status values used by metadata post-market extraction.
const (
	StatusActive  = "ACTIVE"
	StatusWinner  = "WINNER"
	StatusLoser   = "LOSER"
	StatusRemoved = "REMOVED"
)
