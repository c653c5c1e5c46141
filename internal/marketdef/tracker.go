// Package marketdef parses and tracks the market definition block embedded
// in the packet stream: normalizing its date strings to time.Time and
// detecting the market's in-play lifecycle transitions.
package marketdef

import (
	"time"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
)

// DateLayout is the timestamp format Betfair uses for openDate, marketTime,
// and suspendTime: ISO-8601 UTC with millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z"

// Normalize deep-copies def's raw JSON object and replaces the three date
// string fields with parsed time.Time values, leaving every other field
// (known or not) untouched. Used both for the per-packet snapshot
// definition and as the base for the final metadata record.
func Normalize(def *bfdata.MarketDefinition) map[string]any {
	if def == nil {
		return nil
	}
	clone := def.Clone()
	m := clone.Raw
	if m == nil {
		m = map[string]any{}
	}
	for _, field := range []struct {
		key string
		val string
	}{
		{"openDate", def.OpenDate},
		{"marketTime", def.MarketTime},
		{"suspendTime", def.SuspendTime},
	} {
		if t, err := time.Parse(DateLayout, field.val); err == nil {
			m[field.key] = t
		}
	}
	return m
}

// Tracker observes the in-play lifecycle of a market across its packet
// stream: the timestamp of the first packet whose embedded definition
// reports inPlay=true (nil if it never happens), and the timestamp of the
// most recent packet observed regardless of in-play state.
type Tracker struct {
	inPlayStart *time.Time
	lastPT      time.Time
}

// Observe records one packet's timestamp and (if present) market
// definition. Call in file order for every packet in the stream.
func (t *Tracker) Observe(pt time.Time, def *bfdata.MarketDefinition) {
	t.lastPT = pt
	if t.inPlayStart == nil && def != nil && def.InPlay {
		start := pt
		t.inPlayStart = &start
	}
}

// InPlayStart returns the timestamp the market first went in-play, or nil
// if it never did.
func (t *Tracker) InPlayStart() *time.Time { return t.inPlayStart }

// InPlayEnd returns the timestamp of the last packet observed.
func (t *Tracker) InPlayEnd() time.Time { return t.lastPT }
