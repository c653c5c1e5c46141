package metadata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
	"github.com/hubamatyas/ladderbuilder/internal/ladderbook"
	"github.com/hubamatyas/ladderbuilder/internal/marketdef"
)

// Record is the final document stored for a market: the last packet's
// market change (id renamed to marketId, its marketDefinition kept nested
// and date-normalized), enriched with eventId, _id, lifecycle timestamps,
// pre-in-play ladder samples, post-market winner/favourite info, and any
// sport-specific additions.
type Record map[string]any

const (
	pre0Window  = 1000 * time.Millisecond
	pre5Window  = 5 * time.Minute
	pre10Window = 10 * time.Minute
)

// Builder accumulates the pre-in-play ladder captures across a market's
// packet stream and produces the final Record once the stream ends.
// inPlayStart must be known up front: callers scan the whole packet list
// for the in-play transition before driving the forward pass that feeds
// ObserveSnapshot.
type Builder struct {
	inPlayStart *time.Time
	hook        SportHook

	pre0, pre5, pre10 map[string]ladderbook.FormattedRunner
}

// NewBuilder returns a Builder for a market whose in-play start is already
// known (nil if the market never goes in-play).
func NewBuilder(inPlayStart *time.Time, hook SportHook) *Builder {
	if hook == nil {
		hook = noopHook{}
	}
	return &Builder{inPlayStart: inPlayStart, hook: hook}
}

// ObserveSnapshot offers one packet's formatted runners for pre-in-play
// capture. Each of pre0/pre5/pre10 is set at most once, by the earliest
// chronological snapshot whose delta to in-play start satisfies its
// window.
func (b *Builder) ObserveSnapshot(pt time.Time, runners map[string]ladderbook.FormattedRunner) {
	if b.inPlayStart == nil {
		return
	}
	delta := b.inPlayStart.Sub(pt)
	if b.pre10 == nil && delta < pre10Window {
		b.pre10 = cloneRunners(runners)
	}
	if b.pre5 == nil && delta < pre5Window {
		b.pre5 = cloneRunners(runners)
	}
	if b.pre0 == nil && delta < pre0Window {
		b.pre0 = cloneRunners(runners)
	}
}

func cloneRunners(runners map[string]ladderbook.FormattedRunner) map[string]ladderbook.FormattedRunner {
	out := make(map[string]ladderbook.FormattedRunner, len(runners))
	for id, r := range runners {
		out[id] = r.Clone()
	}
	return out
}

// Finalize builds the Record from the last packet's MarketChange. lastMC
// must carry a market definition — in historical Betfair files the final
// packet always does, since markets close with a definition update (result
// settlement); if it doesn't, finalization fails the file.
func (b *Builder) Finalize(lastMC bfdata.MarketChange, inPlayEnd time.Time) (Record, error) {
	def := lastMC.MarketDefinition
	if def == nil {
		return nil, fmt.Errorf("metadata: finalize market %s: last packet carries no market definition", lastMC.ID)
	}

	base, err := marshalToMap(lastMC)
	if err != nil {
		return nil, fmt.Errorf("metadata: finalize market %s: %w", lastMC.ID, err)
	}
	rec := Record(base)

	rec["marketId"] = lastMC.ID
	delete(rec, "id")
	rec["eventId"] = def.EventID
	rec["_id"] = fmt.Sprintf("metadata_%s_%s", lastMC.ID, def.EventID)
	if normalized := marketdef.Normalize(def); normalized != nil {
		rec["marketDefinition"] = normalized
	}

	if b.inPlayStart != nil {
		rec["inPlayStartTime"] = *b.inPlayStart
	}
	rec["inPlayEndTime"] = inPlayEnd

	if b.pre0 != nil {
		rec["pre0ladder"] = b.pre0
	}
	if b.pre5 != nil {
		rec["pre5ladder"] = b.pre5
	}
	if b.pre10 != nil {
		rec["pre10ladder"] = b.pre10
	}

	if winner, favourites := extractWinnerFavourites(def.Runners); winner != nil || favourites != nil {
		if winner != nil {
			rec["winnerInfo"] = winner
		}
		if favourites != nil {
			rec["favouriteInfo"] = favourites
		}
	}

	b.hook.ExtendPostMarket(rec, def.MarketType, def.Name)

	return rec, nil
}

func marshalToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
