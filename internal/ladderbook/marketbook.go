package ladderbook

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
	"github.com/hubamatyas/ladderbuilder/internal/marketdef"
)

// LadderSnapshot is the per-packet projection emitted downstream: a
// timestamp, the market id (used as the time series metaField), the
// formatted runners, and the market definition if this packet carried one.
type LadderSnapshot struct {
	PT               time.Time
	MarketID         string
	Runners          map[string]FormattedRunner
	MarketDefinition map[string]any
}

// MarketBook aggregates the RunnerBooks for a single market and applies
// each packet's runner changes. Runners are fixed at construction from the
// first-seen market definition — ids that appear later are never added.
type MarketBook struct {
	MarketID   string
	Definition *bfdata.MarketDefinition
	Runners    map[int64]*RunnerBook

	logger *slog.Logger
}

// NewMarketBook constructs a book with one RunnerBook per runner in def.
func NewMarketBook(marketID string, def *bfdata.MarketDefinition, logger *slog.Logger) *MarketBook {
	if logger == nil {
		logger = slog.Default()
	}
	mb := &MarketBook{
		MarketID:   marketID,
		Definition: def,
		Runners:    make(map[int64]*RunnerBook, len(def.Runners)),
		logger:     logger,
	}
	for _, r := range def.Runners {
		mb.Runners[r.ID] = NewRunnerBook(r.ID)
	}
	return mb
}

// ApplyMarketChange applies one packet's runner changes in file order,
// refreshes the market definition if this change carries one, checks for
// arbitrage (log-only, never raised), and returns the formatted snapshot.
// Unknown runner ids are silently ignored.
func (mb *MarketBook) ApplyMarketChange(pt time.Time, mc bfdata.MarketChange) LadderSnapshot {
	for _, rc := range mc.RC {
		runner, ok := mb.Runners[rc.ID]
		if !ok {
			continue
		}
		runner.ApplyChange(rc)
	}

	var normalizedDef map[string]any
	if mc.MarketDefinition != nil {
		mb.Definition = mc.MarketDefinition
		normalizedDef = marketdef.Normalize(mc.MarketDefinition)
	}

	mb.checkArbitrage(pt)

	return LadderSnapshot{
		PT:               pt,
		MarketID:         mb.MarketID,
		Runners:          mb.format(),
		MarketDefinition: normalizedDef,
	}
}

// ClearTrades resets every runner's trade list, called once per packet
// after the snapshot has been formatted and appended.
func (mb *MarketBook) ClearTrades() {
	for _, r := range mb.Runners {
		r.ClearTrades()
	}
}

func (mb *MarketBook) format() map[string]FormattedRunner {
	out := make(map[string]FormattedRunner, len(mb.Runners))
	for id, r := range mb.Runners {
		out[strconv.FormatInt(id, 10)] = r.Format()
	}
	return out
}

// checkArbitrage logs (never raises) when a runner's best back price
// crosses its best lay price, using BBP/BLP directly rather than
// re-scanning the ladder.
func (mb *MarketBook) checkArbitrage(pt time.Time) {
	for id, r := range mb.Runners {
		if r.BLP == nil {
			continue
		}
		if r.BBP.GreaterThan(*r.BLP) {
			mb.logger.Warn("crossed book detected",
				"market_id", mb.MarketID,
				"runner_id", id,
				"bbp", r.BBP,
				"blp", *r.BLP,
				"pt", pt,
			)
		}
	}
}
