package metadata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
	"github.com/hubamatyas/ladderbuilder/internal/ladderbook"
)

func ms(n int64) time.Time {
	return time.UnixMilli(n).UTC()
}

func bspPtr(v string) *decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return &d
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Scenario 5: pre-in-play capture at the three window boundaries.
func TestObserveSnapshotPreInPlayCapture(t *testing.T) {
	t.Parallel()
	start := ms(1_000_000)
	b := NewBuilder(&start, nil)

	empty := map[string]ladderbook.FormattedRunner{}
	b.ObserveSnapshot(ms(500_001), empty)
	b.ObserveSnapshot(ms(700_000), empty)
	b.ObserveSnapshot(ms(999_500), empty)

	if b.pre10 == nil {
		t.Fatal("pre10ladder not captured")
	}
	if b.pre5 == nil {
		t.Fatal("pre5ladder not captured")
	}
	if b.pre0 == nil {
		t.Fatal("pre0ladder not captured")
	}
}

func TestObserveSnapshotNeverInPlaySkipsCapture(t *testing.T) {
	t.Parallel()
	b := NewBuilder(nil, nil)
	b.ObserveSnapshot(ms(0), map[string]ladderbook.FormattedRunner{})
	if b.pre0 != nil || b.pre5 != nil || b.pre10 != nil {
		t.Fatal("expected no captures when market never goes in-play")
	}
}

func TestObserveSnapshotFirstQualifyingWins(t *testing.T) {
	t.Parallel()
	start := ms(1_000_000)
	b := NewBuilder(&start, nil)

	first := map[string]ladderbook.FormattedRunner{"10": {}}
	second := map[string]ladderbook.FormattedRunner{"20": {}}

	b.ObserveSnapshot(ms(999_100), first)
	b.ObserveSnapshot(ms(999_900), second)

	if _, ok := b.pre0["10"]; !ok {
		t.Fatalf("pre0ladder should retain the first qualifying snapshot, got %v", b.pre0)
	}
}

// Scenario 6: winner + favourites extraction.
func TestFinalizeWinnerAndFavourites(t *testing.T) {
	t.Parallel()
	def := &bfdata.MarketDefinition{}
	def.EventID = "1.23456789"
	def.MarketType = "MATCH_ODDS"
	def.Name = "Test Market"
	def.Runners = []bfdata.RunnerDefinition{
		{ID: 1, Name: "Loser", Status: bfdata.StatusLoser, BSP: bspPtr("5.0")},
		{ID: 2, Name: "Winner", Status: bfdata.StatusWinner, BSP: bspPtr("3.0")},
	}

	b := NewBuilder(nil, nil)
	rec, err := b.Finalize(bfdata.MarketChange{ID: "1.1", MarketDefinition: def}, ms(2_000_000))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	winner, ok := rec["winnerInfo"].(*RunnerInfo)
	if !ok || winner.ID != 2 || !winner.BSP.Equal(dec("3.0")) {
		t.Fatalf("winnerInfo = %+v, want id 2 bsp 3.0", rec["winnerInfo"])
	}
	favs, ok := rec["favouriteInfo"].([]RunnerInfo)
	if !ok || len(favs) != 2 || favs[0].ID != 2 || favs[1].ID != 1 {
		t.Fatalf("favouriteInfo = %+v, want [id2 id1] ascending by bsp", rec["favouriteInfo"])
	}
	if rec["marketId"] != "1.1" {
		t.Fatalf("marketId = %v, want 1.1", rec["marketId"])
	}
	if _, ok := rec["id"]; ok {
		t.Fatal("id key should be renamed to marketId, not left behind")
	}
	wantID := "metadata_1.1_1.23456789"
	if rec["_id"] != wantID {
		t.Fatalf("_id = %v, want %v", rec["_id"], wantID)
	}
}

// Scenario 7: horse-racing WIN hook.
func TestHorseRacingHookOnWinMarket(t *testing.T) {
	t.Parallel()
	def := &bfdata.MarketDefinition{}
	def.EventID = "1.1"
	def.MarketType = "WIN"
	def.Name = "2m4f Hcap Hrd"

	b := NewBuilder(nil, HookFor(HorseRacing))
	rec, err := b.Finalize(bfdata.MarketChange{ID: "1.1", MarketDefinition: def}, ms(0))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if rec["raceTypeAdjusted"] != "Hurdle" {
		t.Fatalf("raceTypeAdjusted = %v, want Hurdle", rec["raceTypeAdjusted"])
	}
	if rec["distance"] != "2m4f" {
		t.Fatalf("distance = %v, want 2m4f", rec["distance"])
	}
	if rec["isHandicap"] != true {
		t.Fatalf("isHandicap = %v, want true", rec["isHandicap"])
	}
}

func TestHorseRacingHookSkipsNonWinMarkets(t *testing.T) {
	t.Parallel()
	def := &bfdata.MarketDefinition{}
	def.EventID = "1.1"
	def.MarketType = "EACH_WAY"
	def.Name = "2m4f Hcap Hrd"

	b := NewBuilder(nil, HookFor(HorseRacing))
	rec, err := b.Finalize(bfdata.MarketChange{ID: "1.1", MarketDefinition: def}, ms(0))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, ok := rec["raceTypeAdjusted"]; ok {
		t.Fatal("raceTypeAdjusted should be absent for non-WIN markets")
	}
}

func TestFinalizeRequiresMarketDefinition(t *testing.T) {
	t.Parallel()
	b := NewBuilder(nil, nil)
	if _, err := b.Finalize(bfdata.MarketChange{ID: "1.1"}, ms(0)); err == nil {
		t.Fatal("expected error when last packet carries no market definition")
	}
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()
	f := FilterFor(HorseRacing)
	if !f.Matches("WIN", "GB") {
		t.Fatal("expected WIN/GB to match horse racing filter")
	}
	if f.Matches("WIN", "FR") {
		t.Fatal("expected WIN/FR to not match horse racing filter (country gate)")
	}
	if f.Matches("", "") {
		t.Fatal("expected empty marketType to fail the anchored regex")
	}
}
