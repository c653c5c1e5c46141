package builder

import (
	"encoding/json"
	"testing"

	"github.com/hubamatyas/ladderbuilder/internal/metadata"
)

func line(s string) []byte { return []byte(s) }

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	lines := [][]byte{
		line(`{"op":"mcm","clk":"abc","pt":0,"mc":[{"id":"1.23456789","marketDefinition":{"eventId":"29.1","marketType":"WIN","countryCode":"GB","name":"2m4f Hcap Hrd","openDate":"2026-07-31T14:00:00.000Z","marketTime":"2026-07-31T14:00:00.000Z","suspendTime":"2026-07-31T14:00:00.000Z","inPlay":false,"runners":[{"id":10,"name":"Runner A","status":"ACTIVE"},{"id":20,"name":"Runner B","status":"ACTIVE"}]}}]}`),
		line(`{"op":"mcm","clk":"def","pt":500001,"mc":[{"id":"1.23456789","rc":[{"id":10,"atb":[[2.5,100]]}]}]}`),
		line(`{"op":"mcm","clk":"ghi","pt":700000,"mc":[{"id":"1.23456789","rc":[{"id":10,"trd":[[2.5,10.0]]}]}]}`),
		line(`{"op":"mcm","clk":"jkl","pt":999500,"mc":[{"id":"1.23456789","marketDefinition":{"eventId":"29.1","marketType":"WIN","countryCode":"GB","name":"2m4f Hcap Hrd","openDate":"2026-07-31T14:00:00.000Z","marketTime":"2026-07-31T14:00:00.000Z","suspendTime":"2026-07-31T14:00:00.000Z","inPlay":true,"runners":[{"id":10,"name":"Runner A","status":"ACTIVE"},{"id":20,"name":"Runner B","status":"ACTIVE"}]}}]}`),
		line(`{"pt":1200000,"mc":[{"id":"1.23456789","marketDefinition":{"eventId":"29.1","marketType":"WIN","countryCode":"GB","name":"2m4f Hcap Hrd","openDate":"2026-07-31T14:00:00.000Z","marketTime":"2026-07-31T14:00:00.000Z","suspendTime":"2026-07-31T14:00:00.000Z","inPlay":true,"runners":[{"id":10,"name":"Runner A","status":"LOSER","bsp":5.0},{"id":20,"name":"Runner B","status":"WINNER","bsp":3.0}]}}]}`),
	}

	lb := New(metadata.HookFor(metadata.HorseRacing), nil)
	result, err := lb.Run(lines)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Snapshots) != 5 {
		t.Fatalf("len(snapshots) = %d, want 5", len(result.Snapshots))
	}
	if len(result.RawPackets) != 5 {
		t.Fatalf("len(rawPackets) = %d, want 5", len(result.RawPackets))
	}
	for i, rp := range result.RawPackets {
		if _, ok := rp["clk"]; ok {
			t.Fatalf("rawPackets[%d] still has clk", i)
		}
		if _, ok := rp["op"]; ok {
			t.Fatalf("rawPackets[%d] still has op", i)
		}
		if rp["metadata"] != "1.23456789" {
			t.Fatalf("rawPackets[%d] metadata = %v, want market id", i, rp["metadata"])
		}
	}

	rec := result.Metadata
	if rec["marketId"] != "1.23456789" {
		t.Fatalf("marketId = %v", rec["marketId"])
	}
	if rec["raceTypeAdjusted"] != "Hurdle" {
		t.Fatalf("raceTypeAdjusted = %v, want Hurdle", rec["raceTypeAdjusted"])
	}
	if rec["pre10ladder"] == nil {
		t.Fatal("expected pre10ladder to be captured")
	}
	if rec["winnerInfo"] == nil {
		t.Fatal("expected winnerInfo")
	}

	// Sanity: the third packet's trade derivation should have produced one
	// back-side trade on the snapshot it belongs to.
	snap := result.Snapshots[2]
	runner, ok := snap.Runners["10"]
	if !ok {
		t.Fatal("expected runner 10 in snapshot")
	}
	data, err := json.Marshal(runner)
	if err != nil {
		t.Fatalf("marshal runner: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty formatted runner")
	}
	if len(runner.Trades) != 1 || runner.Trades[0].Side != "b" {
		t.Fatalf("snapshot[2] runner 10 trades = %+v, want one back-side trade", runner.Trades)
	}
}

func TestRunRejectsEmptyFile(t *testing.T) {
	t.Parallel()
	lb := New(nil, nil)
	if _, err := lb.Run(nil); err != ErrEmptyFile {
		t.Fatalf("err = %v, want ErrEmptyFile", err)
	}
}

func TestRunRejectsMalformedLine(t *testing.T) {
	t.Parallel()
	lb := New(nil, nil)
	lines := [][]byte{line(`not json`)}
	if _, err := lb.Run(lines); err == nil {
		t.Fatal("expected error for malformed line")
	}
}
