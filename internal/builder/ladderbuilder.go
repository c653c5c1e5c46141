// Package builder drives a single market file end to end: decode every
// line, maintain the ladder book, and produce the metadata record and raw
// packet stream.
package builder

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
	"github.com/hubamatyas/ladderbuilder/internal/ladderbook"
	"github.com/hubamatyas/ladderbuilder/internal/marketdef"
	"github.com/hubamatyas/ladderbuilder/internal/metadata"
	"github.com/hubamatyas/ladderbuilder/internal/packet"
)

// ErrEmptyFile is returned when a market file has no non-blank lines.
var ErrEmptyFile = errors.New("builder: empty file")

// RawPacketRewrite is one packet's decoded JSON object with pt replaced by
// its parsed timestamp, metadata set to the market id, and clk/op stripped.
type RawPacketRewrite map[string]any

// Result is the three logical streams one market file produces.
type Result struct {
	Metadata   metadata.Record
	Snapshots  []ladderbook.LadderSnapshot
	RawPackets []RawPacketRewrite
}

// LadderBuilder drives one market file: decode → update book → emit
// snapshot → sample pre-in-play ladders → append; on completion, finalize
// metadata.
//
// The whole file is decoded into memory before the forward pass runs.
// This is required, not incidental: the in-play transition is discovered
// by scanning the packets, but it gates
// the pre-in-play capture of packets that occur *earlier* in the same
// stream. A single forward-only pass could never emit pre0/pre5/pre10
// ladders, because the packet that reveals in-play start always arrives
// after the packets its window needs to capture.
type LadderBuilder struct {
	hook   metadata.SportHook
	logger *slog.Logger
}

// New returns a LadderBuilder for a single sport's post-market hook.
func New(hook metadata.SportHook, logger *slog.Logger) *LadderBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LadderBuilder{hook: hook, logger: logger}
}

// Run decodes lines, replays the resulting packets against one MarketBook,
// and returns the three output streams.
func (lb *LadderBuilder) Run(lines [][]byte) (Result, error) {
	packets, err := decodeAll(lines)
	if err != nil {
		return Result{}, err
	}
	if len(packets) == 0 {
		return Result{}, ErrEmptyFile
	}

	marketID := packets[0].MC[0].ID

	tracker := &marketdef.Tracker{}
	var firstDef *bfdata.MarketDefinition
	for _, pkt := range packets {
		pt := time.UnixMilli(pkt.PT).UTC()
		def := pkt.MC[0].MarketDefinition
		tracker.Observe(pt, def)
		if firstDef == nil && def != nil {
			firstDef = def
		}
	}
	if firstDef == nil {
		return Result{}, fmt.Errorf("builder: market %s: no packet carries a market definition", marketID)
	}
	lastMC := packets[len(packets)-1].MC[0]
	lastPT := time.UnixMilli(packets[len(packets)-1].PT).UTC()

	mb := ladderbook.NewMarketBook(marketID, firstDef, lb.logger)
	mdb := metadata.NewBuilder(tracker.InPlayStart(), lb.hook)

	snapshots := make([]ladderbook.LadderSnapshot, 0, len(packets))
	rawPackets := make([]RawPacketRewrite, 0, len(packets))

	for _, pkt := range packets {
		pt := time.UnixMilli(pkt.PT).UTC()

		snap := mb.ApplyMarketChange(pt, pkt.MC[0])
		snapshots = append(snapshots, snap)

		mdb.ObserveSnapshot(pt, snap.Runners)

		mb.ClearTrades()

		rawPackets = append(rawPackets, rewriteRaw(pkt, pt, marketID))
	}

	rec, err := mdb.Finalize(lastMC, lastPT)
	if err != nil {
		return Result{}, err
	}

	return Result{Metadata: rec, Snapshots: snapshots, RawPackets: rawPackets}, nil
}

func decodeAll(lines [][]byte) ([]bfdata.Packet, error) {
	packets := make([]bfdata.Packet, 0, len(lines))
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		pkt, err := packet.Decode(line)
		if err != nil {
			return nil, fmt.Errorf("builder: line %d: %w", i+1, err)
		}
		packets = append(packets, pkt)
	}
	return packets, nil
}

func rewriteRaw(pkt bfdata.Packet, pt time.Time, marketID string) RawPacketRewrite {
	out := make(RawPacketRewrite, len(pkt.Raw)+2)
	for k, v := range pkt.Raw {
		out[k] = v
	}
	delete(out, "clk")
	delete(out, "op")
	out["pt"] = pt
	out["metadata"] = marketID
	return out
}
