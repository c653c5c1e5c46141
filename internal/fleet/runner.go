// Package fleet fans a sport's market files out across a bounded pool of
// workers, each owning one file's MarketBook exclusively.
package fleet

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hubamatyas/ladderbuilder/internal/blobstore"
	"github.com/hubamatyas/ladderbuilder/internal/builder"
	"github.com/hubamatyas/ladderbuilder/internal/docstore"
	"github.com/hubamatyas/ladderbuilder/internal/metadata"
	"github.com/hubamatyas/ladderbuilder/internal/packet"
)

// FileResult records the outcome of processing a single file. Err is nil
// for both a clean success and a policy skip (decompression failure, empty
// file, sport filter rejection, duplicate metadata) — all of which are
// logged at the point of decision and must not fail the run.
type FileResult struct {
	Key string
	Err error
}

// Runner processes every market file under a prefix in parallel, one
// worker per file, and waits on every submitted task before returning.
type Runner struct {
	source  blobstore.Source
	writer  docstore.Writer
	sport   metadata.Sport
	hook    metadata.SportHook
	filter  metadata.Filter
	workers int
	logger  *slog.Logger
}

// New builds a Runner scoped to a single sport: its filter gates which
// files are processed, its hook extends the resulting metadata record.
func New(source blobstore.Source, writer docstore.Writer, sport metadata.Sport, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		source:  source,
		writer:  writer,
		sport:   sport,
		hook:    metadata.HookFor(sport),
		filter:  metadata.FilterFor(sport),
		workers: workers,
		logger:  logger.With("sport", sport),
	}
}

// Run lists every market file under prefix and processes each on the
// worker pool. Every file task is tracked by the same WaitGroup and its
// result collected before Run returns, so a failure in an earlier file
// can never be silently dropped by only awaiting the last one submitted.
func (r *Runner) Run(ctx context.Context, prefix string) ([]FileResult, error) {
	keys, err := r.source.ListMarketFiles(ctx, prefix)
	if err != nil {
		return nil, err
	}

	sem := make(chan struct{}, r.workers)
	results := make([]FileResult, len(keys))
	var wg sync.WaitGroup

	for i, key := range keys {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, key string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = FileResult{Key: key, Err: r.processFile(ctx, key)}
		}(i, key)
	}
	wg.Wait()

	return results, nil
}

func (r *Runner) processFile(ctx context.Context, key string) error {
	lines, err := r.source.OpenFile(ctx, key)
	if err != nil {
		var decErr *blobstore.ErrDecompressionFailure
		if errors.As(err, &decErr) {
			r.logger.Warn("skipping file: decompression failed", "key", key, "err", err)
			return nil
		}
		return err
	}
	if len(lines) == 0 {
		r.logger.Info("skipping empty file", "key", key)
		return nil
	}

	if !r.passesFilter(key, lines[0]) {
		return nil
	}

	lb := builder.New(r.hook, r.logger)
	result, err := lb.Run(lines)
	if err != nil {
		r.logger.Error("failed to build ladder for file", "key", key, "err", err)
		return err
	}

	if err := r.writer.InsertMetadata(ctx, result.Metadata); err != nil {
		if errors.Is(err, docstore.ErrDuplicateMetadata) {
			r.logger.Warn("duplicate metadata insert, skipping dependent batches", "key", key, "err", err)
			return nil
		}
		return err
	}

	if err := r.writer.InsertLadderBatch(ctx, result.Snapshots); err != nil {
		return err
	}
	return r.writer.InsertRawBatch(ctx, result.RawPackets)
}

// passesFilter applies the sport gate using the first packet's market
// definition. A missing marketType/countryCode counts as an empty
// string.
func (r *Runner) passesFilter(key string, firstLine []byte) bool {
	first, err := packet.Decode(firstLine)
	if err != nil {
		r.logger.Warn("skipping file: malformed first packet", "key", key, "err", err)
		return false
	}
	var marketType, countryCode string
	if def := first.MC[0].MarketDefinition; def != nil {
		marketType = def.MarketType
		countryCode = def.CountryCode
	}
	if !r.filter.Matches(marketType, countryCode) {
		r.logger.Info("skipping file: rejected by sport filter", "key", key,
			"market_type", marketType, "country_code", countryCode)
		return false
	}
	return true
}
