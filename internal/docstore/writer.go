// Package docstore persists the three logical streams a LadderBuilder run
// produces — metadata, ladder time series, raw-marketdata time series —
// to a document store.
package docstore

import (
	"context"
	"errors"

	"github.com/hubamatyas/ladderbuilder/internal/builder"
	"github.com/hubamatyas/ladderbuilder/internal/ladderbook"
	"github.com/hubamatyas/ladderbuilder/internal/metadata"
)

// batchSize is the write-chunking unit for the time-series streams.
const batchSize = 1000

// ErrDuplicateMetadata is returned when a metadata document's _id already
// exists. The caller must skip the dependent ladder/raw batches for that
// market but continue processing other files.
var ErrDuplicateMetadata = errors.New("docstore: duplicate metadata insert")

// Writer accepts the three output streams of one market file.
type Writer interface {
	InsertMetadata(ctx context.Context, rec metadata.Record) error
	InsertLadderBatch(ctx context.Context, snapshots []ladderbook.LadderSnapshot) error
	InsertRawBatch(ctx context.Context, raws []builder.RawPacketRewrite) error
	Close(ctx context.Context) error
}
