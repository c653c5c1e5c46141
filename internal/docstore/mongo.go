package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hubamatyas/ladderbuilder/internal/builder"
	"github.com/hubamatyas/ladderbuilder/internal/ladderbook"
	"github.com/hubamatyas/ladderbuilder/internal/metadata"
)

const (
	timeFieldKey = "pt"
	metaFieldKey = "metadata"

	metadataCollection = "metadata"
	ladderCollection   = "ladder"
	rawCollection      = "raw_marketdata"

	namespaceExistsErrCode = 48
	duplicateKeyErrCode    = 11000
)

// MongoWriter is the Writer backed by a single MongoDB database. Ladder and
// raw-marketdata collections are created as time-series collections
// (timeField=pt, metaField=metadata, granularity=seconds) the first time
// either is written to.
type MongoWriter struct {
	client *mongo.Client
	db     *mongo.Database

	ensureMu sync.Mutex
	ensured  map[string]bool
}

// NewMongoWriter connects to uri and selects database dbName.
func NewMongoWriter(ctx context.Context, uri, dbName string) (*MongoWriter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	return &MongoWriter{
		client:  client,
		db:      client.Database(dbName),
		ensured: map[string]bool{},
	}, nil
}

// InsertMetadata inserts a single metadata document. A duplicate _id is a
// soft failure: logged by the caller, returned as ErrDuplicateMetadata so
// the fleet runner can skip the market's dependent batches.
func (w *MongoWriter) InsertMetadata(ctx context.Context, rec metadata.Record) error {
	_, err := w.db.Collection(metadataCollection).InsertOne(ctx, rec)
	if err == nil {
		return nil
	}
	if isDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateMetadata, rec["_id"])
	}
	return fmt.Errorf("docstore: insert metadata: %w", err)
}

// InsertLadderBatch chunks snapshots into batches of batchSize and inserts
// them concurrently, waiting for every batch before returning so a
// failure in an earlier batch can't be silently dropped by only awaiting
// the last one.
func (w *MongoWriter) InsertLadderBatch(ctx context.Context, snapshots []ladderbook.LadderSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := w.ensureTimeSeries(ctx, ladderCollection); err != nil {
		return err
	}
	docs := make([]any, len(snapshots))
	for i, s := range snapshots {
		doc := bson.M{
			timeFieldKey: s.PT,
			metaFieldKey: s.MarketID,
			"runners":    s.Runners,
		}
		if s.MarketDefinition != nil {
			doc["marketDefinition"] = s.MarketDefinition
		}
		docs[i] = doc
	}
	return insertAllBatches(ctx, w.db.Collection(ladderCollection), docs)
}

// InsertRawBatch chunks and inserts the normalized raw-packet stream.
func (w *MongoWriter) InsertRawBatch(ctx context.Context, raws []builder.RawPacketRewrite) error {
	if len(raws) == 0 {
		return nil
	}
	if err := w.ensureTimeSeries(ctx, rawCollection); err != nil {
		return err
	}
	docs := make([]any, len(raws))
	for i, r := range raws {
		docs[i] = bson.M(r)
	}
	return insertAllBatches(ctx, w.db.Collection(rawCollection), docs)
}

// Close disconnects the underlying client.
func (w *MongoWriter) Close(ctx context.Context) error {
	return w.client.Disconnect(ctx)
}

func (w *MongoWriter) ensureTimeSeries(ctx context.Context, name string) error {
	w.ensureMu.Lock()
	defer w.ensureMu.Unlock()
	if w.ensured[name] {
		return nil
	}

	cmd := bson.D{
		{Key: "create", Value: name},
		{Key: "timeseries", Value: bson.D{
			{Key: "timeField", Value: timeFieldKey},
			{Key: "metaField", Value: metaFieldKey},
			{Key: "granularity", Value: "seconds"},
		}},
	}
	err := w.db.RunCommand(ctx, cmd).Err()
	if err != nil && !isNamespaceExistsError(err) {
		return fmt.Errorf("docstore: create time series collection %s: %w", name, err)
	}
	w.ensured[name] = true
	return nil
}

// insertAllBatches splits docs into chunks of batchSize and inserts them
// concurrently via InsertMany, collecting every goroutine's error before
// returning (no early return on the first or last completion).
func insertAllBatches(ctx context.Context, coll *mongo.Collection, docs []any) error {
	n := (len(docs) + batchSize - 1) / batchSize
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		start := i * batchSize
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		wg.Add(1)
		go func(idx int, batch []any) {
			defer wg.Done()
			if _, err := coll.InsertMany(ctx, batch); err != nil {
				errs[idx] = fmt.Errorf("docstore: insert batch %d/%d into %s: %w", idx+1, n, coll.Name(), err)
			}
		}(i, docs[start:end])
	}
	wg.Wait()

	return errors.Join(errs...)
}

func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == duplicateKeyErrCode {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}

func isNamespaceExistsError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == namespaceExistsErrCode
	}
	return false
}
