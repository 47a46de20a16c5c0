package etl

import (
	"context"
	"fmt"

	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/BartekS5/rawimport/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoBatchSize bounds documents per InsertMany.
const DefaultMongoBatchSize = 100000

// MongoStore maps partitions onto collections of one database.
// Collections are created implicitly on first insert.
type MongoStore struct {
	Client *mongo.Client
	Config models.AdapterConfig

	batch *InsertBatch
}

func NewMongoStore(client *mongo.Client, cfg models.AdapterConfig, batchSize int) *MongoStore {
	if batchSize <= 0 {
		batchSize = DefaultMongoBatchSize
	}
	m := &MongoStore{Client: client, Config: cfg}
	m.batch = NewInsertBatch("mongo:"+cfg.Database, batchSize, m.flush)
	return m
}

func (m *MongoStore) DefaultPartition() string { return m.Config.Table }

func (m *MongoStore) collection(partition string) *mongo.Collection {
	if partition == "" {
		partition = m.Config.Table
	}
	return m.Client.Database(m.Config.Database).Collection(partition)
}

func (m *MongoStore) QueryAll(ctx context.Context, q Query) (Cursor, error) {
	fields := q.Fields
	if len(fields) == 0 {
		fields = m.Config.QueryFields
	}

	findOpts := options.Find()
	if proj := projection(fields); proj != nil {
		findOpts.SetProjection(proj)
	}
	if q.After != nil {
		findOpts.SetSort(bson.D{{Key: q.After.Field, Value: 1}})
	}

	coll := m.collection(q.Partition)
	cursor, err := coll.Find(ctx, afterFilter(q.After), findOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: find in %s: %w", ErrStoreUnavailable, coll.Name(), err)
	}
	return &mongoCursor{cursor: cursor, name: coll.Name()}, nil
}

func afterFilter(after *Predicate) bson.M {
	if after == nil {
		return bson.M{}
	}
	return bson.M{after.Field: bson.M{"$gt": after.Value}}
}

func projection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	proj := bson.D{}
	wantID := false
	for _, f := range fields {
		if f == "_id" {
			wantID = true
		}
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	if !wantID {
		proj = append(proj, bson.E{Key: "_id", Value: 0})
	}
	return proj
}

func documentToRecord(doc bson.M) models.Record {
	rec := make(models.Record, len(doc))
	for k, v := range doc {
		rec[k] = utils.NormalizeValue(v)
	}
	return rec
}

type mongoCursor struct {
	cursor  *mongo.Cursor
	name    string
	current models.Record
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	for c.cursor.Next(ctx) {
		var doc bson.M
		if err := c.cursor.Decode(&doc); err != nil {
			logger.Errorf("Error decoding mongo doc in %s: %v", c.name, err)
			continue
		}
		c.current = documentToRecord(doc)
		return true
	}
	return false
}

func (c *mongoCursor) Record() models.Record { return c.current }

func (c *mongoCursor) Err() error {
	if err := c.cursor.Err(); err != nil {
		return fmt.Errorf("%w: iterate %s: %w", ErrStoreUnavailable, c.name, err)
	}
	return nil
}

func (c *mongoCursor) Close(ctx context.Context) error { return c.cursor.Close(ctx) }

func (m *MongoStore) Insert(ctx context.Context, partition string, rec models.Record) error {
	if partition == "" {
		partition = m.Config.Table
	}
	return m.batch.Add(ctx, partition, rec)
}

func (m *MongoStore) CommitAll(ctx context.Context) error {
	return m.batch.CommitAll(ctx)
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoStore) flush(ctx context.Context, partition string, rows []models.Record) error {
	docs := make([]interface{}, len(rows))
	for i, r := range rows {
		docs[i] = bson.M(r)
	}
	if _, err := m.collection(partition).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("%w: insert into %s: %w", ErrStoreUnavailable, partition, err)
	}
	return nil
}
