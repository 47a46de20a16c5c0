package etl

import (
	"testing"
	"time"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAfterFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, afterFilter(nil))
	assert.Equal(t, bson.M{"id": bson.M{"$gt": int64(42)}}, afterFilter(&Predicate{Field: "id", Value: 42}))
}

func TestProjection(t *testing.T) {
	assert.Nil(t, projection(nil))
	assert.Equal(t, bson.D{{Key: "id", Value: 1}, {Key: "_id", Value: 0}}, projection([]string{"id"}))
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}, {Key: "x", Value: 1}}, projection([]string{"_id", "x"}))
}

func TestDocumentToRecord(t *testing.T) {
	ts := time.Date(2014, 4, 1, 12, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	rec := documentToRecord(bson.M{
		"_id":       oid,
		"user":      int32(7),
		"timestamp": primitive.NewDateTimeFromTime(ts),
		"number":    "555",
	})
	assert.Equal(t, models.Record{
		"_id":       oid.Hex(),
		"user":      int64(7),
		"timestamp": ts,
		"number":    "555",
	}, rec)
}
