package bsonutil_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/odm/pkg/bsonutil"
)

func TestDate_TruncatesToSeconds(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 20, 30, 987_000_000, time.UTC)

	assert.Equal(t, primitive.DateTime(ts.Unix()*1000), bsonutil.Date(ts))
	assert.Equal(t, ts.Truncate(time.Second), bsonutil.Date(ts).Time().UTC())
	assert.Equal(t, ts.Truncate(time.Millisecond), bsonutil.DateMillis(ts).Time().UTC())
	assert.Zero(t, int64(bsonutil.Now())%1000)
}

func TestOID(t *testing.T) {
	id, err := bsonutil.OID("65f1c2a9e4b0a1b2c3d4e5f6")
	require.NoError(t, err)
	assert.Equal(t, "65f1c2a9e4b0a1b2c3d4e5f6", id.Hex())

	_, err = bsonutil.OID("nope")
	assert.Error(t, err)

	assert.Panics(t, func() { bsonutil.MustOID("nope") })
}

func TestNormalize(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := bson.Marshal(bson.D{
		{Key: "name", Value: "ada"},
		{Key: "born", Value: primitive.NewDateTimeFromTime(when)},
		{Key: "tags", Value: bson.A{"x", bson.D{{Key: "k", Value: int32(1)}}}},
		{Key: "meta", Value: bson.D{{Key: "seen", Value: primitive.NewDateTimeFromTime(when)}}},
	})
	require.NoError(t, err)

	got, err := bsonutil.NormalizeDocument(raw)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"name": "ada",
		"born": when,
		"tags": []any{"x", map[string]any{"k": int32(1)}},
		"meta": map[string]any{"seen": when},
	}, got)
}

func TestNormalize_Passthrough(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := bsonutil.Normalize(id)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

type fakeCursor struct {
	docs []bson.D
	pos  int
	err  error
}

func (c *fakeCursor) Next(context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Decode(v any) error {
	raw, err := bson.Marshal(c.docs[c.pos-1])
	if err != nil {
		return err
	}
	*(v.(*bson.Raw)) = raw
	return nil
}

func (c *fakeCursor) Err() error { return c.err }

func TestNormalizeCursor(t *testing.T) {
	c := &fakeCursor{docs: []bson.D{
		{{Key: "n", Value: int32(1)}},
		{{Key: "n", Value: int32(2)}},
	}}

	got, err := bsonutil.NormalizeCursor(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"n": int32(1)},
		map[string]any{"n": int32(2)},
	}, got)

	failing := &fakeCursor{err: errors.New("boom")}
	_, err = bsonutil.NormalizeCursor(context.Background(), failing)
	assert.EqualError(t, err, "boom")
}

func TestProject(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: "p1"},
		{Key: "name", Value: "ada"},
		{Key: "created_at", Value: int64(1)},
		{Key: "friends", Value: bson.A{
			bson.D{{Key: "name", Value: "bob"}, {Key: "age", Value: int32(3)}},
		}},
		{Key: "meta", Value: bson.D{{Key: "updated_at", Value: int64(2)}, {Key: "x", Value: "y"}}},
	}

	tests := []struct {
		name     string
		patterns []string
		want     bson.D
	}{
		{"no patterns", nil, doc},
		{"top level key", []string{"name"}, bson.D{{Key: "name", Value: "ada"}}},
		{"suffix glob at any depth", []string{"**/*_at", "*_at"}, bson.D{
			{Key: "created_at", Value: int64(1)},
			{Key: "meta", Value: bson.D{{Key: "updated_at", Value: int64(2)}}},
		}},
		{"array elements", []string{"friends/*/name"}, bson.D{
			{Key: "friends", Value: bson.A{bson.D{{Key: "name", Value: "bob"}}}},
		}},
		{"whole subtree", []string{"meta"}, bson.D{
			{Key: "meta", Value: bson.D{{Key: "updated_at", Value: int64(2)}, {Key: "x", Value: "y"}}},
		}},
		{"nothing matches", []string{"missing"}, bson.D{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bsonutil.Project(doc, tc.patterns...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := bsonutil.Project(doc, "[")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: "a"},
		{Key: "n", Value: int32(3)},
		{Key: "addr", Value: bson.D{{Key: "city", Value: "Porto"}}},
		{Key: "tags", Value: bson.A{"x", "y"}},
	})
	require.NoError(t, err)

	assert.True(t, bsonutil.Match(raw, nil))
	assert.True(t, bsonutil.Match(raw, bson.D{}))
	assert.True(t, bsonutil.Match(raw, bson.M{"n": 3.0}))
	assert.True(t, bsonutil.Match(raw, bson.D{{Key: "addr.city", Value: "Porto"}, {Key: "_id", Value: "a"}}))
	assert.True(t, bsonutil.Match(raw, bson.D{{Key: "tags", Value: bson.A{"x", "y"}}}))
	assert.False(t, bsonutil.Match(raw, bson.D{{Key: "addr.zip", Value: "1"}}))
	assert.False(t, bsonutil.Match(raw, bson.D{{Key: "n", Value: 4}}))
}
