package crud

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each collection in its own MongoDB collection, the same
// layout the generated Mongoose model produces. Ids are ObjectIDs and unique
// fields get sparse unique indexes.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a store over db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// ConnectMongo opens a client for uri and returns the named database.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, client.Database(database), nil
}

func (s *MongoStore) coll(c *Collection) *mongo.Collection {
	return s.db.Collection(c.Name)
}

// Setup creates the unique sparse indexes of c.
func (s *MongoStore) Setup(ctx context.Context, c *Collection) error {
	if len(c.Unique) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, len(c.Unique))
	for i, key := range c.Unique {
		models[i] = mongo.IndexModel{
			Keys:    bson.D{{Key: key, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		}
	}
	if _, err := s.coll(c).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("creating indexes for %s: %w", c.Name, err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, c *Collection, doc Document, now time.Time) (Document, error) {
	oid := primitive.NewObjectID()
	ts := now.UTC().Truncate(time.Millisecond)
	rec := bson.M{}
	for k, v := range doc {
		rec[k] = v
	}
	rec[KeyID] = oid
	rec[KeyCreatedAt] = ts
	rec[KeyUpdatedAt] = ts

	if _, err := s.coll(c).InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, s.conflict(ctx, c, oid, rec)
		}
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return fromBSON(rec), nil
}

func (s *MongoStore) Find(ctx context.Context, c *Collection, id string) (Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var m bson.M
	err = s.coll(c).FindOne(ctx, bson.M{KeyID: oid}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	return fromBSON(m), nil
}

// searchFilter matches q case-insensitively as a literal substring of any
// searchable field.
func searchFilter(c *Collection, q string) bson.M {
	if q == "" || len(c.Searchable) == 0 {
		return bson.M{}
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	ors := make(bson.A, len(c.Searchable))
	for i, key := range c.Searchable {
		ors[i] = bson.M{key: pattern}
	}
	return bson.M{"$or": ors}
}

func (s *MongoStore) List(ctx context.Context, c *Collection, q Query) ([]Document, int64, error) {
	filter := searchFilter(c, q.Search)
	opts := options.Find().
		SetSort(bson.D{{Key: KeyUpdatedAt, Value: -1}, {Key: KeyCreatedAt, Value: -1}}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))

	cur, err := s.coll(c).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("finding documents: %w", err)
	}
	var ms []bson.M
	if err := cur.All(ctx, &ms); err != nil {
		return nil, 0, fmt.Errorf("reading documents: %w", err)
	}
	total, err := s.coll(c).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting documents: %w", err)
	}
	docs := make([]Document, len(ms))
	for i, m := range ms {
		docs[i] = fromBSON(m)
	}
	return docs, total, nil
}

func (s *MongoStore) Update(ctx context.Context, c *Collection, id string, fields Document, now time.Time) (Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set[KeyUpdatedAt] = now.UTC().Truncate(time.Millisecond)

	var m bson.M
	err = s.coll(c).FindOneAndUpdate(ctx, bson.M{KeyID: oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, s.conflict(ctx, c, oid, set)
	case err != nil:
		return nil, fmt.Errorf("updating document: %w", err)
	}
	return fromBSON(m), nil
}

func (s *MongoStore) Delete(ctx context.Context, c *Collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	res, err := s.coll(c).DeleteOne(ctx, bson.M{KeyID: oid})
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Count(ctx context.Context, c *Collection) (int64, error) {
	n, err := s.coll(c).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *MongoStore) CountByMonth(ctx context.Context, c *Collection, since time.Time) ([]MonthCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{KeyCreatedAt: bson.M{"$gte": since.UTC()}}}},
		{{Key: "$group", Value: bson.M{
			KeyID:   bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$" + KeyCreatedAt}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{KeyID: 1}}},
	}
	cur, err := s.coll(c).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating documents: %w", err)
	}
	var buckets []struct {
		Month string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("reading buckets: %w", err)
	}
	out := make([]MonthCount, len(buckets))
	for i, b := range buckets {
		out[i] = MonthCount{Month: b.Month, Count: b.Count}
	}
	return out, nil
}

// conflict finds which unique field of doc is already held by another
// document. The driver's error does not carry the key in a stable form.
func (s *MongoStore) conflict(ctx context.Context, c *Collection, self primitive.ObjectID, doc bson.M) error {
	for _, key := range c.Unique {
		v, ok := uniqueValue(fromBSON(doc), key)
		if !ok {
			continue
		}
		n, err := s.coll(c).CountDocuments(ctx, bson.M{key: v, KeyID: bson.M{"$ne": self}})
		if err == nil && n > 0 {
			return &DuplicateKeyError{Field: key, Value: v}
		}
	}
	return &DuplicateKeyError{}
}

// fromBSON converts driver values to their JSON form: ObjectIDs become hex
// strings and dates use TimeLayout.
func fromBSON(m bson.M) Document {
	out := make(Document, len(m))
	for k, v := range m {
		out[k] = convertBSON(v)
	}
	return out
}

func convertBSON(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(TimeLayout)
	case time.Time:
		return t.UTC().Format(TimeLayout)
	case bson.M:
		return fromBSON(t)
	case map[string]any:
		return fromBSON(t)
	case bson.D:
		out := make(Document, len(t))
		for _, e := range t {
			out[e.Key] = convertBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = convertBSON(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = convertBSON(item)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	}
	return v
}
