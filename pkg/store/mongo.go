package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "flowdiagram"
	DefaultMongoCollection = "flows"
)

// mongoRecord is the stored shape: the flow name is the primary key.
type mongoRecord struct {
	Name      string        `bson:"_id"`
	Flow      flow.Document `bson:"flow"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

// MongoStore keeps one document per flow in a collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// ConnectMongo dials uri and returns a store on database/collection. Empty
// names use the defaults.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	// Nested catch-all documents decode as maps so they encode back to JSON
	// objects.
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errs.Wrap(errs.ErrCodeStore, err, "ping mongo")
	}
	return NewMongoStore(client, database, collection), nil
}

// NewMongoStore wraps an existing client. Close disconnects it.
func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}
}

func (s *MongoStore) Get(ctx context.Context, name string) (*flow.Document, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "mongo find %s", name)
	}

	doc := &rec.Flow
	doc.Name = name
	doc.Normalize()
	return doc, nil
}

func (s *MongoStore) Put(ctx context.Context, doc *flow.Document) error {
	if err := ValidateName(doc.Name); err != nil {
		return err
	}
	rec := mongoRecord{Name: doc.Name, Flow: *doc, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.Name}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrap(errs.ErrCodeStore, err, "mongo upsert %s", doc.Name)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return errs.Wrap(errs.ErrCodeStore, err, "mongo delete %s", name)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "mongo list")
	}

	var recs []struct {
		Name string `bson:"_id"`
	}
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "mongo list")
	}
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
