package export

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/intervis/pkg/errors"
)

// MongoConfig configures a MongoSink.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Enabled reports whether a URI is configured.
func (c MongoConfig) Enabled() bool { return c.URI != "" }

// collection is the subset of *mongo.Collection the sink uses.
type collection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoSink writes line features as GeoJSON-shaped documents.
type MongoSink struct {
	client *mongo.Client
	coll   collection
}

// lineDoc is the stored document. Geometry follows GeoJSON so the
// collection can carry a 2dsphere index.
type lineDoc struct {
	IslandA  int64       `bson:"island_A"`
	IslandB  int64       `bson:"island_B"`
	Weight   float64     `bson:"A_sees_B"`
	Geometry lineGeomDoc `bson:"geometry"`
}

type lineGeomDoc struct {
	Type        string       `bson:"type"`
	Coordinates [][2]float64 `bson:"coordinates"`
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	if !cfg.Enabled() {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo uri is empty")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo database and collection are required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoSink{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Write stores lines. An already populated collection is an
// ALREADY_EXISTS error unless overwrite is set, in which case it is
// emptied first.
func (m *MongoSink) Write(ctx context.Context, lines []LineFeature, overwrite bool) error {
	n, err := m.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "mongo count")
	}
	if n > 0 {
		if !overwrite {
			return errors.New(errors.ErrCodeAlreadyExists, "mongo collection holds %d documents", n)
		}
		if _, err := m.coll.DeleteMany(ctx, bson.D{}); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err, "mongo clear")
		}
	}
	if len(lines) == 0 {
		return nil
	}

	docs := make([]interface{}, len(lines))
	for i, l := range lines {
		docs[i] = toDoc(l)
	}
	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "mongo insert")
	}
	return nil
}

// Close disconnects the client.
func (m *MongoSink) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func toDoc(l LineFeature) lineDoc {
	return lineDoc{
		IslandA: l.From,
		IslandB: l.To,
		Weight:  l.Weight,
		Geometry: lineGeomDoc{
			Type:        "LineString",
			Coordinates: [][2]float64{{l.Origin[0], l.Origin[1]}, {l.Dest[0], l.Dest[1]}},
		},
	}
}
