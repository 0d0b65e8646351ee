package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessionDocument struct {
	Token     string    `bson:"_id"`
	Record    []byte    `bson:"record"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage keeps one document per token in the sessions collection.
// Expiry is left to a TTL index on updated_at.
type MongoStorage struct {
	collection *mongo.Collection
}

func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{collection: db.Collection("sessions")}
}

// EnsureTTLIndex creates the expiry index on updated_at.
func (m *MongoStorage) EnsureTTLIndex(ctx context.Context, ttl time.Duration) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to create session ttl index: %w", err)
	}
	return nil
}

func (m *MongoStorage) Get(ctx context.Context, token string) ([]byte, error) {
	var doc sessionDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": token}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return doc.Record, nil
}

func (m *MongoStorage) Set(ctx context.Context, token string, value []byte) error {
	filter := bson.M{"_id": token}
	update := bson.M{"$set": bson.M{"record": value, "updated_at": time.Now()}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (m *MongoStorage) Delete(ctx context.Context, token string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": token}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ConnectMongoDB opens a client and pings it before returning the database.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
