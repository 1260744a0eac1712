package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/warehouse/internal/domain/models"
)

const (
	removalsCollection  = "removal_events"
	snapshotsCollection = "stock_snapshots"
)

// Repository defines the archive operations backed by MongoDB.
type Repository interface {
	RecordRemoval(ctx context.Context, item string, event models.RemovalEvent) error
	SaveSnapshot(ctx context.Context, digest models.StockDigest) error
}

// removalDocument is the archived shape of a single removal.
type removalDocument struct {
	Item            string    `bson:"item"`
	Date            string    `bson:"date"`
	QuantityRemoved int       `bson:"quantity_removed"`
	ArchivedAt      time.Time `bson:"archived_at"`
}

func newRemovalDocument(item string, event models.RemovalEvent, archivedAt time.Time) removalDocument {
	return removalDocument{
		Item:            item,
		Date:            event.Date,
		QuantityRemoved: event.QuantityRemoved,
		ArchivedAt:      archivedAt.UTC(),
	}
}

var _ Repository = (*MongoDBRepository)(nil)

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	now    func() time.Time
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
		now:    time.Now,
	}, nil
}

// RecordRemoval archives one removal event.
func (r *MongoDBRepository) RecordRemoval(ctx context.Context, item string, event models.RemovalEvent) error {
	doc := newRemovalDocument(item, event, r.now())

	collection := r.client.Database(r.dbName).Collection(removalsCollection)
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert removal event: %w", err)
	}
	return nil
}

// SaveSnapshot stores a stock digest.
func (r *MongoDBRepository) SaveSnapshot(ctx context.Context, digest models.StockDigest) error {
	collection := r.client.Database(r.dbName).Collection(snapshotsCollection)
	if _, err := collection.InsertOne(ctx, digest); err != nil {
		return fmt.Errorf("failed to insert stock snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
