package database

import (
	"context"
	"fmt"
	"time"

	"stock-pos/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	ProductsCollection = "products"
	SalesCollection    = "sales"
)

// MongoService wraps the document store client and the products database
type MongoService struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to MongoDB, pings the primary and ensures the catalog indexes
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*MongoService, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	svc := &MongoService{client: client, db: client.Database(cfg.Database)}
	if err := EnsureMongoIndexes(connectCtx, svc.db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("MongoDB connected", zap.String("database", cfg.Database))
	return svc, nil
}

// EnsureMongoIndexes creates the unique product name index and the sales date index
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ProductsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	_, err = db.Collection(SalesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sale_date", Value: 1}, {Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create sale indexes: %w", err)
	}

	return nil
}

// Database returns the products database handle
func (s *MongoService) Database() *mongo.Database {
	return s.db
}

// Health reports connectivity for the health endpoint
func (s *MongoService) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	return map[string]string{"status": "up", "driver": config.StoreDriverMongo}
}

// Close disconnects the client
func (s *MongoService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
