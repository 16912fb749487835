package server

import (
	"context"
	"fmt"

	"stock-pos/internal/config"
	"stock-pos/internal/database"
	"stock-pos/internal/repository"

	"go.uber.org/zap"
)

// Store bundles the repositories of one backend with its lifecycle hooks
type Store struct {
	Products repository.ProductRepository
	Sales    repository.SaleRepository

	health func(ctx context.Context) map[string]string
	close  func() error
}

// Health reports the backend status
func (s *Store) Health(ctx context.Context) map[string]string {
	return s.health(ctx)
}

// Close releases the backend connections
func (s *Store) Close() error {
	return s.close()
}

// OpenStore connects to the backend selected by cfg.Store.Driver. The Postgres
// backend is migrated from migrationsDir before use.
func OpenStore(ctx context.Context, cfg *config.Config, migrationsDir string, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db.DB(), migrationsDir, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &Store{
			Products: repository.NewProductRepository(db.DB()),
			Sales:    repository.NewSaleRepository(db.DB()),
			health:   db.Health,
			close:    db.Close,
		}, nil

	case config.StoreDriverMongo:
		mongoSvc, err := database.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		mdb := mongoSvc.Database()
		return &Store{
			Products: repository.NewMongoProductRepository(mdb.Collection(database.ProductsCollection)),
			Sales:    repository.NewMongoSaleRepository(mdb.Collection(database.SalesCollection)),
			health:   mongoSvc.Health,
			close:    mongoSvc.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
