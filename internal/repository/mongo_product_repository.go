package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-pos/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// productDocument is the stored shape of a product in the products collection
type productDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Price       primitive.Decimal128 `bson:"price"`
	StockLevel  int                  `bson:"stock_level"`
	Category    string               `bson:"category"`
	Description *string              `bson:"description,omitempty"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	dec, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to encode decimal %s: %w", d, err)
	}
	return dec, nil
}

func fromDecimal128(dec primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(dec.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to decode decimal %s: %w", dec, err)
	}
	return d, nil
}

func (d productDocument) toDomain() (*domain.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Product{
		ID: d.ID.Hex(),
		ProductInput: domain.ProductInput{
			Name:        d.Name,
			Price:       price,
			StockLevel:  d.StockLevel,
			Category:    d.Category,
			Description: d.Description,
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidProductID
	}
	return oid, nil
}

type mongoProductRepository struct {
	products *mongo.Collection
}

// NewMongoProductRepository creates a ProductRepository on a MongoDB collection.
// A unique index on name is expected (see database.EnsureMongoIndexes).
func NewMongoProductRepository(products *mongo.Collection) ProductRepository {
	return &mongoProductRepository{products: products}
}

func (r *mongoProductRepository) decodeOne(res *mongo.SingleResult) (*domain.Product, error) {
	var doc productDocument
	if err := res.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toDomain()
}

// Create inserts a new product and assigns its ID
func (r *mongoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	price, err := toDecimal128(product.Price)
	if err != nil {
		return err
	}

	doc := productDocument{
		ID:          primitive.NewObjectID(),
		Name:        product.Name,
		Price:       price,
		StockLevel:  product.StockLevel,
		Category:    product.Category,
		Description: product.Description,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}

	if _, err := r.products.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	product.ID = doc.ID.Hex()
	return nil
}

// Update applies the fields present in update and returns the stored product
func (r *mongoProductRepository) Update(ctx context.Context, id string, update domain.ProductUpdate, updatedAt time.Time) (*domain.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": updatedAt}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Price != nil {
		price, err := toDecimal128(*update.Price)
		if err != nil {
			return nil, err
		}
		set["price"] = price
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	product, err := r.decodeOne(r.products.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrProductAlreadyExists
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product. Sales referencing it are left untouched.
func (r *mongoProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := r.products.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *mongoProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	product, err := r.decodeOne(r.products.FindOne(ctx, bson.M{"_id": oid}))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByName retrieves a product by its unique name
func (r *mongoProductRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	product, err := r.decodeOne(r.products.FindOne(ctx, bson.M{"name": name}))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by name: %w", err)
	}

	return product, nil
}

// List retrieves products matching filter in insertion order
func (r *mongoProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.InStock != nil {
		if *filter.InStock {
			query["stock_level"] = bson.M{"$gt": 0}
		} else {
			query["stock_level"] = bson.M{"$eq": 0}
		}
	}

	cursor, err := r.products.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []*domain.Product{}
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		product, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// IncrementStock applies $inc with a $gte guard in one FindOneAndUpdate so concurrent callers never lose updates
func (r *mongoProductRepository) IncrementStock(ctx context.Context, id string, delta int, updatedAt time.Time) (*domain.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid}
	switch {
	case delta < 0:
		filter["stock_level"] = bson.M{"$gte": -delta}
	case delta > 0:
		filter["stock_level"] = bson.M{"$lte": domain.MaxStockLevel - delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock_level": delta},
		"$set": bson.M{"updated_at": updatedAt},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	product, err := r.decodeOne(r.products.FindOneAndUpdate(ctx, filter, update, opts))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to increment stock: %w", err)
	}

	// Nothing matched: either the document is gone or the guard refused it
	count, err := r.products.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to check product existence: %w", err)
	}
	if count == 0 {
		return nil, ErrProductNotFound
	}
	if delta > 0 {
		return nil, ErrStockOutOfRange
	}
	return nil, ErrInsufficientStock
}
