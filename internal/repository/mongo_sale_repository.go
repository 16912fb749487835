package repository

import (
	"context"
	"fmt"
	"time"

	"stock-pos/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type saleItemDocument struct {
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
}

type saleDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Items       []saleItemDocument   `bson:"items"`
	TotalAmount primitive.Decimal128 `bson:"total_amount"`
	UserID      string               `bson:"user_id"`
	SaleDate    time.Time            `bson:"sale_date"`
}

func (d saleDocument) toDomain() (*domain.SaleRecord, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return nil, err
	}

	items := make([]domain.SaleItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.SaleItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return &domain.SaleRecord{
		ID: d.ID.Hex(),
		SaleInput: domain.SaleInput{
			Items:       items,
			TotalAmount: total,
			UserID:      d.UserID,
		},
		SaleDate: d.SaleDate.UTC(),
	}, nil
}

type mongoSaleRepository struct {
	sales *mongo.Collection
}

// NewMongoSaleRepository creates a SaleRepository on a MongoDB collection
func NewMongoSaleRepository(sales *mongo.Collection) SaleRepository {
	return &mongoSaleRepository{sales: sales}
}

// Insert stores the sale as a single document and assigns its ID
func (r *mongoSaleRepository) Insert(ctx context.Context, sale *domain.SaleRecord) error {
	total, err := toDecimal128(sale.TotalAmount)
	if err != nil {
		return err
	}

	doc := saleDocument{
		ID:          primitive.NewObjectID(),
		Items:       make([]saleItemDocument, 0, len(sale.Items)),
		TotalAmount: total,
		UserID:      sale.UserID,
		SaleDate:    sale.SaleDate,
	}
	for _, item := range sale.Items {
		doc.Items = append(doc.Items, saleItemDocument{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if _, err := r.sales.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	sale.ID = doc.ID.Hex()
	return nil
}

// List retrieves sales matching filter ordered by sale date
func (r *mongoSaleRepository) List(ctx context.Context, filter domain.SaleFilter) ([]*domain.SaleRecord, error) {
	query := bson.M{}
	if filter.StartDate != nil || filter.EndDate != nil {
		dateRange := bson.M{}
		if filter.StartDate != nil {
			dateRange["$gte"] = *filter.StartDate
		}
		if filter.EndDate != nil {
			dateRange["$lte"] = *filter.EndDate
		}
		query["sale_date"] = dateRange
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}

	opts := options.Find().SetSort(bson.D{{Key: "sale_date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.sales.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer cursor.Close(ctx)

	sales := []*domain.SaleRecord{}
	for cursor.Next(ctx) {
		var doc saleDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sale: %w", err)
		}
		sale, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, nil
}
