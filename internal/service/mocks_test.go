package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-pos/internal/domain"
	"stock-pos/internal/repository"

	"github.com/shopspring/decimal"
)

// mockProductRepository is an in-memory ProductRepository with the same
// atomic guarded increment the real stores provide
type mockProductRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	nextID   int

	// failIncrement, when set, is consulted before every IncrementStock
	failIncrement func(id string, delta int) error
	increments    []string
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[string]*domain.Product)}
}

func clone(p *domain.Product) *domain.Product {
	c := *p
	return &c
}

func (m *mockProductRepository) seed(name string, stock int) *domain.Product {
	p := &domain.Product{
		ProductInput: domain.ProductInput{
			Name:       name,
			Price:      decimal.RequireFromString("1.00"),
			StockLevel: stock,
			Category:   "Test",
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := m.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

func (m *mockProductRepository) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].StockLevel
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Name == product.Name {
			return repository.ErrProductAlreadyExists
		}
	}
	m.nextID++
	product.ID = fmt.Sprintf("prod-%d", m.nextID)
	m.products[product.ID] = clone(product)
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id string, update domain.ProductUpdate, updatedAt time.Time) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Price != nil {
		p.Price = *update.Price
	}
	if update.Category != nil {
		p.Category = *update.Category
	}
	if update.Description != nil {
		p.Description = update.Description
	}
	p.UpdatedAt = updatedAt
	return clone(p), nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return clone(p), nil
}

func (m *mockProductRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Name == name {
			return clone(p), nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.InStock != nil && *filter.InStock != (p.StockLevel > 0) {
			continue
		}
		out = append(out, clone(p))
	}
	return out, nil
}

func (m *mockProductRepository) IncrementStock(ctx context.Context, id string, delta int, updatedAt time.Time) (*domain.Product, error) {
	if m.failIncrement != nil {
		if err := m.failIncrement(id, delta); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.increments = append(m.increments, fmt.Sprintf("%s%+d", id, delta))
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.StockLevel+delta < 0 {
		return nil, repository.ErrInsufficientStock
	}
	p.StockLevel += delta
	p.UpdatedAt = updatedAt
	return clone(p), nil
}

type mockSaleRepository struct {
	mu        sync.Mutex
	sales     []*domain.SaleRecord
	insertErr error
}

func (m *mockSaleRepository) Insert(ctx context.Context, sale *domain.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	sale.ID = fmt.Sprintf("sale-%d", len(m.sales)+1)
	c := *sale
	m.sales = append(m.sales, &c)
	return nil
}

func (m *mockSaleRepository) List(ctx context.Context, filter domain.SaleFilter) ([]*domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.SaleRecord{}
	for _, s := range m.sales {
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if filter.StartDate != nil && s.SaleDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && s.SaleDate.After(*filter.EndDate) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
