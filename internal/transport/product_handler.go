package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"stock-pos/internal/domain"
	"stock-pos/internal/logger"
	"stock-pos/internal/middleware"
	"stock-pos/internal/repository"
	"stock-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DeleteResponse confirms a product removal
type DeleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ProductHandler serves the catalog and stock adjustment endpoints
type ProductHandler struct {
	products service.ProductService
	stock    service.StockService
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products service.ProductService, stock service.StockService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		stock:    stock,
		logger:   logger,
	}
}

// RegisterRoutes registers the catalog routes on a router mounted at /products
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		r.Post("/", h.Create)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/stock", h.AdjustStock)
	})
}

// List handles GET /products?category=&in_stock=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{Category: r.URL.Query().Get("category")}

	if raw := r.URL.Query().Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "in_stock must be a boolean")
			return
		}
		filter.InStock = &inStock
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.ProductInput
	if err := middleware.DecodeAndValidate(r, &input); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	actor, _ := middleware.GetActorID(r.Context())
	product, err := h.products.Create(r.Context(), input, actor)
	if err != nil {
		if errors.Is(err, repository.ErrProductAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict,
				fmt.Sprintf("A product with the name '%s' already exists.", input.Name))
			return
		}
		respondWithServiceError(w, r, h.logger, err, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles PATCH /products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update domain.ProductUpdate
	if err := middleware.DecodeAndValidate(r, &update); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	actor, _ := middleware.GetActorID(r.Context())
	product, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), update, actor)
	if err != nil {
		if errors.Is(err, repository.ErrProductAlreadyExists) && update.Name != nil {
			middleware.RespondWithError(w, http.StatusConflict,
				fmt.Sprintf("A product with the name '%s' already exists.", *update.Name))
			return
		}
		respondWithServiceError(w, r, h.logger, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor, _ := middleware.GetActorID(r.Context())

	if err := h.products.Delete(r.Context(), id, actor); err != nil {
		respondWithServiceError(w, r, h.logger, err, "failed to delete product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, DeleteResponse{
		Message: "Product deleted successfully",
		ID:      id,
	})
}

// AdjustStock handles PATCH /products/{id}/stock
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var adjustment domain.StockAdjustment
	if err := middleware.DecodeAndValidate(r, &adjustment); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	actor, _ := middleware.GetActorID(r.Context())
	delta := *adjustment.Adjustment
	product, err := h.stock.Adjust(r.Context(), chi.URLParam(r, "id"), delta, adjustment.Reason, actor)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			logger.FromContext(r.Context(), h.logger).Info("Stock adjustment refused",
				zap.String("id", chi.URLParam(r, "id")),
				zap.Int("adjustment", delta),
			)
		}
		respondWithServiceError(w, r, h.logger, err, "failed to adjust stock")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}
