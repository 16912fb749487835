package transport

import (
	"fmt"
	"net/http"
	"time"

	"stock-pos/internal/domain"
	"stock-pos/internal/logger"
	"stock-pos/internal/middleware"
	"stock-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RegisterSaleRequest is the sale payload as received. TotalAmount is a pointer
// so a missing total is told apart from an explicit zero.
type RegisterSaleRequest struct {
	Items       []domain.SaleItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount *decimal.Decimal  `json:"total_amount" validate:"required"`
	UserID      string            `json:"user_id"`
}

func (req RegisterSaleRequest) toInput() domain.SaleInput {
	return domain.SaleInput{
		Items:       req.Items,
		TotalAmount: *req.TotalAmount,
		UserID:      req.UserID,
	}
}

// SaleHandler serves the point-of-sale endpoints
type SaleHandler struct {
	sales  service.SaleService
	logger *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		sales:  sales,
		logger: logger,
	}
}

// RegisterRoutes registers the sale routes on a router mounted at /products.
// Sale registration is public; rateLimit guards it against flooding.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.With(rateLimit).Post("/sales", h.Register)
	r.With(authMiddleware, adminMiddleware).Get("/sales", h.History)
}

// Register handles POST /products/sales
func (h *SaleHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	sale, err := h.sales.Register(r.Context(), req.toInput())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "failed to register sale")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// History handles GET /products/sales?start_date=&end_date=&user_id=
func (h *SaleHandler) History(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.SaleFilter{UserID: query.Get("user_id")}

	var err error
	if filter.StartDate, err = parseDateParam(query.Get("start_date")); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("start_date: %v", err))
		return
	}
	if filter.EndDate, err = parseDateParam(query.Get("end_date")); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("end_date: %v", err))
		return
	}

	actor, _ := middleware.GetActorID(r.Context())
	logger.FromContext(r.Context(), h.logger).Info("Sales report requested by admin", zap.String("admin_id", actor))

	sales, err := h.sales.History(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "failed to load sales history")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sales)
}

// parseDateParam accepts RFC3339 timestamps or plain dates (midnight UTC)
func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q, expected RFC3339", raw)
}
