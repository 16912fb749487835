package transport

import (
	"errors"
	"net/http"

	"stock-pos/internal/logger"
	"stock-pos/internal/middleware"
	"stock-pos/internal/repository"
	"stock-pos/internal/service"

	"go.uber.org/zap"
)

// statusFor maps the service error taxonomy to an HTTP status
func statusFor(err error) int {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrInvalidProductID),
		errors.Is(err, repository.ErrStockOutOfRange),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrProductAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes the error envelope for err. Client errors carry
// the error text; anything unexpected is logged and answered with a generic 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, failure string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context(), log).Error(failure, zap.Error(err))
		middleware.RespondWithError(w, status, failure)
		return
	}

	logger.FromContext(r.Context(), log).Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	middleware.RespondWithError(w, status, err.Error())
}
