package httppresentation

import (
	"context"
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability/logctx"
)

type insufficientStockResponse struct {
	Error     string `json:"error"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	ProductID string `json:"product_id"`
}

type invalidTransitionResponse struct {
	Error           string `json:"error"`
	CurrentStatus   string `json:"current_status"`
	RequestedStatus string `json:"requested_status"`
}

// writeDomainError maps use case errors onto status codes. Unexpected errors are logged
// and answered without detail.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr      *domproduct.InsufficientStockError
		transitionErr *domorder.TransitionError
	)
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, insufficientStockResponse{
			Error:     "insufficient stock",
			Requested: stockErr.Requested,
			Available: stockErr.Available,
			ProductID: stockErr.ProductID,
		})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusBadRequest, invalidTransitionResponse{
			Error:           "invalid status transition",
			CurrentStatus:   string(transitionErr.Current),
			RequestedStatus: string(transitionErr.Requested),
		})
	case errors.Is(err, dompayment.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, dompayment.ErrUnauthorized)
	case errors.Is(err, dompayment.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, application.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domproduct.ErrNotFound),
		errors.Is(err, domorder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domproduct.ErrDuplicateSKU),
		errors.Is(err, domproduct.ErrInUse),
		errors.Is(err, domorder.ErrConflict),
		errors.Is(err, dompayment.ErrEventInFlight):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, errors.New("request canceled"))
	default:
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error",
			observability.F("route", routeFromContext(r.Context())),
			observability.F("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
