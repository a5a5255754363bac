package httppresentation

import (
	"net/http"
	"time"

	apporder "github.com/Zhima-Mochi/minishop-inventory/internal/application/order"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
)

type createOrderRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type setOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	Status         domorder.Status `json:"status"`
	PaymentEventID string          `json:"payment_event_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		ProductID:      o.ProductID,
		Quantity:       o.Quantity,
		Status:         o.Status,
		PaymentEventID: o.PaymentEventID,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.uc.CreateOrder.Execute(r.Context(), apporder.CreateOrderInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = r.URL.Query().Get("status_filter")
	}

	orders, err := h.uc.ListOrders.Execute(r.Context(), apporder.ListOrdersInput{
		Status: status,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.uc.GetOrder.Execute(r.Context(), apporder.GetOrderInput{ID: r.PathValue("id")})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.uc.SetOrderStatus.Execute(r.Context(), apporder.SetOrderStatusInput{
		ID:     r.PathValue("id"),
		Status: req.Status,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.uc.CancelOrder.Execute(r.Context(), apporder.CancelOrderInput{ID: r.PathValue("id")})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
