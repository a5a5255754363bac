package httppresentation

import (
	"errors"
	"io"
	"net/http"

	apppayment "github.com/Zhima-Mochi/minishop-inventory/internal/application/payment"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
)

const (
	headerSignature = "X-Webhook-Signature"
	headerEventID   = "X-Event-Id"
)

type webhookResponse struct {
	Status      dompayment.Outcome `json:"status"`
	EventID     string             `json:"event_id,omitempty"`
	OrderID     string             `json:"order_id,omitempty"`
	OrderStatus domorder.Status    `json:"order_status,omitempty"`
}

// handlePaymentWebhook passes the body through untouched: the signature covers the raw
// bytes, so nothing may decode and re-encode it first. Replays answer 200 so senders
// stop retrying.
func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.uc.ConfirmPayment.Execute(r.Context(), apppayment.ConfirmPaymentInput{
		Body:      body,
		Signature: r.Header.Get(headerSignature),
		EventID:   r.Header.Get(headerEventID),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := webhookResponse{Status: res.Outcome, EventID: res.EventID}
	if res.Outcome == dompayment.OutcomeConfirmed {
		resp.OrderID = res.OrderID
		resp.OrderStatus = res.OrderStatus
	}
	writeJSON(w, http.StatusOK, resp)
}
