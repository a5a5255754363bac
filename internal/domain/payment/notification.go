package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMalformedPayload = errors.New("payment: malformed notification payload")
	ErrMissingEventID   = errors.New("payment: event id is required")
	ErrMissingOrderID   = errors.New("payment: order id is required")
	ErrDuplicateEvent   = errors.New("payment: event already processed")
	ErrEventInFlight    = errors.New("payment: event is being processed by another delivery")
)

// EventPaymentSucceeded is the only notification type that moves an order.
const EventPaymentSucceeded = "payment.succeeded"

type Notification struct {
	Event    string          `json:"event"`
	EventID  string          `json:"event_id,omitempty"`
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

// ParseNotification decodes a body that has already passed Verify.
func ParseNotification(body []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if n.Event == "" {
		return Notification{}, fmt.Errorf("%w: event type is required", ErrMalformedPayload)
	}
	return n, nil
}

type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

// ProcessedEvent marks a notification id whose side effect has been applied once.
type ProcessedEvent struct {
	EventID     string
	OrderID     string
	Outcome     Outcome
	ProcessedAt time.Time
}
