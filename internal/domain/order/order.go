package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: already exists")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrInvalidProduct    = errors.New("order: product id is required")
	ErrInvalidStatus     = errors.New("order: unknown status")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusShipped  Status = "SHIPPED"
	StatusCanceled Status = "CANCELED"
)

// ParseStatus accepts any letter case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusPaid, StatusShipped, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Open orders still hold a claim on their product.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusPaid
}

type Order struct {
	ID        string
	ProductID string
	Quantity  int
	// Reserved is the stock this order currently holds; a release returns exactly this amount.
	Reserved       int
	Status         Status
	PaymentEventID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(id, productID string, quantity int) (*Order, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		ProductID: productID,
		Quantity:  quantity,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo moves the order to target if the state machine allows it.
func (o *Order) TransitionTo(target Status) error {
	if err := Transition(o.Status, target); err != nil {
		return err
	}
	o.Status = target
	o.touch()
	return nil
}

// MarkPaid records the payment event that drove PENDING -> PAID.
func (o *Order) MarkPaid(eventID string) error {
	if err := o.TransitionTo(StatusPaid); err != nil {
		return err
	}
	o.PaymentEventID = eventID
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
