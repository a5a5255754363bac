package order

import "time"

// OrderCreatedEvent is emitted after an order and its reservation commit.
type OrderCreatedEvent struct {
	OrderID        string    `json:"order_id"`
	ProductID      string    `json:"product_id"`
	Quantity       int       `json:"quantity"`
	RemainingStock int       `json:"remaining_stock"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func (e OrderCreatedEvent) PartitionKey() string { return e.OrderID }

func NewOrderCreatedEvent(o *Order, remainingStock int) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:        o.ID,
		ProductID:      o.ProductID,
		Quantity:       o.Quantity,
		RemainingStock: remainingStock,
		OccurredAt:     time.Now().UTC(),
	}
}

// OrderCanceledEvent carries how much stock went back to the product.
type OrderCanceledEvent struct {
	OrderID        string    `json:"order_id"`
	ProductID      string    `json:"product_id"`
	PreviousStatus Status    `json:"previous_status"`
	Released       int       `json:"released"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (OrderCanceledEvent) EventName() string { return "order.canceled" }

func (e OrderCanceledEvent) PartitionKey() string { return e.OrderID }

func NewOrderCanceledEvent(o *Order, previous Status, released int) OrderCanceledEvent {
	return OrderCanceledEvent{
		OrderID:        o.ID,
		ProductID:      o.ProductID,
		PreviousStatus: previous,
		Released:       released,
		OccurredAt:     time.Now().UTC(),
	}
}

type OrderPaidEvent struct {
	OrderID        string    `json:"order_id"`
	PaymentEventID string    `json:"payment_event_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func (e OrderPaidEvent) PartitionKey() string { return e.OrderID }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:        o.ID,
		PaymentEventID: o.PaymentEventID,
		OccurredAt:     time.Now().UTC(),
	}
}

type OrderShippedEvent struct {
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderShippedEvent) EventName() string { return "order.shipped" }

func (e OrderShippedEvent) PartitionKey() string { return e.OrderID }

func NewOrderShippedEvent(o *Order) OrderShippedEvent {
	return OrderShippedEvent{
		OrderID:    o.ID,
		OccurredAt: time.Now().UTC(),
	}
}
