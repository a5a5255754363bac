package payment

import "context"

// InflightGuard keeps two deliveries of the same event id from running their atomic
// units at the same time. It is an optimisation in front of the processed-event table,
// which stays the source of truth.
type InflightGuard interface {
	// Acquire reports false when another delivery holds eventID. release must be
	// called once the delivery finished.
	Acquire(ctx context.Context, eventID string) (release func(context.Context), acquired bool, err error)
}
