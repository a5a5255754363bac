package payment

import (
	"context"
	"time"
)

// ProcessedEventRepository is scoped to one atomic unit; see application.Store.
type ProcessedEventRepository interface {
	// InsertIfAbsent records ev unless a record for the same id exists that was processed
	// at or after notBefore. It reports whether ev was recorded.
	InsertIfAbsent(ctx context.Context, ev ProcessedEvent, notBefore time.Time) (bool, error)
	// Purge deletes records processed before the cutoff and returns how many went.
	Purge(ctx context.Context, before time.Time) (int, error)
}
