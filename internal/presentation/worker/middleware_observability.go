// Package workerpresentation scopes loggers for work triggered by bus events rather
// than by HTTP requests.
package workerpresentation

import (
	"context"

	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability/logctx"

	"github.com/google/uuid"
)

// WithEventContext stores a delivery-scoped logger on ctx. The logger carries the event
// name, a delivery id (generated when empty) and the ids of the span active in ctx.
// Extra fields must stay low-cardinality.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	event, deliveryID string,
	extra ...observability.Field,
) context.Context {
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	fields := append([]observability.Field{
		observability.F("event", event),
		observability.F("delivery_id", deliveryID),
	}, extra...)
	return logctx.Scope(ctx, base, fields...)
}
