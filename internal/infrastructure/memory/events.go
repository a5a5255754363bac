package memory

import (
	"context"
	"fmt"
	"time"

	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
)

type eventRepository struct{ u *unit }

func (r eventRepository) InsertIfAbsent(ctx context.Context, ev dompayment.ProcessedEvent, notBefore time.Time) (bool, error) {
	_ = ctx
	if ev.EventID == "" {
		return false, fmt.Errorf("processed event repository: id is required")
	}
	if existing, ok := r.u.event(ev.EventID); ok && !existing.ProcessedAt.Before(notBefore) {
		return false, nil
	}
	r.u.events[ev.EventID] = &ev
	return true, nil
}

func (r eventRepository) Purge(ctx context.Context, before time.Time) (int, error) {
	_ = ctx
	n := 0
	for _, id := range r.u.allEventIDs() {
		ev, ok := r.u.event(id)
		if ok && ev.ProcessedAt.Before(before) {
			r.u.events[id] = nil
			n++
		}
	}
	return n, nil
}
