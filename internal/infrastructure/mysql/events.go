package mysql

import (
	"context"
	"time"

	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"
)

type eventRepo struct{ q querier }

// InsertIfAbsent relies on the primary key: a concurrent insert of the same id waits on
// the key lock and then sees the committed row. An existing row older than notBefore is
// overwritten in place. processed_at is assigned last because MySQL evaluates the
// assignments left to right.
func (r eventRepo) InsertIfAbsent(ctx context.Context, ev dompayment.ProcessedEvent, notBefore time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
INSERT INTO processed_events (event_id, order_id, outcome, processed_at)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
  order_id     = IF(processed_at < ?, VALUES(order_id), order_id),
  outcome      = IF(processed_at < ?, VALUES(outcome), outcome),
  processed_at = IF(processed_at < ?, VALUES(processed_at), processed_at)`,
		ev.EventID, ev.OrderID, string(ev.Outcome), ev.ProcessedAt,
		notBefore, notBefore, notBefore,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// 1: inserted, 2: stale row replaced, 0: live duplicate.
	return rows > 0, nil
}

func (r eventRepo) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM processed_events WHERE processed_at < ?`, before)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	return int(rows), err
}
