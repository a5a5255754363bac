package payment

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
)

const (
	useCasePaymentSweep = "payment.sweep"

	DefaultSweepInterval = time.Hour
)

// Sweeper drops processed event ids that left the retention window, bounding the
// replay table.
type Sweeper struct {
	store     application.Store
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	inst      application.Instruments
}

func NewSweeper(store application.Store, retention, interval time.Duration, tel observability.Observability) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		inst:      application.NewInstruments(tel, paymentService),
	}
}

// Run sweeps once per interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

// Sweep purges once and returns how many records were removed.
func (s *Sweeper) Sweep(ctx context.Context) (purged int, err error) {
	ctx, run := s.inst.Begin(ctx, useCasePaymentSweep, "SweepProcessedEvents")
	defer func() { run.End(err) }()

	cutoff := s.now().UTC().Add(-s.retention)
	err = s.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		purged, err = repos.ProcessedEvents().Purge(ctx, cutoff)
		return err
	})
	if err != nil {
		run.Fail("PURGE_FAILED")
		return 0, err
	}
	run.With(
		observability.F("purged", purged),
		observability.F("cutoff", cutoff.Format(time.RFC3339)),
	)
	return purged, nil
}
