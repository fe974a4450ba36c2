package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultRetentionSchedule runs the purge nightly at 03:00.
const DefaultRetentionSchedule = "0 3 * * *"

// Retention purges audit records past their retention window on a cron
// schedule.
type Retention struct {
	cron   *cron.Cron
	store  *Store
	days   int
	logger zerolog.Logger
}

// NewRetention creates the retention scheduler. days <= 0 disables purging
// (records are kept forever); schedule defaults to DefaultRetentionSchedule.
func NewRetention(logger zerolog.Logger, store *Store, days int, schedule string) (*Retention, error) {
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}

	r := &Retention{
		cron:   cron.New(),
		store:  store,
		days:   days,
		logger: logger,
	}

	if days > 0 {
		if _, err := r.cron.AddFunc(schedule, r.purge); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Start begins the schedule. No-op when retention is disabled.
func (r *Retention) Start() {
	if r.days <= 0 {
		r.logger.Info().Msg("audit retention disabled, records kept indefinitely")
		return
	}
	r.cron.Start()
	r.logger.Info().Int("retention_days", r.days).Msg("audit retention scheduler started")
}

// Stop halts the schedule and waits for a running purge to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Retention) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -r.days)
	n, err := r.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("audit retention purge failed")
		return
	}
	r.logger.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("audit retention purge complete")
}
