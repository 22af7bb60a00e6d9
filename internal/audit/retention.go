package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Retention purges old audit entries on a cron schedule
type Retention struct {
	service *Service
	maxAge  time.Duration
	cron    *cron.Cron
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRetention schedules purges of entries older than maxAge.
// schedule is a standard 5-field cron expression; empty disables purging.
func NewRetention(service *Service, schedule string, maxAge time.Duration, logger zerolog.Logger) (*Retention, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if schedule != "" {
		if _, err := parser.Parse(schedule); err != nil {
			return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
		}
	}

	r := &Retention{
		service: service,
		maxAge:  maxAge,
		cron:    cron.New(cron.WithParser(parser)),
		logger:  logger.With().Str("component", "audit_retention").Logger(),
		now:     time.Now,
	}

	if schedule == "" {
		return r, nil
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule retention: %w", err)
	}
	return r, nil
}

// Start begins running the schedule in the background
func (r *Retention) Start() {
	if len(r.cron.Entries()) == 0 {
		r.logger.Info().Msg("Audit retention disabled")
		return
	}
	r.cron.Start()
	r.logger.Info().Dur("max_age", r.maxAge).Msg("Audit retention scheduler started")
}

// Stop halts the schedule and waits for a running purge to finish
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce purges everything older than the retention window
func (r *Retention) RunOnce(ctx context.Context) {
	cutoff := r.now().Add(-r.maxAge)
	removed, err := r.service.Purge(ctx, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("Audit retention purge failed")
		return
	}
	r.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Audit retention purge complete")
}
