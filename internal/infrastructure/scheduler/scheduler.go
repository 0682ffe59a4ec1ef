package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dropme/rvm-backend/internal/core/ports"
	"github.com/dropme/rvm-backend/internal/infrastructure/queue"
)

// AuditScheduler periodically finds users with recent ledger activity and
// enqueues an aggregate audit for each. Paired with the dispatcher's
// sharding this gives eventual reconciliation of every active projection
// without ever scanning the full user base.
type AuditScheduler struct {
	cron       *cron.Cron
	deposits   ports.DepositRepository
	dispatcher *queue.Dispatcher
	schedule   string
	lookback   time.Duration
	log        zerolog.Logger
}

func New(deposits ports.DepositRepository, dispatcher *queue.Dispatcher, schedule string, lookback time.Duration, log zerolog.Logger) *AuditScheduler {
	return &AuditScheduler{
		cron:       cron.New(),
		deposits:   deposits,
		dispatcher: dispatcher,
		schedule:   schedule,
		lookback:   lookback,
		log:        log,
	}
}

// Start registers the cron entry and begins running it. The context bounds
// each individual run, not the cron loop; call Stop to halt scheduling.
func (s *AuditScheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().
		Str("schedule", s.schedule).
		Dur("lookback", s.lookback).
		Msg("audit scheduler started")
	return nil
}

// Stop halts scheduling and returns a context that completes once any
// in-flight run has finished.
func (s *AuditScheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *AuditScheduler) run(ctx context.Context) {
	since := time.Now().UTC().Add(-s.lookback)

	userIDs, err := s.deposits.ActiveUserIDsSince(ctx, since)
	if err != nil {
		s.log.Error().Err(err).Msg("audit scan failed")
		return
	}
	if len(userIDs) == 0 {
		return
	}

	s.dispatcher.EnqueueBatch(userIDs)
	s.log.Info().
		Int("users", len(userIDs)).
		Time("since", since).
		Msg("audits enqueued")
}
