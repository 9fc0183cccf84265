// Package scheduler runs the periodic payout and housekeeping jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// PayoutJobs is the work the scheduler drives. *service.Payouts
// implements it.
type PayoutJobs interface {
	SweepEndedEvents(ctx context.Context) ([]model.Payout, error)
	ProcessPendingPayouts(ctx context.Context) ([]model.Payout, error)
}

// Purger deletes rows that can no longer be used and reports how many.
// The token and OTP repositories implement it.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// jobTimeout bounds a single run.
const jobTimeout = time.Minute

type Scheduler struct {
	inner  gocron.Scheduler
	jobs   PayoutJobs
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the payout job to run every interval, starting
// immediately.  Runs never overlap: a run still in progress when the next
// tick fires pushes that tick back.  A nil jobs leaves only the jobs added
// with AddPurge.
func New(jobs PayoutJobs, interval time.Duration, log *zap.Logger) (*Scheduler, error) {
	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{inner: inner, jobs: jobs, log: log, ctx: ctx, cancel: cancel}
	if jobs == nil {
		return s, nil
	}
	j, err := inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.tick),
		gocron.WithName("payouts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = inner.Shutdown()
		return nil, err
	}
	log.Info("payout job scheduled", zap.String("job_id", j.ID().String()), zap.Duration("interval", interval))
	return s, nil
}

// AddPurge runs p every interval under the given job name.
func (s *Scheduler) AddPurge(name string, p Purger, interval time.Duration) error {
	_, err := s.inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
			defer cancel()
			s.Purge(ctx, name, p)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// Purge runs one purger and logs the outcome.
func (s *Scheduler) Purge(ctx context.Context, name string, p Purger) {
	n, err := p.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		s.log.Warn("purge failed", zap.String("job", name), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("purged expired rows", zap.String("job", name), zap.Int64("rows", n))
	}
}

func (s *Scheduler) Start() { s.inner.Start() }

// Shutdown cancels a running job and waits for it to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.inner.Shutdown()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	s.RunOnce(ctx)
}

// RunOnce sweeps ended events into pending payouts and then settles every
// pending payout.  A failing sweep does not stop manual payouts from being
// processed.
func (s *Scheduler) RunOnce(ctx context.Context) {
	created, err := s.jobs.SweepEndedEvents(ctx)
	if err != nil {
		s.log.Error("payout sweep failed", zap.Error(err))
	} else if len(created) > 0 {
		s.log.Info("payout sweep created payouts", zap.Int("count", len(created)))
	}
	paid, err := s.jobs.ProcessPendingPayouts(ctx)
	if err != nil {
		s.log.Error("payout processing failed", zap.Error(err))
		return
	}
	if len(paid) > 0 {
		s.log.Info("payouts paid", zap.Int("count", len(paid)))
	}
}
