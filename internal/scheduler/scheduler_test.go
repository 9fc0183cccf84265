package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

type fakeJobs struct {
	sweeps, processed atomic.Int32
	sweepErr          error
}

func (f *fakeJobs) SweepEndedEvents(context.Context) ([]model.Payout, error) {
	f.sweeps.Add(1)
	if f.sweepErr != nil {
		return nil, f.sweepErr
	}
	return []model.Payout{{ID: 1}}, nil
}

func (f *fakeJobs) ProcessPendingPayouts(context.Context) ([]model.Payout, error) {
	f.processed.Add(1)
	return nil, nil
}

func TestRunOnce_ProcessesAfterFailedSweep(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	jobs := &fakeJobs{sweepErr: errors.New("db down")}
	s, err := New(jobs, time.Hour, zap.New(core))
	require.NoError(t, err)
	defer s.Shutdown()

	s.RunOnce(context.Background())

	assert.EqualValues(t, 1, jobs.sweeps.Load())
	assert.EqualValues(t, 1, jobs.processed.Load())
	assert.Equal(t, 1, logs.FilterMessage("payout sweep failed").Len())
}

func TestScheduler_RunsOnStart(t *testing.T) {
	jobs := &fakeJobs{}
	s, err := New(jobs, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool { return jobs.processed.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown())

	after := jobs.processed.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, jobs.processed.Load(), "no runs after shutdown")
}

type fakePurger struct {
	calls atomic.Int32
	err   error
}

func (f *fakePurger) PurgeExpired(context.Context, time.Time) (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestPurge_LogsOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, err := New(nil, time.Hour, zap.New(core))
	require.NoError(t, err)
	defer s.Shutdown()

	s.Purge(context.Background(), "refresh_tokens", &fakePurger{})
	s.Purge(context.Background(), "email_otps", &fakePurger{err: errors.New("lock wait timeout")})

	assert.Equal(t, 1, logs.FilterMessage("purged expired rows").Len())
	assert.Equal(t, 1, logs.FilterMessage("purge failed").Len())
}

func TestAddPurge_Runs(t *testing.T) {
	s, err := New(nil, time.Hour, zap.NewNop())
	require.NoError(t, err)
	p := &fakePurger{}
	require.NoError(t, s.AddPurge("refresh_tokens", p, 20*time.Millisecond))
	s.Start()
	defer s.Shutdown()

	require.Eventually(t, func() bool { return p.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
