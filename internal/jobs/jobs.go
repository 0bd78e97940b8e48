// Package jobs runs the periodic maintenance of calendar-server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/metrics"
)

// TokenPurger deletes refresh tokens that can no longer be used.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler wraps a cron runner whose jobs log through zerolog and
// never overlap with themselves.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		log:  log,
	}
}

// Add registers fn under spec (standard 5-field syntax or descriptors
// such as "@every 1h").
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job done")
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// PurgeTokens is the job body removing tokens expired before now.
func PurgeTokens(repo TokenPurger, log zerolog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n, err := repo.PurgeExpired(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if n > 0 {
			metrics.TokensPurged.Add(float64(n))
			log.Info().Int64("rows", n).Msg("purged refresh tokens")
		}
		return nil
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kv).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error().Err(err).Fields(kv).Msg(msg)
}
