package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	calls atomic.Int32
	err   error
}

func (f *fakePurger) PurgeExpired(context.Context, time.Time) (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestPurgeTokens(t *testing.T) {
	p := &fakePurger{}
	require.NoError(t, PurgeTokens(p, zerolog.Nop())(context.Background()))
	assert.Equal(t, int32(1), p.calls.Load())

	p.err = errors.New("db down")
	assert.Error(t, PurgeTokens(p, zerolog.Nop())(context.Background()))
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	assert.Error(t, s.Add("not a spec", "bad", func(context.Context) error { return nil }))
}

func TestScheduler_Runs(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	p := &fakePurger{}
	require.NoError(t, s.Add("@every 1s", "purge", PurgeTokens(p, zerolog.Nop())))
	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
