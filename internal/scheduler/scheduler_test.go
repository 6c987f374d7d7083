package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"alpha_dashboard/internal/dashboard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls    atomic.Int32
	err      error
	deadline atomic.Bool
}

func (r *countingRefresher) Refresh(ctx context.Context) (*dashboard.Snapshot, error) {
	r.calls.Add(1)
	_, ok := ctx.Deadline()
	r.deadline.Store(ok)
	return &dashboard.Snapshot{}, r.err
}

func TestRunNow(t *testing.T) {
	r := &countingRefresher{}
	s := New(context.Background(), r, time.Minute, zerolog.Nop())

	s.RunNow()
	assert.Equal(t, int32(1), r.calls.Load())
	assert.False(t, r.deadline.Load(), "runs use the scheduler context as is")
}

func TestRunNow_ErrorIsLogged(t *testing.T) {
	r := &countingRefresher{err: errors.New("missing credentials")}
	s := New(context.Background(), r, time.Minute, zerolog.Nop())

	assert.NotPanics(t, s.RunNow)
	assert.Equal(t, int32(1), r.calls.Load())
}

type blockingRefresher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (r *blockingRefresher) Refresh(ctx context.Context) (*dashboard.Snapshot, error) {
	r.calls.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return &dashboard.Snapshot{}, nil
}

func TestScheduledRefresh_SkipsOverlappingRuns(t *testing.T) {
	r := &blockingRefresher{release: make(chan struct{})}
	s := New(context.Background(), r, time.Second, zerolog.Nop())
	require.NoError(t, s.Register())

	s.Start()
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, 3*time.Second, 50*time.Millisecond)
	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, int32(1), r.calls.Load())

	close(r.release)
	s.Stop(time.Second)
}

func TestScheduledRefresh(t *testing.T) {
	r := &countingRefresher{}
	s := New(context.Background(), r, time.Second, zerolog.Nop())
	require.NoError(t, s.Register())

	s.Start()
	defer s.Stop(time.Second)

	assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
