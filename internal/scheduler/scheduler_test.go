package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/calvinwijaya/card-games-api/internal/store"
	mock_store "github.com/calvinwijaya/card-games-api/internal/store/mock"
)

func TestSchedulerRunsImmediatelyAndOnTick(t *testing.T) {
	var runs atomic.Int32

	s := NewScheduler(nil)
	s.AddTask("count", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	s.AddTask("ignored", 0, func(context.Context) error {
		t.Error("task with zero interval must not run")
		return nil
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestSchedulerKeepsRunningAfterError(t *testing.T) {
	var runs atomic.Int32

	s := NewScheduler(nil)
	s.AddTask("flaky", 5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})

	s.Start(context.Background())
	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestPurgeExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)

	st.EXPECT().PurgeExpired(gomock.Any(), gomock.Any()).Return(2, nil)
	st.EXPECT().PurgeExpired(gomock.Any(), gomock.Any()).Return(0, store.ErrNotFound)

	task := PurgeExpired(st, nil)
	require.NoError(t, task(context.Background()))
	assert.ErrorIs(t, task(context.Background()), store.ErrNotFound)
}
