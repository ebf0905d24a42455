package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewBudgetRejectsNonPositiveRate(t *testing.T) {
	_, err := NewBudget(0)
	require.Error(t, err)

	_, err = NewBudget(-3)
	require.Error(t, err)
}

func TestWaitEnforcesMinimumSpacing(t *testing.T) {
	const (
		rate  = 50.0 // 20ms interval keeps the test fast
		calls = 5
	)

	budget, err := NewBudget(rate)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < calls; i++ {
		require.NoError(t, budget.Wait(context.Background()))
	}
	elapsed := time.Since(start)

	// N calls through one budget at R calls/sec take at least (N-1)/R.
	minElapsed := time.Duration(float64(calls-1) / rate * float64(time.Second))
	require.GreaterOrEqual(t, elapsed, minElapsed,
		"%d calls finished in %v, want at least %v", calls, elapsed, minElapsed)
}

func TestWaitConcurrentCallersShareOneBudget(t *testing.T) {
	const (
		rate  = 100.0
		calls = 8
	)

	budget, err := NewBudget(rate)
	require.NoError(t, err)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = budget.Wait(context.Background())
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	minElapsed := time.Duration(float64(calls-1) / rate * float64(time.Second))
	require.GreaterOrEqual(t, elapsed, minElapsed)
}

func TestIndependentBudgetsDoNotInterfere(t *testing.T) {
	slow, err := NewBudget(1) // 1s interval
	require.NoError(t, err)
	fast, err := NewBudget(1000)
	require.NoError(t, err)

	// Reserve the slow budget's first slot so a second Wait would block ~1s.
	require.NoError(t, slow.Wait(context.Background()))

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, fast.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), 500*time.Millisecond,
		"fast budget stalled behind the slow one")
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	budget, err := NewBudget(0.5) // 2s interval
	require.NoError(t, err)

	require.NoError(t, budget.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = budget.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
}
