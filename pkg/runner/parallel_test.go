package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.harness/pkg/azure"
)

func TestRunParallel_BoundedAndOrdered(t *testing.T) {
	hooks, rep, _, _ := newHooks()
	r := NewRunner(hooks)

	var current, peak int32
	tests := make([]Test, 6)
	for i := range tests {
		tests[i] = Test{
			Title: fmt.Sprintf("@PLAN_ID=1 @SUITE_ID=2 @[%d] case %d", 100+i, i),
			Fn: func(tc *T) error {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil
			},
		}
	}

	results, err := r.RunParallel(context.Background(), tests, 2)
	require.NoError(t, err)
	require.Len(t, results, 6)
	for i, res := range results {
		assert.Equal(t, tests[i].Title, res.Title)
		assert.Equal(t, azure.OutcomePassed, res.Status)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Len(t, rep.finishCalls(), 6)
}

func TestRunParallel_EvidenceIsolatedPerTest(t *testing.T) {
	hooks, rep, _, _ := newHooks()
	r := NewRunner(hooks)

	tests := make([]Test, 4)
	for i := range tests {
		tests[i] = Test{
			Title: fmt.Sprintf("@PLAN_ID=1 @SUITE_ID=2 @[%d] evidence", i+1),
			Fn: func(tc *T) error {
				tc.Attach("txt", []byte(fmt.Sprintf("evidence-%d", i)), tc.Execution.Metadata.TestCaseID)
				return nil
			},
		}
	}

	_, err := r.RunParallel(context.Background(), tests, 4)
	require.NoError(t, err)

	calls := rep.finishCalls()
	require.Len(t, calls, 4)
	for _, c := range calls {
		items := c.exec.Buffer.Items()
		require.Len(t, items, 1)
		assert.Equal(t, c.exec.Metadata.TestCaseID, items[0].Comment)
	}
}

func TestRunParallel_ZeroConcurrencyRunsOneAtATime(t *testing.T) {
	hooks, _, _, _ := newHooks()
	var running int32
	var overlap bool
	fn := func(*T) error {
		if atomic.AddInt32(&running, 1) > 1 {
			overlap = true
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}

	results, err := NewRunner(hooks).RunParallel(context.Background(),
		[]Test{{Title: "a", Fn: fn}, {Title: "b", Fn: fn}, {Title: "c", Fn: fn}}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.False(t, overlap)
}

func TestRunParallel_CancelledContext(t *testing.T) {
	hooks, _, _, _ := newHooks()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewRunner(hooks).RunParallel(ctx,
		[]Test{{Title: "a", Fn: passing}, {Title: "b", Fn: passing}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
