package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func waitDone(t *testing.T, o *Orchestrator, id string) JobSnapshot {
	t.Helper()
	var snap JobSnapshot
	require.Eventually(t, func() bool {
		snap = o.GetJob(id).Snapshot()
		return snap.Status.Done()
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func TestOrchestratorConvertsAndReuses(t *testing.T) {
	st := newTestStore(t)
	o := NewOrchestrator(OrchestratorConfig{Workers: 2, MaxQueue: 10}, newTestConverter(nil), st, zap.NewNop())
	o.Start(context.Background())
	defer o.Stop()

	first := NewJob("plan.txt", []byte(planText), Options{Evaluate: true})
	require.NoError(t, o.Submit(first))
	snap := waitDone(t, o, first.ID)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, StatusOK, snap.Outcome)
	require.NotEmpty(t, snap.ConversionID)

	stored, err := st.Get(context.Background(), snap.ConversionID)
	require.NoError(t, err)
	assert.Equal(t, "plan.txt", stored.Source)
	assert.Equal(t, "rules", stored.Strategy)

	second := NewJob("copy.txt", []byte(planText), Options{Evaluate: true})
	require.NoError(t, o.Submit(second))
	snap2 := waitDone(t, o, second.ID)
	assert.Equal(t, StatusReused, snap2.Status)
	assert.Equal(t, snap.ConversionID, snap2.ConversionID)

	res := o.GetJob(second.ID).Result()
	require.NotNil(t, res)
	require.NotNil(t, res.Tree)
	assert.Equal(t, "Plan", res.Tree.Title)
	assert.Equal(t, 2, res.Summary.Evaluated)

	third := NewJob("plan.txt", []byte(planText), Options{})
	require.NoError(t, o.Submit(third))
	snap3 := waitDone(t, o, third.ID)
	assert.Equal(t, StatusCompleted, snap3.Status, "different options convert again")
	assert.NotEqual(t, snap.ConversionID, snap3.ConversionID)
}

func TestOrchestratorFailedJob(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{Workers: 1, MaxQueue: 2}, newTestConverter(nil), nil, zap.NewNop())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("tool.exe", []byte("MZ"), Options{})
	require.NoError(t, o.Submit(job))
	snap := waitDone(t, o, job.ID)
	assert.Equal(t, StatusFailed, snap.Status)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "tool.exe")
}

func TestOrchestratorQueueFull(t *testing.T) {
	// Not started: nothing drains the queue.
	o := NewOrchestrator(OrchestratorConfig{Workers: 1, MaxQueue: 1}, newTestConverter(nil), nil, zap.NewNop())

	require.NoError(t, o.Submit(NewJob("a.txt", []byte("x"), Options{})))
	job := NewJob("b.txt", []byte("y"), Options{})
	err := o.Submit(job)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrQueueFull))
	assert.Equal(t, StatusFailed, o.GetJob(job.ID).Snapshot().Status)
	assert.Equal(t, 1, o.QueueDepth())

	o.Stop()
	assert.Error(t, o.Submit(NewJob("c.txt", nil, Options{})))
}
