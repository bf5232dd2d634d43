package jobs

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newJob(id string, started time.Time) Job {
	return Job{ID: id, Target: "example.com", Tools: []string{StepDNS}, StartedAt: started}
}

func TestRegistry_RegisterAndStatus(t *testing.T) {
	reg := NewRegistry()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	job := newJob("abc12345", started)
	job.Status = StatusCompleted
	require.NoError(t, reg.Register(job))

	got, ok := reg.Status("abc12345")
	require.True(t, ok)
	assert.Equal(t, StatusRunning, got.Status, "registered jobs always start running")
	assert.Nil(t, got.EndedAt)
	assert.Equal(t, "example.com", got.Target)
	assert.Equal(t, started, got.StartedAt)

	_, ok = reg.Result("abc12345")
	assert.False(t, ok, "running jobs have no aggregate")
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newJob("dup", time.Now())))

	err := reg.Register(newJob("dup", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestRegistry_UnknownID(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Status("nope")
	assert.False(t, ok)
	_, ok = reg.Result("nope")
	assert.False(t, ok)

	err := reg.Complete("nope", &Aggregate{})
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistry_Complete(t *testing.T) {
	reg := NewRegistry()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ended := started.Add(90 * time.Second)
	require.NoError(t, reg.Register(newJob("job1", started)))

	agg := &Aggregate{
		ScanID:        "job1",
		Target:        "example.com",
		Results:       map[tools.Name]*tools.Result{},
		TotalDuration: 90,
		StartedAt:     started,
		EndedAt:       ended,
	}
	require.NoError(t, reg.Complete("job1", agg))

	got, ok := reg.Status("job1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, ended, *got.EndedAt)
	assert.Equal(t, 90*time.Second, got.Duration())

	res, ok := reg.Result("job1")
	require.True(t, ok)
	assert.Same(t, agg, res)

	err := reg.Complete("job1", agg)
	assert.True(t, errors.IsConflict(err), "a completed job cannot complete again")
}

func TestRegistry_StatusReturnsCopies(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newJob("copy", time.Now())))

	got, _ := reg.Status("copy")
	got.Tools[0] = "mutated"
	got.Status = StatusCompleted

	again, _ := reg.Status("copy")
	assert.Equal(t, []string{StepDNS}, again.Tools)
	assert.Equal(t, StatusRunning, again.Status)
}

func TestRegistry_ListAndCounts(t *testing.T) {
	reg := NewRegistry()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, reg.Register(newJob("old", base)))
	require.NoError(t, reg.Register(newJob("mid", base.Add(time.Minute))))
	require.NoError(t, reg.Register(newJob("new", base.Add(2*time.Minute))))
	require.NoError(t, reg.Complete("mid", &Aggregate{ScanID: "mid", EndedAt: base.Add(90 * time.Second)}))

	list := reg.List()
	ids := make([]string, 0, len(list))
	for _, j := range list {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
	assert.Equal(t, Counts{Running: 2, Completed: 1}, reg.Counts())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		id := fmt.Sprintf("job-%02d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, reg.Register(newJob(id, time.Now())))
			_, _ = reg.Status(id)
			assert.NoError(t, reg.Complete(id, &Aggregate{ScanID: id, EndedAt: time.Now()}))
			_ = reg.List()
		}()
	}
	wg.Wait()

	assert.Equal(t, Counts{Completed: 50}, reg.Counts())
}
