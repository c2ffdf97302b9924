package queue

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

func waitForStatus(t *testing.T, jobs interfaces.JobStorage, jobID string, want models.JobStatus) *models.QueueJob {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := jobs.Get(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, err := jobs.Get(context.Background(), jobID)
	t.Fatalf("job %s never reached %s (last: %+v, err: %v)", jobID, want, job, err)
	return nil
}

func TestWorkerPoolCompletesJob(t *testing.T) {
	ctx := context.Background()
	mgr, jobs := newTestQueue(t, time.Minute)
	logger := arbor.NewLogger()

	var calls int32
	handler := func(ctx context.Context, jc *JobContext) error {
		atomic.AddInt32(&calls, 1)
		jc.Progress(ctx, 50)
		jc.Job.Result = map[string]interface{}{"ok": true}
		return nil
	}

	pool := NewWorkerPool(mgr, jobs, nil, handler, WorkerOptions{
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
	}, logger)
	pool.Start()
	defer pool.Stop()

	job := models.NewQueueJob("test", "job-ok", map[string]interface{}{"brand_id": "b1"})
	if err := mgr.Enqueue(ctx, job, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	done := waitForStatus(t, jobs, "job-ok", models.JobCompleted)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("handler calls = %d, want 1", got)
	}
	if done.Progress != 100 {
		t.Errorf("progress = %d, want 100", done.Progress)
	}
	if done.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", done.Attempt)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps not stamped")
	}
	if ok, _ := done.Result["ok"].(bool); !ok {
		t.Errorf("result not persisted: %v", done.Result)
	}
}

func TestWorkerPoolRetriesThenFailsTerminally(t *testing.T) {
	ctx := context.Background()
	mgr, jobs := newTestQueue(t, time.Minute)
	logger := arbor.NewLogger()

	var calls int32
	handler := func(ctx context.Context, jc *JobContext) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("upstream unavailable")
	}

	pool := NewWorkerPool(mgr, jobs, nil, handler, WorkerOptions{
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
	}, logger)
	pool.Start()
	defer pool.Stop()

	job := models.NewQueueJob("test", "job-fail", nil)
	if err := mgr.Enqueue(ctx, job, EnqueueOptions{
		Attempts: 2,
		Backoff:  5 * time.Millisecond,
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	failed := waitForStatus(t, jobs, "job-fail", models.JobFailed)
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("handler calls = %d, want 2", got)
	}
	if failed.Attempt != 2 {
		t.Errorf("attempt = %d, want 2", failed.Attempt)
	}
	if failed.Error != "upstream unavailable" {
		t.Errorf("error = %q, want upstream unavailable", failed.Error)
	}
	if failed.CompletedAt == nil {
		t.Error("terminal failure missing completed_at")
	}

	// The queue entry is gone: nothing left to redeliver.
	if _, err := mgr.Receive(ctx); !errors.Is(err, ErrNoMessage) {
		t.Errorf("Receive after terminal failure = %v, want ErrNoMessage", err)
	}
}

func TestWorkerPoolRecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	mgr, jobs := newTestQueue(t, time.Minute)
	logger := arbor.NewLogger()

	handler := func(ctx context.Context, jc *JobContext) error {
		panic("boom")
	}

	pool := NewWorkerPool(mgr, jobs, nil, handler, WorkerOptions{
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
	}, logger)
	pool.Start()
	defer pool.Stop()

	job := models.NewQueueJob("test", "job-panic", nil)
	if err := mgr.Enqueue(ctx, job, EnqueueOptions{
		Attempts: 1,
		Backoff:  5 * time.Millisecond,
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	failed := waitForStatus(t, jobs, "job-panic", models.JobFailed)
	if !strings.Contains(failed.Error, "handler panicked") {
		t.Errorf("error = %q, want handler panicked", failed.Error)
	}
}

func TestProgressMonotonic(t *testing.T) {
	ctx := context.Background()
	mgr, jobs := newTestQueue(t, time.Minute)
	logger := arbor.NewLogger()

	var recorded []int
	done := make(chan struct{})
	handler := func(ctx context.Context, jc *JobContext) error {
		defer close(done)
		for _, pct := range []int{30, 60, 45, 60, 90} {
			jc.Progress(ctx, pct)
			recorded = append(recorded, jc.Job.Progress)
		}
		return nil
	}

	pool := NewWorkerPool(mgr, jobs, nil, handler, WorkerOptions{
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
	}, logger)
	pool.Start()
	defer pool.Stop()

	job := models.NewQueueJob("test", "job-progress", nil)
	if err := mgr.Enqueue(ctx, job, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("handler never ran")
	}

	want := []int{30, 60, 60, 60, 90}
	for i, pct := range want {
		if recorded[i] != pct {
			t.Errorf("progress after report %d = %d, want %d", i, recorded[i], pct)
		}
	}
}
