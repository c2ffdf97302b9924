package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	badgerstorage "github.com/praecohq/praeco/internal/storage/badger"
)

func newTestQueue(t *testing.T, visibility time.Duration) (*Manager, interfaces.JobStorage) {
	t.Helper()
	logger := arbor.NewLogger()

	sm, err := badgerstorage.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { sm.Close() })

	db, ok := sm.DB().(*badgerstorage.BadgerDB)
	if !ok {
		t.Fatalf("unexpected db type %T", sm.DB())
	}

	mgr, err := NewManager(db.Store().Badger(), sm.JobStorage(), "test", visibility, logger)
	if err != nil {
		t.Fatalf("failed to create queue manager: %v", err)
	}
	return mgr, sm.JobStorage()
}

func TestEnqueueReceiveDelete(t *testing.T) {
	ctx := context.Background()
	mgr, jobs := newTestQueue(t, time.Minute)

	job := models.NewQueueJob("test", "job-1", map[string]interface{}{"brand_id": "b1"})
	if err := mgr.Enqueue(ctx, job, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Job record is persisted pending with the default attempt budget.
	stored, err := jobs.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("job record missing: %v", err)
	}
	if stored.Status != models.JobPending {
		t.Errorf("status = %v, want pending", stored.Status)
	}
	if stored.MaxAttempts != 3 {
		t.Errorf("max_attempts = %d, want default 3", stored.MaxAttempts)
	}

	msg, err := mgr.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if msg.JobID != "job-1" {
		t.Errorf("job id = %q, want job-1", msg.JobID)
	}
	if msg.ReceiveCount != 1 {
		t.Errorf("receive count = %d, want 1", msg.ReceiveCount)
	}

	// Claimed message is invisible until the timeout lapses.
	if _, err := mgr.Receive(ctx); !errors.Is(err, ErrNoMessage) {
		t.Errorf("second Receive = %v, want ErrNoMessage", err)
	}

	if err := mgr.Delete("job-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := mgr.Receive(ctx); !errors.Is(err, ErrNoMessage) {
		t.Errorf("Receive after delete = %v, want ErrNoMessage", err)
	}

	// Delete is idempotent.
	if err := mgr.Delete("job-1"); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
}

func TestEnqueueIdempotent(t *testing.T) {
	ctx := context.Background()
	mgr, jobs := newTestQueue(t, time.Minute)

	job := models.NewQueueJob("test", "job-dup", map[string]interface{}{"n": "1"})
	if err := mgr.Enqueue(ctx, job, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Same id while in flight: deterministic no-op.
	dup := models.NewQueueJob("test", "job-dup", map[string]interface{}{"n": "2"})
	if err := mgr.Enqueue(ctx, dup, EnqueueOptions{}); err != nil {
		t.Fatalf("duplicate Enqueue failed: %v", err)
	}

	stored, err := jobs.Get(ctx, "job-dup")
	if err != nil {
		t.Fatalf("job record missing: %v", err)
	}
	if stored.PayloadString("n") != "1" {
		t.Errorf("payload overwritten by duplicate enqueue: n = %q", stored.PayloadString("n"))
	}

	msg, err := mgr.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if msg.JobID != "job-dup" {
		t.Fatalf("unexpected job %q", msg.JobID)
	}
	// Only one message despite two enqueues.
	if _, err := mgr.Receive(ctx); !errors.Is(err, ErrNoMessage) {
		t.Errorf("second Receive = %v, want ErrNoMessage", err)
	}

	// Terminal job with the same id is replaced and re-run.
	stored.Status = models.JobCompleted
	if err := jobs.Update(ctx, stored); err != nil {
		t.Fatalf("failed to mark job completed: %v", err)
	}
	if err := mgr.Delete("job-dup"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	rerun := models.NewQueueJob("test", "job-dup", map[string]interface{}{"n": "3"})
	if err := mgr.Enqueue(ctx, rerun, EnqueueOptions{}); err != nil {
		t.Fatalf("re-enqueue failed: %v", err)
	}
	stored, err = jobs.Get(ctx, "job-dup")
	if err != nil {
		t.Fatalf("job record missing: %v", err)
	}
	if stored.Status != models.JobPending {
		t.Errorf("re-enqueued status = %v, want pending", stored.Status)
	}
	if stored.PayloadString("n") != "3" {
		t.Errorf("re-enqueued payload n = %q, want 3", stored.PayloadString("n"))
	}
}

func TestReleaseMakesMessageVisible(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestQueue(t, time.Minute)

	job := models.NewQueueJob("test", "job-rel", nil)
	if err := mgr.Enqueue(ctx, job, EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if _, err := mgr.Receive(ctx); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if _, err := mgr.Receive(ctx); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("message visible while claimed")
	}

	if err := mgr.Release("job-rel", 0); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	msg, err := mgr.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive after release failed: %v", err)
	}
	if msg.ReceiveCount != 2 {
		t.Errorf("receive count = %d, want 2", msg.ReceiveCount)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{5 * time.Second, 0, 5 * time.Second},
		{5 * time.Second, 1, 10 * time.Second},
		{5 * time.Second, 2, 20 * time.Second},
		{5 * time.Second, 3, 40 * time.Second},
		{0, 1, 10 * time.Second}, // zero base falls back to 5s
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.base, tt.attempt); got != tt.want {
			t.Errorf("RetryDelay(%v, %d) = %v, want %v", tt.base, tt.attempt, got, tt.want)
		}
	}
}
