// Package queue implements a durable, at-least-once work queue per pipeline
// on top of BadgerDB, with bounded worker concurrency, rate limiting,
// bounded retry with exponential backoff, and advisory progress reporting.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// ErrNoMessage is returned when the queue has no visible messages.
var ErrNoMessage = errors.New("no messages in queue")

// EnqueueOptions tune one enqueue.
type EnqueueOptions struct {
	Attempts int           // max delivery attempts, default 3
	Backoff  time.Duration // base retry delay, doubled per attempt, default 5s
}

// Message is the delivery-state record stored in Badger. The job body
// itself lives in job storage; the queue only tracks delivery state.
type Message struct {
	JobID        string        `json:"job_id"`
	Queue        string        `json:"queue"`
	EnqueuedAt   time.Time     `json:"enqueued_at"`
	VisibleAt    time.Time     `json:"visible_at"`
	ReceiveCount int           `json:"receive_count"`
	Backoff      time.Duration `json:"backoff"`
}

// Manager is one pipeline's durable queue.
type Manager struct {
	db                *badger.DB
	jobs              interfaces.JobStorage
	queueName         string
	visibilityTimeout time.Duration
	logger            arbor.ILogger
}

// NewManager creates a queue manager for one named queue.
func NewManager(db *badger.DB, jobs interfaces.JobStorage, queueName string, visibilityTimeout time.Duration, logger arbor.ILogger) (*Manager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}

	return &Manager{
		db:                db,
		jobs:              jobs,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		logger:            logger,
	}, nil
}

// Name returns the queue name.
func (m *Manager) Name() string {
	return m.queueName
}

// Enqueue admits a job. The job id doubles as the idempotency key: a job
// that already exists in a non-terminal state makes the enqueue a
// deterministic no-op; a terminal job is replaced and re-run.
func (m *Manager) Enqueue(ctx context.Context, job *models.QueueJob, opts EnqueueOptions) error {
	if job.Queue != m.queueName {
		return fmt.Errorf("job queue %q does not match manager queue %q", job.Queue, m.queueName)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}

	existing, err := m.jobs.Get(ctx, job.ID)
	if err == nil {
		if !existing.Status.IsTerminal() {
			m.logger.Debug().
				Str("job_id", job.ID).
				Str("queue", m.queueName).
				Msg("Duplicate enqueue ignored, job still in flight")
			return nil
		}
		// Terminal record: fall through and replace.
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return fmt.Errorf("failed to check existing job: %w", err)
	}

	job.Status = models.JobPending
	job.Attempt = 0
	job.Progress = 0
	job.Result = nil
	job.Error = ""
	job.MaxAttempts = opts.Attempts
	job.StartedAt = nil
	job.CompletedAt = nil
	if err := m.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job record: %w", err)
	}

	now := time.Now().UTC()
	msg := Message{
		JobID:      job.ID,
		Queue:      m.queueName,
		EnqueuedAt: now,
		VisibleAt:  now,
		Backoff:    opts.Backoff,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(m.msgKey(msg.JobID), data); err != nil {
			return err
		}
		return txn.Set(m.indexKey(msg.VisibleAt, msg.JobID), []byte{})
	})
}

// Receive claims the next visible message, extending its visibility by the
// configured timeout. Returns ErrNoMessage when nothing is ready.
func (m *Manager) Receive(ctx context.Context) (*Message, error) {
	var claimed Message

	err := m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := m.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now().UTC()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			ts, id, err := m.parseIndexKey(key)
			if err != nil {
				continue
			}
			// Index keys sort by timestamp: a future entry means nothing
			// later is ready either.
			if ts.After(now) {
				break
			}

			item, err := txn.Get(m.msgKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Orphaned index entry, clean up and keep scanning.
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			var msg Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}

			msg.ReceiveCount++
			msg.VisibleAt = now.Add(m.visibilityTimeout)

			data, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(m.msgKey(id), data); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Set(m.indexKey(msg.VisibleAt, id), []byte{}); err != nil {
				return err
			}

			claimed = msg
			return nil
		}

		return ErrNoMessage
	})

	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// Delete removes a message after terminal processing.
func (m *Manager) Delete(jobID string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(m.msgKey(jobID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil // already deleted
			}
			return err
		}

		var msg Message
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &msg)
		}); err != nil {
			return err
		}

		if err := txn.Delete(m.indexKey(msg.VisibleAt, jobID)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Delete(m.msgKey(jobID))
	})
}

// Release makes a claimed message visible again after the given delay. Used
// by the retry path; the retried job may be picked up by any worker.
func (m *Manager) Release(jobID string, delay time.Duration) error {
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(m.msgKey(jobID))
		if err != nil {
			return err
		}

		var msg Message
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &msg)
		}); err != nil {
			return err
		}

		oldVisibleAt := msg.VisibleAt
		msg.VisibleAt = time.Now().UTC().Add(delay)

		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(jobID), data); err != nil {
			return err
		}
		if err := txn.Delete(m.indexKey(oldVisibleAt, jobID)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(m.indexKey(msg.VisibleAt, jobID), []byte{})
	})
}

// RetryDelay computes the exponential backoff delay for a given attempt
// number (1-based): base * 2^attempt.
func RetryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 5 * time.Second
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Helpers

func (m *Manager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *Manager) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
}

func (m *Manager) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so lexicographic ordering matches numeric
	// timestamp ordering.
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, visibleAt.UnixNano(), id))
}

func (m *Manager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := m.indexPrefix()
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid index key length")
	}

	suffix := string(key[len(prefix):])
	if len(suffix) < 21 { // 20 digits + colon
		return time.Time{}, "", fmt.Errorf("invalid index key suffix")
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts).UTC(), suffix[21:], nil
}
