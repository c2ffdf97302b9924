package events

import (
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
)

func TestPublishSubscribe(t *testing.T) {
	hub := NewHub(arbor.NewLogger())

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(interfaces.Event{
		Type:  interfaces.EventJobStatus,
		JobID: "job-1",
		Queue: "discovery",
		Data:  map[string]interface{}{"status": "active"},
	})

	select {
	case event := <-ch:
		if event.Type != interfaces.EventJobStatus {
			t.Errorf("type = %v, want job_status", event.Type)
		}
		if event.JobID != "job-1" {
			t.Errorf("job id = %q, want job-1", event.JobID)
		}
		if event.Timestamp.IsZero() {
			t.Error("zero timestamp not stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishFanOut(t *testing.T) {
	hub := NewHub(arbor.NewLogger())

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	hub.Publish(interfaces.Event{Type: interfaces.EventRunFinished})

	for i, ch := range []<-chan interfaces.Event{ch1, ch2} {
		select {
		case event := <-ch:
			if event.Type != interfaces.EventRunFinished {
				t.Errorf("subscriber %d: type = %v, want run_finished", i, event.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: event not delivered", i)
		}
	}
}

func TestCancelIdempotent(t *testing.T) {
	hub := NewHub(arbor.NewLogger())

	ch, cancel := hub.Subscribe()
	cancel()
	cancel() // second call must not panic on a closed channel

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Publishing after cancel must not panic or deliver.
	hub.Publish(interfaces.Event{Type: interfaces.EventJobProgress})
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(arbor.NewLogger())

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Overfill a non-draining subscriber; the extra events are dropped
	// rather than blocking the publisher.
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(interfaces.Event{Type: interfaces.EventJobProgress})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != subscriberBuffer {
				t.Errorf("buffered events = %d, want %d", received, subscriberBuffer)
			}
			return
		}
	}
}
