package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	ch1, cancel1 := bus.Subscribe()
	ch2, cancel2 := bus.Subscribe()
	defer cancel1()
	defer cancel2()

	bus.Publish(JobUpdate{JobID: "j1", Status: "PROCESSING"})

	for _, ch := range []<-chan JobUpdate{ch1, ch2} {
		select {
		case u := <-ch:
			assert.Equal(t, "j1", u.JobID)
			assert.Equal(t, "PROCESSING", u.Status)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive update")
		}
	}
}

func TestBus_SlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBusWithQueueSize(2)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(JobUpdate{JobID: "a"})
	bus.Publish(JobUpdate{JobID: "b"})
	// queue full; the oldest update makes way
	bus.Publish(JobUpdate{JobID: "c"})

	first := <-ch
	second := <-ch
	assert.Equal(t, "b", first.JobID)
	assert.Equal(t, "c", second.JobID)
	select {
	case u := <-ch:
		t.Fatalf("unexpected extra update %q", u.JobID)
	default:
	}
}

func TestBus_CancelRemovesSubscriber(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	require.Equal(t, 1, bus.SubscriberCount())

	cancel()
	assert.Equal(t, 0, bus.SubscriberCount())
	_, open := <-ch
	assert.False(t, open, "channel closes on cancel")

	// cancel is idempotent
	cancel()
}

func TestBus_PublishWithNoSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(JobUpdate{JobID: "nobody-listening"})
}

func TestPublisher_StampsTimestamp(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pub := NewPublisher(bus, nil)
	pub.Publish(context.Background(), JobUpdate{JobID: "j1", Status: "COMPLETE"})

	select {
	case u := <-ch:
		assert.False(t, u.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("update not delivered")
	}
}
