package eventbus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

func testEvent(i int) arcana.Event {
	return arcana.NewEvent(arcana.EventInvoke, arcana.DaemonClaude, true, fmt.Sprintf("event-%d", i), nil)
}

func TestHistoryRingBound(t *testing.T) {
	const capacity = 5
	bus := New(capacity)

	// Emit capacity + k events; only the newest capacity remain, in order.
	const k = 3
	for i := 0; i < capacity+k; i++ {
		bus.Emit(testEvent(i))
	}

	recent := bus.Recent(capacity)
	require.Len(t, recent, capacity)
	for i, event := range recent {
		assert.Equal(t, fmt.Sprintf("event-%d", i+k), event.Description)
	}
}

func TestRecentBounds(t *testing.T) {
	bus := New(10)
	for i := 0; i < 4; i++ {
		bus.Emit(testEvent(i))
	}

	t.Run("n larger than history returns everything", func(t *testing.T) {
		assert.Len(t, bus.Recent(100), 4)
	})

	t.Run("zero returns full retained history", func(t *testing.T) {
		assert.Len(t, bus.Recent(0), 4)
	})

	t.Run("most recent last", func(t *testing.T) {
		recent := bus.Recent(2)
		require.Len(t, recent, 2)
		assert.Equal(t, "event-2", recent[0].Description)
		assert.Equal(t, "event-3", recent[1].Description)
	})
}

func TestSubscriberFanOut(t *testing.T) {
	bus := New(10)

	first := bus.Subscribe()
	defer first.Close()
	second := bus.Subscribe()
	defer second.Close()

	bus.Emit(testEvent(1))

	for _, sub := range []*Subscription{first, second} {
		select {
		case event := <-sub.Events():
			assert.Equal(t, "event-1", event.Description)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestLateSubscriberSeesNoReplay(t *testing.T) {
	bus := New(10)
	bus.Emit(testEvent(1))

	sub := bus.Subscribe()
	defer sub.Close()

	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected replayed event: %s", event.Description)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClosedSubscriberIsPruned(t *testing.T) {
	bus := New(10)

	sub := bus.Subscribe()
	require.Equal(t, 1, bus.SubscriberCount())

	require.NoError(t, sub.Close())
	assert.Equal(t, 0, bus.SubscriberCount())

	// Emitting after close must not panic and the channel is closed.
	bus.Emit(testEvent(1))
	_, open := <-sub.Events()
	assert.False(t, open)

	// Close is idempotent.
	assert.NoError(t, sub.Close())
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New(200)
	sub := bus.Subscribe()
	defer sub.Close()

	// Overflow the subscriber buffer without draining; Emit must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			bus.Emit(testEvent(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}

	// The buffered prefix arrives in order; the rest were dropped.
	for i := 0; i < subscriberBuffer; i++ {
		event := <-sub.Events()
		assert.Equal(t, fmt.Sprintf("event-%d", i), event.Description)
	}
}

func TestConcurrentEmitAndSubscribe(t *testing.T) {
	bus := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sub := bus.Subscribe()
			for j := 0; j < 20; j++ {
				bus.Emit(testEvent(n*100 + j))
			}
			sub.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, bus.SubscriberCount())
	assert.Len(t, bus.Recent(0), 50)
}
