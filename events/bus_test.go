package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(New(TypePhaseStart, "run-1", "planner", nil))

	select {
	case ev := <-ch:
		assert.Equal(t, TypePhaseStart, ev.Type)
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, "planner", ev.Phase)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
}

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	bus.Publish(New(TypeMessage, "run-1", "draft", "hello"))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "hello", ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("expected event on every subscriber")
		}
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(WithBufferSize(1))
	defer bus.Close()

	_, cancel := bus.Subscribe()
	defer cancel()

	// Fill the buffer and keep publishing; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(New(TypeMessage, "run-1", "", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	bus.Publish(New(TypeMessage, "run-1", "", nil))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()

	ch, _ := bus.Subscribe()
	bus.Close()

	_, open := <-ch
	require.False(t, open)

	// Subscribing after close returns a closed channel.
	ch2, _ := bus.Subscribe()
	_, open = <-ch2
	assert.False(t, open)
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "run-1", sanitizeToken("run.1"))
	assert.Equal(t, "_", sanitizeToken(""))
	assert.Equal(t, "a-b-c", sanitizeToken("a b*c"))
}

type captureSink struct{ events []Event }

func (c *captureSink) Publish(ev Event) { c.events = append(c.events, ev) }

func TestFanout(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}

	sink := Fanout(a, nil, b)
	sink.Publish(New(TypePhaseStart, "run-1", "planner", nil))

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "run-1", a.events[0].RunID)
}

func TestFanout_SingleSinkUnwrapped(t *testing.T) {
	a := &captureSink{}
	assert.Equal(t, Sink(a), Fanout(nil, a))
}
