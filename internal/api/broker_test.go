package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")

	evt := Event{Type: "solve.progress", Data: map[string]any{"iteration": 50}}
	b.Publish("r1", evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["iteration"].(int) != 50 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe("r1", ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestBrokerIsolatesRuns(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe("r1")
	ch2 := b.Subscribe("r2")
	defer b.Unsubscribe("r1", ch1)
	defer b.Unsubscribe("r2", ch2)

	b.Publish("r1", Event{Type: "solve.completed"})

	select {
	case <-ch1:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case evt := <-ch2:
		t.Fatalf("cross-run leak: %+v", evt)
	default:
	}
}

func TestBrokerDropsWhenSubscriberStalls(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	defer b.Unsubscribe("r1", ch)

	// Never read: publishes beyond the buffer must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish("r1", Event{Type: "solve.progress", Data: map[string]any{"iteration": i}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on stalled subscriber")
	}
}
