package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}
	return b
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	b := newRedisBroker(t)
	ch := b.Subscribe("r1")

	b.Publish("r1", Event{Type: "solve.progress", Data: map[string]any{"iteration": float64(50)}})

	select {
	case got := <-ch:
		if got.Type != "solve.progress" {
			t.Fatalf("got type %s", got.Type)
		}
		if got.Data["iteration"].(float64) != 50 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe("r1", ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestRedisBrokerIsolatesRuns(t *testing.T) {
	b := newRedisBroker(t)
	ch1 := b.Subscribe("r1")
	ch2 := b.Subscribe("r2")
	defer b.Unsubscribe("r1", ch1)
	defer b.Unsubscribe("r2", ch2)

	b.Publish("r1", Event{Type: "solve.completed"})

	select {
	case <-ch1:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	select {
	case evt := <-ch2:
		t.Fatalf("cross-run leak: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisBrokerBadURL(t *testing.T) {
	if _, err := NewRedisBroker("not-a-url"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
