package relay

import (
	"testing"
	"time"
)

func recvOrFail(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
		return nil
	}
}

func TestHub_FanoutToAllSubscribers(t *testing.T) {
	h := NewHub(4)
	_, a := h.Subscribe()
	_, b := h.Subscribe()

	h.Publish([]byte(`{"n":1}`), true)

	if got := string(recvOrFail(t, a)); got != `{"n":1}` {
		t.Fatalf("a got %q", got)
	}
	if got := string(recvOrFail(t, b)); got != `{"n":1}` {
		t.Fatalf("b got %q", got)
	}
}

func TestHub_ReplaysLastPositionToNewSubscriber(t *testing.T) {
	h := NewHub(4)
	h.Publish([]byte(`{"n":1}`), true)
	h.Publish([]byte(`{"n":2}`), true)

	_, ch := h.Subscribe()
	if got := string(recvOrFail(t, ch)); got != `{"n":2}` {
		t.Fatalf("replay got %q want latest position", got)
	}
}

func TestHub_NonPositionNotRetained(t *testing.T) {
	h := NewHub(4)
	h.Publish([]byte(`{"type":"chat"}`), false)
	if h.LastPosition() != nil {
		t.Fatalf("non-position message must not be retained")
	}

	_, ch := h.Subscribe()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected replay %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(1)
	_, ch := h.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			h.Publish([]byte(`x`), false)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full subscriber")
	}
	// Exactly the buffered message survives.
	if got := len(ch); got != 1 {
		t.Fatalf("queued=%d want 1", got)
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(4)
	id, ch := h.Subscribe()
	if h.Clients() != 1 {
		t.Fatalf("clients=%d want 1", h.Clients())
	}

	h.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if h.Clients() != 0 {
		t.Fatalf("clients=%d want 0", h.Clients())
	}

	// Idempotent.
	h.Unsubscribe(id)
}
