package realtime

import (
	"testing"
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewHub(log)
}

func recvMessage(t *testing.T, ch <-chan Message, timeout time.Duration) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for message")
	}
	return Message{}
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	hub := newTestHub(t)
	client := hub.NewClient()
	hub.Subscribe(client, "runs")

	hub.Broadcast(Message{Channel: "runs", Event: EventRunProgress, Data: map[string]any{"pct": 40}})

	got := recvMessage(t, client.Outbound, time.Second)
	if got.Event != EventRunProgress {
		t.Fatalf("event: got %q want %q", got.Event, EventRunProgress)
	}
}

func TestBroadcastSkipsOtherChannels(t *testing.T) {
	hub := newTestHub(t)
	client := hub.NewClient()
	hub.Subscribe(client, "run:abc")

	hub.Broadcast(Message{Channel: "run:other", Event: EventRunCompleted})

	select {
	case m := <-client.Outbound:
		t.Fatalf("unexpected message on %q: %+v", "run:abc", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub(t)
	client := hub.NewClient()
	hub.Subscribe(client, "runs")

	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(Message{Channel: "runs", Event: EventRunProgress, Data: i})
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("buffer: got %d want %d", len(client.Outbound), cap(client.Outbound))
	}
}

func TestRemoveClientStopsDelivery(t *testing.T) {
	hub := newTestHub(t)
	client := hub.NewClient()
	hub.Subscribe(client, "runs")
	hub.RemoveClient(client)

	hub.Broadcast(Message{Channel: "runs", Event: EventRunQueued})
	select {
	case m := <-client.Outbound:
		t.Fatalf("unexpected message after removal: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}
