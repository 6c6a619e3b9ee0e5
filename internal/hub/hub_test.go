package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sovanra-ruos/chat-service/internal/config"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

func newRegisteredClient(t *testing.T, h *Hub, id string) *Client {
	t.Helper()
	c := NewClient(id, h, nil, testConfig())
	h.Register(c)
	return c
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("client %s received unexpected message: %s", c.ID, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastReachesOnlySubscribers(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	sub := newRegisteredClient(t, h, "c1")
	other := newRegisteredClient(t, h, "c2")
	h.Subscribe(sub, "room:r1")

	if err := h.Broadcast("room:r1", map[string]string{"content": "hello"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(receive(t, sub), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["content"] != "hello" {
		t.Errorf("content = %q, want hello", got["content"])
	}
	assertSilent(t, other)
}

func TestBroadcastOrderPreserved(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	sub := newRegisteredClient(t, h, "c1")
	h.Subscribe(sub, "room:r1")

	for i := 0; i < 5; i++ {
		if err := h.Broadcast("room:r1", map[string]int{"seq": i}); err != nil {
			t.Fatalf("Broadcast %d: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		var got map[string]int
		if err := json.Unmarshal(receive(t, sub), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["seq"] != i {
			t.Fatalf("message %d has seq %d, want %d", i, got["seq"], i)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	sub := newRegisteredClient(t, h, "c1")
	h.Subscribe(sub, "room:r1")
	h.Unsubscribe(sub, "room:r1")

	if err := h.Broadcast("room:r1", map[string]string{"content": "hello"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	assertSilent(t, sub)
}

func TestSubscriberCount(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	c1 := newRegisteredClient(t, h, "c1")
	c2 := newRegisteredClient(t, h, "c2")
	h.Subscribe(c1, "room:r1")
	h.Subscribe(c2, "room:r1")

	if n := h.SubscriberCount("room:r1"); n != 2 {
		t.Errorf("SubscriberCount = %d, want 2", n)
	}
	h.Unsubscribe(c1, "room:r1")
	if n := h.SubscriberCount("room:r1"); n != 1 {
		t.Errorf("SubscriberCount after unsubscribe = %d, want 1", n)
	}
}

func TestClientRoomTracking(t *testing.T) {
	h := NewHub(testConfig())
	c := NewClient("c1", h, nil, testConfig())

	c.TrackRoom("r1")
	c.TrackRoom("r2")
	c.TrackRoom("r1")

	rooms := c.Rooms()
	if len(rooms) != 2 {
		t.Fatalf("Rooms = %v, want 2 entries", rooms)
	}

	c.UntrackRoom("r1")
	if rooms := c.Rooms(); len(rooms) != 1 || rooms[0] != "r2" {
		t.Errorf("Rooms after untrack = %v, want [r2]", rooms)
	}
}
