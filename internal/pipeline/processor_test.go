package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sovanra-ruos/chat-service/internal/cache"
	"github.com/sovanra-ruos/chat-service/internal/domain"
)

const (
	testChatTopic     = "chat-messages"
	testPresenceTopic = "user-presence"
)

type fakeMessageRepo struct {
	rows      map[string]domain.ChatEvent
	insertErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{rows: make(map[string]domain.ChatEvent)}
}

func (r *fakeMessageRepo) InsertIfAbsent(ctx context.Context, ev *domain.ChatEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, ok := r.rows[ev.ID]; !ok {
		r.rows[ev.ID] = *ev
	}
	return nil
}

func (r *fakeMessageRepo) FindRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	var out []domain.ChatEvent
	for _, ev := range r.rows {
		if ev.RoomID == roomID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type broadcastCall struct {
	topic   string
	payload interface{}
}

type fakeBroadcaster struct {
	calls []broadcastCall
	err   error
}

func (b *fakeBroadcaster) Broadcast(topic string, payload interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.calls = append(b.calls, broadcastCall{topic: topic, payload: payload})
	return nil
}

func newTestStore() *cache.MemoryStore {
	return cache.NewMemoryStore(cache.Config{
		PresenceTTL: time.Hour,
		RecentTTL:   time.Hour,
		MarkerTTL:   time.Hour,
		RecentLimit: 50,
	})
}

func chatPayload(t *testing.T, ev domain.ChatEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func presencePayload(t *testing.T, ev domain.PresenceEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestChatEventPersistedCachedBroadcast(t *testing.T) {
	repo := newFakeMessageRepo()
	store := newTestStore()
	bc := &fakeBroadcaster{}
	p := NewProcessor(testChatTopic, testPresenceTopic, repo, store, bc)

	ev := domain.ChatEvent{
		ID: "m1", RoomID: "r1", SenderID: "u1", SenderName: "alice",
		Content: "hello", Kind: domain.KindChat, Timestamp: time.Now().UnixMilli(),
	}
	if err := p.HandleRecord(context.Background(), testChatTopic, []byte("r1"), chatPayload(t, ev)); err != nil {
		t.Fatalf("HandleRecord: %v", err)
	}

	if _, ok := repo.rows["m1"]; !ok {
		t.Error("chat event not persisted")
	}
	recent, _ := store.GetRecentMessages(context.Background(), "r1")
	if len(recent) != 1 || recent[0].ID != "m1" {
		t.Errorf("recent ring = %v, want single m1", recent)
	}
	if len(bc.calls) != 1 || bc.calls[0].topic != domain.ChatTopic("r1") {
		t.Errorf("broadcast calls = %v, want one to %s", bc.calls, domain.ChatTopic("r1"))
	}
}

func TestJoinLeaveSkipPersistence(t *testing.T) {
	for _, kind := range []domain.EventKind{domain.KindJoin, domain.KindLeave} {
		repo := newFakeMessageRepo()
		store := newTestStore()
		bc := &fakeBroadcaster{}
		p := NewProcessor(testChatTopic, testPresenceTopic, repo, store, bc)

		ev := domain.ChatEvent{
			ID: "n1", RoomID: "r1", SenderID: "u1", SenderName: "alice",
			Content: "alice has joined the conversation", Kind: kind,
			Timestamp: time.Now().UnixMilli(),
		}
		if err := p.HandleRecord(context.Background(), testChatTopic, []byte("r1"), chatPayload(t, ev)); err != nil {
			t.Fatalf("[%s] HandleRecord: %v", kind, err)
		}

		if len(repo.rows) != 0 {
			t.Errorf("[%s] notification was persisted", kind)
		}
		recent, _ := store.GetRecentMessages(context.Background(), "r1")
		if len(recent) != 1 {
			t.Errorf("[%s] notification not cached", kind)
		}
		if len(bc.calls) != 1 {
			t.Errorf("[%s] notification not broadcast", kind)
		}
	}
}

func TestPersistFailureBlocksCommit(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.insertErr = errors.New("db down")
	store := newTestStore()
	bc := &fakeBroadcaster{}
	p := NewProcessor(testChatTopic, testPresenceTopic, repo, store, bc)

	ev := domain.ChatEvent{ID: "m1", RoomID: "r1", SenderID: "u1", Kind: domain.KindChat}
	err := p.HandleRecord(context.Background(), testChatTopic, []byte("r1"), chatPayload(t, ev))
	if err == nil {
		t.Fatal("expected error when persistence fails")
	}
	if len(bc.calls) != 0 {
		t.Error("broadcast happened despite persistence failure")
	}
}

func TestRedeliveredChatEventIsIdempotent(t *testing.T) {
	repo := newFakeMessageRepo()
	store := newTestStore()
	bc := &fakeBroadcaster{}
	p := NewProcessor(testChatTopic, testPresenceTopic, repo, store, bc)

	ev := domain.ChatEvent{ID: "m1", RoomID: "r1", SenderID: "u1", Kind: domain.KindChat}
	payload := chatPayload(t, ev)
	for i := 0; i < 3; i++ {
		if err := p.HandleRecord(context.Background(), testChatTopic, []byte("r1"), payload); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if len(repo.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(repo.rows))
	}
	recent, _ := store.GetRecentMessages(context.Background(), "r1")
	if len(recent) != 1 {
		t.Errorf("ring length = %d, want 1", len(recent))
	}
}

func TestPresenceEventUpdatesStoreAndBroadcasts(t *testing.T) {
	repo := newFakeMessageRepo()
	store := newTestStore()
	bc := &fakeBroadcaster{}
	p := NewProcessor(testChatTopic, testPresenceTopic, repo, store, bc)

	online := domain.PresenceEvent{
		UserID: "u1", Username: "alice", RoomID: "r1",
		Status: domain.StatusOnline, Timestamp: time.Now().UnixMilli(),
	}
	if err := p.HandleRecord(context.Background(), testPresenceTopic, []byte("u1"), presencePayload(t, online)); err != nil {
		t.Fatalf("HandleRecord online: %v", err)
	}

	users, _ := store.GetRoomUsers(context.Background(), "r1")
	if len(users) != 1 || users[0] != "u1" {
		t.Errorf("room users = %v, want [u1]", users)
	}
	if len(bc.calls) != 1 || bc.calls[0].topic != domain.PresenceTopic("r1") {
		t.Errorf("broadcast calls = %v, want one to %s", bc.calls, domain.PresenceTopic("r1"))
	}

	offline := online
	offline.Status = domain.StatusOffline
	if err := p.HandleRecord(context.Background(), testPresenceTopic, []byte("u1"), presencePayload(t, offline)); err != nil {
		t.Fatalf("HandleRecord offline: %v", err)
	}
	users, _ = store.GetRoomUsers(context.Background(), "r1")
	if len(users) != 0 {
		t.Errorf("room users after offline = %v, want none", users)
	}
}

func TestAwayLeavesOnlineSetUntouched(t *testing.T) {
	repo := newFakeMessageRepo()
	store := newTestStore()
	bc := &fakeBroadcaster{}
	p := NewProcessor(testChatTopic, testPresenceTopic, repo, store, bc)

	online := domain.PresenceEvent{UserID: "u1", Username: "alice", RoomID: "r1", Status: domain.StatusOnline}
	away := online
	away.Status = domain.StatusAway

	p.HandleRecord(context.Background(), testPresenceTopic, []byte("u1"), presencePayload(t, online))
	p.HandleRecord(context.Background(), testPresenceTopic, []byte("u1"), presencePayload(t, away))

	users, _ := store.GetRoomUsers(context.Background(), "r1")
	if len(users) != 1 {
		t.Errorf("room users after away = %v, want [u1]", users)
	}
	rec, _ := store.GetPresence(context.Background(), "u1")
	if rec == nil || rec.Status != domain.StatusAway {
		t.Errorf("presence record = %v, want AWAY", rec)
	}
}

func TestMalformedPayloadSkippedWithoutError(t *testing.T) {
	repo := newFakeMessageRepo()
	store := newTestStore()
	bc := &fakeBroadcaster{}
	p := NewProcessor(testChatTopic, testPresenceTopic, repo, store, bc)

	if err := p.HandleRecord(context.Background(), testChatTopic, nil, []byte("{not json")); err != nil {
		t.Errorf("malformed chat payload returned error: %v", err)
	}
	if err := p.HandleRecord(context.Background(), testPresenceTopic, nil, []byte("{not json")); err != nil {
		t.Errorf("malformed presence payload returned error: %v", err)
	}
	if len(repo.rows) != 0 || len(bc.calls) != 0 {
		t.Error("malformed payload produced side effects")
	}
}

func TestUnknownTopicSkipped(t *testing.T) {
	p := NewProcessor(testChatTopic, testPresenceTopic, newFakeMessageRepo(), newTestStore(), &fakeBroadcaster{})
	if err := p.HandleRecord(context.Background(), "other-topic", nil, []byte("{}")); err != nil {
		t.Errorf("unknown topic returned error: %v", err)
	}
}
