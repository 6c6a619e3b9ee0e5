package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sovanra-ruos/chat-service/internal/cache"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/ident"
	"github.com/sovanra-ruos/chat-service/internal/ingress"
	"github.com/sovanra-ruos/chat-service/internal/repository"
	"github.com/sovanra-ruos/chat-service/internal/session"
)

type fakePublisher struct {
	chatEvents     []domain.ChatEvent
	presenceEvents []domain.PresenceEvent
	err            error
}

func (p *fakePublisher) PublishChatEvent(ctx context.Context, ev *domain.ChatEvent) error {
	if p.err != nil {
		return p.err
	}
	p.chatEvents = append(p.chatEvents, *ev)
	return nil
}

func (p *fakePublisher) PublishPresenceEvent(ctx context.Context, ev *domain.PresenceEvent) error {
	if p.err != nil {
		return p.err
	}
	p.presenceEvents = append(p.presenceEvents, *ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeResolver struct {
	identities map[string]*domain.Identity
}

func (r *fakeResolver) Verify(ctx context.Context, credential string) (*domain.Identity, error) {
	if id, ok := r.identities[credential]; ok {
		return id, nil
	}
	return nil, errors.New("bad credential")
}

type fakeRoomRepo struct {
	participants map[string]map[string]struct{} // roomID -> userID set
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{participants: make(map[string]map[string]struct{})}
}

func (r *fakeRoomRepo) Create(ctx context.Context, room *domain.Room) error { return nil }
func (r *fakeRoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	return nil, repository.ErrRoomNotFound
}
func (r *fakeRoomRepo) List(ctx context.Context) ([]domain.Room, error) { return nil, nil }

func (r *fakeRoomRepo) AddParticipant(ctx context.Context, roomID, userID string) error {
	if _, ok := r.participants[roomID]; !ok {
		r.participants[roomID] = make(map[string]struct{})
	}
	r.participants[roomID][userID] = struct{}{}
	return nil
}

func (r *fakeRoomRepo) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	if users, ok := r.participants[roomID]; ok {
		delete(users, userID)
	}
	return nil
}

type fakeMessageRepo struct {
	recent []domain.ChatEvent
	calls  int
}

func (r *fakeMessageRepo) InsertIfAbsent(ctx context.Context, ev *domain.ChatEvent) error {
	return nil
}

func (r *fakeMessageRepo) FindRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	r.calls++
	return r.recent, nil
}

type fixture struct {
	svc       ChatService
	registry  session.Registry
	publisher *fakePublisher
	store     *cache.MemoryStore
	rooms     *fakeRoomRepo
	messages  *fakeMessageRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := session.NewMemoryRegistry()
	store := cache.NewMemoryStore(cache.Config{
		PresenceTTL: time.Hour,
		RecentTTL:   time.Hour,
		MarkerTTL:   time.Hour,
		RecentLimit: 50,
	})
	publisher := &fakePublisher{}
	rooms := newFakeRoomRepo()
	messages := &fakeMessageRepo{}
	gen, err := ident.New("uuid")
	if err != nil {
		t.Fatalf("ident.New: %v", err)
	}

	resolver := &fakeResolver{identities: map[string]*domain.Identity{
		"alice-token": {UserID: "u1", Username: "alice", Email: "alice@example.com", Roles: []string{"user"}},
	}}

	validator := ingress.NewValidator(registry, store)
	svc := NewChatService(resolver, registry, validator, publisher, store, rooms, messages, gen)

	return &fixture{
		svc:       svc,
		registry:  registry,
		publisher: publisher,
		store:     store,
		rooms:     rooms,
		messages:  messages,
	}
}

func TestRegisterSessionBindsIdentity(t *testing.T) {
	f := newFixture(t)

	identity, err := f.svc.RegisterSession(context.Background(), "s1", "alice-token")
	if err != nil {
		t.Fatalf("RegisterSession: %v", err)
	}
	if identity.UserID != "u1" {
		t.Errorf("identity.UserID = %q, want u1", identity.UserID)
	}

	bound, ok := f.registry.Lookup("s1")
	if !ok || bound.UserID != "u1" {
		t.Errorf("registry binding = %v %v, want u1 bound", bound, ok)
	}
}

func TestRegisterSessionRejectsBadCredential(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterSession(context.Background(), "s1", "forged-token")
	if !errors.Is(err, domain.ErrAuthRejected) {
		t.Fatalf("err = %v, want ErrAuthRejected", err)
	}
	if _, ok := f.registry.Lookup("s1"); ok {
		t.Error("rejected credential still produced a binding")
	}
}

func TestChatSendPublishesKeyedEvent(t *testing.T) {
	f := newFixture(t)
	f.svc.RegisterSession(context.Background(), "s1", "alice-token")

	err := f.svc.HandleChatSend(context.Background(), "s1", &domain.ChatSendMessage{
		RoomID: "r1", SenderID: "u1", Content: "hello",
	})
	if err != nil {
		t.Fatalf("HandleChatSend: %v", err)
	}

	if len(f.publisher.chatEvents) != 1 {
		t.Fatalf("published %d chat events, want 1", len(f.publisher.chatEvents))
	}
	ev := f.publisher.chatEvents[0]
	if ev.RoomID != "r1" || ev.SenderID != "u1" || ev.SenderName != "alice" {
		t.Errorf("event = %+v, want room r1 from u1/alice", ev)
	}
	if ev.Kind != domain.KindChat {
		t.Errorf("event kind = %s, want CHAT", ev.Kind)
	}
	if ev.ID == "" || ev.Timestamp == 0 {
		t.Error("event id and timestamp must be assigned server-side")
	}
}

func TestChatSendFromUnboundSessionRejected(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleChatSend(context.Background(), "s2", &domain.ChatSendMessage{
		RoomID: "r1", SenderID: "u1", Content: "hello",
	})
	if !errors.Is(err, domain.ErrAuthRejected) {
		t.Fatalf("err = %v, want ErrAuthRejected", err)
	}
	if len(f.publisher.chatEvents) != 0 {
		t.Error("unbound session still published an event")
	}
}

func TestChatSendSpoofedSenderRejected(t *testing.T) {
	f := newFixture(t)
	f.svc.RegisterSession(context.Background(), "s1", "alice-token")

	err := f.svc.HandleChatSend(context.Background(), "s1", &domain.ChatSendMessage{
		RoomID: "r1", SenderID: "u99", Content: "hello",
	})
	if !errors.Is(err, domain.ErrIdentitySpoofRejected) {
		t.Fatalf("err = %v, want ErrIdentitySpoofRejected", err)
	}
	if len(f.publisher.chatEvents) != 0 || len(f.publisher.presenceEvents) != 0 {
		t.Error("spoofed frame still produced side effects")
	}
}

func TestJoinPublishesPresenceAndNotification(t *testing.T) {
	f := newFixture(t)
	f.svc.RegisterSession(context.Background(), "s1", "alice-token")

	err := f.svc.HandleJoin(context.Background(), "s1", &domain.JoinRoomMessage{
		RoomID: "r1", UserID: "u1", Username: "alice",
	})
	if err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}

	if _, ok := f.rooms.participants["r1"]["u1"]; !ok {
		t.Error("join did not add participant")
	}
	if len(f.publisher.presenceEvents) != 1 || f.publisher.presenceEvents[0].Status != domain.StatusOnline {
		t.Errorf("presence events = %+v, want one ONLINE", f.publisher.presenceEvents)
	}
	if len(f.publisher.chatEvents) != 1 || f.publisher.chatEvents[0].Kind != domain.KindJoin {
		t.Errorf("chat events = %+v, want one JOIN", f.publisher.chatEvents)
	}
}

func TestLeavePublishesOfflineAndNotification(t *testing.T) {
	f := newFixture(t)
	f.svc.RegisterSession(context.Background(), "s1", "alice-token")
	f.svc.HandleJoin(context.Background(), "s1", &domain.JoinRoomMessage{RoomID: "r1", UserID: "u1"})

	err := f.svc.HandleLeave(context.Background(), "s1", &domain.LeaveRoomMessage{RoomID: "r1", UserID: "u1"})
	if err != nil {
		t.Fatalf("HandleLeave: %v", err)
	}

	if _, ok := f.rooms.participants["r1"]["u1"]; ok {
		t.Error("leave did not remove participant")
	}
	last := f.publisher.presenceEvents[len(f.publisher.presenceEvents)-1]
	if last.Status != domain.StatusOffline {
		t.Errorf("last presence status = %s, want OFFLINE", last.Status)
	}
	lastChat := f.publisher.chatEvents[len(f.publisher.chatEvents)-1]
	if lastChat.Kind != domain.KindLeave {
		t.Errorf("last chat event kind = %s, want LEAVE", lastChat.Kind)
	}
}

func TestDisconnectUnbindsAndAnnounces(t *testing.T) {
	f := newFixture(t)
	f.svc.RegisterSession(context.Background(), "s1", "alice-token")
	f.svc.HandleJoin(context.Background(), "s1", &domain.JoinRoomMessage{RoomID: "r1", UserID: "u1"})

	before := len(f.publisher.presenceEvents)
	f.svc.HandleDisconnect(context.Background(), "s1", []string{"r1"})

	if _, ok := f.registry.Lookup("s1"); ok {
		t.Error("disconnect left the session bound")
	}
	if len(f.publisher.presenceEvents) != before+1 {
		t.Fatalf("presence events = %d, want %d", len(f.publisher.presenceEvents), before+1)
	}
	if f.publisher.presenceEvents[before].Status != domain.StatusOffline {
		t.Errorf("disconnect presence = %s, want OFFLINE", f.publisher.presenceEvents[before].Status)
	}

	// Durable membership survives a dropped connection.
	if _, ok := f.rooms.participants["r1"]["u1"]; !ok {
		t.Error("disconnect removed durable room membership")
	}
}

func TestDisconnectBeforeAuthIsSilent(t *testing.T) {
	f := newFixture(t)

	f.svc.HandleDisconnect(context.Background(), "s1", []string{"r1"})
	if len(f.publisher.presenceEvents) != 0 || len(f.publisher.chatEvents) != 0 {
		t.Error("unauthenticated disconnect produced events")
	}
}

func TestPublishFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.svc.RegisterSession(context.Background(), "s1", "alice-token")
	f.publisher.err = errors.New("broker down")

	err := f.svc.HandleChatSend(context.Background(), "s1", &domain.ChatSendMessage{
		RoomID: "r1", SenderID: "u1", Content: "hello",
	})
	if !errors.Is(err, domain.ErrPublishFailure) {
		t.Fatalf("err = %v, want ErrPublishFailure", err)
	}
}

func TestRecentMessagesPrefersCache(t *testing.T) {
	f := newFixture(t)
	cached := &domain.ChatEvent{ID: "m1", RoomID: "r1", Kind: domain.KindChat}
	f.store.CacheRecentMessage(context.Background(), cached)
	f.messages.recent = []domain.ChatEvent{{ID: "db1", RoomID: "r1"}}

	events, err := f.svc.GetRecentMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRecentMessages: %v", err)
	}
	if len(events) != 1 || events[0].ID != "m1" {
		t.Errorf("events = %+v, want cached m1", events)
	}
	if f.messages.calls != 0 {
		t.Error("warm cache still hit the message store")
	}
}

func TestRecentMessagesFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	f.messages.recent = []domain.ChatEvent{{ID: "db1", RoomID: "r1"}}

	events, err := f.svc.GetRecentMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRecentMessages: %v", err)
	}
	if len(events) != 1 || events[0].ID != "db1" {
		t.Errorf("events = %+v, want db1 from store", events)
	}
	if f.messages.calls != 1 {
		t.Errorf("store calls = %d, want 1", f.messages.calls)
	}
}

func TestOnlineUsersAfterJoin(t *testing.T) {
	f := newFixture(t)
	f.store.UpdatePresence(context.Background(), &domain.PresenceEvent{
		UserID: "u1", Username: "alice", RoomID: "r1", Status: domain.StatusOnline,
	})

	users := f.svc.GetOnlineUsers(context.Background(), "r1")
	if len(users) != 1 || users[0] != "u1" {
		t.Errorf("online users = %v, want [u1]", users)
	}
}
