package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	presence    map[string]expiringPresence
	roomUsers   map[string]map[string]struct{}
	recent      map[string]*recentRing
	markers     map[string]expiringMarker
	presenceTTL time.Duration
	recentTTL   time.Duration
	markerTTL   time.Duration
	recentLimit int
}

type expiringPresence struct {
	rec       PresenceRecord
	expiresAt time.Time
}

type expiringMarker struct {
	sessionID string
	expiresAt time.Time
}

type recentRing struct {
	events    []domain.ChatEvent // head-newest
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store with the given eviction settings.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		presence:    make(map[string]expiringPresence),
		roomUsers:   make(map[string]map[string]struct{}),
		recent:      make(map[string]*recentRing),
		markers:     make(map[string]expiringMarker),
		presenceTTL: cfg.PresenceTTL,
		recentTTL:   cfg.RecentTTL,
		markerTTL:   cfg.MarkerTTL,
		recentLimit: cfg.RecentLimit,
	}
}

func (s *MemoryStore) UpdatePresence(ctx context.Context, ev *domain.PresenceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.presence[ev.UserID] = expiringPresence{
		rec: PresenceRecord{
			UserID:    ev.UserID,
			Username:  ev.Username,
			RoomID:    ev.RoomID,
			Status:    ev.Status,
			Timestamp: ev.Timestamp,
		},
		expiresAt: time.Now().Add(s.presenceTTL),
	}

	switch ev.Status {
	case domain.StatusOnline:
		users, ok := s.roomUsers[ev.RoomID]
		if !ok {
			users = make(map[string]struct{})
			s.roomUsers[ev.RoomID] = users
		}
		users[ev.UserID] = struct{}{}
	case domain.StatusOffline:
		if users, ok := s.roomUsers[ev.RoomID]; ok {
			delete(users, ev.UserID)
			if len(users) == 0 {
				delete(s.roomUsers, ev.RoomID)
			}
		}
	}

	return nil
}

func (s *MemoryStore) GetPresence(ctx context.Context, userID string) (*PresenceRecord, error) {
	s.mu.RLock()
	entry, ok := s.presence[userID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	rec := entry.rec
	return &rec, nil
}

func (s *MemoryStore) GetRoomUsers(ctx context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.roomUsers[roomID]))
	for uid := range s.roomUsers[roomID] {
		users = append(users, uid)
	}
	return users, nil
}

func (s *MemoryStore) CacheRecentMessage(ctx context.Context, ev *domain.ChatEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring, ok := s.recent[ev.RoomID]
	if !ok || time.Now().After(ring.expiresAt) {
		ring = &recentRing{}
		s.recent[ev.RoomID] = ring
	}

	// Redelivered event: already cached, just refresh the TTL.
	for _, cached := range ring.events {
		if cached.ID == ev.ID {
			ring.expiresAt = time.Now().Add(s.recentTTL)
			return nil
		}
	}

	ring.events = append([]domain.ChatEvent{*ev}, ring.events...)
	if len(ring.events) > s.recentLimit {
		ring.events = ring.events[:s.recentLimit]
	}
	ring.expiresAt = time.Now().Add(s.recentTTL)
	return nil
}

func (s *MemoryStore) GetRecentMessages(ctx context.Context, roomID string) ([]domain.ChatEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring, ok := s.recent[roomID]
	if !ok || time.Now().After(ring.expiresAt) {
		return nil, nil
	}

	events := make([]domain.ChatEvent, len(ring.events))
	copy(events, ring.events)
	return events, nil
}

func (s *MemoryStore) StoreSessionMarker(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	s.markers[userID] = expiringMarker{
		sessionID: sessionID,
		expiresAt: time.Now().Add(s.markerTTL),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetSessionMarker(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	entry, ok := s.markers[userID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return "", nil
	}
	return entry.sessionID, nil
}

func (s *MemoryStore) RemoveSessionMarker(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.markers, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
