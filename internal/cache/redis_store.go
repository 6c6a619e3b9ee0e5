package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// Config holds Redis connection and eviction configuration.
type Config struct {
	Address     string
	Password    string
	DB          int
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	RecentTTL   time.Duration `mapstructure:"recent_ttl"`
	MarkerTTL   time.Duration `mapstructure:"marker_ttl"`
	RecentLimit int           `mapstructure:"recent_limit"`
}

// Redis key patterns:
// presence:{user_id}        STRING<json PresenceRecord>  - last-known status, sliding TTL
// room:users:{room_id}      SET<user_id>                 - currently-online users, no TTL
// room:messages:{room_id}   LIST<json ChatEvent>         - recent ring, head-newest, key TTL
// user:session:{user_id}    STRING<session_id>           - latest transport session, TTL

const (
	userPresencePrefix   = "presence:"
	roomUsersPrefix      = "room:users:"
	recentMessagesPrefix = "room:messages:"
	userSessionPrefix    = "user:session:"
)

// RedisStore implements Store on a shared Redis instance.
type RedisStore struct {
	client      *redis.Client
	presenceTTL time.Duration
	recentTTL   time.Duration
	markerTTL   time.Duration
	recentLimit int
}

// NewRedisStore connects to Redis and returns a presence/recent-message store.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:      client,
		presenceTTL: cfg.PresenceTTL,
		recentTTL:   cfg.RecentTTL,
		markerTTL:   cfg.MarkerTTL,
		recentLimit: cfg.RecentLimit,
	}, nil
}

func presenceKey(userID string) string {
	return userPresencePrefix + userID
}

func roomUsersKey(roomID string) string {
	return roomUsersPrefix + roomID
}

func recentMessagesKey(roomID string) string {
	return recentMessagesPrefix + roomID
}

func sessionMarkerKey(userID string) string {
	return userSessionPrefix + userID
}

func (s *RedisStore) UpdatePresence(ctx context.Context, ev *domain.PresenceEvent) error {
	rec := PresenceRecord{
		UserID:    ev.UserID,
		Username:  ev.Username,
		RoomID:    ev.RoomID,
		Status:    ev.Status,
		Timestamp: ev.Timestamp,
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to marshal presence record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, presenceKey(ev.UserID), data, s.presenceTTL)

	switch ev.Status {
	case domain.StatusOnline:
		pipe.SAdd(ctx, roomUsersKey(ev.RoomID), ev.UserID)
	case domain.StatusOffline:
		pipe.SRem(ctx, roomUsersKey(ev.RoomID), ev.UserID)
	}
	// AWAY only refreshes the status record.

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetPresence(ctx context.Context, userID string) (*PresenceRecord, error) {
	data, err := s.client.Get(ctx, presenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	var rec PresenceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) GetRoomUsers(ctx context.Context, roomID string) ([]string, error) {
	users, err := s.client.SMembers(ctx, roomUsersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return users, nil
}

func (s *RedisStore) CacheRecentMessage(ctx context.Context, ev *domain.ChatEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal chat event: %w", err)
	}

	key := recentMessagesKey(ev.RoomID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(s.recentLimit-1))
	pipe.Expire(ctx, key, s.recentTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetRecentMessages(ctx context.Context, roomID string) ([]domain.ChatEvent, error) {
	items, err := s.client.LRange(ctx, recentMessagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	events := make([]domain.ChatEvent, 0, len(items))
	for _, item := range items {
		var ev domain.ChatEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("skipping undecodable cached message")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *RedisStore) StoreSessionMarker(ctx context.Context, userID, sessionID string) error {
	if err := s.client.Set(ctx, sessionMarkerKey(userID), sessionID, s.markerTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetSessionMarker(ctx context.Context, userID string) (string, error) {
	val, err := s.client.Get(ctx, sessionMarkerKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return val, nil
}

func (s *RedisStore) RemoveSessionMarker(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionMarkerKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
