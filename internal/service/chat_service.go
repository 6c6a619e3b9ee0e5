package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sovanra-ruos/chat-service/internal/audit"
	"github.com/sovanra-ruos/chat-service/internal/auth"
	"github.com/sovanra-ruos/chat-service/internal/cache"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/ident"
	"github.com/sovanra-ruos/chat-service/internal/ingress"
	"github.com/sovanra-ruos/chat-service/internal/kafka"
	"github.com/sovanra-ruos/chat-service/internal/repository"
	"github.com/sovanra-ruos/chat-service/internal/session"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

const recentMessageLimit = 50

type chatService struct {
	resolver  auth.Resolver
	registry  session.Registry
	validator *ingress.Validator
	publisher kafka.EventPublisher
	store     cache.Store
	rooms     repository.RoomRepository
	messages  repository.MessageRepository
	ids       ident.Generator
	history   singleflight.Group
}

// NewChatService wires the ingress, publish, and read paths together.
func NewChatService(
	resolver auth.Resolver,
	registry session.Registry,
	validator *ingress.Validator,
	publisher kafka.EventPublisher,
	store cache.Store,
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	ids ident.Generator,
) ChatService {
	return &chatService{
		resolver:  resolver,
		registry:  registry,
		validator: validator,
		publisher: publisher,
		store:     store,
		rooms:     rooms,
		messages:  messages,
		ids:       ids,
	}
}

func (s *chatService) RegisterSession(ctx context.Context, sessionID, credential string) (*domain.Identity, error) {
	identity, err := s.resolver.Verify(ctx, credential)
	if err != nil {
		audit.LogWithDetail(ctx, audit.ActionAuthFailed, "", sessionID, "session authentication rejected")
		return nil, domain.ErrAuthRejected
	}

	s.registry.Bind(sessionID, *identity)
	audit.Log(ctx, audit.ActionAuth, identity.UserID, "session authenticated")

	return identity, nil
}

func (s *chatService) HandleChatSend(ctx context.Context, sessionID string, msg *domain.ChatSendMessage) error {
	identity, err := s.validator.Admit(ctx, sessionID, msg.SenderID)
	if err != nil {
		return err
	}

	id, err := s.ids.Generate()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}

	ev := &domain.ChatEvent{
		ID:         id,
		RoomID:     msg.RoomID,
		SenderID:   identity.UserID,
		SenderName: identity.Username,
		Content:    msg.Content,
		Kind:       domain.KindChat,
		Timestamp:  time.Now().UnixMilli(),
	}

	if err := s.publisher.PublishChatEvent(ctx, ev); err != nil {
		return fmt.Errorf("%w: chat event %s", domain.ErrPublishFailure, ev.ID)
	}

	audit.Log(ctx, audit.ActionSendMessage, identity.UserID, "chat event published")
	return nil
}

func (s *chatService) HandleJoin(ctx context.Context, sessionID string, msg *domain.JoinRoomMessage) error {
	identity, err := s.validator.Admit(ctx, sessionID, msg.UserID)
	if err != nil {
		return err
	}

	if err := s.rooms.AddParticipant(ctx, msg.RoomID, identity.UserID); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	if err := s.publishPresence(ctx, identity, msg.RoomID, domain.StatusOnline); err != nil {
		return err
	}

	content := fmt.Sprintf("%s has joined the conversation", identity.Username)
	if err := s.publishNotification(ctx, identity, msg.RoomID, domain.KindJoin, content); err != nil {
		return err
	}

	audit.Log(ctx, audit.ActionJoinRoom, identity.UserID, "joined room")
	return nil
}

func (s *chatService) HandleLeave(ctx context.Context, sessionID string, msg *domain.LeaveRoomMessage) error {
	identity, err := s.validator.Admit(ctx, sessionID, msg.UserID)
	if err != nil {
		return err
	}

	if err := s.rooms.RemoveParticipant(ctx, msg.RoomID, identity.UserID); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}

	if err := s.publishPresence(ctx, identity, msg.RoomID, domain.StatusOffline); err != nil {
		return err
	}

	content := fmt.Sprintf("%s has left the conversation", identity.Username)
	if err := s.publishNotification(ctx, identity, msg.RoomID, domain.KindLeave, content); err != nil {
		return err
	}

	audit.Log(ctx, audit.ActionLeaveRoom, identity.UserID, "left room")
	return nil
}

func (s *chatService) HandlePresence(ctx context.Context, sessionID string, msg *domain.PresenceMessage) error {
	identity, err := s.validator.Admit(ctx, sessionID, msg.UserID)
	if err != nil {
		return err
	}

	return s.publishPresence(ctx, identity, msg.RoomID, msg.Status)
}

func (s *chatService) HandleDisconnect(ctx context.Context, sessionID string, roomIDs []string) {
	identity, ok := s.registry.Lookup(sessionID)
	if !ok {
		// Connection closed before authenticating. Nothing to announce.
		return
	}

	// Unbind before announcing anything, so a frame racing the disconnect
	// cannot be admitted against a dying session.
	s.registry.Unbind(sessionID)

	l := log.Ctx(ctx)
	if err := s.store.RemoveSessionMarker(ctx, identity.UserID); err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, identity.UserID).Msg("failed to remove session marker")
	}

	for _, roomID := range roomIDs {
		if err := s.publishPresence(ctx, &identity, roomID, domain.StatusOffline); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to publish offline presence on disconnect")
		}
		content := fmt.Sprintf("%s has left the conversation", identity.Username)
		if err := s.publishNotification(ctx, &identity, roomID, domain.KindLeave, content); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to publish leave notification on disconnect")
		}
	}

	audit.Log(ctx, audit.ActionDisconnect, identity.UserID, "session disconnected")
}

func (s *chatService) GetOnlineUsers(ctx context.Context, roomID string) []string {
	users, err := s.store.GetRoomUsers(ctx, roomID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("online set unavailable, returning empty")
		return []string{}
	}
	return users
}

func (s *chatService) GetRecentMessages(ctx context.Context, roomID string) ([]domain.ChatEvent, error) {
	events, err := s.store.GetRecentMessages(ctx, roomID)
	if err == nil && len(events) > 0 {
		return events, nil
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("recent-message cache unavailable, falling back to store")
	}

	// Collapse concurrent cold-cache reads for the same room into one query.
	v, err, _ := s.history.Do(roomID, func() (interface{}, error) {
		return s.messages.FindRecent(ctx, roomID, recentMessageLimit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ChatEvent), nil
}

func (s *chatService) publishPresence(ctx context.Context, identity *domain.Identity, roomID string, status domain.PresenceStatus) error {
	ev := &domain.PresenceEvent{
		UserID:    identity.UserID,
		Username:  identity.Username,
		RoomID:    roomID,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishPresenceEvent(ctx, ev); err != nil {
		return fmt.Errorf("%w: presence for %s", domain.ErrPublishFailure, identity.UserID)
	}
	return nil
}

func (s *chatService) publishNotification(ctx context.Context, identity *domain.Identity, roomID string, kind domain.EventKind, content string) error {
	id, err := s.ids.Generate()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}

	ev := &domain.ChatEvent{
		ID:         id,
		RoomID:     roomID,
		SenderID:   identity.UserID,
		SenderName: identity.Username,
		Content:    content,
		Kind:       kind,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishChatEvent(ctx, ev); err != nil {
		return fmt.Errorf("%w: %s notification %s", domain.ErrPublishFailure, kind, ev.ID)
	}
	return nil
}
