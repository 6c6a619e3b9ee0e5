package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sovanra-ruos/chat-service/internal/config"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/hub"
	"github.com/sovanra-ruos/chat-service/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type frameHandler func(ctx context.Context, client *hub.Client, raw []byte)

// WSHandler terminates WebSocket connections and routes inbound frames to the
// chat service through an explicit per-type routing table.
type WSHandler struct {
	hub     *hub.Hub
	service service.ChatService
	wsCfg   config.WebSocketConfig
	routes  map[string]frameHandler
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	wh := &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
	wh.routes = map[string]frameHandler{
		domain.MsgTypeAuth:        wh.handleAuth,
		domain.MsgTypeSubscribe:   wh.handleSubscribe,
		domain.MsgTypeUnsubscribe: wh.handleUnsubscribe,
		domain.MsgTypeChatSend:    wh.handleChatSend,
		domain.MsgTypeJoinRoom:    wh.handleJoinRoom,
		domain.MsgTypeLeaveRoom:   wh.handleLeaveRoom,
		domain.MsgTypePresence:    wh.handlePresence,
		domain.MsgTypePing:        wh.handlePing,
	}
	return wh
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		// Read loop ended: the connection is gone. Announce departure from
		// every room this connection had joined.
		h.service.HandleDisconnect(context.Background(), client.ID, client.Rooms())
	}()
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	route, ok := h.routes[base.Type]
	if !ok {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
		return
	}

	route(context.Background(), client, message)
}

func (h *WSHandler) handleAuth(ctx context.Context, client *hub.Client, raw []byte) {
	var msg domain.AuthMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid auth message"))
		return
	}

	identity, err := h.service.RegisterSession(ctx, client.ID, msg.Token)
	if err != nil {
		client.SendMessage(&domain.AuthResultMessage{
			Type:    domain.MsgTypeAuthResult,
			Success: false,
			Message: "authentication failed",
		})
		return
	}

	client.SendMessage(&domain.AuthResultMessage{
		Type:     domain.MsgTypeAuthResult,
		Success:  true,
		UserID:   identity.UserID,
		Username: identity.Username,
	})
}

func (h *WSHandler) handleSubscribe(ctx context.Context, client *hub.Client, raw []byte) {
	var msg domain.SubscribeMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Topic == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid subscribe message"))
		return
	}

	h.hub.Subscribe(client, msg.Topic)
	client.SendMessage(&domain.SubscribedMessage{Type: domain.MsgTypeSubscribed, Topic: msg.Topic})
}

func (h *WSHandler) handleUnsubscribe(ctx context.Context, client *hub.Client, raw []byte) {
	var msg domain.SubscribeMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Topic == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid unsubscribe message"))
		return
	}

	h.hub.Unsubscribe(client, msg.Topic)
}

func (h *WSHandler) handleChatSend(ctx context.Context, client *hub.Client, raw []byte) {
	var msg domain.ChatSendMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid chat_send message"))
		return
	}

	if err := h.service.HandleChatSend(ctx, client.ID, &msg); err != nil {
		h.reportError(client, err)
	}
}

func (h *WSHandler) handleJoinRoom(ctx context.Context, client *hub.Client, raw []byte) {
	var msg domain.JoinRoomMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid join_room message"))
		return
	}

	if err := h.service.HandleJoin(ctx, client.ID, &msg); err != nil {
		h.reportError(client, err)
		return
	}

	client.TrackRoom(msg.RoomID)
	h.hub.Subscribe(client, domain.ChatTopic(msg.RoomID))
	h.hub.Subscribe(client, domain.PresenceTopic(msg.RoomID))
}

func (h *WSHandler) handleLeaveRoom(ctx context.Context, client *hub.Client, raw []byte) {
	var msg domain.LeaveRoomMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid leave_room message"))
		return
	}

	if err := h.service.HandleLeave(ctx, client.ID, &msg); err != nil {
		h.reportError(client, err)
		return
	}

	client.UntrackRoom(msg.RoomID)
	h.hub.Unsubscribe(client, domain.ChatTopic(msg.RoomID))
	h.hub.Unsubscribe(client, domain.PresenceTopic(msg.RoomID))
}

func (h *WSHandler) handlePresence(ctx context.Context, client *hub.Client, raw []byte) {
	var msg domain.PresenceMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid presence message"))
		return
	}

	if err := h.service.HandlePresence(ctx, client.ID, &msg); err != nil {
		h.reportError(client, err)
	}
}

func (h *WSHandler) handlePing(ctx context.Context, client *hub.Client, raw []byte) {
	client.SendMessage(map[string]string{"type": domain.MsgTypePong})
}

// reportError surfaces internal failures to the client. Validation rejections
// are dropped without a reply: the offending session learns nothing.
func (h *WSHandler) reportError(client *hub.Client, err error) {
	if errors.Is(err, domain.ErrAuthRejected) || errors.Is(err, domain.ErrIdentitySpoofRejected) {
		log.Printf("Frame from client %s rejected: %v", client.ID, err)
		return
	}
	log.Printf("Frame from client %s failed: %v", client.ID, err)
	client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "Request failed"))
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/chat/ws", gin.WrapF(h.HandleWebSocket))
}
