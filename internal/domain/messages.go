package domain

// WebSocket frame types from client.
const (
	MsgTypeAuth        = "auth"
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
	MsgTypeChatSend    = "chat_send"
	MsgTypeJoinRoom    = "join_room"
	MsgTypeLeaveRoom   = "leave_room"
	MsgTypePresence    = "presence"
	MsgTypePing        = "ping"
)

// WebSocket frame types to client.
const (
	MsgTypeAuthResult = "auth_result"
	MsgTypeSubscribed = "subscribed"
	MsgTypeError      = "error"
	MsgTypePong       = "pong"
)

// Error codes sent to clients. Ingress validation rejections deliberately
// have no code here: they are logged and dropped, never surfaced.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket frames.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server frames

type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type SubscribeMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

type ChatSendMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

type JoinRoomMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type LeaveRoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type PresenceMessage struct {
	Type   string         `json:"type"`
	RoomID string         `json:"room_id"`
	UserID string         `json:"user_id"`
	Status PresenceStatus `json:"status"`
}

// Server -> Client frames

type AuthResultMessage struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

type SubscribedMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
