package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sovanra-ruos/chat-service/internal/auth"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/repository"
	"github.com/sovanra-ruos/chat-service/internal/service"
	"github.com/sovanra-ruos/chat-service/pkg/middleware"
	"github.com/sovanra-ruos/chat-service/pkg/response"
)

// HTTPHandler serves the REST surface: auth, rooms, and room reads.
type HTTPHandler struct {
	authSvc *auth.Service
	rooms   service.RoomService
	chat    service.ChatService
	authMW  *middleware.AuthMiddleware
}

func NewHTTPHandler(authSvc *auth.Service, rooms service.RoomService, chat service.ChatService, authMW *middleware.AuthMiddleware) *HTTPHandler {
	return &HTTPHandler{
		authSvc: authSvc,
		rooms:   rooms,
		chat:    chat,
		authMW:  authMW,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/refresh", h.Refresh)
			authGroup.POST("/logout", h.authMW.RequireAuth(), h.Logout)
		}

		rooms := api.Group("/rooms", h.authMW.RequireAuth())
		{
			rooms.POST("", h.CreateRoom)
			rooms.GET("", h.ListRooms)
			rooms.GET("/:id", h.GetRoom)
			rooms.GET("/:id/messages", h.GetRoomMessages)
			rooms.GET("/:id/online", h.GetRoomOnline)
		}
	}
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *HTTPHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			response.Conflict(c, "email already registered")
			return
		}
		response.InternalError(c, "failed to register user")
		return
	}

	response.Created(c, resp)
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		response.InternalError(c, "failed to log in")
		return
	}

	response.Success(c, resp)
}

func (h *HTTPHandler) Refresh(c *gin.Context) {
	var req domain.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authSvc.Refresh(c.Request.Context(), &req)
	if err != nil {
		response.Unauthorized(c, "invalid refresh token")
		return
	}

	response.Success(c, resp)
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	h.authSvc.Logout(c.Request.Context(), userID)
	response.Success(c, gin.H{"message": "logged out"})
}

type createRoomRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description"`
}

func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.Name, req.Description, middleware.GetUserID(c))
	if err != nil {
		response.InternalError(c, "failed to create room")
		return
	}

	response.Created(c, room)
}

func (h *HTTPHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, rooms)
}

func (h *HTTPHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		response.InternalError(c, "failed to get room")
		return
	}

	response.Success(c, room)
}

func (h *HTTPHandler) GetRoomMessages(c *gin.Context) {
	events, err := h.chat.GetRecentMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, "failed to get messages")
		return
	}
	if events == nil {
		events = []domain.ChatEvent{}
	}

	response.Success(c, events)
}

func (h *HTTPHandler) GetRoomOnline(c *gin.Context) {
	users := h.chat.GetOnlineUsers(c.Request.Context(), c.Param("id"))
	response.Success(c, gin.H{"room_id": c.Param("id"), "online": users})
}
