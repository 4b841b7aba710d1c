package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/service"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/dto"
	"reelist.io/reelist/pkg/response"
)

type NotificationHandler struct {
	service     service.NotificationService
	redisClient *redis.Client
	upgrader    websocket.Upgrader
}

func NewNotificationHandler(service service.NotificationService, redisClient *redis.Client) *NotificationHandler {
	return &NotificationHandler{
		service:     service,
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// REST Endpoints

func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var category *model.NotificationCategory
	if raw := c.Query("category"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || !model.NotificationCategory(parsed).Valid() {
			response.Error(c, apperror.ErrInvalidCategory)
			return
		}
		value := model.NotificationCategory(parsed)
		category = &value
	}

	notifications, total, err := h.service.List(c.Request.Context(), userID, category, page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, dto.NewPaginated(notifications, page.Page, page.PerPage, total))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "marked as read")
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "all notifications marked as read")
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"count": count})
}

// WebSocket Endpoint

func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	if h.redisClient == nil {
		log.Println("Redis client is nil, cannot subscribe")
		return
	}

	channel := service.NotificationChannel(userID.String())
	pubsub := h.redisClient.Subscribe(c.Request.Context(), channel)
	defer pubsub.Close()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(c.Request.Context()); err != nil {
		log.Printf("Failed to subscribe to redis channel: %v", err)
		return
	}

	ch := pubsub.Channel()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Forward committed notifications from redis to the socket. The payload
	// is already the JSON the client expects.
	for {
		select {
		case msg := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("Failed to write message to websocket: %v", err)
				return
			}
		case <-clientClosed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
