package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-portal-api/internal/dto"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
	"github.com/noah-isme/mentor-portal-api/pkg/response"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 50 * time.Second
)

type messageService interface {
	Send(ctx context.Context, caller models.JWTClaims, peerID string, req dto.SendMessageRequest) (*models.Message, error)
	History(ctx context.Context, caller models.JWTClaims, peerID string, before *time.Time, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, caller models.JWTClaims, peerID string) (int64, error)
	Contacts(ctx context.Context, caller models.JWTClaims) ([]dto.Contact, error)
	Subscribe(ctx context.Context, caller models.JWTClaims, peerID string) (<-chan models.Message, func(), error)
}

// MessageHandler exposes mentor and student chat.
type MessageHandler struct {
	service  messageService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewMessageHandler constructs the handler. An empty origin list accepts
// any origin on the stream endpoint.
func NewMessageHandler(svc messageService, allowedOrigins []string, logger *zap.Logger) *MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}
	_, wildcard := allowed["*"]

	return &MessageHandler{
		service: svc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || wildcard || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Contacts godoc
// @Summary Chat contacts
// @Description A mentor's students or a student's mentor, with unread counts
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chats/contacts [get]
func (h *MessageHandler) Contacts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	contacts, err := h.service.Contacts(c.Request.Context(), *claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, nil)
}

// History godoc
// @Summary Chat history
// @Description Latest messages with a peer in ascending order. Loading the latest page marks the peer's messages read.
// @Tags Chat
// @Produce json
// @Param peerId path string true "Peer user ID"
// @Param before query string false "RFC3339 timestamp to page backwards from"
// @Param limit query int false "Maximum messages (default 100)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chats/{peerId}/messages [get]
func (h *MessageHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "before must be an RFC3339 timestamp"))
			return
		}
		before = &ts
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.service.History(c.Request.Context(), *claims, c.Param("peerId"), before, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// Send godoc
// @Summary Send message
// @Tags Chat
// @Accept json
// @Produce json
// @Param peerId path string true "Peer user ID"
// @Param payload body dto.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chats/{peerId}/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), *claims, c.Param("peerId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// MarkRead godoc
// @Summary Mark conversation read
// @Tags Chat
// @Produce json
// @Param peerId path string true "Peer user ID"
// @Success 200 {object} response.Envelope
// @Router /chats/{peerId}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	updated, err := h.service.MarkRead(c.Request.Context(), *claims, c.Param("peerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": updated}, nil)
}

// Stream godoc
// @Summary Live chat stream
// @Description Websocket that pushes new messages of the conversation. Frames sent by the client as {"text": "..."} are delivered like POST /chats/{peerId}/messages.
// @Tags Chat
// @Param peerId path string true "Peer user ID"
// @Param access_token query string false "Access token when the Authorization header cannot be set"
// @Router /chats/{peerId}/stream [get]
func (h *MessageHandler) Stream(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	peerID := c.Param("peerId")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	feed, unsubscribe, err := h.service.Subscribe(ctx, *claims, peerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("chat stream upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}
	defer conn.Close()

	go h.readFrames(ctx, cancel, conn, *claims, peerID)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-feed:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readFrames consumes client frames until the socket closes, then cancels
// the stream.
func (h *MessageHandler) readFrames(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, claims models.JWTClaims, peerID string) {
	defer cancel()
	conn.SetReadLimit(16 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var req dto.SendMessageRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if _, err := h.service.Send(ctx, claims, peerID, req); err != nil {
			h.logger.Debug("chat stream send rejected", zap.String("user_id", claims.UserID), zap.Error(err))
		}
	}
}
