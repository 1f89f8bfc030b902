package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-portal-api/internal/dto"
	"github.com/noah-isme/mentor-portal-api/internal/middleware"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
)

type messageServiceMock struct {
	mu       sync.Mutex
	sent     []string
	before   *time.Time
	feed     chan models.Message
	closed   bool
	forbidID string
}

func (m *messageServiceMock) Send(ctx context.Context, caller models.JWTClaims, peerID string, req dto.SendMessageRequest) (*models.Message, error) {
	if peerID == m.forbidID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "mentors can only message their assigned students")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req.Text)
	return &models.Message{ID: "msg-1", SenderID: caller.UserID, Text: req.Text}, nil
}

func (m *messageServiceMock) History(ctx context.Context, caller models.JWTClaims, peerID string, before *time.Time, limit int) ([]models.Message, error) {
	m.before = before
	return []models.Message{}, nil
}

func (m *messageServiceMock) MarkRead(ctx context.Context, caller models.JWTClaims, peerID string) (int64, error) {
	return 2, nil
}

func (m *messageServiceMock) Contacts(ctx context.Context, caller models.JWTClaims) ([]dto.Contact, error) {
	return []dto.Contact{{ID: "s1", Unread: 1}}, nil
}

func (m *messageServiceMock) Subscribe(ctx context.Context, caller models.JWTClaims, peerID string) (<-chan models.Message, func(), error) {
	if peerID == m.forbidID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "mentors can only message their assigned students")
	}
	return m.feed, func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
	}, nil
}

func (m *messageServiceMock) sentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func newChatContext(method, target, body string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "peerId", Value: "s1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mentor-1", Role: models.RoleMentor})
	return w, c
}

func TestMessageHandlerHistoryBefore(t *testing.T) {
	svc := &messageServiceMock{}
	handler := NewMessageHandler(svc, nil, zap.NewNop())

	w, c := newChatContext(http.MethodGet, "/chats/s1/messages?before=yesterday", "")
	handler.History(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, c = newChatContext(http.MethodGet, "/chats/s1/messages?before=2024-01-03T08:00:00Z", "")
	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.before)
	assert.Equal(t, 2024, svc.before.Year())
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestMessageHandlerSend(t *testing.T) {
	svc := &messageServiceMock{forbidID: "s2"}
	handler := NewMessageHandler(svc, nil, zap.NewNop())

	w, c := newChatContext(http.MethodPost, "/chats/s1/messages", `{"text":"hello"}`)
	handler.Send(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"hello"}, svc.sentTexts())

	w, c = newChatContext(http.MethodPost, "/chats/s2/messages", `{"text":"hello"}`)
	c.Params = gin.Params{{Key: "peerId", Value: "s2"}}
	handler.Send(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessageHandlerStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &messageServiceMock{feed: make(chan models.Message, 1)}
	handler := NewMessageHandler(svc, []string{"https://portal.example.com"}, zap.NewNop())

	r := gin.New()
	r.GET("/chats/:peerId/stream", func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mentor-1", Role: models.RoleMentor})
		c.Next()
	}, handler.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chats/s1/stream"

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	header.Set("Origin", "https://portal.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(dto.SendMessageRequest{Text: "from socket"}))
	assert.Eventually(t, func() bool {
		return len(svc.sentTexts()) == 1
	}, time.Second, 10*time.Millisecond)

	svc.feed <- models.Message{ID: "msg-9", Text: "pushed"}
	var got models.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "pushed", got.Text)
}

func TestMessageHandlerStreamForbidden(t *testing.T) {
	svc := &messageServiceMock{forbidID: "s1"}
	handler := NewMessageHandler(svc, nil, zap.NewNop())
	w, c := newChatContext(http.MethodGet, "/chats/s1/stream", "")

	handler.Stream(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
