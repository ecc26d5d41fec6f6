package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dm-service/internal/chat"
	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
	"dm-service/internal/telemetry"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(userIDContextKey, "me")
		c.Next()
	})
	r.GET("/api/messages/users", handler.ListUsersForSidebar)
	r.GET("/api/messages/:id", handler.GetMessages)
	r.POST("/api/messages/send/:id", handler.SendMessage)
	r.POST("/api/messages/read/:id", handler.MarkRead)
	r.POST("/api/users", handler.CreateUser)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListUsersForSidebar(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("ListCounterparts", mock.Anything, "me").
		Return([]models.SidebarUser{{ID: "u1", FullName: "Amy", UnreadCount: 2}}, nil).Once()

	rec := serve(router, http.MethodGet, "/api/messages/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "u1", resp[0]["_id"])
	assert.EqualValues(t, 2, resp[0]["unreadCount"])
	svc.AssertExpectations(t)
}

func TestListUsersForSidebarStorageError(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("ListCounterparts", mock.Anything, "me").Return(nil, assert.AnError).Once()

	rec := serve(router, http.MethodGet, "/api/messages/users", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestGetMessagesEmptyConversation(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("ListMessages", mock.Anything, "me", "u2").Return(nil, nil).Once()

	rec := serve(router, http.MethodGet, "/api/messages/u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSendMessageCreated(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.logs", "dm-service", "test")
	router := setupMessageRouter(NewMessageHandler(svc, audit))

	svc.On("SendMessage", mock.Anything, "me", "u2", models.SendInput{Text: "hi"}).
		Return(models.Message{ID: "m1", SenderID: "me", ReceiverID: "u2", Text: "hi"}, nil).Once()
	pub.On("Publish", mock.Anything, "audit.logs", mock.Anything, mock.Anything).Return(nil).Once()

	rec := serve(router, http.MethodPost, "/api/messages/send/u2", `{"text":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "me", msg.SenderID)
	svc.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSendMessageErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"empty", chat.ErrEmptyMessage, http.StatusBadRequest},
		{"bad image", fmt.Errorf("save image: %w", chat.ErrInvalidImage), http.StatusBadRequest},
		{"unknown receiver", fmt.Errorf("load receiver: %w", repositories.ErrUserNotFound), http.StatusNotFound},
		{"storage", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.ChatServiceMock)
			router := setupMessageRouter(NewMessageHandler(svc, nil))
			svc.On("SendMessage", mock.Anything, "me", "u2", mock.Anything).Return(nil, tc.err).Once()

			rec := serve(router, http.MethodPost, "/api/messages/send/u2", `{"text":"x"}`)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestSendMessageBadBody(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	rec := serve(router, http.MethodPost, "/api/messages/send/u2", `{"text":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkRead(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("MarkRead", mock.Anything, "me", "u2").Return(nil).Once()

	rec := serve(router, http.MethodPost, "/api/messages/read/u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestMarkReadStorageError(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("MarkRead", mock.Anything, "me", "u2").Return(assert.AnError).Once()

	rec := serve(router, http.MethodPost, "/api/messages/read/u2", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateUser(t *testing.T) {
	svc := new(mocks.ChatServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("CreateUser", mock.Anything, models.User{FullName: "Ann", Email: "ann@x.io"}).
		Return(models.User{ID: "u9", FullName: "Ann", Email: "ann@x.io"}, nil).Once()
	svc.On("CreateUser", mock.Anything, models.User{FullName: "Bob", Email: "ann@x.io"}).
		Return(nil, fmt.Errorf("create user: %w", repositories.ErrEmailTaken)).Once()
	svc.On("CreateUser", mock.Anything, models.User{}).Return(nil, chat.ErrInvalidProfile).Once()

	rec := serve(router, http.MethodPost, "/api/users", `{"fullName":"Ann","email":"ann@x.io"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(router, http.MethodPost, "/api/users", `{"fullName":"Bob","email":"ann@x.io"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(router, http.MethodPost, "/api/users", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}
