package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"dm-service/internal/chat"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
	"dm-service/internal/telemetry"
)

// ChatService is the set of message operations the HTTP layer needs.
type ChatService interface {
	ListCounterparts(ctx context.Context, observerID string) ([]models.SidebarUser, error)
	ListMessages(ctx context.Context, observerID, counterpartID string) ([]models.Message, error)
	SendMessage(ctx context.Context, senderID, receiverID string, in models.SendInput) (models.Message, error)
	MarkRead(ctx context.Context, readerID, senderID string) error
	CreateUser(ctx context.Context, user models.User) (models.User, error)
}

// MessageHandler serves the /api/messages endpoints.
type MessageHandler struct {
	service ChatService
	audit   *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler. audit may be nil.
func NewMessageHandler(service ChatService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{service: service, audit: audit}
}

// ListUsersForSidebar returns every other user with their unread count.
func (h *MessageHandler) ListUsersForSidebar(c *gin.Context) {
	observerID := c.GetString(userIDContextKey)

	users, err := h.service.ListCounterparts(c.Request.Context(), observerID)
	if err != nil {
		internalError(c, "list sidebar users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetMessages returns the conversation with :id, oldest first.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	observerID := c.GetString(userIDContextKey)
	counterpartID := strings.TrimSpace(c.Param("id"))

	msgs, err := h.service.ListMessages(c.Request.Context(), observerID, counterpartID)
	if err != nil {
		internalError(c, "list messages", err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage stores a message for :id and pushes it if they are online.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID := c.GetString(userIDContextKey)
	receiverID := strings.TrimSpace(c.Param("id"))

	var req models.SendInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), senderID, receiverID, req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, chat.ErrInvalidImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
		case errors.Is(err, repositories.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
		default:
			internalError(c, "send message", err)
		}
		return
	}

	h.emitAudit(c, fmt.Sprintf("message %s sent to %s", msg.ID, receiverID))
	c.JSON(http.StatusCreated, msg)
}

// MarkRead flags every message from :id to the caller as read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	readerID := c.GetString(userIDContextKey)
	senderID := strings.TrimSpace(c.Param("id"))

	if err := h.service.MarkRead(c.Request.Context(), readerID, senderID); err != nil {
		internalError(c, "mark read", err)
		return
	}

	h.emitAudit(c, fmt.Sprintf("messages from %s marked read", senderID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MessageHandler) emitAudit(c *gin.Context, text string) {
	h.audit.Emit(c.Request.Context(), "INFO", text, requestIDFromContext(c), userIDFromContext(c))
}

func internalError(c *gin.Context, op string, err error) {
	log.Error(op+" failed", "err", err, "request_id", requestIDFromContext(c))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
