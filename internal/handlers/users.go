package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/chat"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

type createUserRequest struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
}

// CreateUser adds a profile to the user directory.
func (h *MessageHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), models.User{
		FullName:   req.FullName,
		Email:      req.Email,
		ProfilePic: req.ProfilePic,
	})
	switch {
	case errors.Is(err, chat.ErrInvalidProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, repositories.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	case err != nil:
		internalError(c, "create user", err)
		return
	}

	h.emitAudit(c, "user "+user.ID+" created")
	c.JSON(http.StatusCreated, user)
}
