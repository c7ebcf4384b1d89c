package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "madamis/backend/internal/errors"
	"madamis/backend/internal/middleware"
	"madamis/backend/internal/service"
)

// AuthHandler serves game-master accounts. Registration and login both answer
// with a bearer token for the timer command endpoint.
type AuthHandler struct {
	authService *service.AuthService
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialFunc func(ctx context.Context, email, password string) (*service.AuthResult, *apperrors.APIError)

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	h.exchange(c, http.StatusCreated, h.authService.Register)
}

func (h *AuthHandler) Login(c *gin.Context) {
	h.exchange(c, http.StatusOK, h.authService.Login)
}

// Me reports who the bearer token belongs to.
func (h *AuthHandler) Me(c *gin.Context) {
	user, apiErr := h.authService.Me(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) exchange(c *gin.Context, status int, issue credentialFunc) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}

	result, apiErr := issue(c.Request.Context(), req.Email, req.Password)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(status, result)
}
