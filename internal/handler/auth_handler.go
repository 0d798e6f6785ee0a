package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/handler/dto"
	"github.com/yourusername/parajuriste-api/internal/handler/helper"
	"github.com/yourusername/parajuriste-api/internal/service"
)

// AuthUseCases — операции аккаунта, нужные AuthHandler
type AuthUseCases interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, phone, password string, meta service.RequestMeta) (*service.AuthResult, error)
	Me(ctx context.Context, userID uint) (*entity.User, error)
}

// AuthHandler обрабатывает запросы регистрации и входа
type AuthHandler struct {
	authService AuthUseCases
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService AuthUseCases) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register регистрирует пользователя и сразу выдает токен
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAuthResponse(result))
}

// Login обрабатывает вход по номеру телефона
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.PhoneNumber, req.Password, helper.RequestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthResponse(result))
}

// Me возвращает профиль текущего пользователя
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// currentUser отвечает 401, если RequireAuth не выставил пользователя
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := helper.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}
