package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/handler/dto"
	"github.com/yourusername/parajuriste-api/internal/handler/helper"
	"github.com/yourusername/parajuriste-api/internal/service"
)

// ContextModuleID — ключ контекста для ID модуля из URL
const ContextModuleID = "moduleID"

// QuizUseCases — операции над модулями и квизами
type QuizUseCases interface {
	ListModules(ctx context.Context) ([]entity.Module, error)
	GetModule(ctx context.Context, moduleID uint) (*entity.Module, error)
	SubmitQuiz(ctx context.Context, userID uint, in service.SubmitInput, meta service.RequestMeta) (*service.SubmitResult, error)
	ListAttempts(ctx context.Context, userID, moduleID uint) ([]entity.QuizAttempt, error)
	BestAttempt(ctx context.Context, userID, moduleID uint) (*entity.QuizAttempt, error)
	ModuleStatus(ctx context.Context, userID uint) (*service.ModuleStatusView, error)
	ModuleStats(ctx context.Context, requesterID, moduleID uint) (*service.ModuleStatsView, error)
}

// ModuleHandler обрабатывает запросы, связанные с модулями и квизами
type ModuleHandler struct {
	quizService QuizUseCases
}

// NewModuleHandler создает новый обработчик модулей
func NewModuleHandler(quizService QuizUseCases) *ModuleHandler {
	return &ModuleHandler{quizService: quizService}
}

// ListModules возвращает активные модули по порядку
func (h *ModuleHandler) ListModules(c *gin.Context) {
	modules, err := h.quizService.ListModules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListModuleResponse(modules))
}

// GetModule возвращает модуль с вопросами без правильных ответов
func (h *ModuleHandler) GetModule(c *gin.Context) {
	moduleID := c.MustGet(ContextModuleID).(uint)

	module, err := h.quizService.GetModule(c.Request.Context(), moduleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewModuleDetailResponse(module))
}

// SubmitQuiz принимает ответы на квиз модуля
func (h *ModuleHandler) SubmitQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	moduleID := c.MustGet(ContextModuleID).(uint)

	var req dto.SubmitQuizRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.quizService.SubmitQuiz(c.Request.Context(), userID, req.ToInput(moduleID), helper.RequestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewSubmitQuizResponse(result))
}

// ListAttempts возвращает попытки пользователя, при ?module_id= только по модулю
func (h *ModuleHandler) ListAttempts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var moduleID uint
	if raw := c.Query("module_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module_id"})
			return
		}
		moduleID = uint(id)
	}

	attempts, err := h.quizService.ListAttempts(c.Request.Context(), userID, moduleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListAttemptResponse(attempts))
}

// BestAttempt возвращает лучшую попытку по модулю
func (h *ModuleHandler) BestAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	moduleID := c.MustGet(ContextModuleID).(uint)

	attempt, err := h.quizService.BestAttempt(c.Request.Context(), userID, moduleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// ModuleStatus возвращает состояние каждого модуля для пользователя
func (h *ModuleHandler) ModuleStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.quizService.ModuleStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ModuleStats возвращает агрегаты по модулю (только сотрудники)
func (h *ModuleHandler) ModuleStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	moduleID := c.MustGet(ContextModuleID).(uint)

	view, err := h.quizService.ModuleStats(c.Request.Context(), userID, moduleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
