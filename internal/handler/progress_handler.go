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

// ProgressUseCases — представления прогресса и аудио трек
type ProgressUseCases interface {
	GetOverallProgress(ctx context.Context, userID uint) (*service.OverallView, error)
	Summary(ctx context.Context, userID uint) (*service.SummaryView, error)
	Leaderboard(ctx context.Context, userID uint) (*service.LeaderboardView, error)
	Statistics(ctx context.Context, requesterID uint) (*service.StatisticsView, error)
	TrackAudioProgress(ctx context.Context, userID, moduleID uint, percentage float64, position int, meta service.RequestMeta) (*service.AudioProgressView, error)
	MarkModuleStarted(ctx context.Context, userID, moduleID uint, meta service.RequestMeta) (*service.ModuleStartedView, error)
}

// ActivityUseCases — журнал активности
type ActivityUseCases interface {
	Record(ctx context.Context, userID uint, activityType string, moduleID *uint, details map[string]interface{}, meta service.RequestMeta) (*entity.UserActivity, error)
	List(ctx context.Context, userID uint) ([]entity.UserActivity, error)
}

// ProgressHandler обрабатывает запросы прогресса обучения
type ProgressHandler struct {
	progressService ProgressUseCases
	activities      ActivityUseCases
}

// NewProgressHandler создает новый обработчик прогресса
func NewProgressHandler(progressService ProgressUseCases, activities ActivityUseCases) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, activities: activities}
}

// Overall пересчитывает и возвращает общий прогресс
func (h *ProgressHandler) Overall(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.progressService.GetOverallProgress(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Summary возвращает сводку для дашборда
func (h *ProgressHandler) Summary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.progressService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Leaderboard возвращает анонимизированный рейтинг
func (h *ProgressHandler) Leaderboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.progressService.Leaderboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Statistics возвращает статистику платформы (только сотрудники)
func (h *ProgressHandler) Statistics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.progressService.Statistics(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// TrackAudio сохраняет позицию прослушивания аудио модуля
func (h *ProgressHandler) TrackAudio(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	moduleID := c.MustGet(ContextModuleID).(uint)

	var req dto.AudioProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.progressService.TrackAudioProgress(c.Request.Context(), userID, moduleID, *req.ProgressPercentage, req.CurrentPosition, helper.RequestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// MarkStarted отмечает модуль как начатый
func (h *ProgressHandler) MarkStarted(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	moduleID := c.MustGet(ContextModuleID).(uint)

	view, err := h.progressService.MarkModuleStarted(c.Request.Context(), userID, moduleID, helper.RequestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListActivities возвращает журнал активности пользователя
func (h *ProgressHandler) ListActivities(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.activities.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListActivityResponse(items))
}

// RecordActivity записывает событие, присланное клиентом (например AUDIO_PLAY)
func (h *ProgressHandler) RecordActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.RecordActivityRequest
	if !bindJSON(c, &req) {
		return
	}

	activity, err := h.activities.Record(c.Request.Context(), userID, req.ActivityType, req.ModuleID, req.Details, helper.RequestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewActivityResponse(activity))
}
