package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/handler/dto"
	"github.com/yourusername/parajuriste-api/internal/handler/helper"
	"github.com/yourusername/parajuriste-api/internal/service"
)

// ReportUseCases — сообщения о проблемах в сообществе
type ReportUseCases interface {
	Submit(ctx context.Context, userID uint, in service.ReportInput, meta service.RequestMeta) (*entity.CommunityReport, error)
	ListMine(ctx context.Context, userID uint) ([]entity.CommunityReport, error)
	Summary(ctx context.Context, userID uint) (*service.ReportSummaryView, error)
	Get(ctx context.Context, userID uint, reportID uuid.UUID) (*entity.CommunityReport, error)
	Delete(ctx context.Context, userID uint, reportID uuid.UUID) error
	Statistics(ctx context.Context, requesterID uint) (*service.ReportStatisticsView, error)
}

// ReportHandler обрабатывает сообщения модуля отчётности
type ReportHandler struct {
	reportService ReportUseCases
}

// NewReportHandler создает новый обработчик сообщений
func NewReportHandler(reportService ReportUseCases) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Submit принимает новое сообщение
func (h *ReportHandler) Submit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "incident_date must be YYYY-MM-DD", "error_type": "validation"})
		return
	}

	report, err := h.reportService.Submit(c.Request.Context(), userID, in, helper.RequestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewReportResponse(report))
}

// ListMine возвращает сообщения текущего пользователя
func (h *ReportHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	reports, err := h.reportService.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListReportResponse(reports))
}

// Summary возвращает сводку сообщений текущего пользователя
func (h *ReportHandler) Summary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.reportService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewReportSummaryResponse(view))
}

// reportIDParam разбирает :report_id, при ошибке отвечает 400
func reportIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("report_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID", "error_type": "validation"})
		return uuid.Nil, false
	}
	return id, true
}

// Get возвращает одно сообщение текущего пользователя
func (h *ReportHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	report, err := h.reportService.Get(c.Request.Context(), userID, reportID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewReportResponse(report))
}

// Delete удаляет сообщение (в течение 24ч, пока оно не взято в работу)
func (h *ReportHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	if err := h.reportService.Delete(c.Request.Context(), userID, reportID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Statistics возвращает статистику сообщений (персонал)
func (h *ReportHandler) Statistics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.reportService.Statistics(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewReportStatisticsResponse(view))
}
