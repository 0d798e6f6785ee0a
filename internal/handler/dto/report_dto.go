package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/service"
)

// IncidentDateLayout — формат даты происшествия
const IncidentDateLayout = "2006-01-02"

// ReportRequest — сообщение о проблеме в сообществе
type ReportRequest struct {
	ProblemType    string `json:"problem_type" binding:"required,oneof=JUSTICE HEALTH OTHER justice health other"`
	Title          string `json:"title" binding:"required,max=200"`
	Description    string `json:"description" binding:"required"`
	Location       string `json:"location" binding:"required,max=200"`
	Commune        string `json:"commune" binding:"omitempty,max=100"`
	IncidentDate   string `json:"incident_date" binding:"required,datetime=2006-01-02"`
	IsAnonymous    bool   `json:"is_anonymous"`
	ContactAllowed bool   `json:"contact_allowed"`
}

// ToInput переводит запрос во входные данные сервиса
func (r *ReportRequest) ToInput() (service.ReportInput, error) {
	date, err := time.Parse(IncidentDateLayout, r.IncidentDate)
	if err != nil {
		return service.ReportInput{}, err
	}
	return service.ReportInput{
		ProblemType:    r.ProblemType,
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		Commune:        r.Commune,
		IncidentDate:   date,
		IsAnonymous:    r.IsAnonymous,
		ContactAllowed: r.ContactAllowed,
	}, nil
}

// ReportResponse — сообщение с учётом анонимности автора
type ReportResponse struct {
	ReportID       uuid.UUID           `json:"report_id"`
	ProblemType    string              `json:"problem_type"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Location       string              `json:"location"`
	Commune        string              `json:"commune"`
	IncidentDate   string              `json:"incident_date"`
	IsAnonymous    bool                `json:"is_anonymous"`
	Status         string              `json:"status"`
	PriorityLevel  string              `json:"priority_level"`
	ReporterInfo   entity.ReporterInfo `json:"reporter_info"`
	CanBeContacted bool                `json:"can_be_contacted"`
	CreatedAt      time.Time           `json:"created_at"`
}

// NewReportResponse создает ReportResponse из entity.CommunityReport
func NewReportResponse(r *entity.CommunityReport) *ReportResponse {
	return &ReportResponse{
		ReportID:       r.ReportID,
		ProblemType:    r.ProblemType,
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		Commune:        r.Commune,
		IncidentDate:   r.IncidentDate.Format(IncidentDateLayout),
		IsAnonymous:    r.IsAnonymous,
		Status:         r.Status,
		PriorityLevel:  r.PriorityLevel,
		ReporterInfo:   r.Reporter(r.User),
		CanBeContacted: r.CanBeContacted(),
		CreatedAt:      r.CreatedAt,
	}
}

// NewListReportResponse создает список ReportResponse
func NewListReportResponse(reports []entity.CommunityReport) []*ReportResponse {
	out := make([]*ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, NewReportResponse(&reports[i]))
	}
	return out
}

// ReportSummaryResponse — сводка сообщений пользователя
type ReportSummaryResponse struct {
	TotalReports   int               `json:"total_reports"`
	TextReports    []*ReportResponse `json:"text_reports"`
	PendingCount   int               `json:"pending_count"`
	ResolvedCount  int               `json:"resolved_count"`
	LastReportDate *time.Time        `json:"last_report_date"`
}

// NewReportSummaryResponse создает ReportSummaryResponse из service.ReportSummaryView
func NewReportSummaryResponse(v *service.ReportSummaryView) *ReportSummaryResponse {
	return &ReportSummaryResponse{
		TotalReports:   v.TotalReports,
		TextReports:    NewListReportResponse(v.Reports),
		PendingCount:   v.PendingCount,
		ResolvedCount:  v.ResolvedCount,
		LastReportDate: v.LastReportDate,
	}
}

// ReportStatisticsResponse — статистика сообщений для персонала
type ReportStatisticsResponse struct {
	TotalReports          int64            `json:"total_reports"`
	PendingReports        int64            `json:"pending_reports"`
	UnderReviewReports    int64            `json:"under_review_reports"`
	ResolvedReports       int64            `json:"resolved_reports"`
	ByStatus              map[string]int64 `json:"by_status"`
	JusticeReports        int64            `json:"justice_reports"`
	HealthReports         int64            `json:"health_reports"`
	OtherReports          int64            `json:"other_reports"`
	ReportsThisWeek       int64            `json:"reports_this_week"`
	ReportsThisMonth      int64            `json:"reports_this_month"`
	ResolutionRate        float64          `json:"resolution_rate"`
	AverageResolutionTime float64          `json:"average_resolution_time"`
}

// NewReportStatisticsResponse создает ReportStatisticsResponse из service.ReportStatisticsView
func NewReportStatisticsResponse(v *service.ReportStatisticsView) *ReportStatisticsResponse {
	return &ReportStatisticsResponse{
		TotalReports:          v.TotalReports,
		PendingReports:        v.PendingReports,
		UnderReviewReports:    v.UnderReviewReports,
		ResolvedReports:       v.ResolvedReports,
		ByStatus:              v.ByStatus,
		JusticeReports:        v.ByProblemType[entity.ProblemJustice],
		HealthReports:         v.ByProblemType[entity.ProblemHealth],
		OtherReports:          v.ByProblemType[entity.ProblemOther],
		ReportsThisWeek:       v.ReportsThisWeek,
		ReportsThisMonth:      v.ReportsThisMonth,
		ResolutionRate:        v.ResolutionRate,
		AverageResolutionTime: v.AverageResolutionTime,
	}
}
