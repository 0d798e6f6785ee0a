package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
)

// ReportInput is a community report as submitted.
type ReportInput struct {
	ProblemType    string
	Title          string
	Description    string
	Location       string
	Commune        string
	IncidentDate   time.Time
	IsAnonymous    bool
	ContactAllowed bool
}

// reportDeleteWindow — сообщение можно удалить только в течение суток после создания
const reportDeleteWindow = 24 * time.Hour

// ReportSummaryView — сводка по сообщениям пользователя
type ReportSummaryView struct {
	TotalReports   int
	Reports        []entity.CommunityReport
	PendingCount   int
	ResolvedCount  int
	LastReportDate *time.Time
}

// ReportStatisticsView — общая статистика сообщений для персонала
type ReportStatisticsView struct {
	TotalReports          int64
	PendingReports        int64
	UnderReviewReports    int64
	ResolvedReports       int64
	ByStatus              map[string]int64
	ByProblemType         map[string]int64
	ReportsThisWeek       int64
	ReportsThisMonth      int64
	ResolutionRate        float64
	AverageResolutionTime float64
}

// ReportService принимает сообщения о проблемах в сообществе
type ReportService struct {
	reportRepo repository.ReportRepository
	userRepo   repository.UserRepository
	activities *ActivityService
	now        func() time.Time
}

// NewReportService создает сервис сообщений
func NewReportService(reportRepo repository.ReportRepository, userRepo repository.UserRepository, activities *ActivityService) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		userRepo:   userRepo,
		activities: activities,
		now:        time.Now,
	}
}

// Submit сохраняет сообщение и пишет REPORT_SUBMIT
func (s *ReportService) Submit(ctx context.Context, userID uint, in ReportInput, meta RequestMeta) (*entity.CommunityReport, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}

	problem := strings.ToUpper(strings.TrimSpace(in.ProblemType))
	if !entity.IsValidProblemType(problem) {
		return nil, fmt.Errorf("%w: unknown problem type %q", apperrors.ErrValidation, in.ProblemType)
	}
	if in.IncidentDate.After(s.now()) {
		return nil, fmt.Errorf("%w: incident date is in the future", apperrors.ErrValidation)
	}
	commune := strings.TrimSpace(in.Commune)
	if commune == "" {
		commune = user.Commune
	}

	report := &entity.CommunityReport{
		ReportID:       uuid.New(),
		UserID:         user.ID,
		ProblemType:    problem,
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Location:       strings.TrimSpace(in.Location),
		Commune:        commune,
		IncidentDate:   in.IncidentDate,
		IsAnonymous:    in.IsAnonymous,
		ContactAllowed: in.ContactAllowed,
		Status:         entity.ReportStatusPending,
		PriorityLevel:  entity.PriorityMedium,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	report.User = user

	if s.activities != nil {
		s.activities.RecordBestEffort(ctx, user.ID, entity.ActivityReportSubmit, nil, map[string]interface{}{
			"report_id":    report.ReportID.String(),
			"problem_type": report.ProblemType,
		}, meta)
	}
	return report, nil
}

// ListMine возвращает сообщения пользователя, новые первыми
func (s *ReportService) ListMine(ctx context.Context, userID uint) ([]entity.CommunityReport, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	reports, err := s.reportRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		reports[i].User = user
	}
	return reports, nil
}

// Summary считает сообщения пользователя по статусам
func (s *ReportService) Summary(ctx context.Context, userID uint) (*ReportSummaryView, error) {
	reports, err := s.ListMine(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &ReportSummaryView{TotalReports: len(reports), Reports: reports}
	for i := range reports {
		switch reports[i].Status {
		case entity.ReportStatusPending:
			view.PendingCount++
		case entity.ReportStatusResolved:
			view.ResolvedCount++
		}
		if view.LastReportDate == nil || reports[i].CreatedAt.After(*view.LastReportDate) {
			created := reports[i].CreatedAt
			view.LastReportDate = &created
		}
	}
	return view, nil
}

// Get возвращает сообщение пользователя; чужие сообщения не видны
func (s *ReportService) Get(ctx context.Context, userID uint, reportID uuid.UUID) (*entity.CommunityReport, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	report, err := s.reportRepo.GetByUser(ctx, user.ID, reportID)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", reportID, err)
	}
	report.User = user
	return report, nil
}

// Delete удаляет сообщение, пока оно в статусе PENDING и не старше суток
func (s *ReportService) Delete(ctx context.Context, userID uint, reportID uuid.UUID) error {
	report, err := s.reportRepo.GetByUser(ctx, userID, reportID)
	if err != nil {
		return fmt.Errorf("report %s: %w", reportID, err)
	}

	cutoff := s.now().Add(-reportDeleteWindow)
	if report.CreatedAt.Before(cutoff) {
		return fmt.Errorf("%w: a report can only be deleted within 24h of its creation", apperrors.ErrValidation)
	}
	if report.Status != entity.ReportStatusPending {
		return fmt.Errorf("%w: the report is already being processed", apperrors.ErrValidation)
	}

	deleted, err := s.reportRepo.DeletePending(ctx, userID, reportID, cutoff)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", reportID, err)
	}
	if !deleted {
		// статус сменился после проверки
		return fmt.Errorf("%w: report %s changed while deleting", apperrors.ErrConflict, reportID)
	}
	return nil
}

// Statistics собирает статистику сообщений. Только для персонала
func (s *ReportService) Statistics(ctx context.Context, requesterID uint) (*ReportStatisticsView, error) {
	if err := requireStaff(ctx, s.userRepo, requesterID); err != nil {
		return nil, err
	}

	now := s.now()
	view := &ReportStatisticsView{ByStatus: map[string]int64{}, ByProblemType: map[string]int64{}}
	var (
		byStatus  []repository.KeyCount
		byProblem []repository.KeyCount
		resolved  []entity.CommunityReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { byStatus, err = s.reportRepo.CountByStatus(gctx); return })
	g.Go(func() (err error) { byProblem, err = s.reportRepo.CountByProblemType(gctx); return })
	g.Go(func() (err error) { view.ReportsThisWeek, err = s.reportRepo.CountSince(gctx, now.Add(-7*day)); return })
	g.Go(func() (err error) { view.ReportsThisMonth, err = s.reportRepo.CountSince(gctx, now.Add(-30*day)); return })
	g.Go(func() (err error) { resolved, err = s.reportRepo.ListResolved(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("report statistics: %w", err)
	}

	for _, kc := range byStatus {
		view.ByStatus[kc.Key] = kc.Count
		view.TotalReports += kc.Count
	}
	view.PendingReports = view.ByStatus[entity.ReportStatusPending]
	view.UnderReviewReports = view.ByStatus[entity.ReportStatusUnderReview]
	view.ResolvedReports = view.ByStatus[entity.ReportStatusResolved]

	for _, p := range []string{entity.ProblemJustice, entity.ProblemHealth, entity.ProblemOther} {
		view.ByProblemType[p] = 0
	}
	for _, kc := range byProblem {
		view.ByProblemType[kc.Key] = kc.Count
	}

	if view.TotalReports > 0 {
		view.ResolutionRate = round2(float64(view.ResolvedReports) / float64(view.TotalReports) * 100)
	}
	// полные дни между созданием и решением
	totalDays, n := 0, 0
	for _, r := range resolved {
		if r.ResolvedAt == nil {
			continue
		}
		totalDays += int(r.ResolvedAt.Sub(r.CreatedAt) / day)
		n++
	}
	if n > 0 {
		view.AverageResolutionTime = round1(float64(totalDays) / float64(n))
	}
	return view, nil
}

