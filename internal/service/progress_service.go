package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/parajuriste-api/internal/config"
	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/pkg/logger"
)

const (
	leaderboardCacheKey = "leaderboard:ranked"
	leaderboardCacheTTL = time.Minute
	statisticsCacheKey  = "stats:progress"
	topCommunesLimit    = 10
	day                 = 24 * time.Hour
)

// ProgressService отвечает за представления прогресса и аудио-трек
type ProgressService struct {
	userRepo     repository.UserRepository
	moduleRepo   repository.ModuleRepository
	progressRepo repository.ModuleProgressRepository
	overallRepo  repository.OverallProgressRepository
	attemptRepo  repository.AttemptRepository
	activityRepo repository.ActivityRepository
	certRepo     repository.CertificateRepository
	cacheRepo    repository.CacheRepository
	aggregator   ProgressAggregator
	activities   *ActivityService
	cfg          config.ProgressConfig
	now          func() time.Time

	// одновременные промахи кеша статистики делят один пересчет
	statsGroup singleflight.Group
}

// ProgressDeps группирует репозитории ProgressService
type ProgressDeps struct {
	Users        repository.UserRepository
	Modules      repository.ModuleRepository
	Progress     repository.ModuleProgressRepository
	Overall      repository.OverallProgressRepository
	Attempts     repository.AttemptRepository
	Activities   repository.ActivityRepository
	Certificates repository.CertificateRepository
	Cache        repository.CacheRepository
}

// NewProgressService создает сервис прогресса
func NewProgressService(deps ProgressDeps, aggregator ProgressAggregator, activities *ActivityService, cfg config.ProgressConfig) *ProgressService {
	return &ProgressService{
		userRepo:     deps.Users,
		moduleRepo:   deps.Modules,
		progressRepo: deps.Progress,
		overallRepo:  deps.Overall,
		attemptRepo:  deps.Attempts,
		activityRepo: deps.Activities,
		certRepo:     deps.Certificates,
		cacheRepo:    deps.Cache,
		aggregator:   aggregator,
		activities:   activities,
		cfg:          cfg,
		now:          time.Now,
	}
}

// GetOverallProgress recomputes and returns the overall progress with the next module.
func (s *ProgressService) GetOverallProgress(ctx context.Context, userID uint) (*OverallView, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.aggregator.Recompute(ctx, user)
	if err != nil {
		return nil, err
	}
	next, err := s.aggregator.NextModule(ctx, user)
	if err != nil {
		return nil, err
	}
	return &OverallView{
		Progress:         progress,
		RemainingModules: progress.RemainingModules(),
		NextModule:       briefOf(next),
	}, nil
}

// Summary собирает сводку для личного кабинета
func (s *ProgressService) Summary(ctx context.Context, userID uint) (*SummaryView, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	overall, err := s.aggregator.Recompute(ctx, user)
	if err != nil {
		return nil, err
	}

	modules, err := s.progressRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("module progress: %w", err)
	}
	recent, err := s.activityRepo.ListByUser(ctx, user.ID, s.cfg.RecentActivities)
	if err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}
	certs, err := s.certRepo.ListValidByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("certificates: %w", err)
	}

	now := s.now()
	weekAgo := now.Add(-7 * day)
	view := &SummaryView{
		OverallProgress:  overall,
		ModuleProgress:   modules,
		RecentActivities: recent,
		Certificates:     certs,
		DaysSinceStart:   int(now.Sub(user.CreatedAt) / day),
		LastActivityDate: user.CreatedAt,
	}
	if len(recent) > 0 {
		view.LastActivityDate = recent[0].Timestamp
	}
	for _, p := range modules {
		view.TotalTimeSpent += p.TotalListeningTime
		if p.IsCompleted && p.CompletedAt != nil && !p.CompletedAt.Before(weekAgo) {
			view.ModulesThisWeek++
		}
	}
	return view, nil
}

// Leaderboard returns the anonymised ranking with the current user flagged.
func (s *ProgressService) Leaderboard(ctx context.Context, userID uint) (*LeaderboardView, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	current, err := s.aggregator.Recompute(ctx, user)
	if err != nil {
		return nil, err
	}

	rows, err := s.rankedRows(ctx)
	if err != nil {
		return nil, err
	}

	// the cached snapshot may lag behind; the current user's row is always fresh
	fresh := repository.LeaderboardRow{
		UserID:               user.ID,
		Commune:              user.Commune,
		CompletionPercentage: current.CompletionPercentage,
		CompletedModules:     current.CompletedModules,
		AverageQuizScore:     current.AverageQuizScore,
	}
	replaced := false
	for i := range rows {
		if rows[i].UserID == user.ID {
			rows[i] = fresh
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, fresh)
	}
	sortRanked(rows)

	size := s.cfg.LeaderboardSize
	if size <= 0 {
		size = 50
	}

	view := &LeaderboardView{TotalUsers: len(rows), Leaderboard: make([]LeaderboardEntry, 0, size+1)}
	for i, r := range rows {
		rank := i + 1
		isCurrent := r.UserID == user.ID
		if isCurrent {
			view.UserRank = &rank
		}
		if i < size || isCurrent {
			view.Leaderboard = append(view.Leaderboard, entryOf(r, rank, isCurrent))
		}
	}
	return view, nil
}

func (s *ProgressService) rankedRows(ctx context.Context) ([]repository.LeaderboardRow, error) {
	var rows []repository.LeaderboardRow
	if s.cacheRepo != nil {
		err := s.cacheRepo.GetJSON(ctx, leaderboardCacheKey, &rows)
		if err == nil {
			return rows, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Log.Named("progress").Warn("leaderboard cache read failed", zap.Error(err))
		}
	}

	rows, err := s.overallRepo.ListRanked(ctx)
	if err != nil {
		return nil, fmt.Errorf("ranked progress: %w", err)
	}
	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(ctx, leaderboardCacheKey, rows, leaderboardCacheTTL); err != nil {
			logger.Log.Named("progress").Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return rows, nil
}

func sortRanked(rows []repository.LeaderboardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CompletionPercentage != rows[j].CompletionPercentage {
			return rows[i].CompletionPercentage > rows[j].CompletionPercentage
		}
		if rows[i].CompletedModules != rows[j].CompletedModules {
			return rows[i].CompletedModules > rows[j].CompletedModules
		}
		return rows[i].UserID < rows[j].UserID
	})
}

func entryOf(r repository.LeaderboardRow, rank int, isCurrent bool) LeaderboardEntry {
	e := LeaderboardEntry{
		Rank:                 rank,
		Commune:              r.Commune,
		CompletionPercentage: round1(r.CompletionPercentage),
		CompletedModules:     r.CompletedModules,
		IsCurrentUser:        isCurrent,
	}
	if r.AverageQuizScore != nil {
		avg := round1(*r.AverageQuizScore)
		e.AverageScore = &avg
	}
	return e
}

// Statistics returns the staff statistics snapshot, from the cache when it is fresh.
func (s *ProgressService) Statistics(ctx context.Context, requesterID uint) (*StatisticsView, error) {
	if err := requireStaff(ctx, s.userRepo, requesterID); err != nil {
		return nil, err
	}
	if s.cacheRepo != nil {
		var cached StatisticsView
		err := s.cacheRepo.GetJSON(ctx, statisticsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Log.Named("progress").Warn("statistics cache read failed", zap.Error(err))
		}
	}

	// пересчет не зависит от отмены запроса, который его запустил
	ch := s.statsGroup.DoChan(statisticsCacheKey, func() (interface{}, error) {
		return s.RefreshStatistics(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		view := *res.Val.(*StatisticsView)
		return &view, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RefreshStatistics computes the statistics snapshot and stores it in the cache.
func (s *ProgressService) RefreshStatistics(ctx context.Context) (*StatisticsView, error) {
	now := s.now()
	view := &StatisticsView{GeneratedAt: now, ModuleCompletionRates: map[string]float64{}}

	var (
		fullyCompleted int64
		completed      []entity.OverallProgress
		modules        []entity.Module
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { view.TotalUsers, err = s.userRepo.Count(gctx); return })
	g.Go(func() (err error) {
		view.ActiveUsersWeek, err = s.activityRepo.CountActiveUsersSince(gctx, now.Add(-7*day))
		return
	})
	g.Go(func() (err error) { fullyCompleted, err = s.overallRepo.CountFullyCompleted(gctx); return })
	g.Go(func() (err error) { completed, err = s.overallRepo.ListCompleted(gctx); return })
	g.Go(func() (err error) { view.TopCommunes, err = s.userRepo.TopCommunes(gctx, topCommunesLimit); return })
	g.Go(func() (err error) {
		view.FrenchUsers, err = s.userRepo.CountByLanguage(gctx, entity.LanguageFrench)
		return
	})
	g.Go(func() (err error) { view.FonUsers, err = s.userRepo.CountByLanguage(gctx, entity.LanguageFon); return })
	g.Go(func() (err error) { view.TotalCertificates, err = s.certRepo.CountValid(gctx, time.Time{}); return })
	g.Go(func() (err error) {
		view.CertificatesThisMonth, err = s.certRepo.CountValid(gctx, now.Add(-30*day))
		return
	})
	g.Go(func() (err error) { modules, err = s.moduleRepo.ListActiveTraining(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}

	if view.TotalUsers > 0 {
		view.CompletionRate = round2(float64(fullyCompleted) / float64(view.TotalUsers) * 100)
	}
	if len(completed) > 0 {
		totalDays := 0
		for _, p := range completed {
			totalDays += int(p.CompletedAt.Sub(p.StartedAt) / day)
		}
		view.AverageCompletionTime = round1(float64(totalDays) / float64(len(completed)))
	}

	rates := make([]float64, len(modules))
	g, gctx = errgroup.WithContext(ctx)
	for i, m := range modules {
		g.Go(func() error {
			passed, err := s.attemptRepo.CountPassedUsers(gctx, m.ID)
			if err != nil {
				return err
			}
			audio, err := s.progressRepo.ModuleStats(gctx, m.ID)
			if err != nil {
				return err
			}
			if view.TotalUsers > 0 {
				rates[i] = round2(float64(passed+audio.CompletedUsers) / float64(view.TotalUsers) * 100)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("module completion rates: %w", err)
	}
	for i, m := range modules {
		view.ModuleCompletionRates[fmt.Sprintf("Module %d", m.Number)] = rates[i]
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(ctx, statisticsCacheKey, view, s.cfg.StatsCacheTTL); err != nil {
			logger.Log.Named("progress").Warn("statistics cache write failed", zap.Error(err))
		}
	}
	return view, nil
}

// TrackAudioProgress stores listening progress of a Fon user. Progress never goes down.
func (s *ProgressService) TrackAudioProgress(ctx context.Context, userID, moduleID uint, percentage float64, position int, meta RequestMeta) (*AudioProgressView, error) {
	if percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("%w: progress percentage must be between 0 and 100", apperrors.ErrValidation)
	}
	if position < 0 {
		return nil, fmt.Errorf("%w: audio position must not be negative", apperrors.ErrValidation)
	}

	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsAudioTrack() {
		return nil, fmt.Errorf("%w: Le suivi audio n'est disponible qu'en langue Fon", apperrors.ErrValidation)
	}
	module, err := s.moduleRepo.GetActiveByID(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("module #%d: %w", moduleID, err)
	}
	if !module.HasAudio() {
		return nil, fmt.Errorf("%w: module %d has no audio", apperrors.ErrValidation, module.Number)
	}

	upd, err := s.progressRepo.UpdateAudioProgress(ctx, user.ID, module.ID, percentage, position)
	if err != nil {
		return nil, fmt.Errorf("update audio progress: %w", err)
	}

	if upd.JustCompleted && s.activities != nil {
		s.activities.RecordBestEffort(ctx, user.ID, entity.ActivityAudioComplete, &module.ID, map[string]interface{}{
			"listening_time": upd.Progress.TotalListeningTime,
		}, meta)
	}
	if upd.Created || upd.Advanced || upd.JustCompleted {
		if _, err := s.aggregator.Recompute(ctx, user); err != nil {
			logger.Log.Named("progress").Warn("progress recompute after audio update failed",
				zap.Uint("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return &AudioProgressView{
		Message:            "Progression mise à jour",
		ProgressPercentage: upd.Progress.ProgressPercentage,
		IsCompleted:        upd.Progress.IsCompleted,
	}, nil
}

// MarkModuleStarted создает запись прогресса по модулю и пишет MODULE_VIEW
func (s *ProgressService) MarkModuleStarted(ctx context.Context, userID, moduleID uint, meta RequestMeta) (*ModuleStartedView, error) {
	if _, err := loadUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	module, err := s.moduleRepo.GetActiveByID(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("module #%d: %w", moduleID, err)
	}

	progress, err := s.progressRepo.GetOrCreate(ctx, userID, module.ID)
	if err != nil {
		return nil, fmt.Errorf("module progress: %w", err)
	}
	if s.activities != nil {
		s.activities.RecordBestEffort(ctx, userID, entity.ActivityModuleView, &module.ID,
			map[string]interface{}{"action": "started"}, meta)
	}
	return &ModuleStartedView{
		Message:  fmt.Sprintf("Module %d marqué comme commencé", module.Number),
		Progress: progress,
	}, nil
}
