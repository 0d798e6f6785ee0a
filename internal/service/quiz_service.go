package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/internal/service/quizengine"
	"github.com/yourusername/parajuriste-api/pkg/logger"
	"github.com/yourusername/parajuriste-api/pkg/monitoring"
	"github.com/yourusername/parajuriste-api/pkg/tracing"
)

const moduleCacheKey = "module:%d:quiz"

// cachedModule keeps the correct choices next to the module, since they are not serialized with it
type cachedModule struct {
	Module  entity.Module `json:"module"`
	Correct []uint        `json:"correct"`
}

// SubmitInput is one quiz submission.
type SubmitInput struct {
	ModuleID  uint
	Answers   []quizengine.AnswerInput
	StartedAt time.Time
}

// QuizService предоставляет модули, прохождение квизов и статистику по ним
type QuizService struct {
	moduleRepo   repository.ModuleRepository
	attemptRepo  repository.AttemptRepository
	progressRepo repository.ModuleProgressRepository
	userRepo     repository.UserRepository
	cacheRepo    repository.CacheRepository
	aggregator   ProgressAggregator
	activities   *ActivityService
	moduleTTL    time.Duration
	now          func() time.Time
}

// NewQuizService создает новый сервис квизов
func NewQuizService(
	moduleRepo repository.ModuleRepository,
	attemptRepo repository.AttemptRepository,
	progressRepo repository.ModuleProgressRepository,
	userRepo repository.UserRepository,
	cacheRepo repository.CacheRepository,
	aggregator ProgressAggregator,
	activities *ActivityService,
	moduleTTL time.Duration,
) *QuizService {
	return &QuizService{
		moduleRepo:   moduleRepo,
		attemptRepo:  attemptRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		cacheRepo:    cacheRepo,
		aggregator:   aggregator,
		activities:   activities,
		moduleTTL:    moduleTTL,
		now:          time.Now,
	}
}

// ListModules возвращает активные модули по порядку
func (s *QuizService) ListModules(ctx context.Context) ([]entity.Module, error) {
	return s.moduleRepo.ListActive(ctx)
}

// GetModule возвращает модуль с активными вопросами
func (s *QuizService) GetModule(ctx context.Context, moduleID uint) (*entity.Module, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	module.Questions = module.ActiveQuestions()
	return module, nil
}

// loadModule reads the quiz definition from the cache, falling back to the database.
func (s *QuizService) loadModule(ctx context.Context, moduleID uint) (*entity.Module, error) {
	key := fmt.Sprintf(moduleCacheKey, moduleID)

	if s.cacheRepo != nil {
		var cached cachedModule
		err := s.cacheRepo.GetJSON(ctx, key, &cached)
		if err == nil {
			restoreCorrect(&cached.Module, cached.Correct)
			return &cached.Module, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Log.Named("quiz").Warn("module cache read failed", zap.Uint("module_id", moduleID), zap.Error(err))
		}
	}

	module, err := s.moduleRepo.GetWithQuestions(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("module #%d: %w", moduleID, err)
	}
	if !module.IsActive {
		return nil, fmt.Errorf("module #%d: %w", moduleID, apperrors.ErrNotFound)
	}

	if s.cacheRepo != nil {
		entry := cachedModule{Module: *module, Correct: correctChoiceIDs(module)}
		if err := s.cacheRepo.SetJSON(ctx, key, entry, s.moduleTTL); err != nil {
			logger.Log.Named("quiz").Warn("module cache write failed", zap.Uint("module_id", moduleID), zap.Error(err))
		}
	}
	return module, nil
}

func correctChoiceIDs(m *entity.Module) []uint {
	var ids []uint
	for _, q := range m.Questions {
		for _, c := range q.Choices {
			if c.IsCorrect {
				ids = append(ids, c.ID)
			}
		}
	}
	return ids
}

func restoreCorrect(m *entity.Module, correct []uint) {
	set := make(map[uint]bool, len(correct))
	for _, id := range correct {
		set[id] = true
	}
	for qi := range m.Questions {
		for ci := range m.Questions[qi].Choices {
			c := &m.Questions[qi].Choices[ci]
			c.IsCorrect = set[c.ID]
		}
	}
}

// SubmitQuiz scores and stores a submission, then refreshes the user's overall progress.
func (s *QuizService) SubmitQuiz(ctx context.Context, userID uint, in SubmitInput, meta RequestMeta) (*SubmitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "quiz.Submit",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("module.id", int64(in.ModuleID)),
	)
	defer span.End()

	res, err := s.submit(ctx, userID, in, meta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("quiz.score", res.Attempt.Score),
		attribute.Int("quiz.attempt_number", res.Attempt.AttemptNumber),
	)
	return res, nil
}

func (s *QuizService) submit(ctx context.Context, userID uint, in SubmitInput, meta RequestMeta) (*SubmitResult, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsQuizTrack() {
		return nil, fmt.Errorf("%w: quizzes are only available in French", apperrors.ErrValidation)
	}

	module, err := s.loadModule(ctx, in.ModuleID)
	if err != nil {
		return nil, err
	}
	active := module.ActiveQuestions()
	if len(active) == 0 && !module.IsReportingModule() {
		return nil, fmt.Errorf("%w: module %d has no questions", apperrors.ErrValidation, module.Number)
	}

	result, err := quizengine.Score(module, in.Answers)
	if err != nil {
		return nil, err
	}

	now := s.now()
	started := in.StartedAt
	if started.IsZero() || started.After(now) {
		started = now
	}
	timeTaken := int(now.Sub(started).Seconds())

	attempt := &entity.QuizAttempt{
		UserID:         user.ID,
		ModuleID:       module.ID,
		Score:          result.Score,
		TotalQuestions: len(active),
		CorrectAnswers: result.CorrectAnswers,
		IsPassed:       result.Passed,
		TimeTaken:      &timeTaken,
		StartedAt:      started,
		CompletedAt:    now,
	}
	answers := make([]entity.QuizAnswer, 0, len(result.Questions))
	for _, q := range result.Questions {
		ids := dedupeIDs(q.SelectedChoiceIDs)
		selected := make([]entity.AnswerChoice, len(ids))
		for i, id := range ids {
			selected[i] = entity.AnswerChoice{ID: id}
		}
		answers = append(answers, entity.QuizAnswer{
			QuestionID:      q.QuestionID,
			SelectedChoices: selected,
			IsCorrect:       q.IsCorrect,
			PointsEarned:    float64(q.PointsEarned),
		})
	}

	if err := s.attemptRepo.CreateAttempt(ctx, attempt, answers); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Log.Named("quiz").Error("attempt numbering retries exhausted",
				zap.Uint("user_id", user.ID),
				zap.Uint("module_id", module.ID),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("store attempt: %w", err)
	}

	verdict := "failed"
	if attempt.IsPassed {
		verdict = "passed"
	}
	monitoring.QuizSubmissions.WithLabelValues(verdict).Inc()

	if s.activities != nil {
		s.activities.RecordBestEffort(ctx, user.ID, entity.ActivityQuizSubmit, &module.ID, map[string]interface{}{
			"attempt_id":     attempt.ID,
			"attempt_number": attempt.AttemptNumber,
			"score":          round2(attempt.Score),
			"is_passed":      attempt.IsPassed,
		}, meta)
	}

	if _, err := s.aggregator.Recompute(ctx, user); err != nil {
		logger.Log.Named("quiz").Warn("progress recompute after submission failed",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
	}

	return &SubmitResult{
		Attempt: attempt,
		Result:  result,
		Passed:  attempt.IsPassed,
		Message: resultMessage(attempt.Score, attempt.IsPassed),
	}, nil
}

func resultMessage(score float64, passed bool) string {
	if passed {
		return fmt.Sprintf("Félicitations ! Vous avez réussi le quiz avec %.1f%%", score)
	}
	return fmt.Sprintf("Score: %.1f%%. Il faut %.0f%% pour valider le module. Vous pouvez recommencer.", score, entity.PassThreshold)
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ListAttempts возвращает попытки пользователя, новые первыми. moduleID 0 - все модули
func (s *QuizService) ListAttempts(ctx context.Context, userID, moduleID uint) ([]entity.QuizAttempt, error) {
	return s.attemptRepo.ListAttempts(ctx, userID, moduleID)
}

// BestAttempt возвращает лучшую попытку по модулю или ErrNotFound
func (s *QuizService) BestAttempt(ctx context.Context, userID, moduleID uint) (*entity.QuizAttempt, error) {
	return s.attemptRepo.BestAttempt(ctx, userID, moduleID)
}

// ModuleStatus reports per-module state for the user's track.
func (s *QuizService) ModuleStatus(ctx context.Context, userID uint) (*ModuleStatusView, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	modules, err := s.moduleRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	view := &ModuleStatusView{UserLanguage: user.PreferredLanguage, Modules: make([]ModuleStatusEntry, 0, len(modules))}

	var (
		best     map[uint]entity.QuizAttempt
		counts   = make(map[uint]int)
		progress = make(map[uint]entity.ModuleProgress)
	)
	if user.IsAudioTrack() {
		records, err := s.progressRepo.ListByUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("module progress: %w", err)
		}
		for _, p := range records {
			progress[p.ModuleID] = p
		}
	} else {
		ids := make([]uint, len(modules))
		for i, m := range modules {
			ids[i] = m.ID
		}
		if best, err = s.attemptRepo.BestAttempts(ctx, user.ID, ids); err != nil {
			return nil, fmt.Errorf("best attempts: %w", err)
		}
		attempts, err := s.attemptRepo.ListAttempts(ctx, user.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("list attempts: %w", err)
		}
		for _, a := range attempts {
			counts[a.ModuleID]++
		}
	}

	for i := range modules {
		m := &modules[i]
		entry := ModuleStatusEntry{Module: *briefOf(m), CanAccess: true}
		switch {
		case m.IsReportingModule():
			entry.Type = ModuleTypeReporting
		case user.IsAudioTrack():
			entry.Type = ModuleTypeAudio
			p := progress[m.ID]
			pct := p.ProgressPercentage
			entry.ProgressPercentage = &pct
			entry.IsCompleted = p.IsCompleted
		default:
			entry.Type = ModuleTypeQuiz
			if a, ok := best[m.ID]; ok {
				score := a.Score
				entry.BestScore = &score
				entry.IsCompleted = a.IsPassed
			}
			entry.TotalAttempts = counts[m.ID]
		}
		view.Modules = append(view.Modules, entry)
	}
	return view, nil
}

// ModuleStats returns staff aggregates for one module.
func (s *QuizService) ModuleStats(ctx context.Context, requesterID, moduleID uint) (*ModuleStatsView, error) {
	if err := requireStaff(ctx, s.userRepo, requesterID); err != nil {
		return nil, err
	}
	module, err := s.moduleRepo.GetActiveByID(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("module #%d: %w", moduleID, err)
	}

	view := &ModuleStatsView{Module: *briefOf(module)}
	if !module.IsReportingModule() {
		stats, err := s.attemptRepo.ModuleStats(ctx, module.ID)
		if err != nil {
			return nil, fmt.Errorf("quiz stats: %w", err)
		}
		qs := &QuizStatsView{QuizModuleStats: *stats}
		qs.AverageScore = round2(qs.AverageScore)
		if stats.TotalAttempts > 0 {
			qs.CompletionRate = round2(float64(stats.PassedAttempts) / float64(stats.TotalAttempts) * 100)
		}
		view.QuizStats = qs
	}

	audio, err := s.progressRepo.ModuleStats(ctx, module.ID)
	if err != nil {
		return nil, fmt.Errorf("audio stats: %w", err)
	}
	view.AudioStats = audio
	return view, nil
}
