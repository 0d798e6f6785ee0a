package progress

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

type MockModuleRepo struct {
	mock.Mock
}

func (m *MockModuleRepo) Create(ctx context.Context, module *entity.Module) error {
	return m.Called(ctx, module).Error(0)
}

func (m *MockModuleRepo) GetActiveByID(ctx context.Context, id uint) (*entity.Module, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Module), args.Error(1)
}

func (m *MockModuleRepo) GetWithQuestions(ctx context.Context, id uint) (*entity.Module, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Module), args.Error(1)
}

func (m *MockModuleRepo) ListActive(ctx context.Context) ([]entity.Module, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Module), args.Error(1)
}

func (m *MockModuleRepo) ListActiveTraining(ctx context.Context) ([]entity.Module, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Module), args.Error(1)
}

type MockOverallRepo struct {
	mock.Mock
}

func (m *MockOverallRepo) GetOrCreate(ctx context.Context, userID uint) (*entity.OverallProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OverallProgress), args.Error(1)
}

func (m *MockOverallRepo) Save(ctx context.Context, progress *entity.OverallProgress) error {
	return m.Called(ctx, progress).Error(0)
}

func (m *MockOverallRepo) MarkCertificateRequested(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockOverallRepo) ListRanked(ctx context.Context) ([]repository.LeaderboardRow, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.LeaderboardRow), args.Error(1)
}

func (m *MockOverallRepo) CountFullyCompleted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOverallRepo) ListCompleted(ctx context.Context) ([]entity.OverallProgress, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.OverallProgress), args.Error(1)
}

type MockAttemptRepo struct {
	mock.Mock
}

func (m *MockAttemptRepo) CreateAttempt(ctx context.Context, attempt *entity.QuizAttempt, answers []entity.QuizAnswer) error {
	return m.Called(ctx, attempt, answers).Error(0)
}

func (m *MockAttemptRepo) BestAttempt(ctx context.Context, userID, moduleID uint) (*entity.QuizAttempt, error) {
	args := m.Called(ctx, userID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepo) BestAttempts(ctx context.Context, userID uint, moduleIDs []uint) (map[uint]entity.QuizAttempt, error) {
	args := m.Called(ctx, userID, moduleIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]entity.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepo) ListAttempts(ctx context.Context, userID, moduleID uint) ([]entity.QuizAttempt, error) {
	args := m.Called(ctx, userID, moduleID)
	return args.Get(0).([]entity.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepo) CountAttempts(ctx context.Context, userID uint, moduleIDs []uint) (int64, error) {
	args := m.Called(ctx, userID, moduleIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepo) ModuleStats(ctx context.Context, moduleID uint) (*repository.QuizModuleStats, error) {
	args := m.Called(ctx, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.QuizModuleStats), args.Error(1)
}

func (m *MockAttemptRepo) CountPassedUsers(ctx context.Context, moduleID uint) (int64, error) {
	args := m.Called(ctx, moduleID)
	return args.Get(0).(int64), args.Error(1)
}

type MockModuleProgressRepo struct {
	mock.Mock
}

func (m *MockModuleProgressRepo) UpdateAudioProgress(ctx context.Context, userID, moduleID uint, percentage float64, position int) (*repository.AudioProgressUpdate, error) {
	args := m.Called(ctx, userID, moduleID, percentage, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AudioProgressUpdate), args.Error(1)
}

func (m *MockModuleProgressRepo) GetOrCreate(ctx context.Context, userID, moduleID uint) (*entity.ModuleProgress, error) {
	args := m.Called(ctx, userID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ModuleProgress), args.Error(1)
}

func (m *MockModuleProgressRepo) Get(ctx context.Context, userID, moduleID uint) (*entity.ModuleProgress, error) {
	args := m.Called(ctx, userID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ModuleProgress), args.Error(1)
}

func (m *MockModuleProgressRepo) ListByUser(ctx context.Context, userID uint) ([]entity.ModuleProgress, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.ModuleProgress), args.Error(1)
}

func (m *MockModuleProgressRepo) ModuleStats(ctx context.Context, moduleID uint) (*repository.AudioModuleStats, error) {
	args := m.Called(ctx, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AudioModuleStats), args.Error(1)
}

// ============================================================================
// Хелперы
// ============================================================================

// gatedRule reads the passed count when called; the first call then waits for release.
type gatedRule struct {
	mu      sync.Mutex
	passed  int
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedRule(passed int) *gatedRule {
	return &gatedRule{passed: passed, entered: make(chan struct{}), release: make(chan struct{})}
}

func (r *gatedRule) setPassed(n int) {
	r.mu.Lock()
	r.passed = n
	r.mu.Unlock()
}

func (r *gatedRule) Track() string { return entity.LanguageFrench }

func (r *gatedRule) Evaluate(ctx context.Context, userID uint, modules []entity.Module) (*TrackSnapshot, error) {
	r.mu.Lock()
	passed := r.passed
	r.mu.Unlock()

	if r.calls.Add(1) == 1 {
		close(r.entered)
		<-r.release
	}

	done := make(map[uint]bool, passed)
	for i := 0; i < passed && i < len(modules); i++ {
		done[modules[i].ID] = true
	}
	return &TrackSnapshot{Completed: done, TotalQuizAttempts: passed}, nil
}

func trainingModules() []entity.Module {
	modules := make([]entity.Module, 9)
	for i := range modules {
		modules[i] = entity.Module{ID: uint(i + 1), Number: i + 1, IsActive: true, AudioFon: "audio.mp3"}
	}
	return modules
}

func allIDs() []uint {
	return []uint{1, 2, 3, 4, 5, 6, 7, 8, 9}
}

// bestWith returns passing best attempts for every module with module 8 at score8.
func bestWith(score8 float64) map[uint]entity.QuizAttempt {
	best := make(map[uint]entity.QuizAttempt, 9)
	for _, id := range allIDs() {
		score := 90.0
		if id == 8 {
			score = score8
		}
		best[id] = entity.QuizAttempt{ModuleID: id, Score: score, IsPassed: entity.IsPassingScore(score)}
	}
	return best
}

type fixture struct {
	modules  *MockModuleRepo
	overall  *MockOverallRepo
	attempts *MockAttemptRepo
	progress *MockModuleProgressRepo
	agg      *Aggregator
	stored   *entity.OverallProgress
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		modules:  new(MockModuleRepo),
		overall:  new(MockOverallRepo),
		attempts: new(MockAttemptRepo),
		progress: new(MockModuleProgressRepo),
		stored:   &entity.OverallProgress{UserID: 7},
	}
	f.agg = NewAggregator(f.modules, f.overall,
		NewQuizBasedRule(f.attempts),
		NewAudioBasedRule(f.progress),
	)
	f.agg.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }

	f.modules.On("ListActiveTraining", mock.Anything).Return(trainingModules(), nil)
	f.overall.On("GetOrCreate", mock.Anything, uint(7)).Return(f.stored, nil)
	f.overall.On("Save", mock.Anything, mock.AnythingOfType("*entity.OverallProgress")).Return(nil)
	return f
}

// ============================================================================
// Тесты
// ============================================================================

func TestAggregator_Recompute_BecomesEligibleAfterRetake(t *testing.T) {
	f := newFixture(t)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench}
	ctx := context.Background()

	f.attempts.On("BestAttempts", mock.Anything, uint(7), allIDs()).Return(bestWith(79), nil).Once()
	f.attempts.On("CountAttempts", mock.Anything, uint(7), allIDs()).Return(int64(9), nil).Once()

	p, err := f.agg.Recompute(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 8, p.CompletedModules)
	assert.Equal(t, 9, p.TotalModules)
	assert.False(t, p.CanGetCertificate)
	assert.Nil(t, p.CompletedAt)
	assert.Equal(t, 9, p.TotalQuizAttempts)

	// second attempt on module 8 scores 81
	f.attempts.On("BestAttempts", mock.Anything, uint(7), allIDs()).Return(bestWith(81), nil).Once()
	f.attempts.On("CountAttempts", mock.Anything, uint(7), allIDs()).Return(int64(10), nil).Once()

	p, err = f.agg.Recompute(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 9, p.CompletedModules)
	assert.InDelta(t, 100, p.CompletionPercentage, 1e-9)
	assert.True(t, p.CanGetCertificate)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, f.agg.now(), *p.CompletedAt)
	assert.Equal(t, 10, p.TotalQuizAttempts)
	require.NotNil(t, p.AverageQuizScore)
	assert.InDelta(t, (8*90.0+81)/9, *p.AverageQuizScore, 1e-9)

	f.overall.AssertNumberOfCalls(t, "Save", 2)
}

func TestAggregator_Recompute_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench}
	ctx := context.Background()

	f.attempts.On("BestAttempts", mock.Anything, uint(7), allIDs()).Return(bestWith(81), nil)
	f.attempts.On("CountAttempts", mock.Anything, uint(7), allIDs()).Return(int64(9), nil)

	first, err := f.agg.Recompute(ctx, user)
	require.NoError(t, err)

	f.agg.now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }
	second, err := f.agg.Recompute(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, first.CompletedModules, second.CompletedModules)
	assert.Equal(t, first.CompletionPercentage, second.CompletionPercentage)
	assert.Equal(t, *first.AverageQuizScore, *second.AverageQuizScore)
	// latch keeps the first timestamp
	assert.Equal(t, *first.CompletedAt, *second.CompletedAt)
}

func TestAggregator_Recompute_LatchSurvivesLostEligibility(t *testing.T) {
	f := newFixture(t)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench}
	ctx := context.Background()

	latched := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.stored.CompletedAt = &latched

	// a module was added, user now has 9 of 10
	modules := append(trainingModules(), entity.Module{ID: 11, Number: 9, IsActive: true})
	f.modules.ExpectedCalls = nil
	f.modules.On("ListActiveTraining", mock.Anything).Return(modules, nil)
	ids := append(allIDs(), 11)
	f.attempts.On("BestAttempts", mock.Anything, uint(7), ids).Return(bestWith(90), nil)
	f.attempts.On("CountAttempts", mock.Anything, uint(7), ids).Return(int64(9), nil)

	p, err := f.agg.Recompute(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 9, p.CompletedModules)
	assert.Equal(t, 10, p.TotalModules)
	assert.False(t, p.CanGetCertificate)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, latched, *p.CompletedAt)
}

func TestAggregator_Recompute_AudioTrack(t *testing.T) {
	f := newFixture(t)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFon}

	records := []entity.ModuleProgress{
		{ModuleID: 1, IsCompleted: true, TotalListeningTime: 300},
		{ModuleID: 2, IsCompleted: false, ProgressPercentage: 50, TotalListeningTime: 120},
		// reporting module counts for time only
		{ModuleID: 10, IsCompleted: true, TotalListeningTime: 60},
	}
	f.progress.On("ListByUser", mock.Anything, uint(7)).Return(records, nil)

	p, err := f.agg.Recompute(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, 1, p.CompletedModules)
	assert.Equal(t, 9, p.TotalModules)
	assert.Equal(t, 480, p.TotalAudioTime)
	assert.Nil(t, p.AverageQuizScore)
	assert.Equal(t, 0, p.TotalQuizAttempts)
	f.attempts.AssertNotCalled(t, "BestAttempts", mock.Anything, mock.Anything, mock.Anything)
}

func TestAggregator_Recompute_AverageOverAttemptedOnly(t *testing.T) {
	f := newFixture(t)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench}

	best := map[uint]entity.QuizAttempt{
		1: {ModuleID: 1, Score: 100, IsPassed: true},
		2: {ModuleID: 2, Score: 50, IsPassed: false},
	}
	f.attempts.On("BestAttempts", mock.Anything, uint(7), allIDs()).Return(best, nil)
	f.attempts.On("CountAttempts", mock.Anything, uint(7), allIDs()).Return(int64(3), nil)

	p, err := f.agg.Recompute(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, 1, p.CompletedModules)
	require.NotNil(t, p.AverageQuizScore)
	assert.InDelta(t, 75, *p.AverageQuizScore, 1e-9)
}

func TestAggregator_Recompute_UnknownTrack(t *testing.T) {
	f := newFixture(t)

	_, err := f.agg.Recompute(context.Background(), &entity.User{ID: 7, PreferredLanguage: "EN"})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	f.overall.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAggregator_Recompute_SaveFailure(t *testing.T) {
	f := newFixture(t)
	f.overall.ExpectedCalls = nil
	f.overall.On("GetOrCreate", mock.Anything, uint(7)).Return(f.stored, nil)
	f.overall.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.attempts.On("BestAttempts", mock.Anything, uint(7), allIDs()).Return(map[uint]entity.QuizAttempt{}, nil)
	f.attempts.On("CountAttempts", mock.Anything, uint(7), allIDs()).Return(int64(0), nil)

	_, err := f.agg.Recompute(context.Background(), &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench})

	assert.Error(t, err)
}

func TestAggregator_NextModule(t *testing.T) {
	f := newFixture(t)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench}

	f.attempts.On("BestAttempts", mock.Anything, uint(7), allIDs()).Return(bestWith(79), nil).Once()
	f.attempts.On("CountAttempts", mock.Anything, uint(7), allIDs()).Return(int64(9), nil)

	next, err := f.agg.NextModule(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 8, next.Number)

	f.attempts.On("BestAttempts", mock.Anything, uint(7), allIDs()).Return(bestWith(81), nil).Once()
	next, err = f.agg.NextModule(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestAggregator_Recompute_SeesCallersOwnWrite(t *testing.T) {
	modules := new(MockModuleRepo)
	overall := new(MockOverallRepo)
	rule := newGatedRule(8)
	agg := NewAggregator(modules, overall, rule)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench}

	modules.On("ListActiveTraining", mock.Anything).Return(trainingModules(), nil)
	overall.On("GetOrCreate", mock.Anything, uint(7)).Return(&entity.OverallProgress{UserID: 7}, nil).Once()
	overall.On("GetOrCreate", mock.Anything, uint(7)).Return(&entity.OverallProgress{UserID: 7}, nil).Once()
	overall.On("Save", mock.Anything, mock.AnythingOfType("*entity.OverallProgress")).Return(nil)

	// A reads 8 passed modules and stays inside Evaluate
	type result struct {
		p   *entity.OverallProgress
		err error
	}
	first := make(chan result, 1)
	go func() {
		p, err := agg.Recompute(context.Background(), user)
		first <- result{p, err}
	}()
	<-rule.entered

	// the 9th pass is committed, then B recomputes
	rule.setPassed(9)
	second := make(chan result, 1)
	go func() {
		p, err := agg.Recompute(context.Background(), user)
		second <- result{p, err}
	}()

	var b result
	select {
	case b = <-second:
	case <-time.After(2 * time.Second):
		close(rule.release)
		t.Fatal("recompute waited for an earlier run")
	}
	require.NoError(t, b.err)
	assert.Equal(t, 9, b.p.CompletedModules)
	assert.True(t, b.p.CanGetCertificate)

	close(rule.release)
	a := <-first
	require.NoError(t, a.err)
	assert.Equal(t, 8, a.p.CompletedModules)
	assert.Equal(t, int32(2), rule.calls.Load())
}

func TestAggregator_Recompute_CancelledCallerDoesNotFailOthers(t *testing.T) {
	modules := new(MockModuleRepo)
	overall := new(MockOverallRepo)
	rule := newGatedRule(9)
	blocked := &ctxRule{gatedRule: rule}
	agg := NewAggregator(modules, overall, blocked)
	user := &entity.User{ID: 7, PreferredLanguage: entity.LanguageFrench}

	modules.On("ListActiveTraining", mock.Anything).Return(trainingModules(), nil)
	overall.On("GetOrCreate", mock.Anything, uint(7)).Return(&entity.OverallProgress{UserID: 7}, nil)
	overall.On("Save", mock.Anything, mock.AnythingOfType("*entity.OverallProgress")).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := agg.Recompute(ctx, user)
		firstErr <- err
	}()
	<-rule.entered
	cancel()

	p, err := agg.Recompute(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, p.CanGetCertificate)

	close(rule.release)
	assert.ErrorIs(t, <-firstErr, context.Canceled)
}

// ctxRule fails once the caller's context is done.
type ctxRule struct {
	*gatedRule
}

func (r *ctxRule) Evaluate(ctx context.Context, userID uint, modules []entity.Module) (*TrackSnapshot, error) {
	snap, err := r.gatedRule.Evaluate(ctx, userID, modules)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}
