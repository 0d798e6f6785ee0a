package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
)

// ============================================================================
// Моки репозиториев, общие для тестов сервисов
// ============================================================================

// MockUserRepo реализует repository.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) ListIDs(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockUserRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepo) CountByLanguage(ctx context.Context, language string) (int64, error) {
	args := m.Called(ctx, language)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepo) TopCommunes(ctx context.Context, limit int) ([]repository.CommuneCount, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]repository.CommuneCount), args.Error(1)
}

// MockModuleRepo реализует repository.ModuleRepository
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

// MockAttemptRepo реализует repository.AttemptRepository
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

// MockModuleProgressRepo реализует repository.ModuleProgressRepository
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

// MockOverallRepo реализует repository.OverallProgressRepository
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

// MockCertificateRepo реализует repository.CertificateRepository
type MockCertificateRepo struct {
	mock.Mock
}

func (m *MockCertificateRepo) Create(ctx context.Context, certificate *entity.Certificate) error {
	return m.Called(ctx, certificate).Error(0)
}

func (m *MockCertificateRepo) GetValidByUser(ctx context.Context, userID uint) (*entity.Certificate, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Certificate), args.Error(1)
}

func (m *MockCertificateRepo) GetValidByCode(ctx context.Context, code string) (*entity.Certificate, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Certificate), args.Error(1)
}

func (m *MockCertificateRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCertificateRepo) ListValidByUser(ctx context.Context, userID uint) ([]entity.Certificate, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.Certificate), args.Error(1)
}

func (m *MockCertificateRepo) Invalidate(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockCertificateRepo) CountValid(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockActivityRepo реализует repository.ActivityRepository
type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Create(ctx context.Context, activity *entity.UserActivity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *MockActivityRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]entity.UserActivity, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]entity.UserActivity), args.Error(1)
}

func (m *MockActivityRepo) CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockReportRepo реализует repository.ReportRepository
type MockReportRepo struct {
	mock.Mock
}

func (m *MockReportRepo) Create(ctx context.Context, report *entity.CommunityReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockReportRepo) ListByUser(ctx context.Context, userID uint) ([]entity.CommunityReport, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.CommunityReport), args.Error(1)
}

func (m *MockReportRepo) GetByUser(ctx context.Context, userID uint, reportID uuid.UUID) (*entity.CommunityReport, error) {
	args := m.Called(ctx, userID, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CommunityReport), args.Error(1)
}

func (m *MockReportRepo) DeletePending(ctx context.Context, userID uint, reportID uuid.UUID, createdAfter time.Time) (bool, error) {
	args := m.Called(ctx, userID, reportID, createdAfter)
	return args.Bool(0), args.Error(1)
}

func (m *MockReportRepo) CountByStatus(ctx context.Context) ([]repository.KeyCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.KeyCount), args.Error(1)
}

func (m *MockReportRepo) CountByProblemType(ctx context.Context) ([]repository.KeyCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.KeyCount), args.Error(1)
}

func (m *MockReportRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReportRepo) ListResolved(ctx context.Context) ([]entity.CommunityReport, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.CommunityReport), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockCacheRepo) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCacheRepo) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *MockCacheRepo) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockAggregator реализует ProgressAggregator
type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) Recompute(ctx context.Context, user *entity.User) (*entity.OverallProgress, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OverallProgress), args.Error(1)
}

func (m *MockAggregator) NextModule(ctx context.Context, user *entity.User) (*entity.Module, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Module), args.Error(1)
}

func (m *MockAggregator) CompletedModules(ctx context.Context, user *entity.User) (map[uint]bool, []entity.Module, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(map[uint]bool), args.Get(1).([]entity.Module), args.Error(2)
}

// helper для создания pointer
func floatPtr(v float64) *float64 { return &v }

func frUser(id uint) *entity.User {
	return &entity.User{ID: id, FullName: "Afi Dossou", PhoneNumber: "+22997000001", Commune: "Cotonou", PreferredLanguage: entity.LanguageFrench}
}

func fonUser(id uint) *entity.User {
	return &entity.User{ID: id, FullName: "Koffi Agbo", PhoneNumber: "+22997000002", Commune: "Abomey", PreferredLanguage: entity.LanguageFon}
}
