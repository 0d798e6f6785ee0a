package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/middleware"
	"github.com/yourusername/parajuriste-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

// newTestGinContext создает *gin.Context для тестов с JSON body
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

// asUser выставляет то, что обычно кладет RequireAuth
func asUser(c *gin.Context, userID uint) {
	c.Set(middleware.ContextUserID, userID)
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

func parseJSONList(t *testing.T, w *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var resp []interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Response body should be a JSON list: %s", w.Body.String())
	return resp
}

type MockAuthUseCases struct{ mock.Mock }

func (m *MockAuthUseCases) Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *MockAuthUseCases) Login(ctx context.Context, phone, password string, meta service.RequestMeta) (*service.AuthResult, error) {
	args := m.Called(ctx, phone, password, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *MockAuthUseCases) Me(ctx context.Context, userID uint) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

type MockQuizUseCases struct{ mock.Mock }

func (m *MockQuizUseCases) ListModules(ctx context.Context) ([]entity.Module, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Module), args.Error(1)
}

func (m *MockQuizUseCases) GetModule(ctx context.Context, moduleID uint) (*entity.Module, error) {
	args := m.Called(ctx, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Module), args.Error(1)
}

func (m *MockQuizUseCases) SubmitQuiz(ctx context.Context, userID uint, in service.SubmitInput, meta service.RequestMeta) (*service.SubmitResult, error) {
	args := m.Called(ctx, userID, in, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockQuizUseCases) ListAttempts(ctx context.Context, userID, moduleID uint) ([]entity.QuizAttempt, error) {
	args := m.Called(ctx, userID, moduleID)
	return args.Get(0).([]entity.QuizAttempt), args.Error(1)
}

func (m *MockQuizUseCases) BestAttempt(ctx context.Context, userID, moduleID uint) (*entity.QuizAttempt, error) {
	args := m.Called(ctx, userID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuizAttempt), args.Error(1)
}

func (m *MockQuizUseCases) ModuleStatus(ctx context.Context, userID uint) (*service.ModuleStatusView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ModuleStatusView), args.Error(1)
}

func (m *MockQuizUseCases) ModuleStats(ctx context.Context, requesterID, moduleID uint) (*service.ModuleStatsView, error) {
	args := m.Called(ctx, requesterID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ModuleStatsView), args.Error(1)
}

type MockProgressUseCases struct{ mock.Mock }

func (m *MockProgressUseCases) GetOverallProgress(ctx context.Context, userID uint) (*service.OverallView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.OverallView), args.Error(1)
}

func (m *MockProgressUseCases) Summary(ctx context.Context, userID uint) (*service.SummaryView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SummaryView), args.Error(1)
}

func (m *MockProgressUseCases) Leaderboard(ctx context.Context, userID uint) (*service.LeaderboardView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LeaderboardView), args.Error(1)
}

func (m *MockProgressUseCases) Statistics(ctx context.Context, requesterID uint) (*service.StatisticsView, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StatisticsView), args.Error(1)
}

func (m *MockProgressUseCases) TrackAudioProgress(ctx context.Context, userID, moduleID uint, percentage float64, position int, meta service.RequestMeta) (*service.AudioProgressView, error) {
	args := m.Called(ctx, userID, moduleID, percentage, position, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AudioProgressView), args.Error(1)
}

func (m *MockProgressUseCases) MarkModuleStarted(ctx context.Context, userID, moduleID uint, meta service.RequestMeta) (*service.ModuleStartedView, error) {
	args := m.Called(ctx, userID, moduleID, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ModuleStartedView), args.Error(1)
}

type MockActivityUseCases struct{ mock.Mock }

func (m *MockActivityUseCases) Record(ctx context.Context, userID uint, activityType string, moduleID *uint, details map[string]interface{}, meta service.RequestMeta) (*entity.UserActivity, error) {
	args := m.Called(ctx, userID, activityType, moduleID, details, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserActivity), args.Error(1)
}

func (m *MockActivityUseCases) List(ctx context.Context, userID uint) ([]entity.UserActivity, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.UserActivity), args.Error(1)
}

type MockCertificateUseCases struct{ mock.Mock }

func (m *MockCertificateUseCases) Request(ctx context.Context, userID uint, fullName string, meta service.RequestMeta) (*service.CertificateOutcome, error) {
	args := m.Called(ctx, userID, fullName, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CertificateOutcome), args.Error(1)
}

func (m *MockCertificateUseCases) FonInfo(ctx context.Context, userID uint) (*service.ManualVerificationInstructions, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ManualVerificationInstructions), args.Error(1)
}

func (m *MockCertificateUseCases) Verify(ctx context.Context, code string) (*service.VerificationView, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerificationView), args.Error(1)
}

func (m *MockCertificateUseCases) Revoke(ctx context.Context, requesterID uint, code string) error {
	return m.Called(ctx, requesterID, code).Error(0)
}

type MockReportUseCases struct{ mock.Mock }

func (m *MockReportUseCases) Submit(ctx context.Context, userID uint, in service.ReportInput, meta service.RequestMeta) (*entity.CommunityReport, error) {
	args := m.Called(ctx, userID, in, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CommunityReport), args.Error(1)
}

func (m *MockReportUseCases) ListMine(ctx context.Context, userID uint) ([]entity.CommunityReport, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.CommunityReport), args.Error(1)
}

func (m *MockReportUseCases) Summary(ctx context.Context, userID uint) (*service.ReportSummaryView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReportSummaryView), args.Error(1)
}

func (m *MockReportUseCases) Get(ctx context.Context, userID uint, reportID uuid.UUID) (*entity.CommunityReport, error) {
	args := m.Called(ctx, userID, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CommunityReport), args.Error(1)
}

func (m *MockReportUseCases) Delete(ctx context.Context, userID uint, reportID uuid.UUID) error {
	return m.Called(ctx, userID, reportID).Error(0)
}

func (m *MockReportUseCases) Statistics(ctx context.Context, requesterID uint) (*service.ReportStatisticsView, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReportStatisticsView), args.Error(1)
}
