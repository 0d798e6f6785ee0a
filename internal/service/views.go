package service

import (
	"time"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	"github.com/yourusername/parajuriste-api/internal/service/quizengine"
)

// Module kinds reported by ModuleStatus
const (
	ModuleTypeReporting = "reporting"
	ModuleTypeQuiz      = "quiz"
	ModuleTypeAudio     = "audio"
)

// ModuleBrief is a short module reference.
type ModuleBrief struct {
	ID     uint   `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

func briefOf(m *entity.Module) *ModuleBrief {
	if m == nil {
		return nil
	}
	return &ModuleBrief{ID: m.ID, Number: m.Number, Title: m.Title}
}

// SubmitResult is the outcome of a persisted quiz submission.
type SubmitResult struct {
	Attempt *entity.QuizAttempt
	Result  *quizengine.Result
	Passed  bool
	Message string
}

// ModuleStatusEntry is one row of ModuleStatus.
type ModuleStatusEntry struct {
	Module             ModuleBrief `json:"module"`
	Type               string      `json:"type"`
	IsCompleted        bool        `json:"is_completed"`
	BestScore          *float64    `json:"best_score"`
	TotalAttempts      int         `json:"total_attempts"`
	ProgressPercentage *float64    `json:"progress_percentage,omitempty"`
	CanAccess          bool        `json:"can_access"`
}

// ModuleStatusView lists every active module for one user.
type ModuleStatusView struct {
	UserLanguage string              `json:"user_language"`
	Modules      []ModuleStatusEntry `json:"modules"`
}

// QuizStatsView is the quiz part of ModuleStatsView.
type QuizStatsView struct {
	repository.QuizModuleStats
	CompletionRate float64 `json:"completion_rate"`
}

// ModuleStatsView holds staff aggregates for one module.
type ModuleStatsView struct {
	Module     ModuleBrief                  `json:"module"`
	QuizStats  *QuizStatsView               `json:"quiz_stats"`
	AudioStats *repository.AudioModuleStats `json:"audio_stats"`
}

// OverallView is the recomputed overall progress with the next module to work on.
type OverallView struct {
	Progress         *entity.OverallProgress `json:"progress"`
	RemainingModules int                     `json:"remaining_modules"`
	NextModule       *ModuleBrief            `json:"next_module"`
}

// SummaryView is the dashboard of a user.
type SummaryView struct {
	OverallProgress  *entity.OverallProgress `json:"overall_progress"`
	ModuleProgress   []entity.ModuleProgress `json:"module_progress"`
	RecentActivities []entity.UserActivity   `json:"recent_activities"`
	Certificates     []entity.Certificate    `json:"certificates"`
	TotalTimeSpent   int                     `json:"total_time_spent"`
	DaysSinceStart   int                     `json:"days_since_start"`
	LastActivityDate time.Time               `json:"last_activity_date"`
	ModulesThisWeek  int                     `json:"modules_completed_this_week"`
}

// LeaderboardEntry is an anonymised leaderboard row.
type LeaderboardEntry struct {
	Rank                 int      `json:"rank"`
	Commune              string   `json:"commune"`
	CompletionPercentage float64  `json:"completion_percentage"`
	CompletedModules     int      `json:"completed_modules"`
	AverageScore         *float64 `json:"average_score"`
	IsCurrentUser        bool     `json:"is_current_user"`
}

// LeaderboardView is the leaderboard as seen by one user.
type LeaderboardView struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	UserRank    *int               `json:"user_rank"`
	TotalUsers  int                `json:"total_users"`
}

// StatisticsView is the staff-only statistics snapshot.
type StatisticsView struct {
	TotalUsers            int64                     `json:"total_users"`
	ActiveUsersWeek       int64                     `json:"active_users_week"`
	CompletionRate        float64                   `json:"completion_rate"`
	AverageCompletionTime float64                   `json:"average_completion_time"`
	TopCommunes           []repository.CommuneCount `json:"top_communes"`
	ModuleCompletionRates map[string]float64        `json:"module_completion_rates"`
	FrenchUsers           int64                     `json:"french_users"`
	FonUsers              int64                     `json:"fon_users"`
	TotalCertificates     int64                     `json:"total_certificates"`
	CertificatesThisMonth int64                     `json:"certificates_this_month"`
	GeneratedAt           time.Time                 `json:"generated_at"`
}

// AudioProgressView is returned by TrackAudioProgress.
type AudioProgressView struct {
	Message            string  `json:"message"`
	ProgressPercentage float64 `json:"progress_percentage"`
	IsCompleted        bool    `json:"is_completed"`
}

// ModuleStartedView is returned by MarkModuleStarted.
type ModuleStartedView struct {
	Message  string                 `json:"message"`
	Progress *entity.ModuleProgress `json:"progress"`
}

// ContactInfo tells Fon users where to send proof of completion.
type ContactInfo struct {
	WhatsAppNumber string   `json:"whatsapp_number"`
	Organization   string   `json:"organization"`
	RequiredInfo   []string `json:"required_info"`
}

// CompletionStatus is the audio track completion of a user.
type CompletionStatus struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ManualVerificationInstructions replaces a certificate for the audio track.
type ManualVerificationInstructions struct {
	Message                    string           `json:"message"`
	ContactInfo                ContactInfo      `json:"contact_info"`
	ProgressScreenshotRequired bool             `json:"progress_screenshot_required"`
	WhatsAppNumber             string           `json:"whatsapp_number"`
	CompletionStatus           CompletionStatus `json:"completion_status"`
}

// Certificate request outcomes
const (
	OutcomeIssued   = "issued"
	OutcomeExisting = "existing"
	OutcomeManual   = "manual"
)

// CertificateOutcome is either a certificate or manual verification instructions.
type CertificateOutcome struct {
	Outcome         string
	Certificate     *entity.Certificate
	VerificationURL string
	Manual          *ManualVerificationInstructions
}

// PublicCertificate holds the fields shown to anyone holding the code.
type PublicCertificate struct {
	FullName              string     `json:"full_name"`
	CompletionDate        time.Time  `json:"completion_date"`
	TotalModulesCompleted int        `json:"total_modules_completed"`
	AverageScore          *float64   `json:"average_score"`
	VerificationCode      string     `json:"verification_code"`
	SignedBy              string     `json:"signed_by"`
	SignatureDate         *time.Time `json:"signature_date"`
}

// VerificationView is the public verification result.
type VerificationView struct {
	IsValid     bool              `json:"is_valid"`
	Certificate PublicCertificate `json:"certificate"`
	VerifiedAt  time.Time         `json:"verified_at"`
}
