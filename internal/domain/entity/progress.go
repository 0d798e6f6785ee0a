package entity

import (
	"time"

	"gorm.io/gorm"
)

// CompletePercentage is the audio progress that completes a module.
const CompletePercentage = 100.0

// ModuleProgress tracks audio listening per (user, module).
// ProgressPercentage never decreases under normal updates.
type ModuleProgress struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;uniqueIndex:idx_module_progress_user_module" json:"user_id"`
	ModuleID           uint       `gorm:"not null;uniqueIndex:idx_module_progress_user_module" json:"module_id"`
	ProgressPercentage float64    `gorm:"not null;default:0" json:"progress_percentage"`
	IsCompleted        bool       `gorm:"not null" json:"is_completed"`
	LastAudioPosition  int        `gorm:"not null;default:0" json:"last_audio_position"`
	TotalListeningTime int        `gorm:"not null;default:0" json:"total_listening_time"`
	ListeningSessions  int        `gorm:"not null;default:0" json:"listening_sessions"`
	StartedAt          time.Time  `gorm:"not null;autoCreateTime" json:"started_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Module             *Module    `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (ModuleProgress) TableName() string {
	return "module_progress"
}

// SyncCompletion keeps CompletedAt consistent with IsCompleted:
// set on the transition, cleared when completion is forced off.
func (p *ModuleProgress) SyncCompletion(now time.Time) {
	if p.IsCompleted && p.CompletedAt == nil {
		p.CompletedAt = &now
	} else if !p.IsCompleted {
		p.CompletedAt = nil
	}
}

// BeforeSave runs SyncCompletion on every full save.
func (p *ModuleProgress) BeforeSave(tx *gorm.DB) error {
	p.SyncCompletion(time.Now())
	return nil
}

// OverallProgress is the per-user aggregate. It is recomputed on demand.
type OverallProgress struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalModules         int        `gorm:"not null;default:0" json:"total_modules"`
	CompletedModules     int        `gorm:"not null;default:0" json:"completed_modules"`
	CompletionPercentage float64    `gorm:"not null;default:0;index" json:"completion_percentage"`
	TotalQuizAttempts    int        `gorm:"not null;default:0" json:"total_quiz_attempts"`
	AverageQuizScore     *float64   `json:"average_quiz_score"`
	TotalAudioTime       int        `gorm:"not null;default:0" json:"total_audio_time"`
	CanGetCertificate    bool       `gorm:"not null" json:"can_get_certificate"`
	CertificateRequested bool       `gorm:"not null" json:"certificate_requested"`
	StartedAt            time.Time  `gorm:"not null;autoCreateTime" json:"started_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (OverallProgress) TableName() string {
	return "overall_progress"
}

// SetCounts updates the counters and derived eligibility fields.
func (p *OverallProgress) SetCounts(completed, total int) {
	p.CompletedModules = completed
	p.TotalModules = total
	if total > 0 {
		p.CompletionPercentage = float64(completed) / float64(total) * 100
	} else {
		p.CompletionPercentage = 0
	}
	p.CanGetCertificate = total > 0 && completed == total
}

// LatchCompletion sets CompletedAt on the first transition into eligibility.
// It is never cleared afterwards.
func (p *OverallProgress) LatchCompletion(now time.Time) {
	if p.CanGetCertificate && p.CompletedAt == nil {
		p.CompletedAt = &now
	}
}

// RemainingModules returns how many training modules are still incomplete.
func (p *OverallProgress) RemainingModules() int {
	remaining := p.TotalModules - p.CompletedModules
	if remaining < 0 {
		return 0
	}
	return remaining
}
