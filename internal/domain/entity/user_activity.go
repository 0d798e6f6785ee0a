package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Activity types
const (
	ActivityLogin               = "LOGIN"
	ActivityModuleView          = "MODULE_VIEW"
	ActivityQuizStart           = "QUIZ_START"
	ActivityQuizSubmit          = "QUIZ_SUBMIT"
	ActivityAudioPlay           = "AUDIO_PLAY"
	ActivityAudioPause          = "AUDIO_PAUSE"
	ActivityAudioComplete       = "AUDIO_COMPLETE"
	ActivityCertificateRequest  = "CERTIFICATE_REQUEST"
	ActivityCertificateDownload = "CERTIFICATE_DOWNLOAD"
	ActivityReportSubmit        = "REPORT_SUBMIT"
)

var activityTypes = map[string]struct{}{
	ActivityLogin:               {},
	ActivityModuleView:          {},
	ActivityQuizStart:           {},
	ActivityQuizSubmit:          {},
	ActivityAudioPlay:           {},
	ActivityAudioPause:          {},
	ActivityAudioComplete:       {},
	ActivityCertificateRequest:  {},
	ActivityCertificateDownload: {},
	ActivityReportSubmit:        {},
}

// IsValidActivityType checks t against the canonical list.
func IsValidActivityType(t string) bool {
	_, ok := activityTypes[t]
	return ok
}

// UserActivity is an append-only activity log entry.
type UserActivity struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	UserID       uint              `gorm:"not null;index:idx_user_activities_user_ts" json:"user_id"`
	ActivityType string            `gorm:"size:20;not null;index:idx_user_activities_type_ts" json:"activity_type"`
	ModuleID     *uint             `json:"module_id,omitempty"`
	Details      datatypes.JSONMap `gorm:"type:jsonb" json:"details"`
	Timestamp    time.Time         `gorm:"not null;index:idx_user_activities_user_ts;index:idx_user_activities_type_ts" json:"timestamp"`
	SessionID    string            `gorm:"size:50;not null;default:''" json:"-"`
	IPAddress    string            `gorm:"size:45;not null;default:''" json:"-"`
	UserAgent    string            `gorm:"type:text;not null;default:''" json:"-"`
	Module       *Module           `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (UserActivity) TableName() string {
	return "user_activities"
}
