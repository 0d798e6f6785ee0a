package entity

import (
	"time"

	"github.com/google/uuid"
)

// Problem types
const (
	ProblemJustice = "JUSTICE"
	ProblemHealth  = "HEALTH"
	ProblemOther   = "OTHER"
)

// Report statuses
const (
	ReportStatusPending     = "PENDING"
	ReportStatusUnderReview = "UNDER_REVIEW"
	ReportStatusProcessed   = "PROCESSED"
	ReportStatusResolved    = "RESOLVED"
	ReportStatusClosed      = "CLOSED"
)

// Priority levels
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// CommunityReport is a text report about a justice, health or other issue.
type CommunityReport struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReportID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"report_id"`
	UserID         uint       `gorm:"not null;index" json:"-"`
	ProblemType    string     `gorm:"size:10;not null;index:idx_community_reports_type_commune" json:"problem_type"`
	Title          string     `gorm:"size:200;not null" json:"title"`
	Description    string     `gorm:"type:text;not null" json:"description"`
	Location       string     `gorm:"size:200;not null" json:"location"`
	Commune        string     `gorm:"size:100;not null;index:idx_community_reports_type_commune" json:"commune"`
	IncidentDate   time.Time  `gorm:"type:date;not null" json:"incident_date"`
	IsAnonymous    bool       `gorm:"not null" json:"is_anonymous"`
	ContactAllowed bool       `gorm:"not null" json:"contact_allowed"`
	Status         string     `gorm:"size:15;not null;default:'PENDING';index:idx_community_reports_status_created" json:"status"`
	PriorityLevel  string     `gorm:"size:10;not null;default:'MEDIUM'" json:"priority_level"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `gorm:"index:idx_community_reports_status_created" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	User           *User      `gorm:"foreignKey:UserID" json:"-"`
}

// TableName определяет имя таблицы для GORM
func (CommunityReport) TableName() string {
	return "community_reports"
}

// ReporterInfo describes who filed the report, honouring anonymity.
type ReporterInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Commune string `json:"commune"`
}

// Reporter returns the reporter identity, masked when anonymous.
func (r *CommunityReport) Reporter(u *User) ReporterInfo {
	if u == nil {
		return ReporterInfo{Name: "Anonyme", Phone: "Non divulgué"}
	}
	if r.IsAnonymous {
		return ReporterInfo{Name: "Anonyme", Phone: "Non divulgué", Commune: u.Commune}
	}
	return ReporterInfo{Name: u.FullName, Phone: u.PhoneNumber, Commune: u.Commune}
}

// CanBeContacted reports whether staff may reach the reporter.
func (r *CommunityReport) CanBeContacted() bool {
	return !r.IsAnonymous && r.ContactAllowed
}

// IsValidProblemType checks a problem type code.
func IsValidProblemType(t string) bool {
	return t == ProblemJustice || t == ProblemHealth || t == ProblemOther
}
