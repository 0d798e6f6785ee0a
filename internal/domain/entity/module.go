package entity

import (
	"time"
)

// ReportingModuleNumber is the module with no quiz, used as the entry point for community reports.
const ReportingModuleNumber = 10

// Module is one training unit of the programme, numbered 1..10.
type Module struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Number         int            `gorm:"not null;uniqueIndex" json:"number"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Description    string         `gorm:"type:text;not null;default:''" json:"description"`
	IntroductionFR string         `gorm:"column:introduction_fr;type:text;not null;default:''" json:"introduction_fr"`
	ObjectivesFR   string         `gorm:"column:objectives_fr;type:text;not null;default:''" json:"objectives_fr"`
	KeyConceptsFR  string         `gorm:"column:key_concepts_fr;type:text;not null;default:''" json:"key_concepts_fr"`
	ContentFR      string         `gorm:"column:content_fr;type:text;not null;default:''" json:"content_fr"`
	AudioFon       string         `gorm:"size:255;not null;default:''" json:"audio_fon,omitempty"`
	AudioDuration  *int           `json:"audio_duration,omitempty"` // секунды
	IsActive       bool           `gorm:"not null;index" json:"is_active"`
	Questions      []QuizQuestion `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Module) TableName() string {
	return "modules"
}

// IsReportingModule reports whether this is the quiz-less reporting module.
func (m *Module) IsReportingModule() bool {
	return m.Number == ReportingModuleNumber
}

// IsTrainingModule reports whether the module counts towards certification.
func (m *Module) IsTrainingModule() bool {
	return m.Number >= 1 && m.Number < ReportingModuleNumber
}

// HasAudio reports whether a Fon audio asset is attached.
func (m *Module) HasAudio() bool {
	return m.AudioFon != ""
}

// ActiveQuestions returns the active questions in display order.
// Questions are expected to be preloaded ordered by position.
func (m *Module) ActiveQuestions() []QuizQuestion {
	active := make([]QuizQuestion, 0, len(m.Questions))
	for _, q := range m.Questions {
		if q.IsActive {
			active = append(active, q)
		}
	}
	return active
}
