package dto

import (
	"time"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// AudioProgressRequest — обновление прогресса прослушивания
type AudioProgressRequest struct {
	ProgressPercentage *float64 `json:"progress_percentage" binding:"required,min=0,max=100"`
	CurrentPosition    int      `json:"current_position" binding:"min=0"`
}

// RecordActivityRequest — явная запись активности пользователя
type RecordActivityRequest struct {
	ActivityType string                 `json:"activity_type" binding:"required,max=20"`
	ModuleID     *uint                  `json:"module_id"`
	Details      map[string]interface{} `json:"details"`
}

// ActivityResponse — запись журнала активности
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActivityType string                 `json:"activity_type"`
	ModuleID     *uint                  `json:"module_id,omitempty"`
	ModuleTitle  string                 `json:"module_title,omitempty"`
	Details      map[string]interface{} `json:"details"`
	Timestamp    time.Time              `json:"timestamp"`
}

// NewActivityResponse создает ActivityResponse из entity.UserActivity
func NewActivityResponse(a *entity.UserActivity) ActivityResponse {
	resp := ActivityResponse{
		ID:           a.ID,
		ActivityType: a.ActivityType,
		ModuleID:     a.ModuleID,
		Details:      a.Details,
		Timestamp:    a.Timestamp,
	}
	if resp.Details == nil {
		resp.Details = map[string]interface{}{}
	}
	if a.Module != nil {
		resp.ModuleTitle = a.Module.Title
	}
	return resp
}

// NewListActivityResponse создает список ActivityResponse
func NewListActivityResponse(items []entity.UserActivity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(items))
	for i := range items {
		out = append(out, NewActivityResponse(&items[i]))
	}
	return out
}
