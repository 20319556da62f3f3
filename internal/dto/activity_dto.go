package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gradingstudents-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActivityListRequest defines filters for retrieving the grading audit trail.
type ActivityListRequest struct {
	Page     int
	PageSize int
	ActorID  uint
	QuizID   uint
	Action   string
}

// ActivityResponse serializes audit entries.
type ActivityResponse struct {
	ID            uint                   `json:"id"`
	ActorID       uint                   `json:"actor_id"`
	ActorRole     string                 `json:"actor_role"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entity_type"`
	EntityID      *uint                  `json:"entity_id"`
	QuizID        *uint                  `json:"quiz_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ActivityListResponse wraps paginated audit entries.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:            entry.ID,
		ActorID:       entry.ActorID,
		ActorRole:     entry.ActorRole,
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		QuizID:        entry.QuizID,
		CorrelationID: entry.CorrelationID,
		Metadata:      metadataFromJSON(entry.Metadata),
		CreatedAt:     entry.CreatedAt,
	}
}
