package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is the audit trail of grading actions. Each accepted grade
// submission writes one entry against the graded quiz attempt.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole     string            `gorm:"size:32;not null" json:"actor_role"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID      *uint             `json:"entity_id"`
	QuizID        *uint             `gorm:"index" json:"quiz_id"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}
