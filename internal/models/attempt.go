package models

import "time"

const (
	// QuizAttemptStateInProgress marks an attempt the student has not submitted yet.
	QuizAttemptStateInProgress = "inprogress"
	// QuizAttemptStateFinished marks a submitted attempt.
	QuizAttemptStateFinished = "finished"
)

// QuizAttempt is one student's attempt at a quiz. UsageID addresses the
// question engine records that belong to it.
type QuizAttempt struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	QuizID        uint       `gorm:"not null;index" json:"quiz_id"`
	StudentID     uint       `gorm:"not null;index" json:"student_id"`
	UsageID       uint       `gorm:"not null;uniqueIndex" json:"usage_id"`
	AttemptNumber int        `gorm:"not null;default:1" json:"attempt_number"`
	Preview       bool       `gorm:"not null;default:false" json:"preview"`
	State         string     `gorm:"size:32;not null;default:inprogress" json:"state"`
	TimeFinish    *time.Time `json:"time_finish"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Quiz          Quiz       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student       Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// QuestionAttempt is the question engine's record of one slot within a usage.
type QuestionAttempt struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	UsageID     uint                  `gorm:"not null;uniqueIndex:idx_usage_slot" json:"usage_id"`
	Slot        int                   `gorm:"not null;uniqueIndex:idx_usage_slot" json:"slot"`
	QuestionID  uint                  `gorm:"not null" json:"question_id"`
	MaxMark     float64               `gorm:"not null;default:1" json:"max_mark"`
	MinFraction float64               `gorm:"not null;default:0" json:"min_fraction"`
	MaxFraction float64               `gorm:"not null;default:1" json:"max_fraction"`
	Steps       []QuestionAttemptStep `json:"steps,omitempty"`
}

// QuestionAttemptStep records one state transition of a question attempt.
// The step with the highest SequenceNumber carries the current state.
type QuestionAttemptStep struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	QuestionAttemptID uint      `gorm:"not null;uniqueIndex:idx_attempt_sequence" json:"question_attempt_id"`
	SequenceNumber    int       `gorm:"not null;uniqueIndex:idx_attempt_sequence" json:"sequence_number"`
	State             string    `gorm:"size:32;not null" json:"state"`
	Fraction          *float64  `json:"fraction"`
	Comment           string    `gorm:"type:text" json:"comment"`
	UserID            uint      `json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
}
