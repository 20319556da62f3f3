package models

import "time"

// Quiz is a graded activity made of numbered question slots.
type Quiz struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	IDNumber  string     `gorm:"size:100" json:"id_number"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Slots     []QuizSlot `json:"slots,omitempty"`
}

// QuizSlot places a question at a slot of the quiz's current configuration.
// Removing a question deletes its slot row; old question attempts stay behind.
type QuizSlot struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	QuizID        uint    `gorm:"not null;uniqueIndex:idx_quiz_slot" json:"quiz_id"`
	Slot          int     `gorm:"not null;uniqueIndex:idx_quiz_slot" json:"slot"`
	QuestionID    uint    `gorm:"not null" json:"question_id"`
	DisplayNumber int     `json:"display_number"`
	MaxMark       float64 `gorm:"not null;default:1" json:"max_mark"`
}

// Number returns the question number shown to graders, falling back to the slot.
func (s QuizSlot) Number() int {
	if s.DisplayNumber > 0 {
		return s.DisplayNumber
	}
	return s.Slot
}
