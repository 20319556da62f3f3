package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradingstudents-api/internal/models"
)

// QuestionStateRow is a question attempt joined with its latest step.
// State is empty and Fraction nil when the attempt has no steps yet.
type QuestionStateRow struct {
	QuestionAttemptID uint     `gorm:"column:question_attempt_id"`
	UsageID           uint     `gorm:"column:usage_id"`
	Slot              int      `gorm:"column:slot"`
	QuestionID        uint     `gorm:"column:question_id"`
	MaxMark           float64  `gorm:"column:max_mark"`
	State             string   `gorm:"column:state"`
	Fraction          *float64 `gorm:"column:fraction"`
	Comment           string   `gorm:"column:comment"`
}

// Mark converts the latest fraction into a mark on the question's scale.
func (r QuestionStateRow) Mark() *float64 {
	if r.Fraction == nil {
		return nil
	}
	mark := *r.Fraction * r.MaxMark
	return &mark
}

// GradingReportRepository reads the attempt and question engine data the grading report aggregates.
type GradingReportRepository interface {
	GetQuiz(ctx context.Context, quizID uint) (models.Quiz, error)
	ListSlots(ctx context.Context, quizID uint) ([]models.QuizSlot, error)
	ListAttempts(ctx context.Context, quizID uint) ([]models.QuizAttempt, error)
	GetAttemptByUsage(ctx context.Context, quizID, usageID uint) (models.QuizAttempt, error)
	ListQuestionStates(ctx context.Context, quizID uint) ([]QuestionStateRow, error)
}

type gradingReportRepository struct {
	db *gorm.DB
}

// NewGradingReportRepository constructs the report repository.
func NewGradingReportRepository(db *gorm.DB) GradingReportRepository {
	return &gradingReportRepository{db: db}
}

func (r *gradingReportRepository) GetQuiz(ctx context.Context, quizID uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, quizID).Error; err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *gradingReportRepository) ListSlots(ctx context.Context, quizID uint) ([]models.QuizSlot, error) {
	var slots []models.QuizSlot
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("slot ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *gradingReportRepository) ListAttempts(ctx context.Context, quizID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	if err := r.db.WithContext(ctx).
		Joins("JOIN students ON students.id = quiz_attempts.student_id").
		Preload("Student").
		Where("quiz_attempts.quiz_id = ? AND quiz_attempts.preview = ?", quizID, false).
		Order("students.id_number ASC").
		Order("quiz_attempts.id ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *gradingReportRepository) GetAttemptByUsage(ctx context.Context, quizID, usageID uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("quiz_id = ? AND usage_id = ? AND preview = ?", quizID, usageID, false).
		First(&attempt).Error; err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

func (r *gradingReportRepository) ListQuestionStates(ctx context.Context, quizID uint) ([]QuestionStateRow, error) {
	latestStep := r.db.Table("question_attempt_steps AS latest").
		Select("MAX(latest.sequence_number)").
		Where("latest.question_attempt_id = qa.id")

	var rows []QuestionStateRow
	if err := r.db.WithContext(ctx).
		Table("question_attempts AS qa").
		Select(`qa.id AS question_attempt_id, qa.usage_id, qa.slot, qa.question_id, qa.max_mark,
			COALESCE(qas.state, '') AS state, qas.fraction, COALESCE(qas.comment, '') AS comment`).
		Joins("JOIN quiz_attempts AS quiza ON quiza.usage_id = qa.usage_id").
		Joins("LEFT JOIN question_attempt_steps AS qas ON qas.question_attempt_id = qa.id AND qas.sequence_number = (?)", latestStep).
		Where("quiza.quiz_id = ? AND quiza.preview = ?", quizID, false).
		Order("qa.usage_id ASC").
		Order("qa.slot ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
