package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gradingstudents-api/internal/models"
)

// ErrQuestionAttemptNotFound indicates no question attempt exists for a usage and slot.
var ErrQuestionAttemptNotFound = errors.New("question attempt not found")

const fractionTolerance = 1e-7

// Manually graded states written by ProcessSubmittedActions.
const (
	StateManualGradedRight   = "mangrright"
	StateManualGradedPartial = "mangrpartial"
	StateManualGradedWrong   = "mangrwrong"
)

// SubmittedMark is one grader decision for a slot. A nil Mark records the
// comment only and keeps the current state.
type SubmittedMark struct {
	Slot    int
	Mark    *float64
	Comment string
}

// SubmittedActions carries a grader's marks for one usage.
type SubmittedActions struct {
	GraderID uint
	Marks    []SubmittedMark
}

// QuestionEngine is the question engine surface the grading workflow delegates to.
type QuestionEngine interface {
	IsManualGradeInRange(ctx context.Context, usageID uint, slot int, mark *float64) (bool, error)
	ProcessSubmittedActions(ctx context.Context, usageID uint, timestamp time.Time, actions SubmittedActions) error
	// WithinTransaction runs fn against an engine bound to a single transaction,
	// committing when fn returns nil and rolling back otherwise.
	WithinTransaction(ctx context.Context, fn func(engine QuestionEngine) error) error
}

type questionEngine struct {
	db *gorm.DB
}

// NewQuestionEngine builds the gorm backed question engine.
func NewQuestionEngine(db *gorm.DB) QuestionEngine {
	return &questionEngine{db: db}
}

func (e *questionEngine) WithinTransaction(ctx context.Context, fn func(engine QuestionEngine) error) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&questionEngine{db: tx})
	})
}

func (e *questionEngine) IsManualGradeInRange(ctx context.Context, usageID uint, slot int, mark *float64) (bool, error) {
	attempt, err := e.findQuestionAttempt(ctx, usageID, slot)
	if err != nil {
		if errors.Is(err, ErrQuestionAttemptNotFound) {
			return false, nil
		}
		return false, err
	}

	if mark == nil {
		return true, nil
	}

	minMark := attempt.MinFraction * attempt.MaxMark
	maxMark := attempt.MaxFraction * attempt.MaxMark
	return *mark >= minMark-fractionTolerance && *mark <= maxMark+fractionTolerance, nil
}

func (e *questionEngine) ProcessSubmittedActions(ctx context.Context, usageID uint, timestamp time.Time, actions SubmittedActions) error {
	for _, submitted := range actions.Marks {
		attempt, err := e.findQuestionAttempt(ctx, usageID, submitted.Slot)
		if err != nil {
			return err
		}

		var latest models.QuestionAttemptStep
		hasLatest := true
		if err := e.db.WithContext(ctx).
			Where("question_attempt_id = ?", attempt.ID).
			Order("sequence_number DESC").
			First(&latest).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hasLatest = false
		}

		step := models.QuestionAttemptStep{
			QuestionAttemptID: attempt.ID,
			Comment:           submitted.Comment,
			UserID:            actions.GraderID,
			CreatedAt:         timestamp,
		}
		if hasLatest {
			step.SequenceNumber = latest.SequenceNumber + 1
		}

		if submitted.Mark == nil {
			if submitted.Comment == "" {
				continue
			}
			step.State = latest.State
			step.Fraction = latest.Fraction
		} else {
			fraction := 0.0
			if attempt.MaxMark > 0 {
				fraction = *submitted.Mark / attempt.MaxMark
			}
			step.Fraction = &fraction
			step.State = manualGradedState(fraction)
		}

		if err := e.db.WithContext(ctx).Create(&step).Error; err != nil {
			return fmt.Errorf("record step for slot %d: %w", submitted.Slot, err)
		}
	}

	return nil
}

func (e *questionEngine) findQuestionAttempt(ctx context.Context, usageID uint, slot int) (models.QuestionAttempt, error) {
	var attempt models.QuestionAttempt
	if err := e.db.WithContext(ctx).
		Where("usage_id = ? AND slot = ?", usageID, slot).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.QuestionAttempt{}, fmt.Errorf("%w: usage %d slot %d", ErrQuestionAttemptNotFound, usageID, slot)
		}
		return models.QuestionAttempt{}, err
	}
	return attempt, nil
}

func manualGradedState(fraction float64) string {
	switch {
	case fraction >= 1-fractionTolerance:
		return StateManualGradedRight
	case fraction <= fractionTolerance:
		return StateManualGradedWrong
	default:
		return StateManualGradedPartial
	}
}
