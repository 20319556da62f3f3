package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gradingstudents-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Quiz{},
		&models.QuizSlot{},
		&models.QuizAttempt{},
		&models.QuestionAttempt{},
		&models.QuestionAttemptStep{},
		&models.ActivityLog{},
	))
	return db
}

func seedQuestion(t *testing.T, db *gorm.DB, usageID uint, slot int, maxMark float64, states ...string) models.QuestionAttempt {
	t.Helper()
	attempt := models.QuestionAttempt{UsageID: usageID, Slot: slot, QuestionID: uint(slot * 100), MaxMark: maxMark, MaxFraction: 1}
	require.NoError(t, db.Create(&attempt).Error)
	for i, state := range states {
		step := models.QuestionAttemptStep{QuestionAttemptID: attempt.ID, SequenceNumber: i, State: state, CreatedAt: time.Now()}
		require.NoError(t, db.Create(&step).Error)
	}
	return attempt
}

func TestGradingReportRepositoryListQuestionStatesUsesLatestStep(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradingReportRepository(db)
	ctx := context.Background()

	quiz := models.Quiz{Name: "Essay quiz"}
	require.NoError(t, db.Create(&quiz).Error)
	other := models.Quiz{Name: "Other quiz"}
	require.NoError(t, db.Create(&other).Error)

	student := models.Student{Name: "Ada", Email: "ada@example.com", IDNumber: "B1"}
	require.NoError(t, db.Create(&student).Error)

	require.NoError(t, db.Create(&models.QuizAttempt{QuizID: quiz.ID, StudentID: student.ID, UsageID: 10, AttemptNumber: 1}).Error)
	require.NoError(t, db.Create(&models.QuizAttempt{QuizID: quiz.ID, StudentID: student.ID, UsageID: 11, AttemptNumber: 2, Preview: true}).Error)
	require.NoError(t, db.Create(&models.QuizAttempt{QuizID: other.ID, StudentID: student.ID, UsageID: 12, AttemptNumber: 1}).Error)

	seedQuestion(t, db, 10, 1, 5, "todo", "complete", "needsgrading", "mangrpartial")
	seedQuestion(t, db, 10, 2, 1, "todo", "gradedright")
	seedQuestion(t, db, 10, 3, 1)
	seedQuestion(t, db, 11, 1, 5, "todo", "needsgrading")
	seedQuestion(t, db, 12, 1, 5, "todo", "needsgrading")

	rows, err := repo.ListQuestionStates(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, 1, rows[0].Slot)
	require.Equal(t, "mangrpartial", rows[0].State)
	require.Equal(t, uint(10), rows[0].UsageID)
	require.Equal(t, 5.0, rows[0].MaxMark)
	require.Equal(t, "gradedright", rows[1].State)
	require.Equal(t, "", rows[2].State)
	require.Nil(t, rows[2].Fraction)
	require.Nil(t, rows[2].Mark())
}

func TestGradingReportRepositoryListAttemptsSortsByIDNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradingReportRepository(db)
	ctx := context.Background()

	quiz := models.Quiz{Name: "Quiz"}
	require.NoError(t, db.Create(&quiz).Error)
	zed := models.Student{Name: "Zed", Email: "zed@example.com", IDNumber: "A100"}
	amy := models.Student{Name: "Amy", Email: "amy@example.com", IDNumber: "Z900"}
	require.NoError(t, db.Create(&amy).Error)
	require.NoError(t, db.Create(&zed).Error)

	require.NoError(t, db.Create(&models.QuizAttempt{QuizID: quiz.ID, StudentID: amy.ID, UsageID: 1}).Error)
	require.NoError(t, db.Create(&models.QuizAttempt{QuizID: quiz.ID, StudentID: zed.ID, UsageID: 2}).Error)
	require.NoError(t, db.Create(&models.QuizAttempt{QuizID: quiz.ID, StudentID: zed.ID, UsageID: 3, AttemptNumber: 2}).Error)
	require.NoError(t, db.Create(&models.QuizAttempt{QuizID: quiz.ID, StudentID: amy.ID, UsageID: 4, Preview: true}).Error)

	attempts, err := repo.ListAttempts(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	require.Equal(t, []uint{2, 3, 1}, []uint{attempts[0].UsageID, attempts[1].UsageID, attempts[2].UsageID})
	require.Equal(t, "Zed", attempts[0].Student.Name)

	found, err := repo.GetAttemptByUsage(ctx, quiz.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 2, found.AttemptNumber)

	_, err = repo.GetAttemptByUsage(ctx, quiz.ID, 4)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGradingReportRepositoryListSlots(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradingReportRepository(db)

	quiz := models.Quiz{Name: "Quiz"}
	require.NoError(t, db.Create(&quiz).Error)
	require.NoError(t, db.Create(&models.QuizSlot{QuizID: quiz.ID, Slot: 2, QuestionID: 20, DisplayNumber: 2}).Error)
	require.NoError(t, db.Create(&models.QuizSlot{QuizID: quiz.ID, Slot: 1, QuestionID: 10}).Error)

	slots, err := repo.ListSlots(context.Background(), quiz.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, 1, slots[0].Slot)
	require.Equal(t, 1, slots[0].Number())

	_, err = repo.GetQuiz(context.Background(), quiz.ID+100)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
