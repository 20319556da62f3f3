package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gradingstudents-api/internal/dto"
	"github.com/noah-isme/gradingstudents-api/internal/grading"
	"github.com/noah-isme/gradingstudents-api/internal/models"
	"github.com/noah-isme/gradingstudents-api/internal/repository"
)

// Audit trail vocabulary for grade submissions.
const (
	ActionAttemptGraded     = EventAttemptGraded
	EntityQuizAttempt       = "quiz_attempt"
	defaultActorRole        = "system"
	defaultActivityPageSize = 25
)

// ActivityActor represents the authenticated grader behind a request.
type ActivityActor struct {
	ID            uint
	Role          string
	CorrelationID string
}

// GradedAttempt is one committed grade submission.
type GradedAttempt struct {
	Actor     ActivityActor
	QuizID    uint
	AttemptID uint
	UsageID   uint
	StudentID uint
	Slots     []int
}

// ActivityRecorder writes grade submissions to the audit trail.
type ActivityRecorder interface {
	RecordGraded(ctx context.Context, graded GradedAttempt) (dto.ActivityResponse, error)
}

// ActivityService records and lists the grading audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) RecordGraded(ctx context.Context, graded GradedAttempt) (dto.ActivityResponse, error) {
	if graded.QuizID == 0 || graded.AttemptID == 0 {
		return dto.ActivityResponse{}, fmt.Errorf("graded attempt needs quiz and attempt ids")
	}

	role := strings.ToLower(strings.TrimSpace(graded.Actor.Role))
	if role == "" {
		role = defaultActorRole
	}
	attemptID, quizID := graded.AttemptID, graded.QuizID

	model := models.ActivityLog{
		ActorID:       graded.Actor.ID,
		ActorRole:     role,
		Action:        ActionAttemptGraded,
		EntityType:    EntityQuizAttempt,
		EntityID:      &attemptID,
		QuizID:        &quizID,
		CorrelationID: strings.TrimSpace(graded.Actor.CorrelationID),
		Metadata: datatypes.JSONMap{
			"usage_id":   graded.UsageID,
			"student_id": graded.StudentID,
			"slots":      grading.FormatSlots(graded.Slots),
		},
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Uint("attempt_id", attemptID).Msg("failed to persist grading activity")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	page := max(req.Page, 1)
	size := req.PageSize
	if size <= 0 {
		size = defaultActivityPageSize
	}

	filter := repository.ActivityLogFilter{
		Page:     page,
		PageSize: size,
		Action:   strings.ToLower(strings.TrimSpace(req.Action)),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}
	if req.QuizID > 0 {
		filter.QuizID = &req.QuizID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityResponse(entry))
	}

	return dto.ActivityListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   size,
			TotalItems: total,
			TotalPages: int((total + int64(size) - 1) / int64(size)),
		},
	}, nil
}
