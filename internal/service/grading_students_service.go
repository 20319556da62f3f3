package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gradingstudents-api/internal/dto"
	"github.com/noah-isme/gradingstudents-api/internal/grading"
	"github.com/noah-isme/gradingstudents-api/internal/models"
	"github.com/noah-isme/gradingstudents-api/internal/observability"
	"github.com/noah-isme/gradingstudents-api/internal/repository"
)

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotInQuiz indicates the usage id does not address an attempt of the quiz.
	ErrAttemptNotInQuiz = errors.New("attempt not found in quiz")
	// ErrInvalidSubmission indicates a malformed grading submission.
	ErrInvalidSubmission = errors.New("invalid grading submission")
	// ErrMarkOutOfRange indicates a submitted mark outside the question's legal range.
	ErrMarkOutOfRange = errors.New("submitted mark out of range")
)

// Outcome labels reported to the grading_outcomes_total metric.
const (
	outcomeList      = "list"
	outcomeGrade     = "grade"
	outcomeRedirect  = "redirect"
	outcomeSubmitted = "submitted"
	outcomeRejected  = "rejected"
)

// GradingStudentsService drives the grading students report: the attempt
// list, the focused grading form and grade submissions.
type GradingStudentsService interface {
	View(ctx context.Context, quizID uint, req dto.GradingRequest, viewer dto.ReportViewer) (dto.GradingPage, error)
	Submit(ctx context.Context, quizID uint, req dto.GradingRequest, payload dto.SubmitGradesRequest, actor ActivityActor) (dto.GradingPage, error)
}

type gradingStudentsService struct {
	reports   repository.GradingReportRepository
	engine    repository.QuestionEngine
	validator *validator.Validate
	activity  ActivityRecorder
	events    GradingEventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewGradingStudentsService constructs the grading workflow service.
func NewGradingStudentsService(reports repository.GradingReportRepository, engine repository.QuestionEngine, validate *validator.Validate, activity ActivityRecorder, events GradingEventPublisher, logger zerolog.Logger) GradingStudentsService {
	return &gradingStudentsService{
		reports:   reports,
		engine:    engine,
		validator: validate,
		activity:  activity,
		events:    events,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "grading_students_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gradingstudents-api/internal/service/grading_students"),
		now:       time.Now,
	}
}

type questionKey struct {
	usageID uint
	slot    int
}

// report is the per-request aggregation; nothing is kept between requests.
type report struct {
	slots     map[int]models.QuizSlot
	summaries []grading.Summary
	rows      map[questionKey]repository.QuestionStateRow
}

func (s *gradingStudentsService) View(ctx context.Context, quizID uint, req dto.GradingRequest, viewer dto.ReportViewer) (dto.GradingPage, error) {
	ctx, span := s.tracer.Start(ctx, "grading_students.view")
	span.SetAttributes(
		attribute.Int64("grading.quiz_id", int64(quizID)),
		attribute.Int64("grading.usage_id", int64(req.UsageID)),
		attribute.String("grading.category", req.Category.String()),
	)
	defer span.End()

	data, err := s.load(ctx, quizID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report_load_failed")
		return dto.GradingPage{}, err
	}

	if req.UsageID == 0 {
		observability.GradingOutcomes().WithLabelValues(outcomeList).Inc()
		return s.listPage(quizID, data, req, viewer), nil
	}
	if len(data.slots) == 0 {
		observability.GradingOutcomes().WithLabelValues(outcomeRedirect).Inc()
		span.SetAttributes(attribute.String("grading.mode", dto.ModeRedirect))
		return dto.NewRedirectPage(dto.ListURL(quizID, false), dto.NoticeNoQuestions), nil
	}

	page := s.gradingPage(quizID, data, req, viewer)
	observability.GradingOutcomes().WithLabelValues(page.Mode).Inc()
	span.SetAttributes(attribute.String("grading.mode", page.Mode))
	return page, nil
}

func (s *gradingStudentsService) Submit(ctx context.Context, quizID uint, req dto.GradingRequest, payload dto.SubmitGradesRequest, actor ActivityActor) (dto.GradingPage, error) {
	ctx, span := s.tracer.Start(ctx, "grading_students.submit")
	span.SetAttributes(
		attribute.Int64("grading.quiz_id", int64(quizID)),
		attribute.Int64("grading.usage_id", int64(req.UsageID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	reject := func(err error, status string) (dto.GradingPage, error) {
		observability.GradingOutcomes().WithLabelValues(outcomeRejected).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.GradingPage{}, err
	}

	if req.UsageID == 0 {
		return reject(fmt.Errorf("%w: usage id is required", ErrInvalidSubmission), "usage_missing")
	}
	if err := s.validator.Struct(payload); err != nil {
		return reject(err, "validation_failed")
	}

	if _, err := s.reports.GetQuiz(ctx, quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject(ErrQuizNotFound, "quiz_not_found")
		}
		return reject(err, "quiz_lookup_failed")
	}

	attempt, err := s.reports.GetAttemptByUsage(ctx, quizID, req.UsageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject(ErrAttemptNotInQuiz, "attempt_not_found")
		}
		return reject(err, "attempt_lookup_failed")
	}

	marks, checked, err := s.collectMarks(req, payload)
	if err != nil {
		return reject(err, "invalid_submission")
	}

	markBySlot := make(map[int]*float64, len(marks))
	for _, mark := range marks {
		markBySlot[mark.Slot] = mark.Mark
	}
	for _, slot := range checked {
		ok, err := s.engine.IsManualGradeInRange(ctx, req.UsageID, slot, markBySlot[slot])
		if err != nil {
			return reject(err, "range_check_failed")
		}
		if !ok {
			s.logger.Warn().Uint("usage_id", req.UsageID).Int("slot", slot).Msg("rejecting grading submission with out of range mark")
			return reject(fmt.Errorf("%w: slot %d", ErrMarkOutOfRange, slot), "mark_out_of_range")
		}
	}

	timestamp := s.now()
	err = s.engine.WithinTransaction(ctx, func(engine repository.QuestionEngine) error {
		return engine.ProcessSubmittedActions(ctx, req.UsageID, timestamp, repository.SubmittedActions{
			GraderID: actor.ID,
			Marks:    marks,
		})
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("usage_id", req.UsageID).Msg("failed to persist submitted grades")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_failed")
		return dto.GradingPage{}, fmt.Errorf("persist submitted grades: %w", err)
	}

	slots := lo.Map(marks, func(mark repository.SubmittedMark, _ int) int { return mark.Slot })
	s.afterCommit(ctx, quizID, attempt, slots, actor, timestamp)

	observability.GradingOutcomes().WithLabelValues(outcomeSubmitted).Inc()
	span.SetAttributes(attribute.Int("grading.marks", len(marks)))
	return dto.NewRedirectPage(dto.ListURL(quizID, false), dto.NoticeGradesSaved), nil
}

func (s *gradingStudentsService) load(ctx context.Context, quizID uint) (report, error) {
	if _, err := s.reports.GetQuiz(ctx, quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return report{}, ErrQuizNotFound
		}
		return report{}, err
	}

	slots, err := s.reports.ListSlots(ctx, quizID)
	if err != nil {
		return report{}, err
	}
	attempts, err := s.reports.ListAttempts(ctx, quizID)
	if err != nil {
		return report{}, err
	}
	rows, err := s.reports.ListQuestionStates(ctx, quizID)
	if err != nil {
		return report{}, err
	}

	data := report{
		slots: make(map[int]models.QuizSlot, len(slots)),
		rows:  make(map[questionKey]repository.QuestionStateRow, len(rows)),
	}
	configured := make(grading.SlotSet, len(slots))
	for _, slot := range slots {
		data.slots[slot.Slot] = slot
		configured[slot.Slot] = struct{}{}
	}

	states := make([]grading.QuestionState, 0, len(rows))
	for _, row := range rows {
		data.rows[questionKey{usageID: row.UsageID, slot: row.Slot}] = row
		states = append(states, grading.QuestionState{
			QuestionAttemptID: row.QuestionAttemptID,
			UsageID:           row.UsageID,
			Slot:              row.Slot,
			QuestionID:        row.QuestionID,
			State:             row.State,
		})
	}

	raw := make([]grading.RawAttempt, 0, len(attempts))
	for _, attempt := range attempts {
		raw = append(raw, grading.RawAttempt{
			AttemptID:     attempt.ID,
			UsageID:       attempt.UsageID,
			AttemptNumber: attempt.AttemptNumber,
			StudentID:     attempt.StudentID,
			FullName:      attempt.Student.Name,
			IDNumber:      attempt.Student.IDNumber,
			Email:         attempt.Student.Email,
		})
	}

	data.summaries = grading.Aggregate(raw, states, configured)
	return data, nil
}

func (s *gradingStudentsService) listPage(quizID uint, data report, req dto.GradingRequest, viewer dto.ReportViewer) dto.GradingPage {
	view := &dto.GradingListView{
		Options: dto.ReportOptions{
			ShowNames:          viewer.ShowNames,
			ShowIdentityFields: viewer.ShowIdentityFields,
			ShowReviewLinks:    viewer.ShowReviewLinks,
			IncludeAuto:        req.IncludeAuto,
		},
		ToggleURL: dto.ListURL(quizID, !req.IncludeAuto),
		Attempts:  []dto.AttemptRow{},
	}

	page := dto.GradingPage{Mode: dto.ModeList, List: view}
	if len(data.slots) == 0 {
		page.Notice = dto.NoticeNoQuestions
		return page
	}

	for _, summary := range grading.Filter(data.summaries, req.IncludeAuto) {
		row := dto.AttemptRow{
			UsageID:       summary.UsageID,
			AttemptID:     summary.AttemptID,
			AttemptNumber: summary.AttemptNumber,
			Student:       identity(summary.RawAttempt, viewer),
			ToGrade:       countCell(quizID, summary, grading.NeedsGrading, "grade"),
			AlreadyGraded: countCell(quizID, summary, grading.ManuallyGraded, "updategrade"),
			Total:         countCell(quizID, summary, grading.All, "gradeall"),
		}
		if viewer.ShowReviewLinks {
			row.ReviewURL = dto.ReviewURL(quizID, summary.AttemptID)
		}
		if req.IncludeAuto {
			cell := countCell(quizID, summary, grading.AutoGraded, "updategrade")
			row.AutoGraded = &cell
		}
		view.Attempts = append(view.Attempts, row)
	}

	return page
}

func (s *gradingStudentsService) gradingPage(quizID uint, data report, req dto.GradingRequest, viewer dto.ReportViewer) dto.GradingPage {
	summary, found := grading.Find(data.summaries, req.UsageID)
	if !found || summary.Count(req.Category) == 0 {
		s.logger.Info().
			Uint("quiz_id", quizID).
			Uint("usage_id", req.UsageID).
			Str("category", req.Category.String()).
			Bool("attempt_found", found).
			Msg("nothing left to grade, returning to attempt list")
		return dto.NewRedirectPage(dto.ListURL(quizID, false), dto.NoticeAllDone)
	}

	slots := summary.SlotsFor(req.Category)
	formSlots := req.Slots
	if len(req.Slots) > 0 {
		requested := grading.NewSlotSet(req.Slots...)
		narrowed := lo.Filter(slots, func(slot int, _ int) bool { return requested.Has(slot) })
		if len(narrowed) > 0 {
			slots = narrowed
		} else {
			// Requested slots already left the category; show the ones still in it.
			s.logger.Debug().
				Uint("quiz_id", quizID).
				Uint("usage_id", req.UsageID).
				Str("requested", grading.FormatSlots(req.Slots)).
				Str("rendered", grading.FormatSlots(slots)).
				Msg("requested slots no longer match category")
			formSlots = slots
		}
	}

	questions := make([]dto.QuestionView, 0, len(slots))
	for _, slot := range slots {
		row := data.rows[questionKey{usageID: summary.UsageID, slot: slot}]
		questions = append(questions, dto.QuestionView{
			Slot:       slot,
			Number:     data.slots[slot].Number(),
			QuestionID: row.QuestionID,
			State:      row.State,
			Category:   grading.Classify(row.State).String(),
			MaxMark:    row.MaxMark,
			Mark:       row.Mark(),
			Comment:    row.Comment,
		})
	}

	return dto.GradingPage{
		Mode: dto.ModeGrade,
		Grading: &dto.GradingView{
			UsageID:       summary.UsageID,
			AttemptID:     summary.AttemptID,
			AttemptNumber: summary.AttemptNumber,
			Student:       identity(summary.RawAttempt, viewer),
			Category:      string(req.Category),
			Slots:         grading.FormatSlots(slots),
			Questions:     questions,
			FormURL:       dto.GradeURL(quizID, summary.UsageID, formSlots, req.Category),
			BackURL:       dto.ListURL(quizID, false),
		},
	}
}

// collectMarks normalises the submitted marks and returns the slots that must
// pass the range check: every slot named in the request plus every marked slot.
func (s *gradingStudentsService) collectMarks(req dto.GradingRequest, payload dto.SubmitGradesRequest) ([]repository.SubmittedMark, []int, error) {
	allowed := grading.NewSlotSet(req.Slots...)
	seen := make(grading.SlotSet, len(payload.Marks))
	marks := make([]repository.SubmittedMark, 0, len(payload.Marks))

	for _, item := range payload.Marks {
		if seen.Has(item.Slot) {
			return nil, nil, fmt.Errorf("%w: slot %d submitted twice", ErrInvalidSubmission, item.Slot)
		}
		if len(req.Slots) > 0 && !allowed.Has(item.Slot) {
			return nil, nil, fmt.Errorf("%w: slot %d was not requested", ErrInvalidSubmission, item.Slot)
		}
		seen[item.Slot] = struct{}{}
		marks = append(marks, repository.SubmittedMark{
			Slot:    item.Slot,
			Mark:    item.Mark,
			Comment: s.sanitizer.Sanitize(strings.TrimSpace(item.Comment)),
		})
	}

	marked := lo.Map(marks, func(mark repository.SubmittedMark, _ int) int { return mark.Slot })
	checked := lo.Uniq(append(append([]int{}, req.Slots...), marked...))
	sort.Ints(checked)
	return marks, checked, nil
}

func (s *gradingStudentsService) afterCommit(ctx context.Context, quizID uint, attempt models.QuizAttempt, slots []int, actor ActivityActor, gradedAt time.Time) {
	if s.activity != nil {
		_, err := s.activity.RecordGraded(ctx, GradedAttempt{
			Actor:     actor,
			QuizID:    quizID,
			AttemptID: attempt.ID,
			UsageID:   attempt.UsageID,
			StudentID: attempt.StudentID,
			Slots:     slots,
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to record grading activity")
		}
	}

	if s.events != nil {
		err := s.events.PublishAttemptGraded(ctx, AttemptGradedEvent{
			QuizID:    quizID,
			AttemptID: attempt.ID,
			UsageID:   attempt.UsageID,
			StudentID: attempt.StudentID,
			GraderID:  actor.ID,
			Slots:     slots,
			GradedAt:  gradedAt.UTC(),
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to publish grading event")
		}
	}
}

func identity(attempt grading.RawAttempt, viewer dto.ReportViewer) dto.StudentIdentity {
	student := dto.StudentIdentity{ID: attempt.StudentID}
	if viewer.ShowNames {
		student.FullName = attempt.FullName
	}
	if viewer.ShowIdentityFields {
		student.IDNumber = attempt.IDNumber
		student.Email = attempt.Email
	}
	return student
}

func countCell(quizID uint, summary grading.Summary, category grading.Category, action string) dto.CountCell {
	cell := dto.CountCell{Count: summary.Count(category)}
	if cell.Count == 0 {
		return cell
	}
	slots := summary.SlotsFor(category)
	cell.Slots = grading.FormatSlots(slots)
	cell.Action = action
	cell.URL = dto.GradeURL(quizID, summary.UsageID, slots, category)
	return cell
}
