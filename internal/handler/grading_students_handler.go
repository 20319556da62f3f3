package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/noah-isme/gradingstudents-api/internal/dto"
	"github.com/noah-isme/gradingstudents-api/internal/grading"
	"github.com/noah-isme/gradingstudents-api/internal/service"
	"github.com/noah-isme/gradingstudents-api/internal/utils"
)

// ViewerPolicy decides which student identity fields and links a role may see.
type ViewerPolicy struct {
	NameRoles     []string
	IdentityRoles []string
	ReviewRoles   []string
}

// For resolves the report viewer for the given role.
func (p ViewerPolicy) For(role string) dto.ReportViewer {
	return dto.ReportViewer{
		ShowNames:          lo.Contains(p.NameRoles, role),
		ShowIdentityFields: lo.Contains(p.IdentityRoles, role),
		ShowReviewLinks:    lo.Contains(p.ReviewRoles, role),
	}
}

// GradingStudentsHandler serves the manual grading report of a quiz.
type GradingStudentsHandler struct {
	service service.GradingStudentsService
	viewers ViewerPolicy
	logger  zerolog.Logger
}

// NewGradingStudentsHandler constructs the handler.
func NewGradingStudentsHandler(service service.GradingStudentsService, viewers ViewerPolicy, logger zerolog.Logger) *GradingStudentsHandler {
	return &GradingStudentsHandler{
		service: service,
		viewers: viewers,
		logger:  logger.With().Str("component", "grading_students_handler").Logger(),
	}
}

// Register attaches the report routes. submitMiddleware runs before grade
// submissions only.
func (h *GradingStudentsHandler) Register(router fiber.Router, submitMiddleware ...fiber.Handler) {
	router.Get("/:quizID/grading-students", h.view)

	submit := append(append([]fiber.Handler{}, submitMiddleware...), h.submit)
	router.Post("/:quizID/grading-students", submit...)
}

func (h *GradingStudentsHandler) view(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz identifier")
	}

	req, err := parseGradingRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	viewer := h.viewers.For(userRoleFromContext(c))
	page, err := h.service.View(withRequestContext(c), quizID, req, viewer)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("quiz_id", quizID).Msg("failed to build grading report")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build grading report")
	}

	if page.Mode == dto.ModeRedirect {
		return utils.SendRedirect(c, page.RedirectURL, page.Notice, page)
	}

	message := "attempts to grade"
	if page.Mode == dto.ModeGrade {
		message = "questions to grade"
	}
	return utils.SendSuccess(c, message, page)
}

func (h *GradingStudentsHandler) submit(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid quiz identifier")
	}

	req, err := parseGradingRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmitGradesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	page, err := h.service.Submit(withRequestContext(c), quizID, req, payload, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
		case errors.Is(err, service.ErrAttemptNotInQuiz):
			return utils.SendError(c, fiber.StatusNotFound, "attempt not found")
		case errors.Is(err, service.ErrMarkOutOfRange):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrInvalidSubmission):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("quiz_id", quizID).Uint("usage_id", req.UsageID).Msg("failed to save grades")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to save grades")
		}
	}

	return utils.SendRedirect(c, page.RedirectURL, page.Notice, page)
}

// parseGradingRequest reads usageid, slots, grade and includeauto. An
// unrecognised grade leaves the category unset so it matches nothing.
func parseGradingRequest(c *fiber.Ctx) (dto.GradingRequest, error) {
	usageID, err := parseQueryInt(c, "usageid")
	if err != nil || usageID < 0 {
		return dto.GradingRequest{}, fmt.Errorf("invalid usageid")
	}

	slots, err := grading.ParseSlots(c.Query("slots"))
	if err != nil {
		return dto.GradingRequest{}, err
	}

	req := dto.GradingRequest{
		UsageID:     uint(usageID),
		Slots:       slots,
		IncludeAuto: cast.ToBool(c.Query("includeauto")),
	}
	if category, ok := grading.ParseCategory(c.Query("grade")); ok {
		req.Category = category
	}

	return req, nil
}
