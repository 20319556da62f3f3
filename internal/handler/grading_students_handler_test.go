package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradingstudents-api/internal/dto"
	"github.com/noah-isme/gradingstudents-api/internal/grading"
	"github.com/noah-isme/gradingstudents-api/internal/handler"
	"github.com/noah-isme/gradingstudents-api/internal/service"
)

type stubGradingService struct {
	viewReq    dto.GradingRequest
	viewer     dto.ReportViewer
	submitReq  dto.GradingRequest
	payload    dto.SubmitGradesRequest
	actor      service.ActivityActor
	page       dto.GradingPage
	err        error
	viewCalls  int
	submitCall int
}

func (s *stubGradingService) View(ctx context.Context, quizID uint, req dto.GradingRequest, viewer dto.ReportViewer) (dto.GradingPage, error) {
	s.viewCalls++
	s.viewReq = req
	s.viewer = viewer
	return s.page, s.err
}

func (s *stubGradingService) Submit(ctx context.Context, quizID uint, req dto.GradingRequest, payload dto.SubmitGradesRequest, actor service.ActivityActor) (dto.GradingPage, error) {
	s.submitCall++
	s.submitReq = req
	s.payload = payload
	s.actor = actor
	return s.page, s.err
}

func newGradingApp(svc service.GradingStudentsService, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", role)
		return c.Next()
	})
	h := handler.NewGradingStudentsHandler(svc, handler.ViewerPolicy{
		NameRoles:     []string{"admin", "teacher"},
		IdentityRoles: []string{"admin"},
	}, zerolog.Nop())
	h.Register(app.Group("/api/v2/quizzes"))
	return app
}

func TestGradingStudentsHandlerParsesGradingRequest(t *testing.T) {
	svc := &stubGradingService{page: dto.GradingPage{Mode: dto.ModeGrade, Grading: &dto.GradingView{UsageID: 10}}}
	app := newGradingApp(svc, "teacher")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/quizzes/3/grading-students?usageid=10&slots=3,1,3&grade=manuallygraded&includeauto=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, dto.GradingRequest{
		UsageID:     10,
		Slots:       []int{1, 3},
		Category:    grading.ManuallyGraded,
		IncludeAuto: true,
	}, svc.viewReq)
	require.Equal(t, dto.ReportViewer{ShowNames: true}, svc.viewer)
}

func TestViewerPolicyResolvesReviewLinks(t *testing.T) {
	policy := handler.ViewerPolicy{
		NameRoles:     []string{"admin", "teacher"},
		IdentityRoles: []string{"admin"},
		ReviewRoles:   []string{"admin", "teacher"},
	}

	require.Equal(t, dto.ReportViewer{ShowNames: true, ShowIdentityFields: true, ShowReviewLinks: true}, policy.For("admin"))
	require.Equal(t, dto.ReportViewer{ShowNames: true, ShowReviewLinks: true}, policy.For("teacher"))
	require.Equal(t, dto.ReportViewer{}, policy.For("student"))
}

func TestGradingStudentsHandlerTreatsUnknownGradeAsAbsent(t *testing.T) {
	svc := &stubGradingService{page: dto.NewRedirectPage(dto.ListURL(3, false), dto.NoticeAllDone)}
	app := newGradingApp(svc, "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/quizzes/3/grading-students?usageid=10&grade=bogus", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/api/v2/quizzes/3/grading-students", resp.Header.Get("Location"))
	require.Equal(t, grading.Unclassified, svc.viewReq.Category)
}

func TestGradingStudentsHandlerRejectsBadParameters(t *testing.T) {
	svc := &stubGradingService{}
	app := newGradingApp(svc, "admin")

	for _, url := range []string{
		"/api/v2/quizzes/abc/grading-students",
		"/api/v2/quizzes/0/grading-students",
		"/api/v2/quizzes/3/grading-students?usageid=-1",
		"/api/v2/quizzes/3/grading-students?usageid=x",
		"/api/v2/quizzes/3/grading-students?usageid=10&slots=1,zero",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, url)
	}
	require.Zero(t, svc.viewCalls)
}

func TestGradingStudentsHandlerMapsSubmitErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{err: service.ErrQuizNotFound, status: fiber.StatusNotFound},
		{err: service.ErrAttemptNotInQuiz, status: fiber.StatusNotFound},
		{err: fmt.Errorf("%w: slot 2", service.ErrMarkOutOfRange), status: fiber.StatusUnprocessableEntity},
		{err: service.ErrInvalidSubmission, status: fiber.StatusBadRequest},
		{err: validator.ValidationErrors{}, status: fiber.StatusBadRequest},
		{err: fmt.Errorf("boom"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		svc := &stubGradingService{err: tc.err}
		app := newGradingApp(svc, "teacher")

		body := bytes.NewBufferString(`{"marks":[{"slot":2,"mark":1.5,"comment":"ok"}]}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v2/quizzes/3/grading-students?usageid=10&slots=2&grade=needsgrading", body)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
	}
}

func TestGradingStudentsHandlerSubmitRedirects(t *testing.T) {
	svc := &stubGradingService{page: dto.NewRedirectPage(dto.ListURL(3, false), dto.NoticeGradesSaved)}
	app := newGradingApp(svc, "teacher")

	body := bytes.NewBufferString(`{"marks":[{"slot":2,"mark":1.5,"comment":"ok"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/quizzes/3/grading-students?usageid=10&slots=2&grade=needsgrading", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/api/v2/quizzes/3/grading-students", resp.Header.Get("Location"))

	var payload struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    dto.GradingPage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)
	require.Equal(t, dto.NoticeGradesSaved, payload.Message)

	require.Equal(t, uint(10), svc.submitReq.UsageID)
	require.Equal(t, []int{2}, svc.submitReq.Slots)
	require.Len(t, svc.payload.Marks, 1)
	require.InDelta(t, 1.5, *svc.payload.Marks[0].Mark, 1e-9)
	require.Equal(t, uint(7), svc.actor.ID)
	require.Equal(t, "teacher", svc.actor.Role)
}

func TestGradingStudentsHandlerSubmitRejectsMalformedBody(t *testing.T) {
	svc := &stubGradingService{}
	app := newGradingApp(svc, "teacher")

	req := httptest.NewRequest(http.MethodPost, "/api/v2/quizzes/3/grading-students?usageid=10", bytes.NewBufferString(`{"marks":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.submitCall)
}
