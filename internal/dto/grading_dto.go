package dto

import (
	"fmt"

	"github.com/noah-isme/gradingstudents-api/internal/grading"
)

// Page modes returned by the grading students report.
const (
	ModeList     = "list"
	ModeGrade    = "grade"
	ModeRedirect = "redirect"
)

// Notices shown when the workflow sends the grader back to the list.
const (
	NoticeAllDone      = "All selected attempts have been graded. Returning to the list of attempts."
	NoticeGradesSaved  = "Grades saved."
	NoticeNoQuestions  = "This quiz has no questions."
	gradingStudentsURL = "/api/v2/quizzes/%d/grading-students"
	attemptReviewURL   = "/api/v2/quizzes/%d/attempts/%d/review"
)

// GradingRequest is built once per request from the usageid, slots, grade
// and includeauto parameters. UsageID zero selects the attempt list.
type GradingRequest struct {
	UsageID     uint
	Slots       []int
	Category    grading.Category
	IncludeAuto bool
}

// ReportViewer carries what the caller is allowed to see in the report.
type ReportViewer struct {
	ShowNames          bool
	ShowIdentityFields bool
	ShowReviewLinks    bool
}

// ListURL returns the attempt list address, optionally including auto-graded attempts.
func ListURL(quizID uint, includeAuto bool) string {
	base := fmt.Sprintf(gradingStudentsURL, quizID)
	if includeAuto {
		return base + "?includeauto=1"
	}
	return base
}

// GradeURL returns the address that opens one attempt's questions for grading.
// Parameters are written in the order usageid, slots, grade.
func GradeURL(quizID, usageID uint, slots []int, category grading.Category) string {
	return fmt.Sprintf(gradingStudentsURL+"?usageid=%d&slots=%s&grade=%s",
		quizID, usageID, grading.FormatSlots(slots), string(category))
}

// ReviewURL returns the address of the attempt review page.
func ReviewURL(quizID, attemptID uint) string {
	return fmt.Sprintf(attemptReviewURL, quizID, attemptID)
}

// StudentIdentity exposes only the identity fields the viewer may see.
type StudentIdentity struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name,omitempty"`
	IDNumber string `json:"id_number,omitempty"`
	Email    string `json:"email,omitempty"`
}

// CountCell is one count column with its grading action link.
type CountCell struct {
	Count  int    `json:"count"`
	Slots  string `json:"slots,omitempty"`
	Action string `json:"action,omitempty"`
	URL    string `json:"url,omitempty"`
}

// AttemptRow is one line of the attempt list.
type AttemptRow struct {
	UsageID       uint            `json:"usage_id"`
	AttemptID     uint            `json:"attempt_id"`
	AttemptNumber int             `json:"attempt_number"`
	ReviewURL     string          `json:"review_url,omitempty"`
	Student       StudentIdentity `json:"student"`
	ToGrade       CountCell       `json:"to_grade"`
	AlreadyGraded CountCell       `json:"already_graded"`
	AutoGraded    *CountCell      `json:"auto_graded,omitempty"`
	Total         CountCell       `json:"total"`
}

// ReportOptions echoes the display options applied to the list.
type ReportOptions struct {
	ShowNames          bool `json:"show_names"`
	ShowIdentityFields bool `json:"show_identity_fields"`
	ShowReviewLinks    bool `json:"show_review_links"`
	IncludeAuto        bool `json:"include_auto"`
}

// GradingListView is the attempt list.
type GradingListView struct {
	Options   ReportOptions `json:"options"`
	ToggleURL string        `json:"toggle_url"`
	Attempts  []AttemptRow  `json:"attempts"`
}

// QuestionView is one question rendered in the grading form.
type QuestionView struct {
	Slot       int      `json:"slot"`
	Number     int      `json:"number"`
	QuestionID uint     `json:"question_id"`
	State      string   `json:"state"`
	Category   string   `json:"category"`
	MaxMark    float64  `json:"max_mark"`
	Mark       *float64 `json:"mark"`
	Comment    string   `json:"comment"`
}

// GradingView is the focused grading form for one attempt.
type GradingView struct {
	UsageID       uint            `json:"usage_id"`
	AttemptID     uint            `json:"attempt_id"`
	AttemptNumber int             `json:"attempt_number"`
	Student       StudentIdentity `json:"student"`
	Category      string          `json:"category"`
	Slots         string          `json:"slots"`
	Questions     []QuestionView  `json:"questions"`
	FormURL       string          `json:"form_url"`
	BackURL       string          `json:"back_url"`
}

// GradingPage is the outcome of one report request: a list, a grading
// form, or a redirect back to the list with a notice.
type GradingPage struct {
	Mode        string           `json:"mode"`
	Notice      string           `json:"notice,omitempty"`
	RedirectURL string           `json:"redirect_url,omitempty"`
	List        *GradingListView `json:"list,omitempty"`
	Grading     *GradingView     `json:"grading,omitempty"`
}

// NewRedirectPage builds the redirect-with-notice outcome.
func NewRedirectPage(url, notice string) GradingPage {
	return GradingPage{Mode: ModeRedirect, RedirectURL: url, Notice: notice}
}

// SubmittedMarkRequest is one grader decision in a submission.
type SubmittedMarkRequest struct {
	Slot    int      `json:"slot" validate:"required,gt=0"`
	Mark    *float64 `json:"mark" validate:"omitempty"`
	Comment string   `json:"comment" validate:"max=20000"`
}

// SubmitGradesRequest is the body of a grading form submission.
type SubmitGradesRequest struct {
	Marks []SubmittedMarkRequest `json:"marks" validate:"required,min=1,dive"`
}
