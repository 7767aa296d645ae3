package issue

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
)

// CourseIssue is a problem with course content reported by a question module.
// A fatal issue makes the variant it was produced for unusable.
type CourseIssue struct {
	Message string
	Fatal   bool
	Data    map[string]interface{}
	Err     error // optional cause
}

// New builds a CourseIssue from err.
func New(err error, fatal bool, data ...map[string]interface{}) CourseIssue {
	ci := CourseIssue{Message: err.Error(), Fatal: fatal, Err: err}
	if len(data) > 0 {
		ci.Data = data[0]
	}
	return ci
}

func (ci CourseIssue) Error() string {
	return ci.Message
}

// AnyFatal reports whether at least one of the issues is fatal.
func AnyFatal(issues []CourseIssue) bool {
	for _, ci := range issues {
		if ci.Fatal {
			return true
		}
	}
	return false
}

// Context identifies who and what a batch of course issues is about.
type Context struct {
	VariantID        string
	CourseID         string
	CourseInstanceID string
	QuestionID       string
	UserID           string
	AuthnUserID      string
	StudentMessage   string
	// CourseData is stored alongside each issue for diagnostics (variant, question, course).
	CourseData map[string]interface{}
}

// Issue is a persisted course issue.
type Issue struct {
	ID                string                 `json:"id"`
	Date              time.Time              `json:"date"` // UTC
	StudentMessage    string                 `json:"student_message"`
	InstructorMessage string                 `json:"instructor_message"`
	CourseCaused      bool                   `json:"course_caused"`
	Fatal             bool                   `json:"fatal"`
	CourseData        map[string]interface{} `json:"course_data"`
	SystemData        map[string]interface{} `json:"system_data"`
	VariantID         null.String            `json:"variant_id"`
	CourseID          null.String            `json:"course_id"`
	CourseInstanceID  null.String            `json:"course_instance_id"`
	QuestionID        null.String            `json:"question_id"`
	UserID            null.String            `json:"user_id"`
	AuthnUserID       null.String            `json:"authn_user_id"`
}

type Repository interface {
	CreateIssues(ctx context.Context, issues []Issue, exec ...core.DBExecutor) ([]Issue, error)
	QueryIssuesForVariant(ctx context.Context, variantID string, exec ...core.DBExecutor) ([]Issue, error)
}
