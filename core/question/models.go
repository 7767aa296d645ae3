package question

import (
	"context"
	"errors"

	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
)

var (
	// errors
	ErrNotFound = errors.New("question not found")
)

// Question types with a built-in module.
const (
	TypeMultipleChoice = "MultipleChoice"
	TypeFile           = "File"
	TypeFreeform       = "Freeform"
)

type Question struct {
	ID       string `json:"id"`
	QID      string `json:"qid"` // directory of the question inside the course
	Type     string `json:"type"`
	Title    string `json:"title"`
	CourseID string `json:"course_id"`
	// Options is the type-specific configuration of the question (info.json "options").
	Options              map[string]interface{} `json:"options"`
	WorkspaceImage       null.String            `json:"workspace_image"`
	WorkspaceGradedFiles []string               `json:"workspace_graded_files"`
}

// HasWorkspace reports whether the question declares a workspace image.
func (q Question) HasWorkspace() bool {
	return q.WorkspaceImage.Valid
}

type Repository interface {
	GetQuestion(ctx context.Context, id string, exec ...core.DBExecutor) (Question, error)
	GetQuestionByInstanceQuestion(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) (Question, error)
}
