package variant

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
)

// ModuleData is what a question module produces for a variant.
type ModuleData struct {
	Params     map[string]interface{}
	TrueAnswer map[string]interface{}
	Options    map[string]interface{}
}

type (
	// QuestionModule generates variant content for one question type.
	QuestionModule interface {
		Generate(ctx context.Context, q question.Question, c course.Course, seed string) ([]issue.CourseIssue, ModuleData, error)
		Prepare(ctx context.Context, q question.Question, c course.Course, content Content) ([]issue.CourseIssue, ModuleData, error)
	}

	// FileGenerator is implemented by question modules that can produce files for a variant.
	FileGenerator interface {
		File(ctx context.Context, filename string, v Variant, q question.Question, c course.Course) ([]issue.CourseIssue, []byte, error)
	}

	IssueWriter interface {
		WriteCourseIssues(ctx context.Context, issues []issue.CourseIssue, ic issue.Context) error
	}
)

// Registry maps question type tags to their modules. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]QuestionModule
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]QuestionModule)}
}

// Register adds (or replaces) the module for qType.
func (r *Registry) Register(qType string, m QuestionModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[qType] = m
}

func (r *Registry) Module(qType string) (QuestionModule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[qType]
	if !ok {
		return nil, errors.Errorf("no question module for type %q", qType)
	}
	return m, nil
}
