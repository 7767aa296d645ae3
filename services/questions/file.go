package questionsvc

import (
	"context"
	"encoding/base64"
	"path"

	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

// File asks the student to upload a file; the reference file lives in the question directory.
//
// options: {"fileName"}
type File struct {
	store course.FileStore
}

var (
	_ variant.QuestionModule = (*File)(nil) // interface compliance check
	_ variant.FileGenerator  = (*File)(nil)
)

func NewFile(store course.FileStore) *File {
	return &File{store: store}
}

func questionFilePath(q question.Question, name string) string {
	return path.Join("questions", q.QID, name)
}

func (m *File) Generate(ctx context.Context, q question.Question, c course.Course, _ string) ([]issue.CourseIssue, variant.ModuleData, error) {
	var data variant.ModuleData

	fileName, _ := q.Options["fileName"].(string)
	if fileName == "" {
		return []issue.CourseIssue{issue.New(errors.New("options.fileName is required"), true)}, data, nil
	}
	b, err := m.store.ReadFile(ctx, c, questionFilePath(q, fileName))
	if err != nil {
		if errors.Cause(err) == course.ErrFileNotFound {
			ci := issue.New(errors.Errorf("file %s not found in question directory", fileName), true,
				map[string]interface{}{"fileName": fileName})
			return []issue.CourseIssue{ci}, data, nil
		}
		return nil, data, err
	}

	data.Params = map[string]interface{}{"fileName": fileName}
	data.TrueAnswer = map[string]interface{}{"fileData": base64.StdEncoding.EncodeToString(b)}
	data.Options = map[string]interface{}{}
	return nil, data, nil
}

func (m *File) Prepare(_ context.Context, _ question.Question, _ course.Course, content variant.Content) ([]issue.CourseIssue, variant.ModuleData, error) {
	return nil, variant.ModuleData{Params: content.Params, TrueAnswer: content.TrueAnswer, Options: content.Options}, nil
}

// File serves the reference file of the variant. Other names are course issues.
func (m *File) File(ctx context.Context, filename string, v variant.Variant, q question.Question, c course.Course) ([]issue.CourseIssue, []byte, error) {
	fileName, _ := v.Params["fileName"].(string)
	if filename != fileName {
		ci := issue.New(errors.Errorf("unknown file %s", filename), false, map[string]interface{}{"fileName": fileName})
		return []issue.CourseIssue{ci}, nil, nil
	}
	b, err := m.store.ReadFile(ctx, c, questionFilePath(q, fileName))
	if err != nil {
		if errors.Cause(err) == course.ErrFileNotFound {
			return []issue.CourseIssue{issue.New(errors.Errorf("file %s not found in question directory", fileName), true)}, nil, nil
		}
		return nil, nil, err
	}
	return nil, b, nil
}
