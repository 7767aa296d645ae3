package variant

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
)

// FileParams identifies a file generated for an existing variant.
type FileParams struct {
	Filename      string
	Variant       Variant
	Question      question.Question
	VariantCourse course.Course
	UserID        string
	AuthnUserID   string
}

// GetDynamicFile asks the question module to produce filename for the variant. Issues raised
// while doing so are reported with the variant but do not fail the call.
func (svc *Service) GetDynamicFile(ctx context.Context, p FileParams) ([]byte, error) {
	ctx, span := svc.tracer.Start(ctx, "variant.GetDynamicFile", trace.WithAttributes(
		attribute.String("variant_id", p.Variant.ID),
		attribute.String("filename", p.Filename),
	))
	defer span.End()

	data, err := svc.getDynamicFile(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return data, nil
}

func (svc *Service) getDynamicFile(ctx context.Context, p FileParams) ([]byte, error) {
	qCourse, err := svc.QuestionCourse(ctx, p.Question, p.VariantCourse)
	if err != nil {
		return nil, err
	}

	mod, err := svc.Generator.registry.Module(p.Question.Type)
	if err != nil {
		return nil, err
	}
	fileGen, ok := mod.(FileGenerator)
	if !ok {
		return nil, errors.Errorf("Question type %s does not support file generation", p.Question.Type)
	}

	courseIssues, data, err := callWithTimeout(ctx, svc.Generator.timeout, func(ctx context.Context) ([]issue.CourseIssue, []byte, error) {
		return fileGen.File(ctx, p.Filename, p.Variant, p.Question, qCourse)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "generating file %s", p.Filename)
	}

	svc.writeIssues(ctx, courseIssues, issue.Context{
		VariantID:        p.Variant.ID,
		CourseID:         p.VariantCourse.ID,
		CourseInstanceID: p.Variant.CourseInstanceID.String,
		QuestionID:       p.Question.ID,
		UserID:           p.UserID,
		AuthnUserID:      p.AuthnUserID,
		StudentMessage:   studentMessageFile + p.Filename,
		CourseData: map[string]interface{}{
			"variant":  p.Variant,
			"question": p.Question,
			"course":   p.VariantCourse,
		},
	})
	return data, nil
}
