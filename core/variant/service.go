package variant

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/workspace"
)

const (
	studentMessageVariant = "Error creating question variant"
	studentMessageFile    = "Error creating file: "
)

type (
	// Deps are the collaborators of the variant Service.
	Deps struct {
		Tx         core.Transactor
		Variants   Repository
		Questions  question.Repository
		Courses    course.Repository
		Workspaces workspace.Repository
		Issues     IssueWriter
		Generator  *Generator
		Logger     core.Logger
	}

	Service struct {
		Deps
		metrics Metrics
		tracer  trace.Tracer
	}

	Option func(*Service)

	// EnsureParams describes the variant a caller needs. At least one of QuestionID and
	// InstanceQuestionID must be set; an empty InstanceQuestionID asks for a floating variant.
	EnsureParams struct {
		QuestionID          string
		InstanceQuestionID  string
		UserID              string
		AuthnUserID         string
		CourseInstanceID    string
		VariantCourse       course.Course
		QuestionCourse      course.Course // resolved from the question when empty
		Seed                string        // random when empty
		RequireOpen         bool          // only reuse open variants
		ClientFingerprintID string
	}
)

func WithMetrics(m Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(svc *Service) { svc.tracer = t }
}

func NewService(deps Deps, opts ...Option) *Service {
	svc := &Service{
		Deps:    deps,
		metrics: nopMetrics{},
		tracer:  otel.Tracer("github.com/jgfoster/PrairieLearn/core/variant"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func (p EnsureParams) validate() error {
	if p.QuestionID == "" && p.InstanceQuestionID == "" {
		return core.NewInvariantError("question_id and instance_question_id cannot both be null")
	}
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(p.AuthnUserID, "authn_user_id"),
		vala.StringNotEmpty(p.VariantCourse.ID, "variant_course.id"),
	).Check()
	if err != nil {
		return core.NewInvariantError(err.Error())
	}
	return nil
}

// EnsureVariant returns a usable variant for the request, reusing an existing one when the
// instance question already has one and creating (and persisting) a new one otherwise.
func (svc *Service) EnsureVariant(ctx context.Context, p EnsureParams) (Variant, error) {
	ctx, span := svc.tracer.Start(ctx, "variant.EnsureVariant", trace.WithAttributes(
		attribute.String("question_id", p.QuestionID),
		attribute.String("instance_question_id", p.InstanceQuestionID),
	))
	defer span.End()

	v, err := svc.ensureVariant(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Variant{}, err
	}
	span.SetAttributes(attribute.String("variant_id", v.ID))
	return v, nil
}

func (svc *Service) ensureVariant(ctx context.Context, p EnsureParams) (Variant, error) {
	if err := p.validate(); err != nil {
		return Variant{}, err
	}

	if p.InstanceQuestionID != "" {
		// best effort: the authoritative check runs again under the lock
		v, err := svc.Variants.GetVariantForInstanceQuestion(ctx, p.InstanceQuestionID, p.RequireOpen)
		switch {
		case err == nil:
			svc.metrics.VariantReused(ReuseFastPath)
			return v, nil
		case errors.Cause(err) != ErrNotFound:
			return Variant{}, errors.Wrap(err, "looking up existing variant")
		}
	}
	return svc.makeAndInsertVariant(ctx, p)
}

func (svc *Service) selectQuestion(ctx context.Context, p EnsureParams) (question.Question, error) {
	var (
		q   question.Question
		err error
	)
	if p.QuestionID != "" {
		q, err = svc.Questions.GetQuestion(ctx, p.QuestionID)
	} else {
		q, err = svc.Questions.GetQuestionByInstanceQuestion(ctx, p.InstanceQuestionID)
	}
	if err != nil {
		if errors.Cause(err) == question.ErrNotFound {
			if p.QuestionID == "" {
				return question.Question{}, core.NewNotFoundError("Instance question not found")
			}
			return question.Question{}, core.NewNotFoundError("Question not found")
		}
		return question.Question{}, errors.Wrap(err, "selecting question")
	}
	return q, nil
}

func (svc *Service) makeAndInsertVariant(ctx context.Context, p EnsureParams) (Variant, error) {
	q, err := svc.selectQuestion(ctx, p)
	if err != nil {
		return Variant{}, err
	}

	qCourse := p.QuestionCourse
	if qCourse.ID == "" {
		if qCourse, err = svc.QuestionCourse(ctx, q, p.VariantCourse); err != nil {
			return Variant{}, err
		}
	}

	courseIssues, content, err := svc.Generator.Generate(ctx, q, qCourse, p.Seed)
	if err != nil {
		return Variant{}, err
	}

	var (
		v       Variant
		created bool
	)
	err = svc.Tx.RunInTx(ctx, func(tx core.DBExecutor) error {
		var txErr error
		v, created, txErr = svc.insertVariant(ctx, tx, p, content)
		return txErr
	})
	if err != nil {
		return Variant{}, err
	}

	if created {
		svc.metrics.VariantCreated(q.Type, v.Broken)
		svc.Logger.Info("variant created", map[string]interface{}{
			"variant_id": v.ID, "question_id": v.QuestionID, "number": v.Number, "broken": v.Broken,
		})
	} else {
		svc.metrics.VariantReused(ReuseLockedPath)
		svc.Logger.Debug("concurrent variant creation resolved by reuse", map[string]interface{}{
			"variant_id": v.ID, "instance_question_id": p.InstanceQuestionID,
		})
	}

	svc.writeIssues(ctx, courseIssues, issue.Context{
		VariantID:        v.ID,
		CourseID:         p.VariantCourse.ID,
		CourseInstanceID: v.CourseInstanceID.String,
		QuestionID:       q.ID,
		UserID:           p.UserID,
		AuthnUserID:      p.AuthnUserID,
		StudentMessage:   studentMessageVariant,
		CourseData: map[string]interface{}{
			"variant":  v,
			"question": q,
			"course":   p.VariantCourse,
		},
	})
	return v, nil
}

// insertVariant runs inside the creation transaction. It reports created=false when a
// concurrent request inserted a usable variant first.
func (svc *Service) insertVariant(ctx context.Context, tx core.DBExecutor, p EnsureParams, content Content) (Variant, bool, error) {
	nv := NewVariant{
		Content:             content,
		QuestionID:          p.QuestionID,
		CourseInstanceID:    nullString(p.CourseInstanceID),
		UserID:              nullString(p.UserID),
		Number:              1,
		AuthnUserID:         p.AuthnUserID,
		CourseID:            p.VariantCourse.ID,
		ClientFingerprintID: nullString(p.ClientFingerprintID),
	}

	if p.InstanceQuestionID != "" {
		if err := svc.Variants.LockAssessmentInstanceForInstanceQuestion(ctx, p.InstanceQuestionID, tx); err != nil {
			return Variant{}, false, svc.trapInstanceQuestionErr(err, "locking assessment instance")
		}
		iq, err := svc.Variants.GetInstanceQuestionData(ctx, p.InstanceQuestionID, tx)
		if err != nil {
			return Variant{}, false, svc.trapInstanceQuestionErr(err, "selecting instance question data")
		}

		existing, err := svc.Variants.GetVariantForInstanceQuestion(ctx, p.InstanceQuestionID, p.RequireOpen, tx)
		if err == nil {
			return existing, false, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return Variant{}, false, errors.Wrap(err, "looking up existing variant")
		}

		if !iq.InstanceQuestionOpen {
			return Variant{}, false, core.NewForbiddenError("Instance question is not open")
		}
		if !iq.AssessmentInstanceOpen {
			return Variant{}, false, core.NewForbiddenError("Assessment instance is not open")
		}

		nv.InstanceQuestionID = null.StringFrom(p.InstanceQuestionID)
		nv.QuestionID = iq.QuestionID
		nv.CourseInstanceID = nullString(iq.CourseInstanceID)
		nv.UserID = iq.UserID
		nv.GroupID = iq.GroupID

		if nv.Number, err = svc.Variants.NextVariantNumber(ctx, p.InstanceQuestionID, tx); err != nil {
			return Variant{}, false, errors.Wrap(err, "computing next variant number")
		}
	} else {
		if p.QuestionID == "" {
			return Variant{}, false, core.NewInvariantError("Attempt to create a variant without a question ID or instance question ID")
		}
		if p.UserID == "" {
			return Variant{}, false, core.NewInvariantError("Attempt to create a variant without a user ID")
		}
		if p.CourseInstanceID != "" {
			ci, err := svc.Courses.GetCourseInstance(ctx, p.CourseInstanceID, tx)
			if err != nil && errors.Cause(err) != course.ErrInstanceNotFound {
				return Variant{}, false, errors.Wrap(err, "selecting course instance")
			}
			if err != nil || !core.IDsEqual(ci.CourseID, p.VariantCourse.ID) {
				return Variant{}, false, core.NewForbiddenError("Course instance not found in course")
			}
		}
	}

	// the instance question decides the final question id
	q, err := svc.Questions.GetQuestion(ctx, nv.QuestionID, tx)
	if err != nil {
		if errors.Cause(err) == question.ErrNotFound {
			return Variant{}, false, core.NewNotFoundError("Question not found")
		}
		return Variant{}, false, errors.Wrap(err, "selecting question")
	}
	if q.HasWorkspace() {
		ws, err := svc.Workspaces.CreateWorkspace(ctx, tx)
		if err != nil {
			return Variant{}, false, errors.Wrap(err, "creating workspace")
		}
		nv.WorkspaceID = null.StringFrom(ws.ID)
	}

	v, err := svc.Variants.CreateVariant(ctx, nv, tx)
	if err != nil {
		return Variant{}, false, errors.Wrap(err, "inserting variant")
	}
	return v, true, nil
}

func (svc *Service) trapInstanceQuestionErr(err error, msg string) error {
	if errors.Cause(err) == ErrInstanceQuestionNotFound {
		return core.NewNotFoundError("Instance question not found")
	}
	return errors.Wrap(err, msg)
}

// writeIssues hands issues to the sink. The variant is already durable at this point, so sink
// failures are only logged.
func (svc *Service) writeIssues(ctx context.Context, issues []issue.CourseIssue, ic issue.Context) {
	if len(issues) == 0 {
		return
	}
	if err := svc.Issues.WriteCourseIssues(ctx, issues, ic); err != nil {
		svc.Logger.Error("writing course issues", err, map[string]interface{}{
			"variant_id": ic.VariantID, "count": len(issues),
		})
	}
}

// QuestionCourse returns the course owning q: variantCourse itself when q belongs to it,
// otherwise the course is fetched.
func (svc *Service) QuestionCourse(ctx context.Context, q question.Question, variantCourse course.Course) (course.Course, error) {
	if q.CourseID == variantCourse.ID {
		return variantCourse, nil
	}
	c, err := svc.Courses.GetCourse(ctx, q.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return course.Course{}, core.NewNotFoundError("Course not found")
		}
		return course.Course{}, errors.Wrap(err, "selecting question course")
	}
	return c, nil
}

func (svc *Service) GetVariant(ctx context.Context, id string) (Variant, error) {
	v, err := svc.Variants.GetVariant(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Variant{}, core.NewNotFoundError("Variant not found")
		}
		return Variant{}, errors.Wrap(err, "selecting variant")
	}
	return v, nil
}
