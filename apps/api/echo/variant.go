package echoapi

import (
	"mime"
	"net/http"
	"path/filepath"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

type variantApi struct {
	svc        *variant.Service
	issueSvc   *issue.Service
	courses    course.Repository
	questions  question.Repository
	validate   *validator.Validate
	translator ut.Translator
}

func registerVariantAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := variantApi{
		svc:        deps.VariantSvc,
		issueSvc:   deps.IssueSvc,
		courses:    deps.Courses,
		questions:  deps.Questions,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	vg := g.Group("/variants", jwt)
	vg.POST("", api.ensure)

	dg := vg.Group("/:id", api.variantMiddleware)
	dg.GET("", api.retrieve)
	dg.GET("/files/:filename", api.file)
	dg.GET("/issues", api.issues)
}

type EnsureVariantRequest struct {
	QuestionID          string `json:"question_id" validate:"required_without=InstanceQuestionID,omitempty,id"`
	InstanceQuestionID  string `json:"instance_question_id" validate:"required_without=QuestionID,omitempty,id"`
	CourseID            string `json:"course_id" validate:"required,id"`
	CourseInstanceID    string `json:"course_instance_id" validate:"omitempty,id"`
	Seed                string `json:"variant_seed"`
	RequireOpen         bool   `json:"require_open"`
	ClientFingerprintID string `json:"client_fingerprint_id" validate:"omitempty,id"`
}

func (r *EnsureVariantRequest) Validate(validate *validator.Validate) error {
	r.QuestionID = core.CleanString(r.QuestionID)
	r.InstanceQuestionID = core.CleanString(r.InstanceQuestionID)
	r.CourseID = core.CleanString(r.CourseID)
	r.CourseInstanceID = core.CleanString(r.CourseInstanceID)
	r.Seed = core.CleanString(r.Seed)
	return validate.Struct(r)
}

func (api *variantApi) getCourse(ctx echo.Context, id string) (course.Course, error) {
	c, err := api.courses.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return course.Course{}, core.NewNotFoundError("Course not found")
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return c, nil
}

// Handlers

func (api *variantApi) ensure(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data EnsureVariantRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnsureVariantRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.getCourse(ctx, data.CourseID)
	if err != nil {
		return err
	}

	v, err := api.svc.EnsureVariant(ctx.Request().Context(), variant.EnsureParams{
		QuestionID:          data.QuestionID,
		InstanceQuestionID:  data.InstanceQuestionID,
		UserID:              claims.EffectiveUserID(),
		AuthnUserID:         claims.Subject,
		CourseInstanceID:    data.CourseInstanceID,
		VariantCourse:       c,
		Seed:                data.Seed,
		RequireOpen:         data.RequireOpen,
		ClientFingerprintID: data.ClientFingerprintID,
	})
	if err != nil {
		return errors.Wrap(err, "ensuring variant")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *variantApi) variantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		v, err := api.svc.GetVariant(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		ctx.Set("object", v)
		return next(ctx)
	}
}

func (api *variantApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object").(variant.Variant))
}

func (api *variantApi) file(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	v := ctx.Get("object").(variant.Variant)
	filename := ctx.Param("filename")

	q, err := api.questions.GetQuestion(ctx.Request().Context(), v.QuestionID)
	if err != nil {
		if errors.Cause(err) == question.ErrNotFound {
			return core.NewNotFoundError("Question not found")
		}
		return errors.Wrap(err, "getting question")
	}
	c, err := api.getCourse(ctx, v.CourseID)
	if err != nil {
		return err
	}

	b, err := api.svc.GetDynamicFile(ctx.Request().Context(), variant.FileParams{
		Filename:      filename,
		Variant:       v,
		Question:      q,
		VariantCourse: c,
		UserID:        claims.EffectiveUserID(),
		AuthnUserID:   claims.Subject,
	})
	if err != nil {
		return errors.Wrap(err, "generating file")
	}
	if b == nil {
		return core.NewNotFoundError("File not found")
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return ctx.Blob(http.StatusOK, contentType, b)
}

func (api *variantApi) issues(ctx echo.Context) error {
	v := ctx.Get("object").(variant.Variant)
	issues, err := api.issueSvc.QueryForVariant(ctx.Request().Context(), v.ID)
	if err != nil {
		return errors.Wrap(err, "querying issues")
	}
	if issues == nil {
		issues = []issue.Issue{}
	}
	return ctx.JSON(http.StatusOK, issues)
}
