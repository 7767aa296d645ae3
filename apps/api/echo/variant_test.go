package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	echoapi "github.com/jgfoster/PrairieLearn/apps/api/echo"
	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
	"github.com/jgfoster/PrairieLearn/services/coursefiles"
	metricsvc "github.com/jgfoster/PrairieLearn/services/metrics"
	questionsvc "github.com/jgfoster/PrairieLearn/services/questions"
	"github.com/jgfoster/PrairieLearn/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Error string `json:"error"`
}

type testApp struct {
	conf   *core.Config
	db     *inmemdb.DB
	server *echoapi.Server

	course     course.Course
	instance   course.CourseInstance
	mcQuestion question.Question
	iqID       string
	aiID       string
	token      string
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := &core.Config{
		AppName:   "PrairieLearn",
		TestMode:  true,
		SecretKey: "0123456789abcdef0123456789abcdef",
		Server:    core.ServerConfig{JWTExpiration: time.Hour},
	}

	dir := t.TempDir()
	qdir := filepath.Join(dir, "cs101", "questions", "upload")
	require.NoError(t, os.MkdirAll(qdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(qdir, "notes.txt"), []byte("reference notes"), 0o644))

	db, err := inmemdb.Open()
	require.NoError(t, err)
	a := &testApp{conf: conf, db: db}
	a.course = db.AddCourse(course.Course{ShortName: "CS 101", Path: "cs101", DisplayTimezone: "UTC"})
	a.instance = db.AddCourseInstance(course.CourseInstance{CourseID: a.course.ID, ShortName: "Fa21"})
	a.mcQuestion = db.AddQuestion(question.Question{
		QID:      "capitals",
		Type:     question.TypeMultipleChoice,
		CourseID: a.course.ID,
		Options: map[string]interface{}{
			"text":             "Capital of France?",
			"correctAnswers":   []interface{}{"Paris"},
			"incorrectAnswers": []interface{}{"Lyon", "Nice"},
		},
	})
	a.aiID = db.AddAssessmentInstance(a.instance.ID)
	a.iqID = db.AddInstanceQuestion(a.aiID, a.mcQuestion.ID, null.StringFrom("42"), null.String{})

	logger := nopLogger{}
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	issueSvc := issue.NewService(inmemdb.NewIssueRepository(db), logger)
	metrics := metricsvc.NewPrometheusMetrics()
	registry := questionsvc.NewDefaultRegistry(coursefiles.NewLocalStore(dir), conf, logger)
	variantSvc := variant.NewService(variant.Deps{
		Tx:         db,
		Variants:   inmemdb.NewVariantRepository(db),
		Questions:  inmemdb.NewQuestionRepository(db),
		Courses:    inmemdb.NewCourseRepository(db),
		Workspaces: inmemdb.NewWorkspaceRepository(db),
		Issues:     issueSvc,
		Generator:  variant.NewGenerator(registry, variant.WithGeneratorMetrics(metrics)),
		Logger:     logger,
	}, variant.WithMetrics(metrics))

	a.server = echoapi.NewServer(echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		VariantSvc: variantSvc,
		IssueSvc:   issueSvc,
		Courses:    inmemdb.NewCourseRepository(db),
		Questions:  inmemdb.NewQuestionRepository(db),
		Metrics:    metrics,
		Validate:   validate,
		Translator: translator,
	})

	a.token, err = echoapi.GenerateToken(conf, echoapi.NewClaims(conf, "7", "42"))
	require.NoError(t, err)
	return a
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestVariantAPI_ensure(t *testing.T) {
	a := setup(t)

	rec := a.do(t, http.MethodPost, "/v1/variants", "", echoapi.EnsureVariantRequest{InstanceQuestionID: a.iqID, CourseID: a.course.ID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/variants", a.token, echoapi.EnsureVariantRequest{
		InstanceQuestionID: a.iqID,
		CourseID:           a.course.ID,
		Seed:               "abc",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v variant.Variant
	decode(t, rec, &v)
	assert.Equal(t, "abc", v.VariantSeed)
	assert.Equal(t, a.mcQuestion.ID, v.QuestionID)
	assert.Equal(t, "42", v.UserID.String)
	assert.Equal(t, "7", v.AuthnUserID)
	assert.Equal(t, 1, v.Number)
	assert.Equal(t, "Paris", v.TrueAnswer["text"])
	assert.NotEmpty(t, v.FormattedDate)

	// reused
	rec = a.do(t, http.MethodPost, "/v1/variants", a.token, echoapi.EnsureVariantRequest{InstanceQuestionID: a.iqID, CourseID: a.course.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var again variant.Variant
	decode(t, rec, &again)
	assert.Equal(t, v.ID, again.ID)
	assert.Equal(t, 1, a.db.CountVariants(a.iqID))

	rec = a.do(t, http.MethodGet, "/v1/variants/"+v.ID, a.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &again)
	assert.Equal(t, v.Params, again.Params)

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, rec.Body.String(), `variants_reused_total{path="fast"} 1`)
}

func TestVariantAPI_ensure_errors(t *testing.T) {
	a := setup(t)
	other := a.db.AddCourse(course.Course{ShortName: "CS 102"})
	otherInstance := a.db.AddCourseInstance(course.CourseInstance{CourseID: other.ID})

	closedAI := a.db.AddAssessmentInstance(a.instance.ID)
	closedIQ := a.db.AddInstanceQuestion(closedAI, a.mcQuestion.ID, null.StringFrom("42"), null.String{})
	a.db.SetInstanceQuestionOpen(closedIQ, false)

	tests := []struct {
		name     string
		req      echoapi.EnsureVariantRequest
		wantCode int
		wantErr  string
	}{
		{
			name:     "unknown course",
			req:      echoapi.EnsureVariantRequest{QuestionID: a.mcQuestion.ID, CourseID: "999"},
			wantCode: http.StatusNotFound,
			wantErr:  "Course not found",
		},
		{
			name:     "unknown question",
			req:      echoapi.EnsureVariantRequest{QuestionID: "999", CourseID: a.course.ID},
			wantCode: http.StatusNotFound,
			wantErr:  "Question not found",
		},
		{
			name:     "closed instance question",
			req:      echoapi.EnsureVariantRequest{InstanceQuestionID: closedIQ, CourseID: a.course.ID},
			wantCode: http.StatusForbidden,
			wantErr:  "Instance question is not open",
		},
		{
			name:     "course instance of another course",
			req:      echoapi.EnsureVariantRequest{QuestionID: a.mcQuestion.ID, CourseID: a.course.ID, CourseInstanceID: otherInstance.ID},
			wantCode: http.StatusForbidden,
			wantErr:  "Course instance not found in course",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/v1/variants", a.token, tt.req)
			assert.Equal(t, tt.wantCode, rec.Code)
			var herr httpErr
			decode(t, rec, &herr)
			assert.Equal(t, tt.wantErr, herr.Error)
		})
	}

	t.Run("validation", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/v1/variants", a.token, echoapi.EnsureVariantRequest{CourseID: "abc"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Equal(t, "this field is required", fields["question_id"])
		assert.Equal(t, "this field is required", fields["instance_question_id"])
		assert.Equal(t, "course_id must be a numeric id", fields["course_id"])
	})

	rec := a.do(t, http.MethodGet, "/v1/variants/999", a.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var herr httpErr
	decode(t, rec, &herr)
	assert.Equal(t, "Variant not found", herr.Error)
}

func TestVariantAPI_files(t *testing.T) {
	a := setup(t)
	q := a.db.AddQuestion(question.Question{
		QID:      "upload",
		Type:     question.TypeFile,
		CourseID: a.course.ID,
		Options:  map[string]interface{}{"fileName": "notes.txt"},
	})

	rec := a.do(t, http.MethodPost, "/v1/variants", a.token, echoapi.EnsureVariantRequest{QuestionID: q.ID, CourseID: a.course.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v variant.Variant
	decode(t, rec, &v)
	assert.True(t, v.IsFloating())
	assert.False(t, v.Broken)

	rec = a.do(t, http.MethodGet, "/v1/variants/"+v.ID+"/files/notes.txt", a.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reference notes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	// unknown files are reported as issues
	rec = a.do(t, http.MethodGet, "/v1/variants/"+v.ID+"/files/other.txt", a.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/variants/"+v.ID+"/issues", a.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var issues []issue.Issue
	decode(t, rec, &issues)
	require.Len(t, issues, 1)
	assert.Equal(t, "Error creating file: other.txt", issues[0].StudentMessage)
	assert.False(t, issues[0].Fatal)
}

func TestVariantAPI_brokenVariant(t *testing.T) {
	a := setup(t)
	q := a.db.AddQuestion(question.Question{
		QID:      "broken",
		Type:     question.TypeMultipleChoice,
		CourseID: a.course.ID,
		Options:  map[string]interface{}{"text": "?"},
	})

	rec := a.do(t, http.MethodPost, "/v1/variants", a.token, echoapi.EnsureVariantRequest{QuestionID: q.ID, CourseID: a.course.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v variant.Variant
	decode(t, rec, &v)
	assert.True(t, v.Broken)

	rec = a.do(t, http.MethodGet, "/v1/variants/"+v.ID+"/issues", a.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var issues []issue.Issue
	decode(t, rec, &issues)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fatal)
	assert.True(t, issues[0].CourseCaused)
	assert.Equal(t, "Error creating question variant", issues[0].StudentMessage)
	assert.Equal(t, "options.correctAnswers must not be empty", issues[0].InstructorMessage)
}
