package questionsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

// mockable
var execCommand = exec.CommandContext

// worker functions
const (
	fnGenerate = "generate"
	fnPrepare  = "prepare"
	fnFile     = "file"
)

type (
	workerRequest struct {
		JobID      string                 `json:"job_id"`
		Fn         string                 `json:"fn"`
		Question   question.Question      `json:"question"`
		Course     course.Course          `json:"course"`
		Seed       string                 `json:"variant_seed"`
		Params     map[string]interface{} `json:"params,omitempty"`
		TrueAnswer map[string]interface{} `json:"true_answer,omitempty"`
		Options    map[string]interface{} `json:"options,omitempty"`
		Filename   string                 `json:"filename,omitempty"`
	}

	workerIssue struct {
		Message string                 `json:"message"`
		Fatal   bool                   `json:"fatal"`
		Data    map[string]interface{} `json:"data"`
	}

	workerResponse struct {
		Params     map[string]interface{} `json:"params"`
		TrueAnswer map[string]interface{} `json:"true_answer"`
		Options    map[string]interface{} `json:"options"`
		FileData   []byte                 `json:"file_data"` // base64 in JSON
		Issues     []workerIssue          `json:"issues"`
	}
)

// Freeform delegates to an external worker process speaking JSON over stdin/stdout.
// A worker that crashes or answers garbage produces a fatal course issue.
type Freeform struct {
	command []string
	logger  core.Logger
}

var (
	_ variant.QuestionModule = (*Freeform)(nil) // interface compliance check
	_ variant.FileGenerator  = (*Freeform)(nil)
)

func NewFreeform(command string, logger core.Logger) *Freeform {
	return &Freeform{command: strings.Fields(command), logger: logger}
}

// run executes one worker call. Failures of the worker itself are returned as a fatal issue;
// the error is only set when ctx is done.
func (m *Freeform) run(ctx context.Context, req workerRequest) ([]issue.CourseIssue, workerResponse, error) {
	var res workerResponse
	if len(m.command) == 0 {
		return []issue.CourseIssue{issue.New(errors.New("no worker command configured"), true)}, res, nil
	}

	req.JobID = uuid.New().String()
	in, err := json.Marshal(req)
	if err != nil {
		return nil, res, errors.Wrap(err, "encoding worker request")
	}

	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, m.command[0], m.command[1:]...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	data := map[string]interface{}{"job_id": req.JobID, "fn": req.Fn}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, res, ctx.Err()
		}
		data["stderr"] = stderr.String()
		m.logger.Debug("question worker failed", err, data)
		return []issue.CourseIssue{issue.New(errors.Wrap(err, "question worker failed"), true, data)}, res, nil
	}
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		data["stdout"] = stdout.String()
		return []issue.CourseIssue{issue.New(errors.Wrap(err, "invalid question worker output"), true, data)}, res, nil
	}

	issues := make([]issue.CourseIssue, 0, len(res.Issues))
	for _, wi := range res.Issues {
		issues = append(issues, issue.CourseIssue{Message: wi.Message, Fatal: wi.Fatal, Data: wi.Data})
	}
	return issues, res, nil
}

func (m *Freeform) Generate(ctx context.Context, q question.Question, c course.Course, seed string) ([]issue.CourseIssue, variant.ModuleData, error) {
	issues, res, err := m.run(ctx, workerRequest{Fn: fnGenerate, Question: q, Course: c, Seed: seed})
	return issues, variant.ModuleData{Params: res.Params, TrueAnswer: res.TrueAnswer, Options: res.Options}, err
}

func (m *Freeform) Prepare(ctx context.Context, q question.Question, c course.Course, content variant.Content) ([]issue.CourseIssue, variant.ModuleData, error) {
	issues, res, err := m.run(ctx, workerRequest{
		Fn:         fnPrepare,
		Question:   q,
		Course:     c,
		Seed:       content.Seed,
		Params:     content.Params,
		TrueAnswer: content.TrueAnswer,
		Options:    content.Options,
	})
	return issues, variant.ModuleData{Params: res.Params, TrueAnswer: res.TrueAnswer, Options: res.Options}, err
}

func (m *Freeform) File(ctx context.Context, filename string, v variant.Variant, q question.Question, c course.Course) ([]issue.CourseIssue, []byte, error) {
	issues, res, err := m.run(ctx, workerRequest{
		Fn:         fnFile,
		Question:   q,
		Course:     c,
		Seed:       v.VariantSeed,
		Params:     v.Params,
		TrueAnswer: v.TrueAnswer,
		Options:    v.Options,
		Filename:   filename,
	})
	return issues, res.FileData, err
}
