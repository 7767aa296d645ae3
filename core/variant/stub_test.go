package variant

import (
	"context"
	"sync"
	"time"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
)

// StubModule is a deterministic question module: params and true answer only depend on the seed.
type StubModule struct {
	GenerateIssues []issue.CourseIssue
	PrepareIssues  []issue.CourseIssue
	GenerateErr    error
	Delay          time.Duration
	// PrepareData overrides what Prepare returns (default: the content it was given).
	PrepareData *ModuleData

	mu        sync.Mutex
	generated int
	prepared  int
}

func (m *StubModule) Generate(ctx context.Context, _ question.Question, _ course.Course, seed string) ([]issue.CourseIssue, ModuleData, error) {
	m.mu.Lock()
	m.generated++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ModuleData{}, ctx.Err()
		}
	}
	if m.GenerateErr != nil {
		return nil, ModuleData{}, m.GenerateErr
	}
	data := ModuleData{
		Params:     map[string]interface{}{"seed": seed, "n": len(seed)},
		TrueAnswer: map[string]interface{}{"answer": seed + "!"},
	}
	return m.GenerateIssues, data, nil
}

func (m *StubModule) Prepare(_ context.Context, _ question.Question, _ course.Course, content Content) ([]issue.CourseIssue, ModuleData, error) {
	m.mu.Lock()
	m.prepared++
	m.mu.Unlock()

	if m.PrepareData != nil {
		return m.PrepareIssues, *m.PrepareData, nil
	}
	return m.PrepareIssues, ModuleData{Params: content.Params, TrueAnswer: content.TrueAnswer, Options: content.Options}, nil
}

func (m *StubModule) Calls() (generated, prepared int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generated, m.prepared
}

// StubFileModule also serves files.
type StubFileModule struct {
	StubModule
	FileIssues []issue.CourseIssue
}

func (m *StubFileModule) File(_ context.Context, filename string, v Variant, _ question.Question, c course.Course) ([]issue.CourseIssue, []byte, error) {
	return m.FileIssues, []byte(filename + "@" + v.ID + "@" + c.ID), nil
}

// FixedRand always returns the same value.
type FixedRand uint32

func (r FixedRand) Uint32() uint32 { return uint32(r) }

// StubIssueWriter records what it is given.
type StubIssueWriter struct {
	Err error

	mu       sync.Mutex
	Written  []issue.CourseIssue
	Contexts []issue.Context
}

func (w *StubIssueWriter) WriteCourseIssues(_ context.Context, issues []issue.CourseIssue, ic issue.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Written = append(w.Written, issues...)
	w.Contexts = append(w.Contexts, ic)
	return w.Err
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
