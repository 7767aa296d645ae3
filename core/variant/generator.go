package variant

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/workspace"
)

// params keys filled in for workspace questions
const (
	ParamRequiredFileNames          = "_required_file_names"
	ParamWorkspaceRequiredFileNames = "_workspace_required_file_names"
)

// RandSource provides the entropy new seeds are drawn from.
type RandSource interface {
	Uint32() uint32
}

type globalRand struct{}

func (globalRand) Uint32() uint32 { return rand.Uint32() }

type (
	Generator struct {
		registry *Registry
		rand     RandSource
		globOpts workspace.GlobOptions
		timeout  time.Duration
		metrics  Metrics
	}

	GeneratorOption func(*Generator)
)

func WithRandSource(r RandSource) GeneratorOption {
	return func(g *Generator) { g.rand = r }
}

func WithGlobOptions(opts workspace.GlobOptions) GeneratorOption {
	return func(g *Generator) { g.globOpts = opts }
}

// WithModuleTimeout bounds every question module call. Zero disables the bound.
func WithModuleTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

func WithGeneratorMetrics(m Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

func NewGenerator(registry *Registry, opts ...GeneratorOption) *Generator {
	g := &Generator{
		registry: registry,
		rand:     globalRand{},
		globOpts: workspace.DefaultGlobOptions,
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSeed returns a fresh base-36 seed built from 32 random bits.
func (g *Generator) NewSeed() string {
	return strconv.FormatUint(uint64(g.rand.Uint32()), 36)
}

// Generate builds the content of a new variant of q. Problems with the question content are
// reported as issues (a fatal one marks the content broken); the error is reserved for failures
// to reach the question module at all.
func (g *Generator) Generate(ctx context.Context, q question.Question, c course.Course, seed string) ([]issue.CourseIssue, Content, error) {
	started := time.Now()
	if seed == "" {
		seed = g.NewSeed()
	}

	mod, err := g.registry.Module(q.Type)
	if err != nil {
		return nil, Content{}, err
	}

	issues, data, err := g.call(ctx, func(ctx context.Context) ([]issue.CourseIssue, ModuleData, error) {
		return mod.Generate(ctx, q, c, seed)
	})
	if err != nil {
		return nil, Content{}, errors.Wrapf(err, "generating variant of question %s", q.ID)
	}

	content := newContent(seed, data, issue.AnyFatal(issues))
	if q.HasWorkspace() {
		g.addWorkspaceFiles(q, content.Params)
	}

	if !content.Broken {
		prepIssues, prepData, err := g.call(ctx, func(ctx context.Context) ([]issue.CourseIssue, ModuleData, error) {
			return mod.Prepare(ctx, q, c, content)
		})
		if err != nil {
			return nil, Content{}, errors.Wrapf(err, "preparing variant of question %s", q.ID)
		}
		issues = append(append([]issue.CourseIssue(nil), issues...), prepIssues...)
		content = newContent(seed, prepData, issue.AnyFatal(issues))
	}

	g.metrics.ObserveGeneration(q.Type, time.Since(started), content.Broken)
	return issues, content, nil
}

// newContent copies the module's maps so that modules may return shared data.
func newContent(seed string, data ModuleData, broken bool) Content {
	return Content{
		Seed:       seed,
		Params:     copyMap(data.Params),
		TrueAnswer: copyMap(data.TrueAnswer),
		Options:    copyMap(data.Options),
		Broken:     broken,
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

func (g *Generator) addWorkspaceFiles(q question.Question, params map[string]interface{}) {
	wsFiles := workspace.StaticPatterns(q.WorkspaceGradedFiles, g.globOpts)
	params[ParamWorkspaceRequiredFileNames] = wsFiles

	required := toStrings(params[ParamRequiredFileNames])
	params[ParamRequiredFileNames] = append(required, wsFiles...)
}

func toStrings(val interface{}) []string {
	switch vals := val.(type) {
	case []string:
		return append([]string{}, vals...)
	case []interface{}:
		res := make([]string, 0, len(vals))
		for _, v := range vals {
			if s, ok := v.(string); ok {
				res = append(res, s)
			} else {
				res = append(res, fmt.Sprint(v))
			}
		}
		return res
	default:
		return []string{}
	}
}

type moduleResult[T any] struct {
	issues []issue.CourseIssue
	data   T
	err    error
}

// call runs fn, giving up once the module timeout expires even if fn ignores ctx.
func (g *Generator) call(ctx context.Context, fn func(ctx context.Context) ([]issue.CourseIssue, ModuleData, error)) ([]issue.CourseIssue, ModuleData, error) {
	return callWithTimeout(ctx, g.timeout, fn)
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) ([]issue.CourseIssue, T, error)) ([]issue.CourseIssue, T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan moduleResult[T], 1)
	go func() {
		issues, data, err := fn(ctx)
		done <- moduleResult[T]{issues: issues, data: data, err: err}
	}()

	select {
	case res := <-done:
		return res.issues, res.data, res.err
	case <-ctx.Done():
		var zero T
		return nil, zero, errors.Wrap(ctx.Err(), "question module did not answer in time")
	}
}
