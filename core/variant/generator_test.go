package variant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
)

const stubType = "Stub"

func newTestGenerator(mod QuestionModule, opts ...GeneratorOption) *Generator {
	reg := NewRegistry()
	reg.Register(stubType, mod)
	return NewGenerator(reg, append([]GeneratorOption{WithRandSource(FixedRand(35))}, opts...)...)
}

func TestGenerator_NewSeed(t *testing.T) {
	tests := []struct {
		r    FixedRand
		want string
	}{
		{r: 0, want: "0"},
		{r: 35, want: "z"},
		{r: 36, want: "10"},
		{r: 4294967295, want: "1z141z3"},
	}
	for _, tt := range tests {
		g := NewGenerator(NewRegistry(), WithRandSource(tt.r))
		if got := g.NewSeed(); got != tt.want {
			t.Errorf("NewSeed() = %q, want %q", got, tt.want)
		}
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	q := question.Question{ID: "1", Type: stubType, CourseID: "1"}
	c := course.Course{ID: "1"}

	t.Run("explicit seed is used as is", func(t *testing.T) {
		mod := &StubModule{}
		issues, content, err := newTestGenerator(mod).Generate(ctx, q, c, "abc123")
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, "abc123", content.Seed)
		assert.Equal(t, "abc123", content.Params["seed"])
		assert.False(t, content.Broken)
		assert.NotNil(t, content.Options)

		gen, prep := mod.Calls()
		assert.Equal(t, 1, gen)
		assert.Equal(t, 1, prep)
	})

	t.Run("seed is drawn from the rand source", func(t *testing.T) {
		_, content, err := newTestGenerator(&StubModule{}).Generate(ctx, q, c, "")
		require.NoError(t, err)
		assert.Equal(t, "z", content.Seed)
	})

	t.Run("same seed regenerates the same content", func(t *testing.T) {
		g := newTestGenerator(&StubModule{})
		_, first, err := g.Generate(ctx, q, c, "abc123")
		require.NoError(t, err)
		_, second, err := g.Generate(ctx, q, c, "abc123")
		require.NoError(t, err)
		assert.Equal(t, first.Params, second.Params)
		assert.Equal(t, first.TrueAnswer, second.TrueAnswer)
	})

	t.Run("unknown question type", func(t *testing.T) {
		_, _, err := newTestGenerator(&StubModule{}).Generate(ctx, question.Question{ID: "2", Type: "Nope"}, c, "")
		assert.EqualError(t, err, `no question module for type "Nope"`)
	})

	t.Run("fatal generate issue skips prepare", func(t *testing.T) {
		mod := &StubModule{GenerateIssues: []issue.CourseIssue{{Message: "bad params", Fatal: true}}}
		issues, content, err := newTestGenerator(mod).Generate(ctx, q, c, "s")
		require.NoError(t, err)
		assert.True(t, content.Broken)
		assert.Len(t, issues, 1)
		_, prep := mod.Calls()
		assert.Equal(t, 0, prep)
	})

	t.Run("non fatal issue keeps variant usable", func(t *testing.T) {
		mod := &StubModule{GenerateIssues: []issue.CourseIssue{{Message: "deprecated"}}}
		issues, content, err := newTestGenerator(mod).Generate(ctx, q, c, "s")
		require.NoError(t, err)
		assert.False(t, content.Broken)
		assert.Len(t, issues, 1)
	})

	t.Run("prepare issues are appended and can break the variant", func(t *testing.T) {
		mod := &StubModule{
			GenerateIssues: []issue.CourseIssue{{Message: "first"}},
			PrepareIssues:  []issue.CourseIssue{{Message: "second", Fatal: true}},
		}
		issues, content, err := newTestGenerator(mod).Generate(ctx, q, c, "s")
		require.NoError(t, err)
		assert.True(t, content.Broken)
		require.Len(t, issues, 2)
		assert.Equal(t, "first", issues[0].Message)
		assert.Equal(t, "second", issues[1].Message)
	})

	t.Run("prepare output replaces generate output", func(t *testing.T) {
		mod := &StubModule{PrepareData: &ModuleData{Params: map[string]interface{}{"only": "prepared"}}}
		_, content, err := newTestGenerator(mod).Generate(ctx, q, c, "s")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"only": "prepared"}, content.Params)
		assert.Equal(t, map[string]interface{}{}, content.TrueAnswer)
		assert.Equal(t, map[string]interface{}{}, content.Options)
	})

	t.Run("module error", func(t *testing.T) {
		mod := &StubModule{GenerateErr: assert.AnError}
		_, _, err := newTestGenerator(mod).Generate(ctx, q, c, "s")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("slow module times out", func(t *testing.T) {
		mod := &StubModule{Delay: time.Second}
		_, _, err := newTestGenerator(mod, WithModuleTimeout(10*time.Millisecond)).Generate(ctx, q, c, "s")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestGenerator_Generate_workspace(t *testing.T) {
	ctx := context.Background()
	c := course.Course{ID: "1"}
	wsQuestion := question.Question{
		ID:                   "1",
		Type:                 stubType,
		CourseID:             "1",
		WorkspaceImage:       null.StringFrom("prairielearn/workspace-vscode"),
		WorkspaceGradedFiles: []string{"results/*.png", "report.pdf"},
	}

	t.Run("only static graded files are required", func(t *testing.T) {
		_, content, err := newTestGenerator(&StubModule{}).Generate(ctx, wsQuestion, c, "s")
		require.NoError(t, err)
		assert.Equal(t, []string{"report.pdf"}, content.Params[ParamWorkspaceRequiredFileNames])
		assert.Equal(t, []string{"report.pdf"}, content.Params[ParamRequiredFileNames])
	})

	t.Run("existing required files are kept first", func(t *testing.T) {
		mod := &existingFilesModule{StubModule: &StubModule{}}
		_, content, err := newTestGenerator(mod).Generate(ctx, wsQuestion, c, "s")
		require.NoError(t, err)
		assert.Equal(t, []string{"main.py", "report.pdf"}, content.Params[ParamRequiredFileNames])
	})

	t.Run("questions without workspace are untouched", func(t *testing.T) {
		q := wsQuestion
		q.WorkspaceImage = null.String{}
		_, content, err := newTestGenerator(&StubModule{}).Generate(ctx, q, c, "s")
		require.NoError(t, err)
		assert.NotContains(t, content.Params, ParamRequiredFileNames)
		assert.NotContains(t, content.Params, ParamWorkspaceRequiredFileNames)
	})
}

type existingFilesModule struct {
	*StubModule
}

func (m *existingFilesModule) Generate(ctx context.Context, q question.Question, c course.Course, seed string) ([]issue.CourseIssue, ModuleData, error) {
	issues, data, err := m.StubModule.Generate(ctx, q, c, seed)
	data.Params[ParamRequiredFileNames] = []interface{}{"main.py"}
	return issues, data, err
}

// sharedDataModule returns the same maps and issue slice on every call, like a module serving
// cached content.
type sharedDataModule struct {
	params  map[string]interface{}
	answer  map[string]interface{}
	issues  []issue.CourseIssue
	prepare []issue.CourseIssue
}

func newSharedDataModule() *sharedDataModule {
	issues := make([]issue.CourseIssue, 1, 4)
	issues[0] = issue.CourseIssue{Message: "deprecated"}
	return &sharedDataModule{
		params:  map[string]interface{}{"x": 1},
		answer:  map[string]interface{}{"x": 2},
		issues:  issues,
		prepare: []issue.CourseIssue{{Message: "prep"}},
	}
}

func (m *sharedDataModule) Generate(context.Context, question.Question, course.Course, string) ([]issue.CourseIssue, ModuleData, error) {
	return m.issues, ModuleData{Params: m.params, TrueAnswer: m.answer}, nil
}

func (m *sharedDataModule) Prepare(context.Context, question.Question, course.Course, Content) ([]issue.CourseIssue, ModuleData, error) {
	return m.prepare, ModuleData{Params: m.params, TrueAnswer: m.answer}, nil
}

func TestGenerator_Generate_moduleDataIsNotModified(t *testing.T) {
	ctx := context.Background()
	c := course.Course{ID: "1"}
	q := question.Question{
		ID:                   "1",
		Type:                 stubType,
		CourseID:             "1",
		WorkspaceImage:       null.StringFrom("prairielearn/workspace-vscode"),
		WorkspaceGradedFiles: []string{"a.py"},
	}
	mod := newSharedDataModule()
	g := newTestGenerator(mod)

	issues, content, err := g.Generate(ctx, q, c, "s")
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	assert.Equal(t, 1, content.Params["x"])

	assert.Equal(t, map[string]interface{}{"x": 1}, mod.params)
	assert.Equal(t, map[string]interface{}{"x": 2}, mod.answer)
	assert.Len(t, mod.issues, 1)
	assert.Equal(t, issue.CourseIssue{}, mod.issues[:2][1])

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, content, err := g.Generate(ctx, q, c, "s")
			assert.NoError(t, err)
			content.Params["y"] = true
		}()
	}
	wg.Wait()
	assert.NotContains(t, mod.params, "y")
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	mod := &StubModule{}
	reg.Register(stubType, mod)

	got, err := reg.Module(stubType)
	require.NoError(t, err)
	assert.Same(t, mod, got)

	_, err = reg.Module("Missing")
	assert.Error(t, err)
}
