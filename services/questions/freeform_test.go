package questionsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

// fakeExecCommand runs TestHelperProcess in place of the worker.
func fakeExecCommand(ctx context.Context, command string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", command}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

// TestHelperProcess is a fake question worker; it behaves according to the question qid.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	var req workerRequest
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var res workerResponse
	switch req.Question.QID {
	case "crash":
		fmt.Fprint(os.Stderr, "Traceback: ZeroDivisionError")
		os.Exit(1)
	case "garbage":
		fmt.Print("not json")
		return
	case "slow":
		time.Sleep(10 * time.Second)
	case "warn":
		res.Issues = []workerIssue{{Message: "deprecated option", Data: map[string]interface{}{"option": "x"}}}
	}

	switch req.Fn {
	case fnGenerate:
		res.Params = map[string]interface{}{"seed": req.Seed}
		res.TrueAnswer = map[string]interface{}{"x": 3.0}
	case fnPrepare:
		res.Params = req.Params
		res.Params["prepared"] = true
		res.TrueAnswer = req.TrueAnswer
	case fnFile:
		res.FileData = []byte(req.Filename + ":" + req.Seed)
	}
	_ = json.NewEncoder(os.Stdout).Encode(res)
}

func newTestFreeform(t *testing.T) *Freeform {
	t.Helper()
	execCommand = fakeExecCommand
	t.Cleanup(func() { execCommand = exec.CommandContext })
	return NewFreeform("python3 worker.py", nopLogger{})
}

func TestFreeform(t *testing.T) {
	m := newTestFreeform(t)
	ctx := context.Background()
	q := question.Question{ID: "3", QID: "warn", Type: question.TypeFreeform}

	issues, data, err := m.Generate(ctx, q, course.Course{}, "abc")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.False(t, issues[0].Fatal)
	assert.Equal(t, "deprecated option", issues[0].Message)
	assert.Equal(t, "abc", data.Params["seed"])

	_, data, err = m.Prepare(ctx, q, course.Course{}, variant.Content{Seed: "abc", Params: data.Params, TrueAnswer: data.TrueAnswer})
	require.NoError(t, err)
	assert.Equal(t, true, data.Params["prepared"])
	assert.Equal(t, 3.0, data.TrueAnswer["x"])

	_, b, err := m.File(ctx, "plot.png", variant.Variant{VariantSeed: "abc"}, q, course.Course{})
	require.NoError(t, err)
	assert.Equal(t, "plot.png:abc", string(b))
}

func TestFreeform_workerFailures(t *testing.T) {
	m := newTestFreeform(t)
	ctx := context.Background()

	issues, _, err := m.Generate(ctx, question.Question{QID: "crash"}, course.Course{}, "abc")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fatal)
	assert.Contains(t, issues[0].Data["stderr"], "ZeroDivisionError")

	issues, _, err = m.Generate(ctx, question.Question{QID: "garbage"}, course.Course{}, "abc")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fatal)
	assert.Equal(t, "not json", issues[0].Data["stdout"])

	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, _, err = m.Generate(ctx, question.Question{QID: "slow"}, course.Course{}, "abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	issues, _, err = NewFreeform("", nopLogger{}).Generate(context.Background(), question.Question{}, course.Course{}, "abc")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fatal)
}
