package questionsvc

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type mapStore map[string]string

func (s mapStore) ReadFile(_ context.Context, c course.Course, p string) ([]byte, error) {
	b, ok := s[c.Path+"/"+p]
	if !ok {
		return nil, course.ErrFileNotFound
	}
	return []byte(b), nil
}

func mcQuestion() question.Question {
	return question.Question{
		ID:   "1",
		QID:  "capitals",
		Type: question.TypeMultipleChoice,
		Options: map[string]interface{}{
			"text":             "Capital of France?",
			"correctAnswers":   []interface{}{"Paris"},
			"incorrectAnswers": []interface{}{"Lyon", "Nice", "Lille", "Brest", "Metz"},
			"numberAnswers":    4.0,
		},
	}
}

func TestMultipleChoice_Generate(t *testing.T) {
	ctx := context.Background()
	mc := MultipleChoice{}
	q := mcQuestion()

	issues, data, err := mc.Generate(ctx, q, course.Course{}, "1z141z3")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "Capital of France?", data.Params["text"])

	answers := data.Params["answers"].([]interface{})
	require.Len(t, answers, 4)
	assert.Equal(t, "Paris", data.TrueAnswer["text"])

	var found bool
	for i, a := range answers {
		ans := a.(map[string]interface{})
		assert.Equal(t, string(rune('a'+i)), ans["key"])
		if ans["key"] == data.TrueAnswer["key"] {
			assert.Equal(t, "Paris", ans["text"])
			found = true
		}
	}
	assert.True(t, found, "true answer key is not among the answers")

	_, again, err := mc.Generate(ctx, q, course.Course{}, "1z141z3")
	require.NoError(t, err)
	assert.Equal(t, data, again, "same seed must give the same variant")

	// prepare keeps the content
	_, prepared, err := mc.Prepare(ctx, q, course.Course{}, variant.Content{Params: data.Params, TrueAnswer: data.TrueAnswer})
	require.NoError(t, err)
	assert.Equal(t, data.Params, prepared.Params)
}

func TestMultipleChoice_Generate_invalidOptions(t *testing.T) {
	q := mcQuestion()
	delete(q.Options, "correctAnswers")

	issues, _, err := MultipleChoice{}.Generate(context.Background(), q, course.Course{}, "abc")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fatal)

	q = mcQuestion()
	q.Options["numberAnswers"] = 50.0
	_, data, err := MultipleChoice{}.Generate(context.Background(), q, course.Course{}, "abc")
	require.NoError(t, err)
	assert.Len(t, data.Params["answers"], 6)
}

func TestFile(t *testing.T) {
	ctx := context.Background()
	store := mapStore{"cs101/questions/upload/report.txt": "reference"}
	m := NewFile(store)
	c := course.Course{ID: "1", Path: "cs101"}
	q := question.Question{ID: "2", QID: "upload", Type: question.TypeFile, Options: map[string]interface{}{"fileName": "report.txt"}}

	issues, data, err := m.Generate(ctx, q, c, "s")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "report.txt", data.Params["fileName"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("reference")), data.TrueAnswer["fileData"])

	v := variant.Variant{ID: "9", Params: data.Params}
	issues, b, err := m.File(ctx, "report.txt", v, q, c)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "reference", string(b))

	issues, b, err = m.File(ctx, "other.txt", v, q, c)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.False(t, issues[0].Fatal)
	assert.Nil(t, b)

	q.Options["fileName"] = "missing.txt"
	issues, _, err = m.Generate(ctx, q, c, "s")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fatal)
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(mapStore{}, &core.Config{}, nopLogger{})
	for _, qType := range []string{question.TypeMultipleChoice, question.TypeFile, question.TypeFreeform} {
		_, err := r.Module(qType)
		assert.NoError(t, err, qType)
	}
	_, err := r.Module("Calculation")
	assert.Error(t, err)
}
