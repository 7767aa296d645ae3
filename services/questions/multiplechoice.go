package questionsvc

import (
	"context"
	"hash/fnv"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

// Answer is one choice shown to the student.
type Answer struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// MultipleChoice picks one correct answer and numberAnswers-1 incorrect ones from the
// question options and shuffles them. The same seed always yields the same variant.
//
// options: {"text", "correctAnswers": [...], "incorrectAnswers": [...], "numberAnswers"}
type MultipleChoice struct{}

var _ variant.QuestionModule = MultipleChoice{} // interface compliance check

// seededRand returns a generator fully determined by seed.
func seededRand(seed string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

func (MultipleChoice) Generate(_ context.Context, q question.Question, _ course.Course, seed string) ([]issue.CourseIssue, variant.ModuleData, error) {
	var data variant.ModuleData

	correct := stringsOption(q.Options, "correctAnswers")
	incorrect := stringsOption(q.Options, "incorrectAnswers")
	if len(correct) == 0 {
		return []issue.CourseIssue{issue.New(errors.New("options.correctAnswers must not be empty"), true)}, data, nil
	}

	n := len(incorrect) + 1
	if v, ok := q.Options["numberAnswers"].(float64); ok && int(v) >= 1 && int(v) <= n {
		n = int(v)
	}

	r := seededRand(seed)
	r.Shuffle(len(incorrect), func(i, j int) { incorrect[i], incorrect[j] = incorrect[j], incorrect[i] })
	chosen := append([]string{correct[r.IntN(len(correct))]}, incorrect[:n-1]...)
	correctText := chosen[0]
	r.Shuffle(len(chosen), func(i, j int) { chosen[i], chosen[j] = chosen[j], chosen[i] })

	answers := make([]interface{}, len(chosen))
	var trueAnswer Answer
	for i, text := range chosen {
		a := Answer{Key: string(rune('a' + i)), Text: text}
		if text == correctText && trueAnswer.Key == "" {
			trueAnswer = a
		}
		answers[i] = map[string]interface{}{"key": a.Key, "text": a.Text}
	}

	text, _ := q.Options["text"].(string)
	data.Params = map[string]interface{}{"text": text, "answers": answers}
	data.TrueAnswer = map[string]interface{}{"key": trueAnswer.Key, "text": trueAnswer.Text}
	data.Options = map[string]interface{}{}
	return nil, data, nil
}

func (MultipleChoice) Prepare(_ context.Context, _ question.Question, _ course.Course, content variant.Content) ([]issue.CourseIssue, variant.ModuleData, error) {
	return nil, variant.ModuleData{Params: content.Params, TrueAnswer: content.TrueAnswer, Options: content.Options}, nil
}

// stringsOption reads a JSON array of strings from options. Non-string entries are skipped.
func stringsOption(options map[string]interface{}, key string) []string {
	raw, _ := options[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
