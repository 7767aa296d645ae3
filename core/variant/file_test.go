package variant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

func TestService_GetDynamicFile(t *testing.T) {
	ctx := context.Background()

	t.Run("question type without file support", func(t *testing.T) {
		f := setup(t, &variant.StubModule{})
		v, err := f.svc.EnsureVariant(ctx, f.floatingParams())
		require.NoError(t, err)

		_, err = f.svc.GetDynamicFile(ctx, variant.FileParams{
			Filename:      "plot.png",
			Variant:       v,
			Question:      f.question,
			VariantCourse: f.course,
			UserID:        f.userID,
			AuthnUserID:   "7",
		})
		assert.EqualError(t, err, "Question type Stub does not support file generation")
	})

	t.Run("file of an imported question", func(t *testing.T) {
		f := setup(t, &variant.StubModule{})
		f.fileMod.FileIssues = []issue.CourseIssue{{Message: "plot is empty"}}
		shared := f.db.AddCourse(course.Course{ShortName: "shared"})
		q := f.db.AddQuestion(question.Question{QID: "plot", Type: stubFileType, CourseID: shared.ID})

		p := f.floatingParams()
		p.QuestionID = q.ID
		v, err := f.svc.EnsureVariant(ctx, p)
		require.NoError(t, err)

		data, err := f.svc.GetDynamicFile(ctx, variant.FileParams{
			Filename:      "plot.png",
			Variant:       v,
			Question:      q,
			VariantCourse: f.course,
			UserID:        f.userID,
			AuthnUserID:   "7",
		})
		require.NoError(t, err)
		// generated against the course owning the question
		assert.Equal(t, "plot.png@"+v.ID+"@"+shared.ID, string(data))

		require.Len(t, f.sink.Contexts, 1)
		assert.Equal(t, "Error creating file: plot.png", f.sink.Contexts[0].StudentMessage)
		assert.Equal(t, v.ID, f.sink.Contexts[0].VariantID)
	})
}
