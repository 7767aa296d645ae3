package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/question"
)

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repository{exec: exec}}
}

type courseRow struct {
	ID              string `db:"id"`
	ShortName       string `db:"short_name"`
	Title           string `db:"title"`
	Path            string `db:"path"`
	DisplayTimezone string `db:"display_timezone"`
}

type courseInstanceRow struct {
	ID              string      `db:"id"`
	CourseID        string      `db:"course_id"`
	ShortName       string      `db:"short_name"`
	DisplayTimezone null.String `db:"display_timezone"`
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	var row courseRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `
		SELECT id, short_name, title, path, display_timezone
		FROM courses
		WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return course.Course(row), nil
}

func (repo courseRepository) GetCourseInstance(ctx context.Context, id string, exec ...core.DBExecutor) (course.CourseInstance, error) {
	var row courseInstanceRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `
		SELECT id, course_id, short_name, display_timezone
		FROM course_instances
		WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.CourseInstance{}, course.ErrInstanceNotFound
		}
		return course.CourseInstance{}, errors.Wrap(err, "selecting course instance")
	}
	return course.CourseInstance{
		ID:              row.ID,
		CourseID:        row.CourseID,
		ShortName:       row.ShortName,
		DisplayTimezone: row.DisplayTimezone.String,
	}, nil
}

type questionRepository struct {
	repository
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(exec core.DBExecutor) *questionRepository {
	return &questionRepository{repository{exec: exec}}
}

type questionRow struct {
	ID                   string         `db:"id"`
	QID                  string         `db:"qid"`
	Type                 string         `db:"type"`
	Title                string         `db:"title"`
	CourseID             string         `db:"course_id"`
	Options              types.JSONText `db:"options"`
	WorkspaceImage       null.String    `db:"workspace_image"`
	WorkspaceGradedFiles pq.StringArray `db:"workspace_graded_files"`
}

const questionColumns = `q.id, q.qid, q.type, q.title, q.course_id, q.options, q.workspace_image, q.workspace_graded_files`

func (repo questionRepository) unboil(row questionRow) (question.Question, error) {
	opts, err := unmarshalJSON(row.Options)
	if err != nil {
		return question.Question{}, err
	}
	return question.Question{
		ID:                   row.ID,
		QID:                  row.QID,
		Type:                 row.Type,
		Title:                row.Title,
		CourseID:             row.CourseID,
		Options:              opts,
		WorkspaceImage:       row.WorkspaceImage,
		WorkspaceGradedFiles: []string(row.WorkspaceGradedFiles),
	}, nil
}

func (repo questionRepository) get(ctx context.Context, exec core.DBExecutor, query string, arg string) (question.Question, error) {
	var row questionRow
	if err := sqlx.GetContext(ctx, exec, &row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, errors.Wrap(err, "selecting question")
	}
	return repo.unboil(row)
}

func (repo questionRepository) GetQuestion(ctx context.Context, id string, exec ...core.DBExecutor) (question.Question, error) {
	return repo.get(ctx, repo.getExec(exec), `
		SELECT `+questionColumns+`
		FROM questions AS q
		WHERE q.id = $1`, id)
}

func (repo questionRepository) GetQuestionByInstanceQuestion(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) (question.Question, error) {
	return repo.get(ctx, repo.getExec(exec), `
		SELECT `+questionColumns+`
		FROM instance_questions AS iq
		JOIN assessment_questions AS aq ON aq.id = iq.assessment_question_id
		JOIN questions AS q ON q.id = aq.question_id
		WHERE iq.id = $1`, instanceQuestionID)
}
