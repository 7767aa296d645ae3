package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/issue"
)

type issueRepository struct {
	repository
}

var _ issue.Repository = (*issueRepository)(nil) // interface compliance check

func NewIssueRepository(exec core.DBExecutor) *issueRepository {
	return &issueRepository{repository{exec: exec}}
}

type issueRow struct {
	ID                string             `db:"id"`
	Date              time.Time          `db:"date"`
	StudentMessage    null.String        `db:"student_message"`
	InstructorMessage null.String        `db:"instructor_message"`
	CourseCaused      bool               `db:"course_caused"`
	Fatal             bool               `db:"fatal"`
	CourseData        types.NullJSONText `db:"course_data"`
	SystemData        types.NullJSONText `db:"system_data"`
	VariantID         null.String        `db:"variant_id"`
	CourseID          null.String        `db:"course_id"`
	CourseInstanceID  null.String        `db:"course_instance_id"`
	QuestionID        null.String        `db:"question_id"`
	UserID            null.String        `db:"user_id"`
	AuthnUserID       null.String        `db:"authn_user_id"`
}

func (repo issueRepository) unboil(row issueRow) (issue.Issue, error) {
	iss := issue.Issue{
		ID:                row.ID,
		Date:              row.Date.UTC(),
		StudentMessage:    row.StudentMessage.String,
		InstructorMessage: row.InstructorMessage.String,
		CourseCaused:      row.CourseCaused,
		Fatal:             row.Fatal,
		VariantID:         row.VariantID,
		CourseID:          row.CourseID,
		CourseInstanceID:  row.CourseInstanceID,
		QuestionID:        row.QuestionID,
		UserID:            row.UserID,
		AuthnUserID:       row.AuthnUserID,
	}
	var err error
	if row.CourseData.Valid {
		if iss.CourseData, err = unmarshalJSON(row.CourseData.JSONText); err != nil {
			return issue.Issue{}, err
		}
	}
	if row.SystemData.Valid {
		if iss.SystemData, err = unmarshalJSON(row.SystemData.JSONText); err != nil {
			return issue.Issue{}, err
		}
	}
	return iss, nil
}

func (repo issueRepository) CreateIssues(ctx context.Context, issues []issue.Issue, exec ...core.DBExecutor) ([]issue.Issue, error) {
	created := make([]issue.Issue, 0, len(issues))
	for _, iss := range issues {
		courseData, err := marshalJSON(iss.CourseData)
		if err != nil {
			return nil, err
		}
		systemData, err := marshalJSON(iss.SystemData)
		if err != nil {
			return nil, err
		}

		var row issueRow
		err = sqlx.GetContext(ctx, repo.getExec(exec), &row, `
			INSERT INTO issues (
				date, student_message, instructor_message, course_caused, fatal, course_data, system_data,
				variant_id, course_id, course_instance_id, question_id, user_id, authn_user_id
			)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10, $11, $12, $13)
			RETURNING *`,
			iss.Date, nullString(iss.StudentMessage), nullString(iss.InstructorMessage), iss.CourseCaused, iss.Fatal,
			courseData, systemData,
			iss.VariantID, iss.CourseID, iss.CourseInstanceID, iss.QuestionID, iss.UserID, iss.AuthnUserID,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting issue")
		}
		saved, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		created = append(created, saved)
	}
	return created, nil
}

func (repo issueRepository) QueryIssuesForVariant(ctx context.Context, variantID string, exec ...core.DBExecutor) ([]issue.Issue, error) {
	var rows []issueRow
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, `
		SELECT *
		FROM issues
		WHERE variant_id = $1
		ORDER BY date DESC, id DESC`, variantID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting issues")
	}

	issues := make([]issue.Issue, 0, len(rows))
	for _, row := range rows {
		iss, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		issues = append(issues, iss)
	}
	return issues, nil
}
