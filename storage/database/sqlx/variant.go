package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

type variantRepository struct {
	repository
}

var _ variant.Repository = (*variantRepository)(nil) // interface compliance check

func NewVariantRepository(exec core.DBExecutor) *variantRepository {
	return &variantRepository{repository{exec: exec}}
}

type variantRow struct {
	ID                  string         `db:"id"`
	Date                time.Time      `db:"date"`
	VariantSeed         string         `db:"variant_seed"`
	Params              types.JSONText `db:"params"`
	TrueAnswer          types.JSONText `db:"true_answer"`
	Options             types.JSONText `db:"options"`
	Broken              bool           `db:"broken"`
	Open                bool           `db:"open"`
	InstanceQuestionID  null.String    `db:"instance_question_id"`
	QuestionID          string         `db:"question_id"`
	CourseInstanceID    null.String    `db:"course_instance_id"`
	UserID              null.String    `db:"user_id"`
	GroupID             null.String    `db:"group_id"`
	Number              int            `db:"number"`
	AuthnUserID         string         `db:"authn_user_id"`
	WorkspaceID         null.String    `db:"workspace_id"`
	CourseID            string         `db:"course_id"`
	ClientFingerprintID null.String    `db:"client_fingerprint_id"`
	DisplayTimezone     null.String    `db:"display_timezone"`
}

// variantSelect reads variants aliased as v, with the timezone their date is displayed in.
const variantSelect = `
	SELECT v.id, v.date, v.variant_seed, v.params, v.true_answer, v.options, v.broken, v.open,
		v.instance_question_id, v.question_id, v.course_instance_id, v.user_id, v.group_id,
		v.number, v.authn_user_id, v.workspace_id, v.course_id, v.client_fingerprint_id,
		COALESCE(ci.display_timezone, c.display_timezone) AS display_timezone
	FROM %s AS v
	JOIN courses AS c ON c.id = v.course_id
	LEFT JOIN course_instances AS ci ON ci.id = v.course_instance_id`

func selectVariantsFrom(table string) string {
	return fmt.Sprintf(variantSelect, table)
}

func (repo variantRepository) unboil(row variantRow) (variant.Variant, error) {
	params, err := unmarshalJSON(row.Params)
	if err != nil {
		return variant.Variant{}, err
	}
	trueAnswer, err := unmarshalJSON(row.TrueAnswer)
	if err != nil {
		return variant.Variant{}, err
	}
	options, err := unmarshalJSON(row.Options)
	if err != nil {
		return variant.Variant{}, err
	}
	return variant.Variant{
		ID:                  row.ID,
		Date:                row.Date.UTC(),
		FormattedDate:       core.FormatDateFullCompact(row.Date, row.DisplayTimezone.String),
		VariantSeed:         row.VariantSeed,
		Params:              params,
		TrueAnswer:          trueAnswer,
		Options:             options,
		Broken:              row.Broken,
		Open:                row.Open,
		InstanceQuestionID:  row.InstanceQuestionID,
		QuestionID:          row.QuestionID,
		CourseInstanceID:    row.CourseInstanceID,
		UserID:              row.UserID,
		GroupID:             row.GroupID,
		Number:              row.Number,
		AuthnUserID:         row.AuthnUserID,
		WorkspaceID:         row.WorkspaceID,
		CourseID:            row.CourseID,
		ClientFingerprintID: row.ClientFingerprintID,
	}, nil
}

func (repo variantRepository) get(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (variant.Variant, error) {
	var row variantRow
	if err := sqlx.GetContext(ctx, exec, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return variant.Variant{}, variant.ErrNotFound
		}
		return variant.Variant{}, errors.Wrap(err, "selecting variant")
	}
	return repo.unboil(row)
}

func (repo variantRepository) GetVariant(ctx context.Context, id string, exec ...core.DBExecutor) (variant.Variant, error) {
	return repo.get(ctx, repo.getExec(exec), selectVariantsFrom("variants")+`
		WHERE v.id = $1`, id)
}

func (repo variantRepository) GetVariantForInstanceQuestion(ctx context.Context, instanceQuestionID string, requireOpen bool, exec ...core.DBExecutor) (variant.Variant, error) {
	return repo.get(ctx, repo.getExec(exec), selectVariantsFrom("variants")+`
		WHERE v.instance_question_id = $1
			AND (NOT $2::boolean OR v.open)
			AND NOT v.broken
		ORDER BY v.date DESC, v.id DESC
		LIMIT 1`, instanceQuestionID, requireOpen)
}

func (repo variantRepository) LockAssessmentInstanceForInstanceQuestion(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) error {
	var aiID string
	err := sqlx.GetContext(ctx, repo.getExec(exec), &aiID, `
		SELECT ai.id
		FROM instance_questions AS iq
		JOIN assessment_instances AS ai ON ai.id = iq.assessment_instance_id
		WHERE iq.id = $1
		FOR NO KEY UPDATE OF ai`, instanceQuestionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return variant.ErrInstanceQuestionNotFound
		}
		return errors.Wrap(err, "locking assessment instance")
	}
	return nil
}

type instanceQuestionRow struct {
	QuestionID             string      `db:"question_id"`
	UserID                 null.String `db:"user_id"`
	GroupID                null.String `db:"group_id"`
	AssessmentInstanceID   string      `db:"assessment_instance_id"`
	CourseInstanceID       string      `db:"course_instance_id"`
	InstanceQuestionOpen   bool        `db:"instance_question_open"`
	AssessmentInstanceOpen bool        `db:"assessment_instance_open"`
}

func (repo variantRepository) GetInstanceQuestionData(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) (variant.InstanceQuestionData, error) {
	var row instanceQuestionRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `
		SELECT aq.question_id, ai.user_id, ai.group_id, ai.id AS assessment_instance_id,
			a.course_instance_id, iq.open AS instance_question_open, ai.open AS assessment_instance_open
		FROM instance_questions AS iq
		JOIN assessment_questions AS aq ON aq.id = iq.assessment_question_id
		JOIN assessment_instances AS ai ON ai.id = iq.assessment_instance_id
		JOIN assessments AS a ON a.id = ai.assessment_id
		WHERE iq.id = $1`, instanceQuestionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return variant.InstanceQuestionData{}, variant.ErrInstanceQuestionNotFound
		}
		return variant.InstanceQuestionData{}, errors.Wrap(err, "selecting instance question data")
	}
	return variant.InstanceQuestionData(row), nil
}

func (repo variantRepository) NextVariantNumber(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) (int, error) {
	var num int
	err := sqlx.GetContext(ctx, repo.getExec(exec), &num, `
		SELECT COALESCE(max(number), 0) + 1
		FROM variants
		WHERE instance_question_id = $1`, instanceQuestionID)
	if err != nil {
		return 0, errors.Wrap(err, "selecting next variant number")
	}
	return num, nil
}

func (repo variantRepository) CreateVariant(ctx context.Context, nv variant.NewVariant, exec ...core.DBExecutor) (variant.Variant, error) {
	params, err := marshalJSON(nv.Params)
	if err != nil {
		return variant.Variant{}, err
	}
	trueAnswer, err := marshalJSON(nv.TrueAnswer)
	if err != nil {
		return variant.Variant{}, err
	}
	options, err := marshalJSON(nv.Options)
	if err != nil {
		return variant.Variant{}, err
	}

	v, err := repo.get(ctx, repo.getExec(exec), `
		WITH inserted AS (
			INSERT INTO variants (
				variant_seed, params, true_answer, options, broken,
				instance_question_id, question_id, course_instance_id, user_id, group_id,
				number, authn_user_id, workspace_id, course_id, client_fingerprint_id
			)
			VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING *
		)`+selectVariantsFrom("inserted"),
		nv.Seed, params, trueAnswer, options, nv.Broken,
		nv.InstanceQuestionID, nv.QuestionID, nv.CourseInstanceID, nv.UserID, nv.GroupID,
		nv.Number, nv.AuthnUserID, nv.WorkspaceID, nv.CourseID, nv.ClientFingerprintID,
	)
	if err != nil {
		return variant.Variant{}, errors.Wrap(err, "inserting variant")
	}
	return v, nil
}
