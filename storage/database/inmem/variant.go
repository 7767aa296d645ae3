package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

type variantRepository struct {
	db *DB
}

var _ variant.Repository = (*variantRepository)(nil) // interface compliance check

func NewVariantRepository(db *DB) *variantRepository {
	return &variantRepository{db: db}
}

// formatDate must be called with the db lock held.
func (repo *variantRepository) formatDate(v variant.Variant) variant.Variant {
	tz := ""
	if ci, ok := repo.db.courseInstances[v.CourseInstanceID.String]; ok && v.CourseInstanceID.Valid {
		tz = ci.DisplayTimezone
	}
	if tz == "" {
		tz = repo.db.courses[v.CourseID].DisplayTimezone
	}
	v.FormattedDate = core.FormatDateFullCompact(v.Date, tz)
	return v
}

func (repo *variantRepository) GetVariant(_ context.Context, id string, _ ...core.DBExecutor) (variant.Variant, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if v, ok := repo.db.variants[id]; ok {
		return repo.formatDate(v), nil
	}
	return variant.Variant{}, variant.ErrNotFound
}

func (repo *variantRepository) GetVariantForInstanceQuestion(_ context.Context, instanceQuestionID string, requireOpen bool, _ ...core.DBExecutor) (variant.Variant, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	// newest first
	for i := len(repo.db.variantOrder) - 1; i >= 0; i-- {
		v, ok := repo.db.variants[repo.db.variantOrder[i]]
		if !ok || v.InstanceQuestionID.String != instanceQuestionID || !v.InstanceQuestionID.Valid {
			continue
		}
		if v.Broken || (requireOpen && !v.Open) {
			continue
		}
		return repo.formatDate(v), nil
	}
	return variant.Variant{}, variant.ErrNotFound
}

func (repo *variantRepository) LockAssessmentInstanceForInstanceQuestion(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) error {
	repo.db.mu.RLock()
	iq, ok := repo.db.instanceQuestions[instanceQuestionID]
	var ai *assessmentInstance
	if ok {
		ai, ok = repo.db.assessmentInstances[iq.assessmentInstanceID]
	}
	repo.db.mu.RUnlock()
	if !ok {
		return variant.ErrInstanceQuestionNotFound
	}

	// outside a transaction the lock would be released right away
	if t := txFrom(exec); t != nil {
		return t.lock(ctx, ai)
	}
	return nil
}

func (repo *variantRepository) GetInstanceQuestionData(_ context.Context, instanceQuestionID string, _ ...core.DBExecutor) (variant.InstanceQuestionData, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	iq, ok := repo.db.instanceQuestions[instanceQuestionID]
	if !ok {
		return variant.InstanceQuestionData{}, variant.ErrInstanceQuestionNotFound
	}
	ai, ok := repo.db.assessmentInstances[iq.assessmentInstanceID]
	if !ok {
		return variant.InstanceQuestionData{}, variant.ErrInstanceQuestionNotFound
	}
	return variant.InstanceQuestionData{
		QuestionID:             iq.questionID,
		UserID:                 iq.userID,
		GroupID:                iq.groupID,
		AssessmentInstanceID:   ai.id,
		CourseInstanceID:       ai.courseInstanceID,
		InstanceQuestionOpen:   iq.open,
		AssessmentInstanceOpen: ai.open,
	}, nil
}

func (repo *variantRepository) NextVariantNumber(_ context.Context, instanceQuestionID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	maxNum := 0
	for _, v := range repo.db.variants {
		if v.InstanceQuestionID.Valid && v.InstanceQuestionID.String == instanceQuestionID && v.Number > maxNum {
			maxNum = v.Number
		}
	}
	return maxNum + 1, nil
}

func (repo *variantRepository) CreateVariant(_ context.Context, nv variant.NewVariant, exec ...core.DBExecutor) (variant.Variant, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// UNIQUE (instance_question_id, number)
	if nv.InstanceQuestionID.Valid {
		for _, v := range repo.db.variants {
			if v.InstanceQuestionID == nv.InstanceQuestionID && v.Number == nv.Number {
				return variant.Variant{}, errors.Errorf(
					"duplicate variant number %d for instance question %s", nv.Number, nv.InstanceQuestionID.String)
			}
		}
	}

	v := variant.Variant{
		ID:                  repo.db.nextID(),
		Date:                NowFunc().UTC(),
		VariantSeed:         nv.Seed,
		Params:              nv.Params,
		TrueAnswer:          nv.TrueAnswer,
		Options:             nv.Options,
		Broken:              nv.Broken,
		Open:                true,
		InstanceQuestionID:  nv.InstanceQuestionID,
		QuestionID:          nv.QuestionID,
		CourseInstanceID:    nv.CourseInstanceID,
		UserID:              nv.UserID,
		GroupID:             nv.GroupID,
		Number:              nv.Number,
		AuthnUserID:         nv.AuthnUserID,
		WorkspaceID:         nv.WorkspaceID,
		CourseID:            nv.CourseID,
		ClientFingerprintID: nv.ClientFingerprintID,
	}
	repo.db.variants[v.ID] = v
	repo.db.variantOrder = append(repo.db.variantOrder, v.ID)

	if t := txFrom(exec); t != nil {
		t.record(func() {
			delete(repo.db.variants, v.ID)
			repo.db.variantOrder = removeID(repo.db.variantOrder, v.ID)
		})
	}
	return repo.formatDate(v), nil
}

func removeID(ids []string, id string) []string {
	res := ids[:0]
	for _, i := range ids {
		if i != id {
			res = append(res, i)
		}
	}
	return res
}
