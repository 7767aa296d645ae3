package variant

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
)

var (
	// errors
	ErrNotFound                 = errors.New("variant not found")
	ErrInstanceQuestionNotFound = errors.New("instance question not found")
)

// Variant is one concrete instantiation of a question.
type Variant struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	FormattedDate string    `json:"formatted_date"` // in the course instance (or course) timezone

	VariantSeed string                 `json:"variant_seed"`
	Params      map[string]interface{} `json:"params"`
	TrueAnswer  map[string]interface{} `json:"true_answer"`
	Options     map[string]interface{} `json:"options"`
	Broken      bool                   `json:"broken"`
	Open        bool                   `json:"open"`

	InstanceQuestionID  null.String `json:"instance_question_id"` // null for floating variants
	QuestionID          string      `json:"question_id"`
	CourseInstanceID    null.String `json:"course_instance_id"`
	UserID              null.String `json:"user_id"`
	GroupID             null.String `json:"group_id"`
	Number              int         `json:"number"`
	AuthnUserID         string      `json:"authn_user_id"`
	WorkspaceID         null.String `json:"workspace_id"`
	CourseID            string      `json:"course_id"`
	ClientFingerprintID null.String `json:"client_fingerprint_id"`
}

// IsFloating reports whether the variant is not tied to an instance question.
func (v Variant) IsFloating() bool {
	return !v.InstanceQuestionID.Valid
}

// Content is the in-memory result of generating a variant.
type Content struct {
	Seed       string                 `json:"variant_seed"`
	Params     map[string]interface{} `json:"params"`
	TrueAnswer map[string]interface{} `json:"true_answer"`
	Options    map[string]interface{} `json:"options"`
	Broken     bool                   `json:"broken"`
}

// NewVariant holds every resolved field needed to insert a variant row.
type NewVariant struct {
	Content
	InstanceQuestionID  null.String
	QuestionID          string
	CourseInstanceID    null.String
	UserID              null.String
	GroupID             null.String
	Number              int
	AuthnUserID         string
	WorkspaceID         null.String
	CourseID            string
	ClientFingerprintID null.String
}

// InstanceQuestionData is the instance question context read under the assessment instance lock.
type InstanceQuestionData struct {
	QuestionID             string
	UserID                 null.String
	GroupID                null.String
	AssessmentInstanceID   string
	CourseInstanceID       string
	InstanceQuestionOpen   bool
	AssessmentInstanceOpen bool
}

type Repository interface {
	GetVariant(ctx context.Context, id string, exec ...core.DBExecutor) (Variant, error)
	// GetVariantForInstanceQuestion returns the newest non-broken variant of the instance question.
	// When requireOpen is set, only open variants are considered. ErrNotFound if there is none.
	GetVariantForInstanceQuestion(ctx context.Context, instanceQuestionID string, requireOpen bool, exec ...core.DBExecutor) (Variant, error)
	// LockAssessmentInstanceForInstanceQuestion takes an exclusive row lock on the assessment instance
	// owning the instance question. The lock is held until exec's transaction ends.
	LockAssessmentInstanceForInstanceQuestion(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) error
	GetInstanceQuestionData(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) (InstanceQuestionData, error)
	// NextVariantNumber returns max(number)+1 over the instance question's variants (1 if none).
	NextVariantNumber(ctx context.Context, instanceQuestionID string, exec ...core.DBExecutor) (int, error)
	CreateVariant(ctx context.Context, nv NewVariant, exec ...core.DBExecutor) (Variant, error)
}
