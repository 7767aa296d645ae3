package issue

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
)

var NowFunc = time.Now // mockable

type Service struct {
	repo   Repository
	logger core.Logger
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func nullID(id string) null.String {
	return null.NewString(id, id != "")
}

// WriteCourseIssues persists issues against the variant described by ic and mirrors them to the logger.
func (svc *Service) WriteCourseIssues(ctx context.Context, issues []CourseIssue, ic Context) error {
	if len(issues) == 0 {
		return nil
	}

	now := NowFunc().UTC()
	records := make([]Issue, 0, len(issues))
	for _, ci := range issues {
		sysData := map[string]interface{}{}
		if ci.Err != nil {
			sysData["error"] = ci.Err.Error()
			sysData["stack"] = fmt.Sprintf("%+v", errors.WithStack(ci.Err))
		}
		if ci.Data != nil {
			sysData["data"] = ci.Data
		}
		records = append(records, Issue{
			Date:              now,
			StudentMessage:    ic.StudentMessage,
			InstructorMessage: ci.Message,
			CourseCaused:      true,
			Fatal:             ci.Fatal,
			CourseData:        ic.CourseData,
			SystemData:        sysData,
			VariantID:         nullID(ic.VariantID),
			CourseID:          nullID(ic.CourseID),
			CourseInstanceID:  nullID(ic.CourseInstanceID),
			QuestionID:        nullID(ic.QuestionID),
			UserID:            nullID(ic.UserID),
			AuthnUserID:       nullID(ic.AuthnUserID),
		})

		extra := map[string]interface{}{
			"variant_id":  ic.VariantID,
			"course_id":   ic.CourseID,
			"question_id": ic.QuestionID,
		}
		if ci.Fatal {
			svc.logger.Warn("fatal course issue: "+ci.Message, extra)
		} else {
			svc.logger.Debug("course issue: "+ci.Message, extra)
		}
	}

	if _, err := svc.repo.CreateIssues(ctx, records); err != nil {
		return errors.Wrap(err, "inserting course issues")
	}
	return nil
}

func (svc *Service) QueryForVariant(ctx context.Context, variantID string) ([]Issue, error) {
	return svc.repo.QueryIssuesForVariant(ctx, variantID)
}
