package main

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

type ensureOptions struct {
	courseID           string
	questionID         string
	instanceQuestionID string
	courseInstanceID   string
	userID             string
	authnUserID        string
	seed               string
	requireOpen        bool
}

func (cli *commandLine) variantCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variant",
		Short: "Inspect and create question variants",
	}

	var opts ensureOptions
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Return the current variant of an instance question, or create one",
		Long: `Return the current variant of an instance question, or create one.

Without --instance-question a floating variant of --question is created, as an
instructor preview does.

Example:
  admin variant ensure --course 1 --question 12 --user 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := cli.ensureVariant(cmd.Context(), opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
	f := ensure.Flags()
	f.StringVar(&opts.courseID, "course", "", "id of the course the variant is created in (required)")
	f.StringVar(&opts.questionID, "question", "", "question id")
	f.StringVar(&opts.instanceQuestionID, "instance-question", "", "instance question id")
	f.StringVar(&opts.courseInstanceID, "course-instance", "", "course instance id")
	f.StringVar(&opts.userID, "user", "", "user the variant is for")
	f.StringVar(&opts.authnUserID, "authn-user", "", "authenticated user (defaults to --user)")
	f.StringVar(&opts.seed, "seed", "", "variant seed (random when empty)")
	f.BoolVar(&opts.requireOpen, "require-open", false, "only reuse open variants")
	_ = ensure.MarkFlagRequired("course")

	cmd.AddCommand(ensure)
	return cmd
}

func (cli *commandLine) ensureVariant(ctx context.Context, opts ensureOptions) (variant.Variant, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := cli.courses.GetCourse(ctx, opts.courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return variant.Variant{}, core.NewNotFoundError("Course not found")
		}
		return variant.Variant{}, errors.Wrap(err, "getting course")
	}

	authnUserID := opts.authnUserID
	if authnUserID == "" {
		authnUserID = opts.userID
	}
	return cli.variantSvc.EnsureVariant(ctx, variant.EnsureParams{
		QuestionID:         opts.questionID,
		InstanceQuestionID: opts.instanceQuestionID,
		UserID:             opts.userID,
		AuthnUserID:        authnUserID,
		CourseInstanceID:   opts.courseInstanceID,
		VariantCourse:      c,
		Seed:               opts.seed,
		RequireOpen:        opts.requireOpen,
	})
}
