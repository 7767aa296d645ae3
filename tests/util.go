package testutil

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/jgfoster/PrairieLearn/storage/database"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *sqlx.DB
	dbErr  error
)

// PrepareDB returns a migrated test database with all rows removed.
// The test is skipped when TEST_POSTGRES_DSN is not set.
func PrepareDB(tb testing.TB) *sqlx.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}
		if db, dbErr = database.OpenDSN(dsn); dbErr != nil {
			return
		}
		dbErr = database.Migrate(db)
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run database integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}

	truncate(tb)
	return db
}

func truncate(tb testing.TB) {
	tb.Helper()
	_, err := db.Exec(`
		TRUNCATE issues, variants, workspaces, instance_questions, assessment_instances,
			assessment_questions, assessments, questions, groups, users, course_instances, courses
		RESTART IDENTITY CASCADE`)
	if err != nil {
		tb.Fatalf("truncate() failed: %v", err)
	}
}

// Fixture ids of a course with one question attempted by one user.
type Fixture struct {
	CourseID             string
	CourseInstanceID     string
	UserID               string
	QuestionID           string
	AssessmentInstanceID string
	InstanceQuestionID   string
}

func insertID(tb testing.TB, db *sqlx.DB, query string, args ...interface{}) string {
	tb.Helper()
	var id string
	if err := db.Get(&id, query, args...); err != nil {
		tb.Fatalf("insertID() failed: %v\n%s", err, query)
	}
	return id
}

// CreateFixture inserts a course, a course instance, a user and an open instance question.
// workspaceImage is optional.
func CreateFixture(tb testing.TB, db *sqlx.DB, tz string, workspaceImage ...string) Fixture {
	tb.Helper()
	var f Fixture

	f.CourseID = insertID(tb, db, `INSERT INTO courses (short_name, display_timezone) VALUES ('CS 101', $1) RETURNING id`, tz)
	f.CourseInstanceID = insertID(tb, db, `INSERT INTO course_instances (course_id, short_name) VALUES ($1, 'Fa21') RETURNING id`, f.CourseID)
	f.UserID = insertID(tb, db, `INSERT INTO users (uid) VALUES ('student@example.com') RETURNING id`)

	var wsImage interface{}
	if len(workspaceImage) > 0 {
		wsImage = workspaceImage[0]
	}
	f.QuestionID = insertID(tb, db, `
		INSERT INTO questions (course_id, qid, type, options, workspace_image, workspace_graded_files)
		VALUES ($1, 'addNumbers', 'MultipleChoice', '{"text": "1 + 1 = ?"}'::jsonb, $2, '{"results/*.png", "report.pdf"}')
		RETURNING id`, f.CourseID, wsImage)

	assessmentID := insertID(tb, db, `INSERT INTO assessments (course_instance_id, tid) VALUES ($1, 'hw1') RETURNING id`, f.CourseInstanceID)
	aqID := insertID(tb, db, `INSERT INTO assessment_questions (assessment_id, question_id) VALUES ($1, $2) RETURNING id`, assessmentID, f.QuestionID)
	f.AssessmentInstanceID = insertID(tb, db, `INSERT INTO assessment_instances (assessment_id, user_id) VALUES ($1, $2) RETURNING id`, assessmentID, f.UserID)
	f.InstanceQuestionID = insertID(tb, db, `
		INSERT INTO instance_questions (assessment_instance_id, assessment_question_id)
		VALUES ($1, $2)
		RETURNING id`, f.AssessmentInstanceID, aqID)
	return f
}
