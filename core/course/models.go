package course

import (
	"context"
	"errors"

	"github.com/jgfoster/PrairieLearn/core"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrInstanceNotFound = errors.New("course instance not found")
	ErrFileNotFound     = errors.New("course file not found")
)

type Course struct {
	ID              string `json:"id"`
	ShortName       string `json:"short_name"`
	Title           string `json:"title"`
	Path            string `json:"path"` // root of the course content in the file store
	DisplayTimezone string `json:"display_timezone"`
}

type CourseInstance struct {
	ID              string `json:"id"`
	CourseID        string `json:"course_id"`
	ShortName       string `json:"short_name"`
	DisplayTimezone string `json:"display_timezone"` // empty: use the course's
}

type (
	Repository interface {
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		GetCourseInstance(ctx context.Context, id string, exec ...core.DBExecutor) (CourseInstance, error)
	}

	// FileStore gives read access to course content (question directories, client files).
	FileStore interface {
		// ReadFile returns the content of path, relative to the course root. ErrFileNotFound if missing.
		ReadFile(ctx context.Context, c Course, path string) ([]byte, error)
	}
)
