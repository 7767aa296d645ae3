package inmemdb

import (
	"context"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/question"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseInstance(_ context.Context, id string, _ ...core.DBExecutor) (course.CourseInstance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ci, ok := repo.db.courseInstances[id]; ok {
		return ci, nil
	}
	return course.CourseInstance{}, course.ErrInstanceNotFound
}

type questionRepository struct {
	db *DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) GetQuestion(_ context.Context, id string, _ ...core.DBExecutor) (question.Question, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return q, nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) GetQuestionByInstanceQuestion(_ context.Context, instanceQuestionID string, _ ...core.DBExecutor) (question.Question, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	iq, ok := repo.db.instanceQuestions[instanceQuestionID]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	if q, ok := repo.db.questions[iq.questionID]; ok {
		return q, nil
	}
	return question.Question{}, question.ErrNotFound
}
