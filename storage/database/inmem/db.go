package inmemdb

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/issue"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
	"github.com/jgfoster/PrairieLearn/core/workspace"
)

var NowFunc = time.Now // mockable

type (
	// DB is an in-memory stand-in for the Postgres schema. It honours the row lock taken on
	// assessment instances for the lifetime of a transaction.
	DB struct {
		mu    sync.RWMutex
		pkSeq int

		courses             map[string]course.Course
		courseInstances     map[string]course.CourseInstance
		questions           map[string]question.Question
		assessmentInstances map[string]*assessmentInstance
		instanceQuestions   map[string]*instanceQuestion
		variants            map[string]variant.Variant
		variantOrder        []string // insertion order
		workspaces          map[string]workspace.Workspace
		issues              []issue.Issue
	}

	assessmentInstance struct {
		id               string
		courseInstanceID string
		open             bool
		lock             chan struct{} // 1-slot semaphore: FOR NO KEY UPDATE
	}

	instanceQuestion struct {
		id                   string
		questionID           string
		assessmentInstanceID string
		userID               null.String
		groupID              null.String
		open                 bool
	}
)

func Open() (*DB, error) {
	db := &DB{
		courses:             make(map[string]course.Course),
		courseInstances:     make(map[string]course.CourseInstance),
		questions:           make(map[string]question.Question),
		assessmentInstances: make(map[string]*assessmentInstance),
		instanceQuestions:   make(map[string]*instanceQuestion),
		variants:            make(map[string]variant.Variant),
		workspaces:          make(map[string]workspace.Workspace),
	}
	return db, nil
}

// nextID must be called with db.mu held.
func (db *DB) nextID() string {
	db.pkSeq++
	return strconv.Itoa(db.pkSeq)
}

// tx is the executor handed to RunInTx callbacks. Writes are applied immediately and undone on
// rollback; locks are released when the transaction ends.
type tx struct {
	sqlx.ExtContext // nil: no SQL is ever run in memory

	db    *DB
	locks []*assessmentInstance
	undo  []func()
}

var _ core.Transactor = (*DB)(nil) // interface compliance check

func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	t := &tx{db: db}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
		if err != nil {
			t.rollback()
			return
		}
		t.commit()
	}()
	return fn(t)
}

func (t *tx) holds(ai *assessmentInstance) bool {
	for _, l := range t.locks {
		if l == ai {
			return true
		}
	}
	return false
}

func (t *tx) lock(ctx context.Context, ai *assessmentInstance) error {
	if t.holds(ai) {
		return nil
	}
	select {
	case ai.lock <- struct{}{}:
		t.locks = append(t.locks, ai)
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for assessment instance lock")
	}
}

// record registers how to revert a write made inside the transaction.
func (t *tx) record(undo func()) {
	t.undo = append(t.undo, undo)
}

func (t *tx) release() {
	for _, ai := range t.locks {
		<-ai.lock
	}
	t.locks = nil
}

func (t *tx) commit() {
	t.undo = nil
	t.release()
}

func (t *tx) rollback() {
	t.db.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.db.mu.Unlock()
	t.undo = nil
	t.release()
}

// txFrom returns the in-memory transaction carried by exec, if any.
func txFrom(exec []core.DBExecutor) *tx {
	if len(exec) > 0 {
		if t, ok := exec[0].(*tx); ok {
			return t
		}
	}
	return nil
}

// Seeding helpers. They stand in for the course sync process, which is not part of this service.

func (db *DB) AddCourse(c course.Course) course.Course {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.ID == "" {
		c.ID = db.nextID()
	}
	db.courses[c.ID] = c
	return c
}

func (db *DB) AddCourseInstance(ci course.CourseInstance) course.CourseInstance {
	db.mu.Lock()
	defer db.mu.Unlock()
	if ci.ID == "" {
		ci.ID = db.nextID()
	}
	db.courseInstances[ci.ID] = ci
	return ci
}

func (db *DB) AddQuestion(q question.Question) question.Question {
	db.mu.Lock()
	defer db.mu.Unlock()
	if q.ID == "" {
		q.ID = db.nextID()
	}
	db.questions[q.ID] = q
	return q
}

// AddAssessmentInstance creates an open assessment instance and returns its id.
func (db *DB) AddAssessmentInstance(courseInstanceID string) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	ai := &assessmentInstance{
		id:               db.nextID(),
		courseInstanceID: courseInstanceID,
		open:             true,
		lock:             make(chan struct{}, 1),
	}
	db.assessmentInstances[ai.id] = ai
	return ai.id
}

// AddInstanceQuestion creates an open instance question and returns its id.
func (db *DB) AddInstanceQuestion(assessmentInstanceID, questionID string, userID, groupID null.String) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	iq := &instanceQuestion{
		id:                   db.nextID(),
		questionID:           questionID,
		assessmentInstanceID: assessmentInstanceID,
		userID:               userID,
		groupID:              groupID,
		open:                 true,
	}
	db.instanceQuestions[iq.id] = iq
	return iq.id
}

func (db *DB) SetInstanceQuestionOpen(id string, open bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if iq, ok := db.instanceQuestions[id]; ok {
		iq.open = open
	}
}

func (db *DB) SetAssessmentInstanceOpen(id string, open bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if ai, ok := db.assessmentInstances[id]; ok {
		ai.open = open
	}
}

// SetVariantOpen flips the open flag of a stored variant.
func (db *DB) SetVariantOpen(id string, open bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if v, ok := db.variants[id]; ok {
		v.Open = open
		db.variants[id] = v
	}
}

// CountVariants returns how many variants exist for the instance question ("" counts floating ones).
func (db *DB) CountVariants(instanceQuestionID string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n := 0
	for _, v := range db.variants {
		if v.InstanceQuestionID.String == instanceQuestionID {
			n++
		}
	}
	return n
}

func (db *DB) CountWorkspaces() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.workspaces)
}
