package inmemdb

import (
	"context"
	"sort"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/issue"
)

type issueRepository struct {
	db *DB
}

var _ issue.Repository = (*issueRepository)(nil) // interface compliance check

func NewIssueRepository(db *DB) *issueRepository {
	return &issueRepository{db: db}
}

func (repo *issueRepository) CreateIssues(_ context.Context, issues []issue.Issue, exec ...core.DBExecutor) ([]issue.Issue, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	created := make([]issue.Issue, 0, len(issues))
	ids := make(map[string]bool, len(issues))
	for _, iss := range issues {
		iss.ID = repo.db.nextID()
		ids[iss.ID] = true
		created = append(created, iss)
	}
	repo.db.issues = append(repo.db.issues, created...)
	if t := txFrom(exec); t != nil {
		t.record(func() { repo.db.issues = removeIssues(repo.db.issues, ids) })
	}
	return created, nil
}

func removeIssues(issues []issue.Issue, ids map[string]bool) []issue.Issue {
	res := issues[:0]
	for _, iss := range issues {
		if !ids[iss.ID] {
			res = append(res, iss)
		}
	}
	return res
}

func (repo *issueRepository) QueryIssuesForVariant(_ context.Context, variantID string, _ ...core.DBExecutor) ([]issue.Issue, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var res []issue.Issue
	for _, iss := range repo.db.issues {
		if iss.VariantID.Valid && iss.VariantID.String == variantID {
			res = append(res, iss)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Date.After(res[j].Date) })
	return res, nil
}
