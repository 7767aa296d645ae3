package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/workspace"
)

type workspaceRepository struct {
	db *DB
}

var _ workspace.Repository = (*workspaceRepository)(nil) // interface compliance check

func NewWorkspaceRepository(db *DB) *workspaceRepository {
	return &workspaceRepository{db: db}
}

func (repo *workspaceRepository) CreateWorkspace(_ context.Context, exec ...core.DBExecutor) (workspace.Workspace, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ws := workspace.Workspace{
		ID:        uuid.New().String(),
		State:     workspace.StateUninitialized,
		Version:   1,
		CreatedAt: NowFunc().UTC(),
	}
	repo.db.workspaces[ws.ID] = ws
	if t := txFrom(exec); t != nil {
		t.record(func() { delete(repo.db.workspaces, ws.ID) })
	}
	return ws, nil
}
