package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/workspace"
)

type workspaceRepository struct {
	repository
}

var _ workspace.Repository = (*workspaceRepository)(nil) // interface compliance check

func NewWorkspaceRepository(exec core.DBExecutor) *workspaceRepository {
	return &workspaceRepository{repository{exec: exec}}
}

type workspaceRow struct {
	ID        string    `db:"id"`
	State     string    `db:"state"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo workspaceRepository) CreateWorkspace(ctx context.Context, exec ...core.DBExecutor) (workspace.Workspace, error) {
	var row workspaceRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `
		INSERT INTO workspaces DEFAULT VALUES
		RETURNING id, state, version, created_at`)
	if err != nil {
		return workspace.Workspace{}, errors.Wrap(err, "inserting workspace")
	}
	row.CreatedAt = row.CreatedAt.UTC()
	return workspace.Workspace(row), nil
}
