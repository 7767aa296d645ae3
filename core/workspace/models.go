package workspace

import (
	"context"
	"time"

	"github.com/jgfoster/PrairieLearn/core"
)

const StateUninitialized = "uninitialized"

type Workspace struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	// CreateWorkspace provisions a fresh, uninitialized workspace record.
	CreateWorkspace(ctx context.Context, exec ...core.DBExecutor) (Workspace, error)
}
