package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// Transactor runs fn inside a single transaction. The transaction commits when fn returns nil
	// and rolls back otherwise. Row locks taken through tx are released when the transaction ends.
	Transactor interface {
		RunInTx(ctx context.Context, fn func(tx DBExecutor) error) error
	}
)
