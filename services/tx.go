package services

import (
	"context"
	"database/sql"

	"github.com/Dosada05/quiz-tournament/repositories"
)

// Tx is a transaction handle as the services see it: an executor the
// repositories accept, plus commit and rollback.
type Tx interface {
	repositories.SQLExecutor
	Commit() error
	Rollback() error
}

// DBTX opens transactions. *sql.DB is adapted through NewSQLDB; tests plug
// in an in-memory implementation.
type DBTX interface {
	BeginTx(ctx context.Context) (Tx, error)
}

type sqlDB struct {
	db *sql.DB
}

// NewSQLDB wraps a database handle as a DBTX.
func NewSQLDB(db *sql.DB) DBTX {
	return &sqlDB{db: db}
}

func (s *sqlDB) BeginTx(ctx context.Context) (Tx, error) {
	return s.db.BeginTx(ctx, nil)
}
