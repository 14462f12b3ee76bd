package repository

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// psql builds Postgres statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is satisfied by *pgxpool.Pool and pgx.Tx. Tests pass a transaction
// that is rolled back on cleanup; WithinTx then runs on a savepoint.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

// executor returns the transaction stored in ctx by WithinTx, or db.
func executor(ctx context.Context, db DB) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

type TxManager struct {
	db      DB
	timeout time.Duration
}

func NewTxManager(db DB, queryTimeout time.Duration) *TxManager {
	return &TxManager{db: db, timeout: queryTimeout}
}

// WithinTx runs fn in one transaction. Repositories called with the ctx
// passed to fn join it. The transaction commits when fn returns nil and
// rolls back on error or panic. Nested calls run on a savepoint of the
// outer transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	begin := m.db.Begin
	if outer, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		begin = outer.Begin
	}

	tx, err := begin(ctx)
	if err != nil {
		return mapError("repository.TxManager.Begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if cerr := tx.Commit(ctx); cerr != nil {
		err = mapError("repository.TxManager.Commit", cerr)
		return err
	}
	return nil
}
