package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

// SQLStore is the MySQL implementation of Store.  Every unit of work runs
// in its own *sql.Tx; row locks are taken with SELECT ... FOR UPDATE.
type SQLStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLStore returns a Store bound to db.
func NewSQLStore(db *sql.DB, log *zap.Logger) *SQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{db: db, log: log}
}

// WithTx begins a transaction, runs fn and commits when fn returns nil.
// Any error from fn, or a panic, rolls the transaction back.
func (s *SQLStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()
	if err = fn(ctx, &sqlTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// EnsurePlatformWallet creates the single platform wallet row.  It is
// called once at startup so that later updates can rely on the row
// existing.
func (s *SQLStore) EnsurePlatformWallet(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT IGNORE INTO platform_wallet (id, balance) VALUES (1, 0.00)")
	return err
}

// sqlTx implements Tx on top of a *sql.Tx.  The per-table methods live
// in the *_repository.go files of this package.
type sqlTx struct {
	tx *sql.Tx
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func insertID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// requireRow converts a zero rows-affected result into ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
