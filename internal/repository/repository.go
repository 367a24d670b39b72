package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

type Repository struct {
	DB            *sql.DB
	GoquDBWrapper *goqu.Database
	Dialect       string
}

// Querier is satisfied by both *goqu.Database and *goqu.TxDatabase, so read
// helpers work inside and outside a transaction.
type Querier interface {
	From(from ...interface{}) *goqu.SelectDataset
}

func NewRepository(db *sql.DB, dialect string) *Repository {
	return &Repository{
		DB:            db,
		GoquDBWrapper: goqu.New(dialect, db),
		Dialect:       dialect,
	}
}

func WithTransaction(ctx context.Context, db *goqu.Database, fn func(tx *goqu.TxDatabase) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return
}

// InsertReturningID inserts row and returns its generated id. SQLite has no
// RETURNING support in goqu, so the driver's last insert id is used there.
func InsertReturningID(ctx context.Context, tx *goqu.TxDatabase, table string, row goqu.Record) (int, error) {
	insert := tx.Insert(table).Rows(row)

	if tx.Dialect() == DialectPostgres {
		var id int
		if _, err := insert.Returning("id").Executor().ScanValContext(ctx, &id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := insert.Executor().ExecContext(ctx)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	return int(id), nil
}
