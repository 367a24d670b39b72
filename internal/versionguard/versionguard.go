// Package versionguard implements optimistic concurrency for every versioned
// table. A caller presents the version it last read; a write only lands if
// that version is still current, and every successful write bumps it by one.
package versionguard

import (
	"context"
	"fmt"

	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// Kind names a versioned table.
type Kind string

const (
	Location       Kind = "locations"
	Drug           Kind = "drugs"
	Vial           Kind = "vials"
	Transfer       Kind = "transfers"
	StockThreshold Kind = "stock_thresholds"
	User           Kind = "users"
)

var entityNames = map[Kind]string{
	Location:       "location",
	Drug:           "drug",
	Vial:           "vial",
	Transfer:       "transfer",
	StockThreshold: "stock threshold",
	User:           "user",
}

func (k Kind) Entity() string {
	if name, ok := entityNames[k]; ok {
		return name
	}
	return string(k)
}

// Check compares expected against the stored version without writing.
func Check(ctx context.Context, tx *goqu.TxDatabase, kind Kind, id, expected int) error {
	var actual int
	found, err := tx.From(string(kind)).
		Select("version").
		Where(goqu.C("id").Eq(id)).
		Executor().ScanValContext(ctx, &actual)
	if err != nil {
		return fmt.Errorf("read %s version: %w", kind.Entity(), err)
	}
	if !found {
		return custom_error.NotFound(kind.Entity(), id)
	}
	if actual != expected {
		return custom_error.VersionConflict(kind.Entity(), id, expected, actual)
	}
	return nil
}

// Advance applies record to the row and increments its version, but only
// while the row still carries the expected version and satisfies every extra
// condition. When nothing matched, the cause is reported as NotFound,
// VersionConflict or InvalidState, in that order.
func Advance(ctx context.Context, tx *goqu.TxDatabase, kind Kind, id, expected int, record goqu.Record, extra ...exp.Expression) error {
	set := goqu.Record{"version": goqu.L("version + 1")}
	for column, value := range record {
		set[column] = value
	}

	where := []exp.Expression{goqu.C("id").Eq(id), goqu.C("version").Eq(expected)}
	where = append(where, extra...)

	res, err := tx.Update(string(kind)).Set(set).Where(where...).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", kind.Entity(), id, custom_error.FromDBError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %d: %w", kind.Entity(), id, err)
	}
	if affected == 1 {
		return nil
	}

	if err := Check(ctx, tx, kind, id, expected); err != nil {
		return err
	}
	return custom_error.InvalidState(kind.Entity(), id, "current state does not allow this change")
}
