// Package dbtest opens a throwaway SQLite store with the full schema applied
// and inserts fixture rows for engine tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/auditlog"
	"github.com/Archer-177/HighCostAtWork/internal/database"
	"github.com/Archer-177/HighCostAtWork/internal/database/migration"
	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	pkgauditlog "github.com/Archer-177/HighCostAtWork/pkg/auditlog"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Now is the instant fixtures are stamped with.
var Now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func NewRepository(t *testing.T) *repository.Repository {
	t.Helper()

	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "vials.db")
	require.NoError(t, migration.Migrate(dbURL, false, zap.NewNop()))

	db, dialect, err := database.Open(dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repository.NewRepository(db, dialect)
}

// Lane starts a write serializer that is closed when the test ends.
func Lane(t *testing.T) *serializer.Serializer {
	t.Helper()

	lane := serializer.New(zap.NewNop())
	t.Cleanup(lane.Close)
	return lane
}

// InventoryLog writes audit entries into r stamped by c.
func InventoryLog(r *repository.Repository, c clock.Clock) *inventorylog.InventoryLog {
	return inventorylog.NewInventoryLog(pkgauditlog.NewAuditLog(auditlog.NewRepository(r), c))
}

func insert(t *testing.T, r *repository.Repository, table string, row goqu.Record) int {
	t.Helper()

	var id int
	err := repository.WithTransaction(context.Background(), r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		var err error
		id, err = repository.InsertReturningID(context.Background(), tx, table, row)
		return err
	})
	require.NoError(t, err)
	return id
}

func Hub(t *testing.T, r *repository.Repository, name string) int {
	return insert(t, r, "locations", goqu.Record{
		"name": name, "type": metadata.LocationHub, "is_active": true, "created_at": Now,
	})
}

func Child(t *testing.T, r *repository.Repository, name string, kind metadata.LocationType, hubID int) int {
	return insert(t, r, "locations", goqu.Record{
		"name": name, "type": kind, "parent_hub_id": hubID, "is_active": true, "created_at": Now,
	})
}

func User(t *testing.T, r *repository.Repository, username string, role roles.Role, locationID int) int {
	return insert(t, r, "users", goqu.Record{
		"username": username, "role": role, "location_id": locationID,
		"can_delegate": false, "is_active": true, "created_at": Now,
	})
}

// Delegate inserts a pharmacist allowed to approve hub to hub transfers.
func Delegate(t *testing.T, r *repository.Repository, username string, locationID int) int {
	return insert(t, r, "users", goqu.Record{
		"username": username, "role": roles.Pharmacist, "location_id": locationID,
		"can_delegate": true, "is_active": true, "created_at": Now,
	})
}

// Deactivate soft-deletes a row in a table with an is_active column.
func Deactivate(t *testing.T, r *repository.Repository, table string, id int) {
	t.Helper()

	_, err := r.GoquDBWrapper.Update(table).
		Set(goqu.Record{"is_active": false}).
		Where(goqu.C("id").Eq(id)).
		Executor().Exec()
	require.NoError(t, err)
}

func Drug(t *testing.T, r *repository.Repository, name string, price string) int {
	return insert(t, r, "drugs", goqu.Record{
		"name": name, "category": "Thrombolytic", "storage_requirement": "2-8C",
		"unit_price": decimal.RequireFromString(price), "is_active": true, "created_at": Now,
	})
}

func Vial(t *testing.T, r *repository.Repository, assetID string, drugID, locationID int, status metadata.VialStatus) int {
	return insert(t, r, "vials", goqu.Record{
		"asset_id": assetID, "drug_id": drugID, "batch_number": "B-" + assetID,
		"expiry_date": Now.AddDate(1, 0, 0), "location_id": locationID, "status": status, "created_at": Now,
	})
}

func Threshold(t *testing.T, r *repository.Repository, locationID, drugID, minStock int) int {
	return insert(t, r, "stock_thresholds", goqu.Record{
		"location_id": locationID, "drug_id": drugID, "min_stock": minStock,
	})
}

// Version reads the stored version of one row.
func Version(t *testing.T, r *repository.Repository, table string, id int) int {
	t.Helper()

	var v int
	found, err := r.GoquDBWrapper.From(table).Select("version").Where(goqu.C("id").Eq(id)).ScanVal(&v)
	require.NoError(t, err)
	require.True(t, found, "%s %d not found", table, id)
	return v
}

// Count runs SELECT COUNT(*) against table with the given conditions.
func Count(t *testing.T, r *repository.Repository, table string, where goqu.Ex) int {
	t.Helper()

	n, err := r.GoquDBWrapper.From(table).Where(where).Count()
	require.NoError(t, err)
	return int(n)
}
