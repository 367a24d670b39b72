package drugs_test

import (
	"context"
	"testing"

	"github.com/Archer-177/HighCostAtWork/internal/database/dbtest"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/drugs"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrugCatalogue(t *testing.T) {
	r := dbtest.NewRepository(t)
	c := clock.NewManual(dbtest.Now)
	s := drugs.NewDrugService(r, dbtest.Lane(t), dbtest.InventoryLog(r, c), c)
	ctx := context.Background()

	hub := dbtest.Hub(t, r, "Port Augusta Hospital")
	user := dbtest.User(t, r, "pharm", roles.Pharmacist, hub)

	drug, err := s.CreateDrug(ctx, drugs.CreateDrugRequest{
		Name:               " Tenecteplase ",
		Category:           "Thrombolytic",
		StorageRequirement: "Below 25C",
		UnitPrice:          decimal.RequireFromString("2450.50"),
		UserID:             user,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tenecteplase", drug.Name)
	assert.Equal(t, 1, drug.Version)

	stored, err := s.GetDrug(ctx, drug.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2450.50").Equal(stored.UnitPrice))

	t.Run("duplicate name", func(t *testing.T) {
		_, err := s.CreateDrug(ctx, drugs.CreateDrugRequest{Name: "Tenecteplase", Category: "Thrombolytic", UserID: user})
		assert.ErrorIs(t, err, custom_error.ErrValidation)
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := s.CreateDrug(ctx, drugs.CreateDrugRequest{
			Name: "Alteplase", Category: "Thrombolytic", UnitPrice: decimal.NewFromInt(-1), UserID: user,
		})
		assert.ErrorIs(t, err, custom_error.ErrValidation)
	})

	t.Run("price correction", func(t *testing.T) {
		price := decimal.RequireFromString("2399.00")
		updated, err := s.UpdateDrug(ctx, drug.ID, drugs.UpdateDrugRequest{Version: 1, UnitPrice: &price, UserID: user})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)
		assert.True(t, price.Equal(updated.UnitPrice))
		assert.Equal(t, 1, dbtest.Count(t, r, "audit_logs", goqu.Ex{"entity_type": "drug", "action": "UPDATE_DRUG"}))
	})

	t.Run("stale correction", func(t *testing.T) {
		category := "Antidote"
		_, err := s.UpdateDrug(ctx, drug.ID, drugs.UpdateDrugRequest{Version: 1, Category: &category, UserID: user})
		assert.ErrorIs(t, err, custom_error.ErrVersionConflict)
		assert.Equal(t, 2, dbtest.Version(t, r, "drugs", drug.ID))
	})

	t.Run("unknown drug", func(t *testing.T) {
		category := "Antidote"
		_, err := s.UpdateDrug(ctx, drug.ID+100, drugs.UpdateDrugRequest{Version: 1, Category: &category, UserID: user})
		assert.ErrorIs(t, err, custom_error.ErrNotFound)
	})

	list, err := s.GetDrugs(ctx, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
