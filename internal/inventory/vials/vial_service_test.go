package vials_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/database/dbtest"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/vials"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	r     *repository.Repository
	s     *vials.VialService
	clock *clock.Manual
	hub   int
	ward  int
	drug  int
	user  int
}

func newFixture(t *testing.T) fixture {
	r := dbtest.NewRepository(t)
	c := clock.NewManual(dbtest.Now)

	f := fixture{r: r, clock: c}
	f.s = vials.NewVialService(r, dbtest.Lane(t), dbtest.InventoryLog(r, c), stocks.NewMonitor(), c)
	f.hub = dbtest.Hub(t, r, "Port Augusta Hospital")
	f.ward = dbtest.Child(t, r, "Emergency Department", metadata.LocationWard, f.hub)
	f.drug = dbtest.Drug(t, r, "Tenecteplase", "2450.50")
	f.user = dbtest.User(t, r, "nurse", roles.Nurse, f.ward)
	return f
}

func (f fixture) receive(t *testing.T, locationID, quantity int) *vials.ReceiveResult {
	t.Helper()

	result, err := f.s.Receive(context.Background(), vials.ReceiveRequest{
		DrugID: f.drug, LocationID: locationID, BatchNumber: "BN-2026-01",
		ExpiryDate: "2027-01-31", Quantity: quantity, UserID: f.user,
	})
	require.NoError(t, err)
	return result
}

func TestReceive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.receive(t, f.hub, 3)

	assert.Len(t, result.VialIDs, 3)
	assert.Len(t, result.AssetIDs, 3)
	assert.Equal(t, "Tenecteplase", result.DrugName)
	assert.Equal(t, "Port Augusta Hospital", result.LocationName)
	assert.True(t, decimal.RequireFromString("7351.50").Equal(result.TotalValue))
	assert.Equal(t, 3, result.Stock.Snapshot.AvailableCount)
	assert.False(t, result.Stock.BelowMinimum)

	seen := map[string]bool{}
	for _, assetID := range result.AssetIDs {
		assert.Regexp(t, `^TEN-PORTA-\d+-[0-9A-F]{8}$`, assetID)
		assert.False(t, seen[assetID])
		seen[assetID] = true
	}

	for _, id := range result.VialIDs {
		vial, err := f.s.GetVial(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, metadata.VialAvailable, vial.Status)
		assert.Equal(t, 1, vial.Version)
		assert.Equal(t, f.hub, vial.LocationID)
		assert.Equal(t, 355, vial.DaysUntilExpiry)
		assert.Equal(t, metadata.ExpiryGreen, vial.ExpiryColor)
	}

	assert.Equal(t, 3, dbtest.Count(t, f.r, "audit_logs", goqu.Ex{"action": "RECEIVE_STOCK", "entity_type": "vial"}))
}

func TestReceiveRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	valid := func() vials.ReceiveRequest {
		return vials.ReceiveRequest{
			DrugID: f.drug, LocationID: f.hub, BatchNumber: "BN-1",
			ExpiryDate: "2027-01-31", Quantity: 2, UserID: f.user,
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *vials.ReceiveRequest)
		wantErr error
	}{
		{"zero quantity", func(r *vials.ReceiveRequest) { r.Quantity = 0 }, custom_error.ErrValidation},
		{"too many", func(r *vials.ReceiveRequest) { r.Quantity = 1001 }, custom_error.ErrValidation},
		{"blank batch", func(r *vials.ReceiveRequest) { r.BatchNumber = "  " }, custom_error.ErrValidation},
		{"bad expiry", func(r *vials.ReceiveRequest) { r.ExpiryDate = "31/01/2027" }, custom_error.ErrValidation},
		{"expired", func(r *vials.ReceiveRequest) { r.ExpiryDate = "2026-02-09" }, custom_error.ErrValidation},
		{"unknown drug", func(r *vials.ReceiveRequest) { r.DrugID = f.drug + 100 }, custom_error.ErrNotFound},
		{"unknown location", func(r *vials.ReceiveRequest) { r.LocationID = f.ward + 100 }, custom_error.ErrNotFound},
		{"unknown user", func(r *vials.ReceiveRequest) { r.UserID = f.user + 100 }, custom_error.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)

			_, err := f.s.Receive(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, dbtest.Count(t, f.r, "vials", goqu.Ex{}))
		})
	}
}

func TestUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	received := f.receive(t, f.ward, 2)
	dbtest.Threshold(t, f.r, f.ward, f.drug, 2)
	id := received.VialIDs[0]

	t.Run("invalid MRN", func(t *testing.T) {
		_, err := f.s.Use(ctx, vials.UseRequest{VialID: id, Version: 1, UserID: f.user, PatientMRN: "ab"})
		assert.ErrorIs(t, err, custom_error.ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.s.Use(ctx, vials.UseRequest{VialID: id, Version: 1, UserID: f.user + 100, PatientMRN: "MRN-1234"})
		assert.ErrorIs(t, err, custom_error.ErrNotFound)
	})

	t.Run("deactivated user", func(t *testing.T) {
		former := dbtest.User(t, f.r, "former.nurse", roles.Nurse, f.ward)
		dbtest.Deactivate(t, f.r, "users", former)

		_, err := f.s.Use(ctx, vials.UseRequest{VialID: id, Version: 1, UserID: former, PatientMRN: "MRN-1234"})
		assert.ErrorIs(t, err, custom_error.ErrNotFound)
		assert.Equal(t, 1, dbtest.Version(t, f.r, "vials", id))
	})

	t.Run("used", func(t *testing.T) {
		f.clock.Advance(90 * time.Minute)
		result, err := f.s.Use(ctx, vials.UseRequest{
			VialID: id, Version: 1, UserID: f.user, PatientMRN: "MRN-1234", ClinicalNotes: "STEMI",
		})
		require.NoError(t, err)
		assert.Equal(t, metadata.VialUsedClinical, result.Vial.Status)
		assert.Equal(t, 2, result.Vial.Version)
		assert.True(t, result.Stock.BelowMinimum)
		assert.Equal(t, 1, result.Stock.Snapshot.AvailableCount)

		stored, err := f.s.GetVial(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, stored.PatientMRN)
		assert.Equal(t, "MRN-1234", *stored.PatientMRN)
		require.NotNil(t, stored.UsedAt)
		assert.True(t, f.clock.Now().Equal(*stored.UsedAt))
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		_, err := f.s.Use(ctx, vials.UseRequest{VialID: id, Version: 1, UserID: f.user, PatientMRN: "MRN-1234"})
		assert.ErrorIs(t, err, custom_error.ErrVersionConflict)
	})

	t.Run("already used", func(t *testing.T) {
		_, err := f.s.Use(ctx, vials.UseRequest{VialID: id, Version: 2, UserID: f.user, PatientMRN: "MRN-1234"})
		assert.ErrorIs(t, err, custom_error.ErrInvalidState)
		assert.Equal(t, 2, dbtest.Version(t, f.r, "vials", id))
	})

	t.Run("missing vial", func(t *testing.T) {
		_, err := f.s.Use(ctx, vials.UseRequest{VialID: id + 100, Version: 1, UserID: f.user, PatientMRN: "MRN-1234"})
		assert.ErrorIs(t, err, custom_error.ErrNotFound)
	})
}

func TestDiscard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.receive(t, f.hub, 1).VialIDs[0]

	_, err := f.s.Discard(ctx, vials.DiscardRequest{VialID: id, Version: 1, UserID: f.user, Reason: "melted", DisposalRegisterNumber: "DR-1"})
	assert.ErrorIs(t, err, custom_error.ErrValidation)

	f.clock.Advance(2 * time.Hour)
	result, err := f.s.Discard(ctx, vials.DiscardRequest{
		VialID: id, Version: 1, UserID: f.user, Reason: "fridge  failure", DisposalRegisterNumber: "DR-77",
	})
	require.NoError(t, err)
	assert.Equal(t, metadata.VialDiscarded, result.Vial.Status)
	require.NotNil(t, result.Vial.DiscardReason)
	assert.Equal(t, "Fridge Failure", *result.Vial.DiscardReason)
	assert.Nil(t, result.Vial.PatientMRN)
	require.NotNil(t, result.Vial.UsedBy)
	assert.Equal(t, f.user, *result.Vial.UsedBy)

	stored, err := vials.NewVialRepository(f.r).GetVial(ctx, f.r.GoquDBWrapper, id)
	require.NoError(t, err)
	require.NotNil(t, stored.UsedBy)
	assert.Equal(t, f.user, *stored.UsedBy)
	require.NotNil(t, stored.UsedAt)
	assert.True(t, f.clock.Now().Equal(*stored.UsedAt))
	require.NotNil(t, stored.DisposalRegisterNumber)
	assert.Equal(t, "DR-77", *stored.DisposalRegisterNumber)

	_, err = f.s.Use(ctx, vials.UseRequest{VialID: id, Version: 2, UserID: f.user, PatientMRN: "MRN-1234"})
	assert.ErrorIs(t, err, custom_error.ErrInvalidState)
}

func TestConcurrentTransitionsOnOneVial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.receive(t, f.hub, 1).VialIDs[0]

	const callers = 12
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = f.s.Use(ctx, vials.UseRequest{VialID: id, Version: 1, UserID: f.user, PatientMRN: "MRN-1234"})
				return
			}
			_, errs[i] = f.s.Discard(ctx, vials.DiscardRequest{
				VialID: id, Version: 1, UserID: f.user, Reason: "Broken/Damaged", DisposalRegisterNumber: "DR-1",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, custom_error.ErrVersionConflict) || errors.Is(err, custom_error.ErrInvalidState),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, dbtest.Version(t, f.r, "vials", id))
	assert.Equal(t, 1, dbtest.Count(t, f.r, "audit_logs", goqu.Ex{
		"entity_type": "vial", "entity_id": id, "action": []string{"USE_STOCK", "DISCARD_STOCK"},
	}))
}

func TestSearchAndJourney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	atHub := f.receive(t, f.hub, 2)
	atWard := f.receive(t, f.ward, 1)

	_, err := f.s.Use(ctx, vials.UseRequest{VialID: atHub.VialIDs[0], Version: 1, UserID: f.user, PatientMRN: "MRN-9999"})
	require.NoError(t, err)

	available, err := f.s.Search(ctx, vials.VialFilter{Status: "available"})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	onWard, err := f.s.Search(ctx, vials.VialFilter{LocationID: f.ward})
	require.NoError(t, err)
	require.Len(t, onWard, 1)
	assert.Equal(t, "Emergency Department", onWard[0].LocationName)

	byAsset, err := f.s.Search(ctx, vials.VialFilter{Query: atWard.AssetIDs[0][len(atWard.AssetIDs[0])-8:]})
	require.NoError(t, err)
	assert.Len(t, byAsset, 1)

	days := 30
	expiringSoon, err := f.s.Search(ctx, vials.VialFilter{ExpiringWithinDays: &days})
	require.NoError(t, err)
	assert.Empty(t, expiringSoon)

	_, err = f.s.Search(ctx, vials.VialFilter{Status: "LOST"})
	assert.ErrorIs(t, err, custom_error.ErrValidation)

	journey, err := f.s.Journey(ctx, atHub.AssetIDs[0])
	require.NoError(t, err)
	assert.Equal(t, metadata.VialUsedClinical, journey.Vial.Status)
	require.Len(t, journey.Events, 2)
	assert.Equal(t, "RECEIVE_STOCK", journey.Events[0].Action)
	assert.Equal(t, "USE_STOCK", journey.Events[1].Action)
	assert.Equal(t, "MRN-9999", journey.Events[1].Data["patient_mrn"])

	_, err = f.s.FindByAssetID(ctx, "NOPE")
	assert.ErrorIs(t, err, custom_error.ErrNotFound)
}
