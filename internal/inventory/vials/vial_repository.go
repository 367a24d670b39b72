package vials

import (
	"context"
	"fmt"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type VialRepository struct {
	Repository *repository.Repository
}

func NewVialRepository(r *repository.Repository) *VialRepository {
	return &VialRepository{Repository: r}
}

func (r *VialRepository) PersistVial(ctx context.Context, tx *goqu.TxDatabase, vial *models.Vial) error {
	id, err := repository.InsertReturningID(ctx, tx, "vials", goqu.Record{
		"asset_id":             vial.AssetID,
		"drug_id":              vial.DrugID,
		"batch_number":         vial.BatchNumber,
		"expiry_date":          vial.ExpiryDate,
		"location_id":          vial.LocationID,
		"status":               vial.Status,
		"goods_receipt_number": vial.GoodsReceiptNumber,
		"created_at":           vial.CreatedAt,
		"version":              1,
	})
	if err != nil {
		return fmt.Errorf("failed to insert vial %s: %w", vial.AssetID, custom_error.FromDBError(err))
	}

	vial.ID = id
	vial.Version = 1
	return nil
}

func (r *VialRepository) GetVial(ctx context.Context, q repository.Querier, id int) (*models.Vial, error) {
	var vial models.Vial
	found, err := q.From("vials").Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &vial)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("vial", id)
	}
	return &vial, nil
}

// GetVialRecord loads one vial together with its drug and location names.
func (r *VialRepository) GetVialRecord(ctx context.Context, q repository.Querier, where exp.Expression) (*models.FlatVialRecord, error) {
	var record models.FlatVialRecord
	found, err := r.vialQuery(q).Where(where).ScanStructContext(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

func (r *VialRepository) GetVialRecords(ctx context.Context, filter VialFilter, now time.Time) ([]models.FlatVialRecord, error) {
	records := []models.FlatVialRecord{}

	query := r.vialQuery(r.Repository.GoquDBWrapper).
		Order(goqu.I("v.expiry_date").Asc(), goqu.I("v.id").Asc()).
		Limit(uint(filter.limit())).
		Offset(uint(filter.Offset))

	conditions := filter.conditions()
	if !conditions.IsEmpty() {
		query = query.Where(conditions.BuildConditions(map[string]string{
			"status":      "v.status",
			"location_id": "v.location_id",
			"drug_id":     "v.drug_id",
		}))
	}
	if filter.ExpiringWithinDays != nil {
		query = query.Where(goqu.I("v.expiry_date").Lte(now.AddDate(0, 0, *filter.ExpiringWithinDays)))
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where(goqu.Or(
			goqu.I("v.asset_id").Like(pattern),
			goqu.I("v.batch_number").Like(pattern),
		))
	}

	if err := query.ScanStructsContext(ctx, &records); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return records, nil
}

// VialPosition is where a vial is and what state it is in.
type VialPosition struct {
	Status     metadata.VialStatus
	LocationID int
}

// MoveBatch moves every listed vial still at from to the position to, bumping
// each version. It returns how many rows changed so the caller can reject a
// partial batch.
func (r *VialRepository) MoveBatch(ctx context.Context, tx *goqu.TxDatabase, ids []int, from VialPosition, to VialPosition) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := tx.Update("vials").
		Set(goqu.Record{
			"status":      to.Status,
			"location_id": to.LocationID,
			"version":     goqu.L("version + 1"),
		}).
		Where(
			goqu.C("id").In(ids),
			goqu.C("status").Eq(from.Status),
			goqu.C("location_id").Eq(from.LocationID),
		).
		Executor().ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("update vial batch: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update vial batch: %w", err)
	}
	return int(affected), nil
}

func (r *VialRepository) vialQuery(q repository.Querier) *goqu.SelectDataset {
	return q.From(goqu.T("vials").As("v")).
		Select(
			goqu.T("v").All(),
			goqu.I("d.name").As("drug_name"),
			goqu.I("l.name").As("location_name"),
		).
		InnerJoin(goqu.T("drugs").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("v.drug_id")))).
		InnerJoin(goqu.T("locations").As("l"), goqu.On(goqu.I("l.id").Eq(goqu.I("v.location_id"))))
}
