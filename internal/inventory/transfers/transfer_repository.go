package transfers

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type TransferRepository interface {
	InsertTransferRecord(ctx context.Context, tx *goqu.TxDatabase, transfer *models.Transfer) error
	InsertTransferItems(ctx context.Context, tx *goqu.TxDatabase, transferID int, vialIDs []int) error
	GetTransferRow(ctx context.Context, q repository.Querier, transferID int) (*FlatTransfer, error)
	GetTransferRows(ctx context.Context, conditions repository.QueryBuilder) ([]FlatTransfer, error)
	GetTransferItems(ctx context.Context, q repository.Querier, transferID int) ([]models.TransferItem, error)
	GetVials(ctx context.Context, tx *goqu.TxDatabase, vialIDs []int) ([]models.Vial, error)
	VialsInOpenTransfers(ctx context.Context, tx *goqu.TxDatabase, vialIDs []int) ([]int, error)
}

type transferRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) TransferRepository {
	return &transferRepository{Repo: r}
}

// FlatTransfer is a transfer row joined with its location names.
type FlatTransfer struct {
	models.Transfer
	FromName string `db:"from_location_name"`
	ToName   string `db:"to_location_name"`
}

func (f FlatTransfer) toTransfer() models.Transfer {
	transfer := f.Transfer
	transfer.FromLocationName = f.FromName
	transfer.ToLocationName = f.ToName
	return transfer
}

func (r *transferRepository) InsertTransferRecord(ctx context.Context, tx *goqu.TxDatabase, transfer *models.Transfer) error {
	id, err := repository.InsertReturningID(ctx, tx, "transfers", goqu.Record{
		"from_location_id": transfer.FromLocationID,
		"to_location_id":   transfer.ToLocationID,
		"status":           transfer.Status,
		"created_by":       transfer.CreatedBy,
		"created_at":       transfer.CreatedAt,
		"completed_by":     transfer.CompletedBy,
		"completed_at":     transfer.CompletedAt,
		"version":          1,
	})
	if err != nil {
		return fmt.Errorf("failed to insert transfer record: %w", custom_error.FromDBError(err))
	}

	transfer.ID = id
	transfer.Version = 1
	return nil
}

func (r *transferRepository) InsertTransferItems(ctx context.Context, tx *goqu.TxDatabase, transferID int, vialIDs []int) error {
	rows := make([]interface{}, len(vialIDs))
	for i, vialID := range vialIDs {
		rows[i] = goqu.Record{"transfer_id": transferID, "vial_id": vialID}
	}

	if _, err := tx.Insert("transfer_items").Rows(rows...).Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to insert transfer items: %w", custom_error.FromDBError(err))
	}
	return nil
}

func (r *transferRepository) GetTransferRow(ctx context.Context, q repository.Querier, transferID int) (*FlatTransfer, error) {
	var flat FlatTransfer
	found, err := r.transferQuery(q).Where(goqu.I("t.id").Eq(transferID)).ScanStructContext(ctx, &flat)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("transfer", transferID)
	}
	return &flat, nil
}

func (r *transferRepository) GetTransferRows(ctx context.Context, conditions repository.QueryBuilder) ([]FlatTransfer, error) {
	rows := []FlatTransfer{}
	query := r.transferQuery(r.Repo.GoquDBWrapper).
		Order(goqu.I("t.created_at").Desc(), goqu.I("t.id").Desc())

	if !conditions.IsEmpty() {
		ex := conditions.BuildConditions(map[string]string{"status": "t.status"})
		if locationID, ok := ex["location_id"]; ok {
			delete(ex, "location_id")
			query = query.Where(goqu.Or(
				goqu.I("t.from_location_id").Eq(locationID),
				goqu.I("t.to_location_id").Eq(locationID),
			))
		}
		if len(ex) > 0 {
			query = query.Where(ex)
		}
	}

	if err := query.ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return rows, nil
}

func (r *transferRepository) GetTransferItems(ctx context.Context, q repository.Querier, transferID int) ([]models.TransferItem, error) {
	items := []models.TransferItem{}
	err := q.From(goqu.T("transfer_items").As("ti")).
		Select(
			goqu.I("ti.id").As("id"),
			goqu.I("ti.transfer_id").As("transfer_id"),
			goqu.I("ti.vial_id").As("vial_id"),
			goqu.I("v.asset_id").As("asset_id"),
			goqu.I("d.name").As("drug_name"),
			goqu.I("v.status").As("vial_status"),
		).
		InnerJoin(goqu.T("vials").As("v"), goqu.On(goqu.I("v.id").Eq(goqu.I("ti.vial_id")))).
		InnerJoin(goqu.T("drugs").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("v.drug_id")))).
		Where(goqu.I("ti.transfer_id").Eq(transferID)).
		Order(goqu.I("ti.id").Asc()).
		ScanStructsContext(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return items, nil
}

func (r *transferRepository) GetVials(ctx context.Context, tx *goqu.TxDatabase, vialIDs []int) ([]models.Vial, error) {
	vials := []models.Vial{}
	err := tx.From("vials").
		Where(goqu.C("id").In(vialIDs)).
		Order(goqu.C("id").Asc()).
		ScanStructsContext(ctx, &vials)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return vials, nil
}

// VialsInOpenTransfers returns which of vialIDs already belong to a PENDING
// or IN_TRANSIT transfer.
func (r *transferRepository) VialsInOpenTransfers(ctx context.Context, tx *goqu.TxDatabase, vialIDs []int) ([]int, error) {
	held := []int{}
	err := tx.From(goqu.T("transfer_items").As("ti")).
		Select(goqu.I("ti.vial_id")).
		InnerJoin(goqu.T("transfers").As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("ti.transfer_id")))).
		Where(
			goqu.I("ti.vial_id").In(vialIDs),
			goqu.I("t.status").In(metadata.OpenTransferStatuses),
		).
		Order(goqu.I("ti.vial_id").Asc()).
		ScanValsContext(ctx, &held)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return held, nil
}

func (r *transferRepository) transferQuery(q repository.Querier) *goqu.SelectDataset {
	return q.From(goqu.T("transfers").As("t")).
		Select(
			goqu.T("t").All(),
			goqu.I("fl.name").As("from_location_name"),
			goqu.I("tl.name").As("to_location_name"),
		).
		InnerJoin(goqu.T("locations").As("fl"), goqu.On(goqu.I("fl.id").Eq(goqu.I("t.from_location_id")))).
		InnerJoin(goqu.T("locations").As("tl"), goqu.On(goqu.I("tl.id").Eq(goqu.I("t.to_location_id"))))
}
