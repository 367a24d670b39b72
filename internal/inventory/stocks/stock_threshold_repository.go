package stocks

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type StockRepository struct {
	Repository *repository.Repository
}

func NewRepository(r *repository.Repository) *StockRepository {
	return &StockRepository{Repository: r}
}

// FindThreshold returns nil without error when the pair has no threshold.
func (r *StockRepository) FindThreshold(ctx context.Context, q repository.Querier, locationID, drugID int) (*models.StockThreshold, error) {
	var threshold models.StockThreshold
	found, err := q.From("stock_thresholds").Where(
		goqu.C("location_id").Eq(locationID),
		goqu.C("drug_id").Eq(drugID),
	).ScanStructContext(ctx, &threshold)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &threshold, nil
}

func (r *StockRepository) PersistThreshold(ctx context.Context, tx *goqu.TxDatabase, threshold *models.StockThreshold) error {
	id, err := repository.InsertReturningID(ctx, tx, "stock_thresholds", goqu.Record{
		"location_id": threshold.LocationID,
		"drug_id":     threshold.DrugID,
		"min_stock":   threshold.MinStock,
		"version":     1,
	})
	if err != nil {
		return fmt.Errorf("failed to insert stock threshold: %w", custom_error.FromDBError(err))
	}

	threshold.ID = id
	threshold.Version = 1
	return nil
}

// GetThresholds lists thresholds, optionally for one location.
func (r *StockRepository) GetThresholds(ctx context.Context, locationID int) ([]models.StockThreshold, error) {
	thresholds := []models.StockThreshold{}
	query := r.Repository.GoquDBWrapper.From("stock_thresholds").
		Order(goqu.C("location_id").Asc(), goqu.C("drug_id").Asc())
	if locationID != 0 {
		query = query.Where(goqu.C("location_id").Eq(locationID))
	}

	if err := query.ScanStructsContext(ctx, &thresholds); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return thresholds, nil
}

// GetStockLevels reports, for every active drug held or tracked at the
// location, how many vials are AVAILABLE there and the threshold if any.
func (r *StockRepository) GetStockLevels(ctx context.Context, locationID int) ([]models.StockLevel, error) {
	levels := []models.StockLevel{}

	query := r.Repository.GoquDBWrapper.
		Select(
			goqu.V(locationID).As("location_id"),
			goqu.I("d.id").As("drug_id"),
			goqu.I("d.name").As("drug_name"),
			goqu.COUNT(goqu.I("v.id")).As("available_count"),
			goqu.I("t.min_stock").As("min_stock"),
			goqu.I("t.version").As("threshold_version"),
		).
		From(goqu.T("drugs").As("d")).
		LeftJoin(goqu.T("vials").As("v"), goqu.On(
			goqu.I("v.drug_id").Eq(goqu.I("d.id")),
			goqu.I("v.location_id").Eq(locationID),
			goqu.I("v.status").Eq(metadata.VialAvailable),
		)).
		LeftJoin(goqu.T("stock_thresholds").As("t"), goqu.On(
			goqu.I("t.drug_id").Eq(goqu.I("d.id")),
			goqu.I("t.location_id").Eq(locationID),
		)).
		Where(goqu.I("d.is_active").IsTrue()).
		GroupBy(goqu.I("d.id"), goqu.I("d.name"), goqu.I("t.id"), goqu.I("t.min_stock"), goqu.I("t.version")).
		Having(goqu.Or(
			goqu.COUNT(goqu.I("v.id")).Gt(0),
			goqu.I("t.id").IsNotNull(),
		)).
		Order(goqu.I("d.name").Asc())

	if err := query.ScanStructsContext(ctx, &levels); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	for i := range levels {
		level := &levels[i]
		if level.MinStock != nil {
			level.BelowMinimum = level.AvailableCount < *level.MinStock
		}
	}
	return levels, nil
}
