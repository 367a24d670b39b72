package stocks

import (
	"context"

	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	"github.com/Archer-177/HighCostAtWork/internal/versionguard"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type StockService struct {
	r       *repository.Repository
	sr      *StockRepository
	monitor *Monitor
	lane    *serializer.Serializer
	log     *inventorylog.InventoryLog
}

func NewStockService(
	r *repository.Repository,
	lane *serializer.Serializer,
	log *inventorylog.InventoryLog,
	monitor *Monitor,
) *StockService {
	return &StockService{r: r, sr: NewRepository(r), monitor: monitor, lane: lane, log: log}
}

func (s *StockService) ListThresholds(ctx context.Context, locationID int) ([]models.StockThreshold, error) {
	return s.sr.GetThresholds(ctx, locationID)
}

func (s *StockService) StockLevels(ctx context.Context, locationID int) ([]models.StockLevel, error) {
	return s.sr.GetStockLevels(ctx, locationID)
}

func (s *StockService) SetThreshold(ctx context.Context, req SetThresholdRequest) (*SetThresholdResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "set_threshold", func(ctx context.Context) (*SetThresholdResult, error) {
		var result SetThresholdResult

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			if err := s.requireActive(ctx, tx, "locations", "location", req.LocationID); err != nil {
				return err
			}
			if err := s.requireActive(ctx, tx, "drugs", "drug", req.DrugID); err != nil {
				return err
			}

			existing, err := s.sr.FindThreshold(ctx, tx, req.LocationID, req.DrugID)
			if err != nil {
				return err
			}

			threshold := models.StockThreshold{LocationID: req.LocationID, DrugID: req.DrugID, MinStock: req.MinStock}
			data := map[string]interface{}{
				"location_id": req.LocationID,
				"drug_id":     req.DrugID,
				"min_stock":   req.MinStock,
			}

			switch {
			case existing == nil && req.Version == 0:
				if err := s.sr.PersistThreshold(ctx, tx, &threshold); err != nil {
					return err
				}
				data["msg"] = "Stock threshold configured"
			case existing == nil:
				return &custom_error.DomainError{
					Kind:    custom_error.ErrNotFound,
					Entity:  "stock threshold",
					Message: "no threshold configured for this location and drug",
				}
			case req.Version == 0:
				return custom_error.VersionConflict(versionguard.StockThreshold.Entity(), existing.ID, 0, existing.Version)
			default:
				err := versionguard.Advance(ctx, tx, versionguard.StockThreshold, existing.ID, req.Version,
					goqu.Record{"min_stock": req.MinStock})
				if err != nil {
					return err
				}
				threshold.ID = existing.ID
				threshold.Version = req.Version + 1
				data["previous_min_stock"] = existing.MinStock
				data["msg"] = "Stock threshold changed"
			}

			if err := s.log.Entry(ctx, tx, inventorylog.ActionSetThreshold, req.UserID, data, &threshold); err != nil {
				return err
			}

			stock, err := s.monitor.Check(ctx, tx, req.LocationID, req.DrugID)
			if err != nil {
				return err
			}

			result = SetThresholdResult{Threshold: threshold, Stock: stock}
			return nil
		})
		if err != nil {
			return nil, err
		}

		return &result, nil
	})
}

func (s *StockService) requireActive(ctx context.Context, tx *goqu.TxDatabase, table, entity string, id int) error {
	var active bool
	found, err := tx.From(table).Select("is_active").Where(goqu.C("id").Eq(id)).ScanValContext(ctx, &active)
	if err != nil {
		return err
	}
	if !found || !active {
		return custom_error.NotFound(entity, id)
	}
	return nil
}
