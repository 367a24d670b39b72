package drugs

import (
	"context"

	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	"github.com/Archer-177/HighCostAtWork/internal/versionguard"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type DrugService struct {
	r     *repository.Repository
	dr    *DrugRepository
	lane  *serializer.Serializer
	log   *inventorylog.InventoryLog
	clock clock.Clock
}

func NewDrugService(
	r *repository.Repository,
	lane *serializer.Serializer,
	log *inventorylog.InventoryLog,
	c clock.Clock,
) *DrugService {
	return &DrugService{r: r, dr: NewDrugRepository(r), lane: lane, log: log, clock: c}
}

func (s *DrugService) GetDrugs(ctx context.Context, includeInactive bool) ([]models.Drug, error) {
	return s.dr.GetDrugs(ctx, includeInactive)
}

func (s *DrugService) GetDrug(ctx context.Context, id int) (*models.Drug, error) {
	return s.dr.GetDrug(ctx, s.r.GoquDBWrapper, id)
}

func (s *DrugService) CreateDrug(ctx context.Context, req CreateDrugRequest) (*models.Drug, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "create_drug", func(ctx context.Context) (*models.Drug, error) {
		drug := &models.Drug{
			Name:               req.Name,
			Category:           req.Category,
			StorageRequirement: req.StorageRequirement,
			UnitPrice:          req.UnitPrice,
			CreatedAt:          s.clock.Now(),
		}

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			if err := s.dr.PersistDrug(ctx, tx, drug); err != nil {
				return err
			}

			return s.log.Entry(ctx, tx, inventorylog.ActionCreateDrug, req.UserID,
				map[string]interface{}{
					"name":       drug.Name,
					"category":   drug.Category,
					"unit_price": drug.UnitPrice.StringFixed(2),
					"msg":        "Drug added to catalogue",
				},
				drug,
			)
		})
		if err != nil {
			return nil, err
		}

		return drug, nil
	})
}

func (s *DrugService) UpdateDrug(ctx context.Context, id int, req UpdateDrugRequest) (*models.Drug, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "update_drug", func(ctx context.Context) (*models.Drug, error) {
		var updated *models.Drug

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			drug, err := s.dr.GetDrug(ctx, tx, id)
			if err != nil {
				return err
			}

			changes := goqu.Record{}
			data := map[string]interface{}{"msg": "Drug details corrected"}

			if req.Category != nil && *req.Category != drug.Category {
				changes["category"] = *req.Category
				data["category"] = map[string]string{"from": drug.Category, "to": *req.Category}
			}
			if req.StorageRequirement != nil && *req.StorageRequirement != drug.StorageRequirement {
				changes["storage_requirement"] = *req.StorageRequirement
				data["storage_requirement"] = map[string]string{"from": drug.StorageRequirement, "to": *req.StorageRequirement}
			}
			if req.UnitPrice != nil && !req.UnitPrice.Equal(drug.UnitPrice) {
				changes["unit_price"] = *req.UnitPrice
				data["unit_price"] = map[string]string{"from": drug.UnitPrice.StringFixed(2), "to": req.UnitPrice.StringFixed(2)}
			}

			if len(changes) == 0 {
				if err := versionguard.Check(ctx, tx, versionguard.Drug, id, req.Version); err != nil {
					return err
				}
				updated = drug
				return nil
			}

			if err := versionguard.Advance(ctx, tx, versionguard.Drug, id, req.Version, changes); err != nil {
				return err
			}
			if err := s.log.Entry(ctx, tx, inventorylog.ActionUpdateDrug, req.UserID, data, drug); err != nil {
				return err
			}

			updated, err = s.dr.GetDrug(ctx, tx, id)
			return err
		})
		if err != nil {
			return nil, err
		}

		return updated, nil
	})
}
