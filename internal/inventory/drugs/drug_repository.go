package drugs

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type DrugRepository struct {
	Repository *repository.Repository
}

func NewDrugRepository(r *repository.Repository) *DrugRepository {
	return &DrugRepository{Repository: r}
}

func (r *DrugRepository) GetDrugs(ctx context.Context, includeInactive bool) ([]models.Drug, error) {
	drugs := []models.Drug{}
	query := r.Repository.GoquDBWrapper.From("drugs").Order(goqu.C("name").Asc())
	if !includeInactive {
		query = query.Where(goqu.C("is_active").IsTrue())
	}

	if err := query.ScanStructsContext(ctx, &drugs); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return drugs, nil
}

func (r *DrugRepository) GetDrug(ctx context.Context, q repository.Querier, id int) (*models.Drug, error) {
	var drug models.Drug
	found, err := q.From("drugs").Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &drug)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("drug", id)
	}

	return &drug, nil
}

// GetActiveDrug treats a retired drug as missing, so no new stock is received against it.
func (r *DrugRepository) GetActiveDrug(ctx context.Context, q repository.Querier, id int) (*models.Drug, error) {
	drug, err := r.GetDrug(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !drug.IsActive {
		return nil, custom_error.NotFound("drug", id)
	}
	return drug, nil
}

func (r *DrugRepository) PersistDrug(ctx context.Context, tx *goqu.TxDatabase, drug *models.Drug) error {
	id, err := repository.InsertReturningID(ctx, tx, "drugs", goqu.Record{
		"name":                drug.Name,
		"category":            drug.Category,
		"storage_requirement": drug.StorageRequirement,
		"unit_price":          drug.UnitPrice,
		"is_active":           true,
		"created_at":          drug.CreatedAt,
		"version":             1,
	})
	if err != nil {
		return fmt.Errorf("failed to insert drug record: %w", custom_error.FromDBError(err))
	}

	drug.ID = id
	drug.IsActive = true
	drug.Version = 1
	return nil
}
