package locations

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type LocationRepository struct {
	Repository *repository.Repository
}

func NewLocationRepository(r *repository.Repository) *LocationRepository {
	return &LocationRepository{Repository: r}
}

func (r *LocationRepository) GetLocations(ctx context.Context, includeInactive bool) ([]models.Location, error) {
	locations := []models.Location{}
	query := r.Repository.GoquDBWrapper.From("locations").Order(goqu.C("name").Asc())
	if !includeInactive {
		query = query.Where(goqu.C("is_active").IsTrue())
	}

	if err := query.ScanStructsContext(ctx, &locations); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return locations, nil
}

// GetLocation loads one location, active or not. Missing rows are NotFound.
func (r *LocationRepository) GetLocation(ctx context.Context, q repository.Querier, id int) (*models.Location, error) {
	var location models.Location
	found, err := q.From("locations").Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &location)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("location", id)
	}

	return &location, nil
}

// GetActiveLocation treats a deactivated location as missing.
func (r *LocationRepository) GetActiveLocation(ctx context.Context, q repository.Querier, id int) (*models.Location, error) {
	location, err := r.GetLocation(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !location.IsActive {
		return nil, custom_error.NotFound("location", id)
	}
	return location, nil
}

func (r *LocationRepository) PersistLocation(ctx context.Context, tx *goqu.TxDatabase, location *models.Location) error {
	id, err := repository.InsertReturningID(ctx, tx, "locations", goqu.Record{
		"name":          location.Name,
		"type":          location.Type,
		"parent_hub_id": location.ParentHubID,
		"is_active":     true,
		"created_at":    location.CreatedAt,
		"version":       1,
	})
	if err != nil {
		return fmt.Errorf("failed to insert location record: %w", custom_error.FromDBError(err))
	}

	location.ID = id
	location.IsActive = true
	location.Version = 1
	return nil
}

// Occupancy counts what still ties a location to live stock.
type Occupancy struct {
	HeldVials      int
	OpenTransfers  int
	ActiveChildren int
}

func (o Occupancy) IsEmpty() bool {
	return o.HeldVials == 0 && o.OpenTransfers == 0 && o.ActiveChildren == 0
}

func (r *LocationRepository) GetOccupancy(ctx context.Context, tx *goqu.TxDatabase, id int) (Occupancy, error) {
	var o Occupancy

	held, err := tx.From("vials").Where(
		goqu.C("location_id").Eq(id),
		goqu.C("status").In(metadata.VialAvailable, metadata.VialInTransit),
	).CountContext(ctx)
	if err != nil {
		return o, fmt.Errorf("count held vials: %w", err)
	}

	open, err := tx.From("transfers").Where(
		goqu.Or(goqu.C("from_location_id").Eq(id), goqu.C("to_location_id").Eq(id)),
		goqu.C("status").In(metadata.OpenTransferStatuses),
	).CountContext(ctx)
	if err != nil {
		return o, fmt.Errorf("count open transfers: %w", err)
	}

	children, err := tx.From("locations").Where(
		goqu.C("parent_hub_id").Eq(id),
		goqu.C("is_active").IsTrue(),
	).CountContext(ctx)
	if err != nil {
		return o, fmt.Errorf("count child locations: %w", err)
	}

	o.HeldVials, o.OpenTransfers, o.ActiveChildren = int(held), int(open), int(children)
	return o, nil
}
