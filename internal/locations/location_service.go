package locations

import (
	"context"
	"fmt"

	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	"github.com/Archer-177/HighCostAtWork/internal/versionguard"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type LocationService struct {
	r     *repository.Repository
	lr    *LocationRepository
	lane  *serializer.Serializer
	log   *inventorylog.InventoryLog
	clock clock.Clock
}

func NewLocationService(
	r *repository.Repository,
	lane *serializer.Serializer,
	log *inventorylog.InventoryLog,
	c clock.Clock,
) *LocationService {
	return &LocationService{
		r:     r,
		lr:    NewLocationRepository(r),
		lane:  lane,
		log:   log,
		clock: c,
	}
}

func (s *LocationService) GetLocations(ctx context.Context, includeInactive bool) ([]models.Location, error) {
	return s.lr.GetLocations(ctx, includeInactive)
}

func (s *LocationService) GetLocation(ctx context.Context, id int) (*models.Location, error) {
	return s.lr.GetLocation(ctx, s.r.GoquDBWrapper, id)
}

func (s *LocationService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*models.Location, error) {
	locationType, err := req.Validate()
	if err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "create_location", func(ctx context.Context) (*models.Location, error) {
		location := &models.Location{
			Name:        req.Name,
			Type:        locationType,
			ParentHubID: req.ParentHubID,
			CreatedAt:   s.clock.Now(),
		}

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			if location.ParentHubID != nil {
				if err := s.requireHub(ctx, tx, *location.ParentHubID); err != nil {
					return err
				}
			}

			if err := s.lr.PersistLocation(ctx, tx, location); err != nil {
				return err
			}

			return s.log.Entry(ctx, tx, inventorylog.ActionCreateLocation, req.UserID,
				map[string]interface{}{
					"name":          location.Name,
					"type":          location.Type,
					"parent_hub_id": location.ParentHubID,
					"msg":           "Location created",
				},
				location,
			)
		})
		if err != nil {
			return nil, err
		}

		return location, nil
	})
}

func (s *LocationService) UpdateLocation(ctx context.Context, id int, req UpdateLocationRequest) (*models.Location, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "update_location", func(ctx context.Context) (*models.Location, error) {
		var updated *models.Location

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			location, err := s.lr.GetLocation(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := versionguard.Check(ctx, tx, versionguard.Location, id, req.Version); err != nil {
				return err
			}

			changes := goqu.Record{}
			data := map[string]interface{}{"msg": "Location updated"}

			if req.Name != nil && *req.Name != location.Name {
				changes["name"] = *req.Name
				data["name"] = map[string]string{"from": location.Name, "to": *req.Name}
			}

			if req.ParentHubID != nil && !location.IsChildOf(*req.ParentHubID) {
				if !location.Type.NeedsParentHub() {
					return custom_error.Validation("parent_hub_id", "a hub cannot have a parent hub")
				}
				if err := s.requireHub(ctx, tx, *req.ParentHubID); err != nil {
					return err
				}
				changes["parent_hub_id"] = *req.ParentHubID
				data["parent_hub_id"] = map[string]interface{}{"from": location.ParentHubID, "to": *req.ParentHubID}
			}

			if len(changes) == 0 {
				updated = location
				return nil
			}

			if err := versionguard.Advance(ctx, tx, versionguard.Location, id, req.Version, changes); err != nil {
				return err
			}

			if err := s.log.Entry(ctx, tx, inventorylog.ActionUpdateLocation, req.UserID, data, location); err != nil {
				return err
			}

			updated, err = s.lr.GetLocation(ctx, tx, id)
			return err
		})
		if err != nil {
			return nil, err
		}

		return updated, nil
	})
}

// DeactivateLocation soft-deletes a location. It is refused while the
// location still holds vials, takes part in an open transfer or supervises
// active wards and remote sites.
func (s *LocationService) DeactivateLocation(ctx context.Context, id int, req DeactivateLocationRequest) (*models.Location, error) {
	return serializer.Do(ctx, s.lane, "deactivate_location", func(ctx context.Context) (*models.Location, error) {
		var updated *models.Location

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			location, err := s.lr.GetLocation(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := versionguard.Check(ctx, tx, versionguard.Location, id, req.Version); err != nil {
				return err
			}
			if !location.IsActive {
				return custom_error.InvalidState("location", id, "location is already inactive")
			}

			occupancy, err := s.lr.GetOccupancy(ctx, tx, id)
			if err != nil {
				return err
			}
			if !occupancy.IsEmpty() {
				return custom_error.InvalidState("location", id, fmt.Sprintf(
					"location still holds %d vials, %d open transfers and %d active child locations",
					occupancy.HeldVials, occupancy.OpenTransfers, occupancy.ActiveChildren,
				))
			}

			err = versionguard.Advance(ctx, tx, versionguard.Location, id, req.Version,
				goqu.Record{"is_active": false},
				goqu.C("is_active").IsTrue(),
			)
			if err != nil {
				return err
			}

			err = s.log.Entry(ctx, tx, inventorylog.ActionDeactivate, req.UserID,
				map[string]interface{}{"name": location.Name, "msg": "Location deactivated"},
				location,
			)
			if err != nil {
				return err
			}

			updated, err = s.lr.GetLocation(ctx, tx, id)
			return err
		})
		if err != nil {
			return nil, err
		}

		return updated, nil
	})
}

func (s *LocationService) requireHub(ctx context.Context, tx *goqu.TxDatabase, hubID int) error {
	parent, err := s.lr.GetActiveLocation(ctx, tx, hubID)
	if err != nil {
		return err
	}
	if parent.Type != metadata.LocationHub {
		return custom_error.Validation("parent_hub_id", fmt.Sprintf("location %d is not a hub", hubID))
	}
	return nil
}
