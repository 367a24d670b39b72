package users

import (
	"context"

	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/locations"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	"github.com/Archer-177/HighCostAtWork/internal/versionguard"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

type UserService struct {
	r     *repository.Repository
	ur    UserRepository
	lr    *locations.LocationRepository
	lane  *serializer.Serializer
	log   *inventorylog.InventoryLog
	clock clock.Clock
}

func NewUserService(
	r *repository.Repository,
	lane *serializer.Serializer,
	log *inventorylog.InventoryLog,
	c clock.Clock,
) *UserService {
	return &UserService{
		r:     r,
		ur:    NewRepository(r),
		lr:    locations.NewLocationRepository(r),
		lane:  lane,
		log:   log,
		clock: c,
	}
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.ur.GetUser(ctx, s.r.GoquDBWrapper, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.ur.GetUserByUsername(ctx, username)
}

func (s *UserService) GetUsers(ctx context.Context, locationID int) ([]models.User, error) {
	return s.ur.GetUsers(ctx, locationID)
}

// CreateUser registers a user at an active location.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	role, err := req.Validate()
	if err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "create_user", func(ctx context.Context) (*models.User, error) {
		user := &models.User{
			Username:    req.Username,
			Role:        role,
			LocationID:  req.LocationID,
			CanDelegate: req.CanDelegate,
			CreatedAt:   s.clock.Now(),
		}

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			location, err := s.lr.GetActiveLocation(ctx, tx, req.LocationID)
			if err != nil {
				return err
			}

			if err := s.ur.PersistUser(ctx, tx, user); err != nil {
				return err
			}

			return s.log.Entry(ctx, tx, inventorylog.ActionCreateUser, req.UserID,
				map[string]interface{}{
					"username":     user.Username,
					"role":         user.Role,
					"location":     location.Name,
					"can_delegate": user.CanDelegate,
					"msg":          "User created",
				},
				user,
			)
		})
		if err != nil {
			return nil, err
		}

		return user, nil
	})
}

func (s *UserService) UpdateUser(ctx context.Context, id int, req UpdateUserRequest) (*models.User, error) {
	role, err := req.Validate()
	if err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "update_user", func(ctx context.Context) (*models.User, error) {
		var updated *models.User

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			user, err := s.ur.GetUser(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := versionguard.Check(ctx, tx, versionguard.User, id, req.Version); err != nil {
				return err
			}
			if !user.IsActive {
				return custom_error.InvalidState("user", id, "user is inactive")
			}

			changes := goqu.Record{}
			data := map[string]interface{}{"username": user.Username, "msg": "User updated"}

			nextRole, nextDelegate := user.Role, user.CanDelegate
			if role != nil && *role != user.Role {
				nextRole = *role
				changes["role"] = nextRole
				data["role"] = map[string]roles.Role{"from": user.Role, "to": nextRole}
			}
			if req.CanDelegate != nil && *req.CanDelegate != user.CanDelegate {
				nextDelegate = *req.CanDelegate
				changes["can_delegate"] = nextDelegate
				data["can_delegate"] = map[string]bool{"from": user.CanDelegate, "to": nextDelegate}
			}
			if nextDelegate && nextRole != roles.Pharmacist {
				return custom_error.Validation("can_delegate", "only pharmacists can hold delegated approval rights")
			}

			if req.LocationID != nil && *req.LocationID != user.LocationID {
				location, err := s.lr.GetActiveLocation(ctx, tx, *req.LocationID)
				if err != nil {
					return err
				}
				changes["location_id"] = location.ID
				data["location_id"] = map[string]int{"from": user.LocationID, "to": location.ID}
			}

			if len(changes) == 0 {
				updated = user
				return nil
			}

			err = versionguard.Advance(ctx, tx, versionguard.User, id, req.Version, changes,
				goqu.C("is_active").IsTrue(),
			)
			if err != nil {
				return err
			}

			if err := s.log.Entry(ctx, tx, inventorylog.ActionUpdateUser, req.UserID, data, user); err != nil {
				return err
			}

			updated, err = s.ur.GetUser(ctx, tx, id)
			return err
		})
		if err != nil {
			return nil, err
		}

		return updated, nil
	})
}

// DeactivateUser soft-deletes a user. The row stays so audit entries and
// transfers keep resolving their actors.
func (s *UserService) DeactivateUser(ctx context.Context, id int, req DeactivateUserRequest) (*models.User, error) {
	if req.Version < 1 {
		return nil, custom_error.Validation("version", "version must be at least 1")
	}
	if id == req.UserID {
		return nil, custom_error.Validation("id", "users cannot deactivate themselves")
	}

	return serializer.Do(ctx, s.lane, "deactivate_user", func(ctx context.Context) (*models.User, error) {
		var updated *models.User

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			user, err := s.ur.GetUser(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := versionguard.Check(ctx, tx, versionguard.User, id, req.Version); err != nil {
				return err
			}
			if !user.IsActive {
				return custom_error.InvalidState("user", id, "user is already inactive")
			}

			err = versionguard.Advance(ctx, tx, versionguard.User, id, req.Version,
				goqu.Record{"is_active": false},
				goqu.C("is_active").IsTrue(),
			)
			if err != nil {
				return err
			}

			err = s.log.Entry(ctx, tx, inventorylog.ActionDeactivateUser, req.UserID,
				map[string]interface{}{"username": user.Username, "msg": "User deactivated"},
				user,
			)
			if err != nil {
				return err
			}

			updated, err = s.ur.GetUser(ctx, tx, id)
			return err
		})
		if err != nil {
			return nil, err
		}

		return updated, nil
	})
}
