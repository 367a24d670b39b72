package users

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type UserRepository interface {
	PersistUser(ctx context.Context, tx *goqu.TxDatabase, user *models.User) error
	GetUser(ctx context.Context, q repository.Querier, id int) (*models.User, error)
	GetActiveUser(ctx context.Context, q repository.Querier, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, locationID int) ([]models.User, error)
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func (r *userRepositoryImpl) PersistUser(ctx context.Context, tx *goqu.TxDatabase, user *models.User) error {
	id, err := repository.InsertReturningID(ctx, tx, "users", goqu.Record{
		"username":     user.Username,
		"role":         user.Role,
		"location_id":  user.LocationID,
		"can_delegate": user.CanDelegate,
		"is_active":    true,
		"created_at":   user.CreatedAt,
		"version":      1,
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", custom_error.FromDBError(err))
	}

	user.ID = id
	user.IsActive = true
	user.Version = 1
	return nil
}

// GetUsers lists active users, optionally only those based at locationID.
func (r *userRepositoryImpl) GetUsers(ctx context.Context, locationID int) ([]models.User, error) {
	users := []models.User{}
	query := r.repository.GoquDBWrapper.From("users").
		Where(goqu.C("is_active").IsTrue()).
		Order(goqu.C("username").Asc())
	if locationID != 0 {
		query = query.Where(goqu.C("location_id").Eq(locationID))
	}

	if err := query.ScanStructsContext(ctx, &users); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return users, nil
}

func (r *userRepositoryImpl) GetUser(ctx context.Context, q repository.Querier, id int) (*models.User, error) {
	var user models.User
	found, err := q.From("users").Where(goqu.Ex{"id": id}).ScanStructContext(ctx, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("user", id)
	}

	return &user, nil
}

// GetActiveUser treats a deactivated user as missing.
func (r *userRepositoryImpl) GetActiveUser(ctx context.Context, q repository.Querier, id int) (*models.User, error) {
	user, err := r.GetUser(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, custom_error.NotFound("user", id)
	}
	return user, nil
}

func (r *userRepositoryImpl) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	found, err := r.repository.GoquDBWrapper.From("users").
		Where(goqu.Ex{"username": username}).
		ScanStructContext(ctx, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, &custom_error.DomainError{Kind: custom_error.ErrNotFound, Entity: "user", Message: username}
	}

	return &user, nil
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}
