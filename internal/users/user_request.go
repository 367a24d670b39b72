package users

import (
	"regexp"
	"strings"

	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

type CreateUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Role        string `json:"role" binding:"required"`
	LocationID  int    `json:"location_id" binding:"required"`
	CanDelegate bool   `json:"can_delegate"`
	UserID      int    `json:"-"`
}

func (r *CreateUserRequest) Validate() (roles.Role, error) {
	r.Username = strings.TrimSpace(r.Username)
	if !usernamePattern.MatchString(r.Username) {
		return "", custom_error.Validation("username", "username must be 3-50 letters, digits, dots, dashes or underscores")
	}

	role, err := roles.NewRole(r.Role)
	if err != nil {
		return "", custom_error.Validation("role", err.Error())
	}

	if r.CanDelegate && role != roles.Pharmacist {
		return "", custom_error.Validation("can_delegate", "only pharmacists can hold delegated approval rights")
	}

	return role, nil
}

// UpdateUserRequest changes a user's role, home location or delegation.
type UpdateUserRequest struct {
	Version     int     `json:"version" binding:"required"`
	Role        *string `json:"role"`
	LocationID  *int    `json:"location_id"`
	CanDelegate *bool   `json:"can_delegate"`
	UserID      int     `json:"-"`
}

func (r *UpdateUserRequest) Validate() (*roles.Role, error) {
	if r.Version < 1 {
		return nil, custom_error.Validation("version", "version must be at least 1")
	}
	if r.Role == nil && r.LocationID == nil && r.CanDelegate == nil {
		return nil, custom_error.Validation("role", "nothing to update")
	}
	if r.LocationID != nil && *r.LocationID <= 0 {
		return nil, custom_error.Validation("location_id", "location_id must be positive")
	}
	if r.Role == nil {
		return nil, nil
	}

	role, err := roles.NewRole(*r.Role)
	if err != nil {
		return nil, custom_error.Validation("role", err.Error())
	}
	return &role, nil
}

type DeactivateUserRequest struct {
	Version int `json:"version" binding:"required"`
	UserID  int `json:"-"`
}
