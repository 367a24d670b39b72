package locations

import (
	"strings"

	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
)

type CreateLocationRequest struct {
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type" binding:"required"`
	ParentHubID *int   `json:"parent_hub_id"`
	UserID      int    `json:"-"`
}

func (r *CreateLocationRequest) Validate() (metadata.LocationType, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" || len(r.Name) > 255 {
		return "", custom_error.Validation("name", "name must be 1-255 characters")
	}

	locationType, err := metadata.NewLocationType(r.Type)
	if err != nil {
		return "", custom_error.Validation("type", err.Error())
	}

	if locationType.NeedsParentHub() && r.ParentHubID == nil {
		return "", custom_error.Validation("parent_hub_id", "wards and remote sites need a parent hub")
	}
	if !locationType.NeedsParentHub() && r.ParentHubID != nil {
		return "", custom_error.Validation("parent_hub_id", "a hub cannot have a parent hub")
	}

	return locationType, nil
}

// UpdateLocationRequest renames and/or reparents a location.
type UpdateLocationRequest struct {
	Version     int     `json:"version" binding:"required"`
	Name        *string `json:"name"`
	ParentHubID *int    `json:"parent_hub_id"`
	UserID      int     `json:"-"`
}

func (r *UpdateLocationRequest) Validate() error {
	if r.Name == nil && r.ParentHubID == nil {
		return custom_error.Validation("name", "nothing to update")
	}
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		if trimmed == "" || len(trimmed) > 255 {
			return custom_error.Validation("name", "name must be 1-255 characters")
		}
		r.Name = &trimmed
	}
	if r.Version < 1 {
		return custom_error.Validation("version", "version must be at least 1")
	}
	return nil
}

type DeactivateLocationRequest struct {
	Version int `json:"version" binding:"required"`
	UserID  int `json:"-"`
}
