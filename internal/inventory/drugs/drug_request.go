package drugs

import (
	"strings"

	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"

	"github.com/shopspring/decimal"
)

type CreateDrugRequest struct {
	Name               string          `json:"name" binding:"required"`
	Category           string          `json:"category" binding:"required"`
	StorageRequirement string          `json:"storage_requirement"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	UserID             int             `json:"-"`
}

func (r *CreateDrugRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.StorageRequirement = strings.TrimSpace(r.StorageRequirement)

	if r.Name == "" || len(r.Name) > 255 {
		return custom_error.Validation("name", "name must be 1-255 characters")
	}
	if r.Category == "" || len(r.Category) > 100 {
		return custom_error.Validation("category", "category must be 1-100 characters")
	}
	return validatePrice(r.UnitPrice)
}

// UpdateDrugRequest corrects catalogue data. The drug name is fixed once
// stock has been received against it, so it cannot be changed here.
type UpdateDrugRequest struct {
	Version            int              `json:"version" binding:"required"`
	Category           *string          `json:"category"`
	StorageRequirement *string          `json:"storage_requirement"`
	UnitPrice          *decimal.Decimal `json:"unit_price"`
	UserID             int              `json:"-"`
}

func (r *UpdateDrugRequest) Validate() error {
	if r.Version < 1 {
		return custom_error.Validation("version", "version must be at least 1")
	}
	if r.Category == nil && r.StorageRequirement == nil && r.UnitPrice == nil {
		return custom_error.Validation("category", "nothing to update")
	}
	if r.Category != nil {
		trimmed := strings.TrimSpace(*r.Category)
		if trimmed == "" || len(trimmed) > 100 {
			return custom_error.Validation("category", "category must be 1-100 characters")
		}
		r.Category = &trimmed
	}
	if r.UnitPrice != nil {
		return validatePrice(*r.UnitPrice)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return custom_error.Validation("unit_price", "unit price cannot be negative")
	}
	if price.Exponent() < -2 && !price.Equal(price.Round(2)) {
		return custom_error.Validation("unit_price", "unit price has more than two decimal places")
	}
	return nil
}
