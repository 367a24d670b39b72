package stocks

import (
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
)

const maxMinStock = 10000

// SetThresholdRequest creates a threshold when Version is 0 and otherwise
// updates the threshold currently at Version.
type SetThresholdRequest struct {
	LocationID int `json:"location_id" binding:"required"`
	DrugID     int `json:"drug_id" binding:"required"`
	MinStock   int `json:"min_stock"`
	Version    int `json:"version"`
	UserID     int `json:"-"`
}

func (r *SetThresholdRequest) Validate() error {
	if r.LocationID <= 0 {
		return custom_error.Validation("location_id", "location_id must be positive")
	}
	if r.DrugID <= 0 {
		return custom_error.Validation("drug_id", "drug_id must be positive")
	}
	if r.MinStock < 0 || r.MinStock > maxMinStock {
		return custom_error.Validation("min_stock", "min_stock must be between 0 and 10000")
	}
	if r.Version < 0 {
		return custom_error.Validation("version", "version cannot be negative")
	}
	return nil
}

type SetThresholdResult struct {
	Threshold models.StockThreshold `json:"threshold"`
	Stock     Result                `json:"stock"`
}
