package transfers

import (
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
)

const maxTransferVials = 500

type CreateRequest struct {
	FromLocationID int   `json:"from_location_id" binding:"required"`
	ToLocationID   int   `json:"to_location_id" binding:"required"`
	VialIDs        []int `json:"vial_ids" binding:"required"`
	CreatedBy      int   `json:"-"`
}

func (r CreateRequest) Validate() error {
	if r.FromLocationID == r.ToLocationID {
		return custom_error.Validation("to_location_id", "source and destination must differ")
	}
	if len(r.VialIDs) == 0 {
		return custom_error.Validation("vial_ids", "at least one vial is required")
	}
	if len(r.VialIDs) > maxTransferVials {
		return custom_error.Validation("vial_ids", fmt.Sprintf("at most %d vials per transfer", maxTransferVials))
	}

	seen := make(map[int]bool, len(r.VialIDs))
	for _, id := range r.VialIDs {
		if id <= 0 {
			return custom_error.Validation("vial_ids", fmt.Sprintf("invalid vial id %d", id))
		}
		if seen[id] {
			return custom_error.Validation("vial_ids", fmt.Sprintf("vial %d is listed twice", id))
		}
		seen[id] = true
	}
	return nil
}

// ActionRequest approves, completes or cancels a transfer.
type ActionRequest struct {
	TransferID int `json:"-"`
	Version    int `json:"version" binding:"required"`
	UserID     int `json:"-"`
}

func (r ActionRequest) Validate() error {
	if r.Version < 1 {
		return custom_error.Validation("version", "version must be at least 1")
	}
	return nil
}

type CreateResult struct {
	Transfer      models.Transfer `json:"transfer"`
	NeedsApproval bool            `json:"needs_approval"`
	Stock         []stocks.Result `json:"stock"`
}

type ActionResult struct {
	Transfer models.Transfer `json:"transfer"`
	Stock    []stocks.Result `json:"stock"`
}
