package models

import (
	"time"

	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
)

type Transfer struct {
	ID               int                     `json:"id" db:"id"`
	FromLocationID   int                     `json:"from_location_id" db:"from_location_id"`
	ToLocationID     int                     `json:"to_location_id" db:"to_location_id"`
	Status           metadata.TransferStatus `json:"status" db:"status"`
	CreatedBy        int                     `json:"created_by" db:"created_by"`
	ApprovedBy       *int                    `json:"approved_by,omitempty" db:"approved_by"`
	CompletedBy      *int                    `json:"completed_by,omitempty" db:"completed_by"`
	CancelledBy      *int                    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CreatedAt        time.Time               `json:"created_at" db:"created_at"`
	ApprovedAt       *time.Time              `json:"approved_at,omitempty" db:"approved_at"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt      *time.Time              `json:"cancelled_at,omitempty" db:"cancelled_at"`
	Version          int                     `json:"version" db:"version"`
	FromLocationName string                  `json:"from_location_name,omitempty" db:"-"`
	ToLocationName   string                  `json:"to_location_name,omitempty" db:"-"`
	Items            []TransferItem          `json:"items,omitempty" db:"-"`
}

type TransferItem struct {
	ID         int                 `json:"id" db:"id"`
	TransferID int                 `json:"transfer_id" db:"transfer_id"`
	VialID     int                 `json:"vial_id" db:"vial_id"`
	AssetID    string              `json:"asset_id" db:"asset_id"`
	DrugName   string              `json:"drug_name" db:"drug_name"`
	VialStatus metadata.VialStatus `json:"vial_status" db:"vial_status"`
}

func (t *Transfer) VialIDs() []int {
	ids := make([]int, len(t.Items))
	for i, item := range t.Items {
		ids[i] = item.VialID
	}
	return ids
}

func (t *Transfer) CreateLogView() AuditLog {
	return AuditLog{
		EntityID:   t.ID,
		EntityType: "transfer",
	}
}
