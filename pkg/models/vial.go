package models

import (
	"time"

	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
)

type Vial struct {
	ID                     int                 `json:"id" db:"id"`
	AssetID                string              `json:"asset_id" db:"asset_id"`
	DrugID                 int                 `json:"drug_id" db:"drug_id"`
	BatchNumber            string              `json:"batch_number" db:"batch_number"`
	ExpiryDate             time.Time           `json:"expiry_date" db:"expiry_date"`
	LocationID             int                 `json:"location_id" db:"location_id"`
	Status                 metadata.VialStatus `json:"status" db:"status"`
	GoodsReceiptNumber     *string             `json:"goods_receipt_number,omitempty" db:"goods_receipt_number"`
	PatientMRN             *string             `json:"patient_mrn,omitempty" db:"patient_mrn"`
	ClinicalNotes          *string             `json:"clinical_notes,omitempty" db:"clinical_notes"`
	DiscardReason          *string             `json:"discard_reason,omitempty" db:"discard_reason"`
	DisposalRegisterNumber *string             `json:"disposal_register_number,omitempty" db:"disposal_register_number"`
	UsedAt                 *time.Time          `json:"used_at,omitempty" db:"used_at"`
	UsedBy                 *int                `json:"used_by,omitempty" db:"used_by"`
	CreatedAt              time.Time           `json:"created_at" db:"created_at"`
	Version                int                 `json:"version" db:"version"`
}

func (v *Vial) CreateLogView() AuditLog {
	return AuditLog{
		EntityID:   v.ID,
		EntityType: "vial",
	}
}

// FlatVialRecord is a vial joined with its drug and location names.
type FlatVialRecord struct {
	Vial
	DrugName     string `db:"drug_name"`
	LocationName string `db:"location_name"`
}

type VialView struct {
	Vial
	DrugName        string               `json:"drug_name"`
	LocationName    string               `json:"location_name"`
	DaysUntilExpiry int                  `json:"days_until_expiry"`
	ExpiryColor     metadata.ExpiryColor `json:"expiry_color"`
}

func (fv *FlatVialRecord) TransformToView(now time.Time) VialView {
	days := metadata.DaysUntilExpiry(fv.ExpiryDate, now)

	return VialView{
		Vial:            fv.Vial,
		DrugName:        fv.DrugName,
		LocationName:    fv.LocationName,
		DaysUntilExpiry: days,
		ExpiryColor:     metadata.ExpiryColorFor(days),
	}
}

type VialJourney struct {
	Vial   VialView   `json:"vial"`
	Events []AuditLog `json:"events"`
}
