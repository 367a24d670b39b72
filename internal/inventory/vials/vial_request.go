package vials

import (
	"regexp"
	"strings"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/shopspring/decimal"
)

const (
	maxReceiveQuantity = 1000
	maxBatchLength     = 100
	maxReferenceLength = 100
	maxNotesLength     = 1000
	defaultSearchLimit = 100
	maxSearchLimit     = 500
	expiryDateLayout   = "2006-01-02"
)

var mrnPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,20}$`)

type ReceiveRequest struct {
	DrugID             int    `json:"drug_id" binding:"required"`
	LocationID         int    `json:"location_id" binding:"required"`
	BatchNumber        string `json:"batch_number" binding:"required"`
	ExpiryDate         string `json:"expiry_date" binding:"required"`
	Quantity           int    `json:"quantity" binding:"required"`
	GoodsReceiptNumber string `json:"goods_receipt_number"`
	UserID             int    `json:"-"`
}

// Validate normalises the request and returns the parsed expiry date.
func (r *ReceiveRequest) Validate(today time.Time) (time.Time, error) {
	if r.DrugID <= 0 {
		return time.Time{}, custom_error.Validation("drug_id", "drug_id must be positive")
	}
	if r.LocationID <= 0 {
		return time.Time{}, custom_error.Validation("location_id", "location_id must be positive")
	}
	if r.Quantity < 1 || r.Quantity > maxReceiveQuantity {
		return time.Time{}, custom_error.Validation("quantity", "quantity must be between 1 and 1000")
	}

	r.BatchNumber = strings.TrimSpace(r.BatchNumber)
	if r.BatchNumber == "" || len(r.BatchNumber) > maxBatchLength {
		return time.Time{}, custom_error.Validation("batch_number", "batch number must be 1-100 characters")
	}

	r.GoodsReceiptNumber = strings.TrimSpace(r.GoodsReceiptNumber)
	if len(r.GoodsReceiptNumber) > maxReferenceLength {
		return time.Time{}, custom_error.Validation("goods_receipt_number", "goods receipt number is longer than 100 characters")
	}

	expiry, err := time.Parse(expiryDateLayout, strings.TrimSpace(r.ExpiryDate))
	if err != nil {
		return time.Time{}, custom_error.Validation("expiry_date", "expiry date must be formatted YYYY-MM-DD")
	}
	if metadata.DaysUntilExpiry(expiry, today) < 0 {
		return time.Time{}, custom_error.Validation("expiry_date", "stock that has already expired cannot be received")
	}

	return expiry, nil
}

type ReceiveResult struct {
	AssetIDs     []string        `json:"asset_ids"`
	VialIDs      []int           `json:"vial_ids"`
	DrugName     string          `json:"drug_name"`
	LocationName string          `json:"location_name"`
	Quantity     int             `json:"quantity"`
	TotalValue   decimal.Decimal `json:"total_value"`
	Stock        stocks.Result   `json:"stock"`
}

type UseRequest struct {
	VialID        int    `json:"-"`
	Version       int    `json:"version" binding:"required"`
	PatientMRN    string `json:"patient_mrn" binding:"required"`
	ClinicalNotes string `json:"clinical_notes"`
	UserID        int    `json:"-"`
}

func (r *UseRequest) Validate() error {
	if err := validateTarget(r.VialID, r.Version, r.UserID); err != nil {
		return err
	}

	r.PatientMRN = strings.TrimSpace(r.PatientMRN)
	if !mrnPattern.MatchString(r.PatientMRN) {
		return custom_error.Validation("patient_mrn", "MRN must be 4-20 letters, digits, dashes or underscores")
	}

	r.ClinicalNotes = strings.TrimSpace(r.ClinicalNotes)
	if len(r.ClinicalNotes) > maxNotesLength {
		return custom_error.Validation("clinical_notes", "clinical notes are longer than 1000 characters")
	}
	return nil
}

type DiscardRequest struct {
	VialID                 int    `json:"-"`
	Version                int    `json:"version" binding:"required"`
	Reason                 string `json:"reason" binding:"required"`
	DisposalRegisterNumber string `json:"disposal_register_number" binding:"required"`
	UserID                 int    `json:"-"`
}

func (r *DiscardRequest) Validate() (metadata.DiscardReason, error) {
	if err := validateTarget(r.VialID, r.Version, r.UserID); err != nil {
		return "", err
	}

	reason, err := metadata.NewDiscardReason(r.Reason)
	if err != nil {
		return "", custom_error.Validation("reason", err.Error())
	}

	r.DisposalRegisterNumber = strings.TrimSpace(r.DisposalRegisterNumber)
	if r.DisposalRegisterNumber == "" || len(r.DisposalRegisterNumber) > maxReferenceLength {
		return "", custom_error.Validation("disposal_register_number", "disposal register number must be 1-100 characters")
	}
	return reason, nil
}

func validateTarget(vialID, version, userID int) error {
	if vialID <= 0 {
		return custom_error.Validation("vial_id", "vial_id must be positive")
	}
	if version < 1 {
		return custom_error.Validation("version", "version must be at least 1")
	}
	if userID <= 0 {
		return custom_error.Validation("user_id", "an acting user is required")
	}
	return nil
}

// TransitionResult is the vial after a lifecycle step and the stock position
// of its drug at its location afterwards.
type TransitionResult struct {
	Vial  models.Vial   `json:"vial"`
	Stock stocks.Result `json:"stock"`
}

type VialFilter struct {
	Status             string `form:"status"`
	LocationID         int    `form:"location_id"`
	DrugID             int    `form:"drug_id"`
	ExpiringWithinDays *int   `form:"expiring_within_days"`
	Query              string `form:"q"`
	Limit              int    `form:"limit"`
	Offset             int    `form:"offset"`
}

func (f *VialFilter) Validate() error {
	if f.Status != "" {
		status, err := metadata.NewVialStatus(f.Status)
		if err != nil {
			return custom_error.Validation("status", err.Error())
		}
		f.Status = string(status)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return custom_error.Validation("limit", "limit and offset cannot be negative")
	}
	if f.ExpiringWithinDays != nil && *f.ExpiringWithinDays < 0 {
		return custom_error.Validation("expiring_within_days", "expiring_within_days cannot be negative")
	}
	f.Query = strings.TrimSpace(f.Query)
	return nil
}

func (f VialFilter) limit() int {
	switch {
	case f.Limit == 0:
		return defaultSearchLimit
	case f.Limit > maxSearchLimit:
		return maxSearchLimit
	default:
		return f.Limit
	}
}

func (f VialFilter) conditions() repository.QueryBuilder {
	qb := repository.NewQueryBuilder()
	if f.Status != "" {
		qb.AddCondition("status", f.Status)
	}
	if f.LocationID != 0 {
		qb.AddCondition("location_id", f.LocationID)
	}
	if f.DrugID != 0 {
		qb.AddCondition("drug_id", f.DrugID)
	}
	return qb
}
