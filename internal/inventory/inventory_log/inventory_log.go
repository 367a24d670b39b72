package inventorylog

import (
	"context"

	"github.com/Archer-177/HighCostAtWork/pkg/auditlog"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

const (
	ActionReceiveStock     = "RECEIVE_STOCK"
	ActionUseStock         = "USE_STOCK"
	ActionDiscardStock     = "DISCARD_STOCK"
	ActionCreateTransfer   = "CREATE_TRANSFER"
	ActionApproveTransfer  = "APPROVE_TRANSFER"
	ActionCompleteTransfer = "COMPLETE_TRANSFER"
	ActionCancelTransfer   = "CANCEL_TRANSFER"
	ActionCreateLocation   = "CREATE_LOCATION"
	ActionUpdateLocation   = "UPDATE_LOCATION"
	ActionDeactivate       = "DEACTIVATE_LOCATION"
	ActionCreateDrug       = "CREATE_DRUG"
	ActionUpdateDrug       = "UPDATE_DRUG"
	ActionSetThreshold     = "SET_THRESHOLD"
	ActionCreateUser       = "CREATE_USER"
	ActionUpdateUser       = "UPDATE_USER"
	ActionDeactivateUser   = "DEACTIVATE_USER"
)

type InventoryLog struct {
	a *auditlog.Auditlog
}

func NewInventoryLog(a *auditlog.Auditlog) *InventoryLog {
	return &InventoryLog{a: a}
}

// Entry records an administrative change to any auditable row.
func (s *InventoryLog) Entry(ctx context.Context, tx *goqu.TxDatabase, action string, userID int, data map[string]interface{}, item auditlog.Auditable) error {
	return s.a.Log(ctx, tx, action, userID, data, item)
}

func (s *InventoryLog) VialReceived(ctx context.Context, tx *goqu.TxDatabase, vial *models.Vial, userID int, drugName, locationName string) error {
	return s.a.Log(ctx, tx, ActionReceiveStock, userID,
		map[string]interface{}{
			"asset_id":             vial.AssetID,
			"drug":                 drugName,
			"location":             locationName,
			"location_id":          vial.LocationID,
			"batch_number":         vial.BatchNumber,
			"expiry_date":          vial.ExpiryDate.Format("2006-01-02"),
			"goods_receipt_number": vial.GoodsReceiptNumber,
			"msg":                  "Vial received into stock",
		},
		vial,
	)
}

func (s *InventoryLog) VialUsed(ctx context.Context, tx *goqu.TxDatabase, vial *models.Vial, userID int) error {
	return s.a.Log(ctx, tx, ActionUseStock, userID,
		map[string]interface{}{
			"asset_id":       vial.AssetID,
			"location_id":    vial.LocationID,
			"patient_mrn":    vial.PatientMRN,
			"clinical_notes": vial.ClinicalNotes,
			"msg":            "Vial used for patient",
		},
		vial,
	)
}

func (s *InventoryLog) VialDiscarded(ctx context.Context, tx *goqu.TxDatabase, vial *models.Vial, userID int) error {
	return s.a.Log(ctx, tx, ActionDiscardStock, userID,
		map[string]interface{}{
			"asset_id":                 vial.AssetID,
			"location_id":              vial.LocationID,
			"discard_reason":           vial.DiscardReason,
			"disposal_register_number": vial.DisposalRegisterNumber,
			"msg":                      "Vial discarded",
		},
		vial,
	)
}

var transferMessages = map[string]map[string]string{
	ActionCreateTransfer: {
		"transferMessage": "Transfer registered",
		"vialMessage":     "Vial added to transfer",
	},
	ActionApproveTransfer: {
		"transferMessage": "Transfer approved",
		"vialMessage":     "Vial in transport",
	},
	ActionCompleteTransfer: {
		"transferMessage": "Transfer completed",
		"vialMessage":     "Vial moved to transfer destination",
	},
	ActionCancelTransfer: {
		"transferMessage": "Transfer cancelled",
		"vialMessage":     "Vial kept at original location",
	},
}

// TransferEntry writes one entry for the transfer and one per vial it carries,
// so a vial's journey can be rebuilt from its own entries.
func (s *InventoryLog) TransferEntry(ctx context.Context, tx *goqu.TxDatabase, action string, ts *models.Transfer, vialIDs []int, userID int) error {
	messages, ok := transferMessages[action]
	if !ok {
		messages = map[string]string{"transferMessage": action, "vialMessage": action}
	}

	err := s.a.Log(ctx, tx, action, userID,
		map[string]interface{}{
			"transfer_id":      ts.ID,
			"from_location_id": ts.FromLocationID,
			"to_location_id":   ts.ToLocationID,
			"status":           ts.Status,
			"vial_ids":         vialIDs,
			"msg":              messages["transferMessage"],
		},
		ts,
	)
	if err != nil {
		return err
	}

	for _, vialID := range vialIDs {
		err := s.a.Log(ctx, tx, action, userID,
			map[string]interface{}{
				"transfer_id":      ts.ID,
				"from_location_id": ts.FromLocationID,
				"to_location_id":   ts.ToLocationID,
				"status":           ts.Status,
				"msg":              messages["vialMessage"],
			},
			&models.Vial{ID: vialID},
		)
		if err != nil {
			return err
		}
	}

	return nil
}
