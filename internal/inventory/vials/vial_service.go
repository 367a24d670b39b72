package vials

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/auditlog"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/drugs"
	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	"github.com/Archer-177/HighCostAtWork/internal/locations"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	"github.com/Archer-177/HighCostAtWork/internal/users"
	"github.com/Archer-177/HighCostAtWork/internal/versionguard"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
)

type VialService struct {
	r       *repository.Repository
	vr      *VialRepository
	dr      *drugs.DrugRepository
	lr      *locations.LocationRepository
	ur      users.UserRepository
	ar      *auditlog.AuditLogRepository
	monitor *stocks.Monitor
	lane    *serializer.Serializer
	log     *inventorylog.InventoryLog
	clock   clock.Clock
}

func NewVialService(
	r *repository.Repository,
	lane *serializer.Serializer,
	log *inventorylog.InventoryLog,
	monitor *stocks.Monitor,
	c clock.Clock,
) *VialService {
	return &VialService{
		r:       r,
		vr:      NewVialRepository(r),
		dr:      drugs.NewDrugRepository(r),
		lr:      locations.NewLocationRepository(r),
		ur:      users.NewRepository(r),
		ar:      auditlog.NewRepository(r),
		monitor: monitor,
		lane:    lane,
		log:     log,
		clock:   c,
	}
}

// Receive books Quantity new AVAILABLE vials of one batch into a location.
func (s *VialService) Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error) {
	expiry, err := req.Validate(s.clock.Now())
	if err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "receive_stock", func(ctx context.Context) (*ReceiveResult, error) {
		result := &ReceiveResult{
			AssetIDs: make([]string, 0, req.Quantity),
			VialIDs:  make([]int, 0, req.Quantity),
			Quantity: req.Quantity,
		}

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			drug, err := s.dr.GetActiveDrug(ctx, tx, req.DrugID)
			if err != nil {
				return err
			}
			location, err := s.lr.GetActiveLocation(ctx, tx, req.LocationID)
			if err != nil {
				return err
			}
			if _, err := s.ur.GetActiveUser(ctx, tx, req.UserID); err != nil {
				return err
			}

			now := s.clock.Now()
			var receipt *string
			if req.GoodsReceiptNumber != "" {
				receipt = &req.GoodsReceiptNumber
			}

			for i := 0; i < req.Quantity; i++ {
				vial := &models.Vial{
					AssetID:            metadata.NewAssetID(drug.Name, location.Name, now.Unix()+int64(i)).String(),
					DrugID:             drug.ID,
					BatchNumber:        req.BatchNumber,
					ExpiryDate:         expiry,
					LocationID:         location.ID,
					Status:             metadata.VialAvailable,
					GoodsReceiptNumber: receipt,
					CreatedAt:          now,
				}
				if err := s.vr.PersistVial(ctx, tx, vial); err != nil {
					return err
				}
				if err := s.log.VialReceived(ctx, tx, vial, req.UserID, drug.Name, location.Name); err != nil {
					return err
				}

				result.AssetIDs = append(result.AssetIDs, vial.AssetID)
				result.VialIDs = append(result.VialIDs, vial.ID)
			}

			result.DrugName = drug.Name
			result.LocationName = location.Name
			result.TotalValue = drug.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))

			result.Stock, err = s.monitor.Check(ctx, tx, location.ID, drug.ID)
			return err
		})
		if err != nil {
			return nil, err
		}

		return result, nil
	})
}

// Use records that an AVAILABLE vial was administered to a patient.
func (s *VialService) Use(ctx context.Context, req UseRequest) (*TransitionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "use_stock", func(ctx context.Context) (*TransitionResult, error) {
		notes := optional(req.ClinicalNotes)

		return s.transition(ctx, req.VialID, req.Version, req.UserID, func(tx *goqu.TxDatabase, vial *models.Vial) error {
			now := s.clock.Now()
			err := versionguard.Advance(ctx, tx, versionguard.Vial, vial.ID, req.Version,
				goqu.Record{
					"status":         metadata.VialUsedClinical,
					"patient_mrn":    req.PatientMRN,
					"clinical_notes": notes,
					"used_at":        now,
					"used_by":        req.UserID,
				},
				goqu.C("status").Eq(metadata.VialAvailable),
			)
			if err != nil {
				return err
			}

			vial.Status = metadata.VialUsedClinical
			vial.PatientMRN = &req.PatientMRN
			vial.ClinicalNotes = notes
			vial.UsedAt = &now
			vial.UsedBy = &req.UserID
			vial.Version++

			return s.log.VialUsed(ctx, tx, vial, req.UserID)
		})
	})
}

// Discard records that an AVAILABLE vial was destroyed or lost.
func (s *VialService) Discard(ctx context.Context, req DiscardRequest) (*TransitionResult, error) {
	reason, err := req.Validate()
	if err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "discard_stock", func(ctx context.Context) (*TransitionResult, error) {
		return s.transition(ctx, req.VialID, req.Version, req.UserID, func(tx *goqu.TxDatabase, vial *models.Vial) error {
			now := s.clock.Now()
			err := versionguard.Advance(ctx, tx, versionguard.Vial, vial.ID, req.Version,
				goqu.Record{
					"status":                   metadata.VialDiscarded,
					"discard_reason":           reason,
					"disposal_register_number": req.DisposalRegisterNumber,
					"used_at":                  now,
					"used_by":                  req.UserID,
				},
				goqu.C("status").Eq(metadata.VialAvailable),
			)
			if err != nil {
				return err
			}

			reasonText := reason.String()
			vial.Status = metadata.VialDiscarded
			vial.DiscardReason = &reasonText
			vial.DisposalRegisterNumber = &req.DisposalRegisterNumber
			vial.UsedAt = &now
			vial.UsedBy = &req.UserID
			vial.Version++

			return s.log.VialDiscarded(ctx, tx, vial, req.UserID)
		})
	})
}

// transition runs the checks shared by every terminal step, applies it and
// evaluates the stock position the step left behind.
func (s *VialService) transition(
	ctx context.Context,
	vialID, version, userID int,
	apply func(tx *goqu.TxDatabase, vial *models.Vial) error,
) (*TransitionResult, error) {
	var result TransitionResult

	err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		vial, err := s.vr.GetVial(ctx, tx, vialID)
		if err != nil {
			return err
		}
		if _, err := s.ur.GetActiveUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := versionguard.Check(ctx, tx, versionguard.Vial, vialID, version); err != nil {
			return err
		}
		if vial.Status != metadata.VialAvailable {
			return custom_error.InvalidState("vial", vialID, fmt.Sprintf("vial is %s, only AVAILABLE vials can be used or discarded", vial.Status))
		}

		if err := apply(tx, vial); err != nil {
			return err
		}

		stock, err := s.monitor.Check(ctx, tx, vial.LocationID, vial.DrugID)
		if err != nil {
			return err
		}

		result = TransitionResult{Vial: *vial, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *VialService) GetVial(ctx context.Context, id int) (*models.VialView, error) {
	record, err := s.vr.GetVialRecord(ctx, s.r.GoquDBWrapper, goqu.I("v.id").Eq(id))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, custom_error.NotFound("vial", id)
	}

	view := record.TransformToView(s.clock.Now())
	return &view, nil
}

func (s *VialService) FindByAssetID(ctx context.Context, assetID string) (*models.VialView, error) {
	record, err := s.vr.GetVialRecord(ctx, s.r.GoquDBWrapper, goqu.I("v.asset_id").Eq(assetID))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &custom_error.DomainError{Kind: custom_error.ErrNotFound, Entity: "vial", Message: assetID}
	}

	view := record.TransformToView(s.clock.Now())
	return &view, nil
}

func (s *VialService) Search(ctx context.Context, filter VialFilter) ([]models.VialView, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	records, err := s.vr.GetVialRecords(ctx, filter, now)
	if err != nil {
		return nil, err
	}

	views := make([]models.VialView, len(records))
	for i := range records {
		views[i] = records[i].TransformToView(now)
	}
	return views, nil
}

// Journey is the vial with every audit entry written for it, oldest first.
func (s *VialService) Journey(ctx context.Context, assetID string) (*models.VialJourney, error) {
	view, err := s.FindByAssetID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	events, err := s.ar.GetResourceLog(ctx, view.ID, "vial")
	if err != nil {
		return nil, err
	}

	return &models.VialJourney{Vial: *view, Events: events}, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
