package transfers

import (
	"context"
	"fmt"

	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/vials"
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
)

type TransferService struct {
	r       *repository.Repository
	tr      TransferRepository
	vr      *vials.VialRepository
	lr      *locations.LocationRepository
	ur      users.UserRepository
	monitor *stocks.Monitor
	policy  *Policy
	lane    *serializer.Serializer
	log     *inventorylog.InventoryLog
	clock   clock.Clock
}

func NewTransferService(
	r *repository.Repository,
	lane *serializer.Serializer,
	log *inventorylog.InventoryLog,
	monitor *stocks.Monitor,
	policy *Policy,
	c clock.Clock,
) *TransferService {
	return &TransferService{
		r:       r,
		tr:      NewRepository(r),
		vr:      vials.NewVialRepository(r),
		lr:      locations.NewLocationRepository(r),
		ur:      users.NewRepository(r),
		monitor: monitor,
		policy:  policy,
		lane:    lane,
		log:     log,
		clock:   c,
	}
}

// Create opens a transfer and applies the route's initial vial movement.
func (s *TransferService) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "create_transfer", func(ctx context.Context) (*CreateResult, error) {
		var result CreateResult

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			from, err := s.lr.GetActiveLocation(ctx, tx, req.FromLocationID)
			if err != nil {
				return err
			}
			to, err := s.lr.GetActiveLocation(ctx, tx, req.ToLocationID)
			if err != nil {
				return err
			}
			if _, err := s.ur.GetActiveUser(ctx, tx, req.CreatedBy); err != nil {
				return err
			}
			if err := s.policy.Allowed(from, to); err != nil {
				return err
			}

			batch, err := s.eligibleVials(ctx, tx, req.VialIDs, from.ID)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			transfer := &models.Transfer{
				FromLocationID: from.ID,
				ToLocationID:   to.ID,
				Status:         s.policy.InitialStatus(from, to),
				CreatedBy:      req.CreatedBy,
				CreatedAt:      now,
			}
			if transfer.Status == metadata.TransferCompleted {
				transfer.CompletedBy = &req.CreatedBy
				transfer.CompletedAt = &now
			}

			if err := s.tr.InsertTransferRecord(ctx, tx, transfer); err != nil {
				return err
			}
			if err := s.tr.InsertTransferItems(ctx, tx, transfer.ID, req.VialIDs); err != nil {
				return err
			}

			available := vials.VialPosition{Status: metadata.VialAvailable, LocationID: from.ID}
			switch transfer.Status {
			case metadata.TransferCompleted:
				err = s.move(ctx, tx, req.VialIDs, available, vials.VialPosition{Status: metadata.VialAvailable, LocationID: to.ID})
			case metadata.TransferInTransit:
				err = s.move(ctx, tx, req.VialIDs, available, vials.VialPosition{Status: metadata.VialInTransit, LocationID: from.ID})
			}
			if err != nil {
				return err
			}

			if err := s.log.TransferEntry(ctx, tx, inventorylog.ActionCreateTransfer, transfer, req.VialIDs, req.CreatedBy); err != nil {
				return err
			}

			if transfer.Status != metadata.TransferPending {
				result.Stock, err = s.monitor.CheckAll(ctx, tx, pairsAt(from.ID, batch))
				if err != nil {
					return err
				}
			}

			loaded, err := s.loadTransfer(ctx, tx, transfer.ID)
			if err != nil {
				return err
			}
			result.Transfer = *loaded
			result.NeedsApproval = s.policy.RequiresApproval(transfer.Status)
			return nil
		})
		if err != nil {
			return nil, err
		}

		return &result, nil
	})
}

// Approve releases a PENDING hub to hub transfer. The approver must be a
// delegating pharmacist other than the creator, stationed at the counterpart
// of the creator's location.
func (s *TransferService) Approve(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "approve_transfer", func(ctx context.Context) (*ActionResult, error) {
		var result ActionResult

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			transfer, err := s.openForAction(ctx, tx, req, metadata.TransferPending, "approved")
			if err != nil {
				return err
			}

			approver, err := s.ur.GetActiveUser(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			if approver.ID == transfer.CreatedBy {
				return custom_error.NotAuthorized("a transfer cannot be approved by the user who created it")
			}
			if !approver.CanApproveTransfers() {
				return custom_error.NotAuthorized("only pharmacists with delegated authority can approve transfers")
			}
			creator, err := s.ur.GetUser(ctx, tx, transfer.CreatedBy)
			if err != nil {
				return err
			}
			if required := approvingLocation(transfer, creator.LocationID); approver.LocationID != required {
				return custom_error.NotAuthorized(fmt.Sprintf("transfer %d must be approved by a user at location %d", transfer.ID, required))
			}

			now := s.clock.Now()
			err = versionguard.Advance(ctx, tx, versionguard.Transfer, transfer.ID, req.Version,
				goqu.Record{
					"status":      metadata.TransferInTransit,
					"approved_by": req.UserID,
					"approved_at": now,
				},
				goqu.C("status").Eq(metadata.TransferPending),
			)
			if err != nil {
				return err
			}

			ids := transfer.VialIDs()
			err = s.move(ctx, tx, ids,
				vials.VialPosition{Status: metadata.VialAvailable, LocationID: transfer.FromLocationID},
				vials.VialPosition{Status: metadata.VialInTransit, LocationID: transfer.FromLocationID},
			)
			if err != nil {
				return err
			}

			transfer.Status = metadata.TransferInTransit
			if err := s.log.TransferEntry(ctx, tx, inventorylog.ActionApproveTransfer, transfer, ids, req.UserID); err != nil {
				return err
			}

			batch, err := s.tr.GetVials(ctx, tx, ids)
			if err != nil {
				return err
			}
			result.Stock, err = s.monitor.CheckAll(ctx, tx, pairsAt(transfer.FromLocationID, batch))
			if err != nil {
				return err
			}

			return s.reload(ctx, tx, transfer.ID, &result)
		})
		if err != nil {
			return nil, err
		}

		return &result, nil
	})
}

// Complete books an IN_TRANSIT transfer in at its destination.
func (s *TransferService) Complete(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "complete_transfer", func(ctx context.Context) (*ActionResult, error) {
		var result ActionResult

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			transfer, err := s.openForAction(ctx, tx, req, metadata.TransferInTransit, "completed")
			if err != nil {
				return err
			}
			if _, err := s.ur.GetActiveUser(ctx, tx, req.UserID); err != nil {
				return err
			}

			now := s.clock.Now()
			err = versionguard.Advance(ctx, tx, versionguard.Transfer, transfer.ID, req.Version,
				goqu.Record{
					"status":       metadata.TransferCompleted,
					"completed_by": req.UserID,
					"completed_at": now,
				},
				goqu.C("status").Eq(metadata.TransferInTransit),
			)
			if err != nil {
				return err
			}

			ids := transfer.VialIDs()
			err = s.move(ctx, tx, ids,
				vials.VialPosition{Status: metadata.VialInTransit, LocationID: transfer.FromLocationID},
				vials.VialPosition{Status: metadata.VialAvailable, LocationID: transfer.ToLocationID},
			)
			if err != nil {
				return err
			}

			transfer.Status = metadata.TransferCompleted
			if err := s.log.TransferEntry(ctx, tx, inventorylog.ActionCompleteTransfer, transfer, ids, req.UserID); err != nil {
				return err
			}

			return s.reload(ctx, tx, transfer.ID, &result)
		})
		if err != nil {
			return nil, err
		}

		return &result, nil
	})
}

// Cancel withdraws a PENDING transfer. Its vials never left the source.
func (s *TransferService) Cancel(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return serializer.Do(ctx, s.lane, "cancel_transfer", func(ctx context.Context) (*ActionResult, error) {
		var result ActionResult

		err := repository.WithTransaction(ctx, s.r.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
			transfer, err := s.openForAction(ctx, tx, req, metadata.TransferPending, "cancelled")
			if err != nil {
				return err
			}
			if _, err := s.ur.GetActiveUser(ctx, tx, req.UserID); err != nil {
				return err
			}

			now := s.clock.Now()
			err = versionguard.Advance(ctx, tx, versionguard.Transfer, transfer.ID, req.Version,
				goqu.Record{
					"status":       metadata.TransferCancelled,
					"cancelled_by": req.UserID,
					"cancelled_at": now,
				},
				goqu.C("status").Eq(metadata.TransferPending),
			)
			if err != nil {
				return err
			}

			transfer.Status = metadata.TransferCancelled
			if err := s.log.TransferEntry(ctx, tx, inventorylog.ActionCancelTransfer, transfer, transfer.VialIDs(), req.UserID); err != nil {
				return err
			}

			return s.reload(ctx, tx, transfer.ID, &result)
		})
		if err != nil {
			return nil, err
		}

		return &result, nil
	})
}

func (s *TransferService) GetTransfer(ctx context.Context, id int) (*models.Transfer, error) {
	return s.loadTransfer(ctx, s.r.GoquDBWrapper, id)
}

// ListForLocation returns transfers leaving or entering a location, newest first.
func (s *TransferService) ListForLocation(ctx context.Context, locationID int, status string) ([]models.Transfer, error) {
	if _, err := s.lr.GetLocation(ctx, s.r.GoquDBWrapper, locationID); err != nil {
		return nil, err
	}

	conditions := repository.NewQueryBuilder()
	conditions.AddCondition("location_id", locationID)
	if status != "" {
		parsed, err := metadata.NewTransferStatus(status)
		if err != nil {
			return nil, custom_error.Validation("status", err.Error())
		}
		conditions.AddCondition("status", parsed)
	}

	rows, err := s.tr.GetTransferRows(ctx, conditions)
	if err != nil {
		return nil, err
	}

	transfers := make([]models.Transfer, len(rows))
	for i, row := range rows {
		transfers[i] = row.toTransfer()
	}
	return transfers, nil
}

// openForAction loads a transfer with its items and checks the presented
// version before its status, so a stale caller learns about the conflict first.
func (s *TransferService) openForAction(ctx context.Context, tx *goqu.TxDatabase, req ActionRequest, want metadata.TransferStatus, verb string) (*models.Transfer, error) {
	transfer, err := s.loadTransfer(ctx, tx, req.TransferID)
	if err != nil {
		return nil, err
	}
	if err := versionguard.Check(ctx, tx, versionguard.Transfer, transfer.ID, req.Version); err != nil {
		return nil, err
	}
	if transfer.Status != want {
		return nil, custom_error.InvalidState("transfer", transfer.ID, fmt.Sprintf(
			"transfer is %s, only %s transfers can be %s", transfer.Status, want, verb,
		))
	}
	return transfer, nil
}

func (s *TransferService) loadTransfer(ctx context.Context, q repository.Querier, id int) (*models.Transfer, error) {
	row, err := s.tr.GetTransferRow(ctx, q, id)
	if err != nil {
		return nil, err
	}

	transfer := row.toTransfer()
	transfer.Items, err = s.tr.GetTransferItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (s *TransferService) reload(ctx context.Context, tx *goqu.TxDatabase, id int, result *ActionResult) error {
	transfer, err := s.loadTransfer(ctx, tx, id)
	if err != nil {
		return err
	}
	result.Transfer = *transfer
	return nil
}

// eligibleVials loads the batch and rejects it unless every vial is
// AVAILABLE at the source and free of other open transfers.
func (s *TransferService) eligibleVials(ctx context.Context, tx *goqu.TxDatabase, ids []int, fromID int) ([]models.Vial, error) {
	batch, err := s.tr.GetVials(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	if offending := notAt(ids, batch, vials.VialPosition{Status: metadata.VialAvailable, LocationID: fromID}); len(offending) > 0 {
		return nil, custom_error.InvalidVial(offending, fmt.Sprintf("vials must be AVAILABLE at location %d", fromID))
	}

	held, err := s.tr.VialsInOpenTransfers(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(held) > 0 {
		return nil, custom_error.InvalidVial(held, "vials already belong to an open transfer")
	}

	return batch, nil
}

// move shifts the whole batch or fails with the vials that were no longer
// at from. The surrounding transaction discards any partial update.
func (s *TransferService) move(ctx context.Context, tx *goqu.TxDatabase, ids []int, from, to vials.VialPosition) error {
	moved, err := s.vr.MoveBatch(ctx, tx, ids, from, to)
	if err != nil {
		return err
	}
	if moved == len(ids) {
		return nil
	}

	batch, err := s.tr.GetVials(ctx, tx, ids)
	if err != nil {
		return err
	}
	offending := notAt(ids, batch, to)
	return custom_error.InvalidVial(offending, fmt.Sprintf(
		"vials must be %s at location %d", from.Status, from.LocationID,
	))
}

// notAt lists the requested ids that are missing or not at position.
func notAt(ids []int, batch []models.Vial, position vials.VialPosition) []int {
	byID := make(map[int]models.Vial, len(batch))
	for _, vial := range batch {
		byID[vial.ID] = vial
	}

	offending := []int{}
	for _, id := range ids {
		vial, ok := byID[id]
		if !ok || vial.Status != position.Status || vial.LocationID != position.LocationID {
			offending = append(offending, id)
		}
	}
	return offending
}

// approvingLocation is where the approver must be stationed: the destination,
// unless the creator already sits there, in which case the source approves.
func approvingLocation(transfer *models.Transfer, creatorLocationID int) int {
	if creatorLocationID == transfer.ToLocationID {
		return transfer.FromLocationID
	}
	return transfer.ToLocationID
}

func pairsAt(locationID int, batch []models.Vial) []stocks.Pair {
	pairs := make([]stocks.Pair, len(batch))
	for i, vial := range batch {
		pairs[i] = stocks.Pair{LocationID: locationID, DrugID: vial.DrugID}
	}
	return pairs
}
