package transfers

import (
	"fmt"
	"strings"

	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
)

// Direction says which way a blocked route is closed, seen from the hub.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
	Both     Direction = "both"
)

// BlockedRoute closes transfers between one hub and every location of a type.
type BlockedRoute struct {
	HubID           int                   `mapstructure:"hub_id" json:"hub_id"`
	CounterpartType metadata.LocationType `mapstructure:"counterpart_type" json:"counterpart_type"`
	Direction       Direction             `mapstructure:"direction" json:"direction"`
}

func (b BlockedRoute) Validate() error {
	if b.HubID <= 0 {
		return fmt.Errorf("blocked route: hub_id must be positive")
	}
	if _, err := metadata.NewLocationType(string(b.CounterpartType)); err != nil {
		return fmt.Errorf("blocked route for hub %d: %w", b.HubID, err)
	}
	switch Direction(strings.ToLower(string(b.Direction))) {
	case Outbound, Inbound, Both:
		return nil
	}
	return fmt.Errorf("blocked route for hub %d: direction must be %s, %s or %s", b.HubID, Outbound, Inbound, Both)
}

func (b BlockedRoute) blocks(from, to *models.Location) bool {
	counterpart := metadata.LocationType(strings.ToUpper(string(b.CounterpartType)))
	direction := Direction(strings.ToLower(string(b.Direction)))

	if direction != Inbound && from.ID == b.HubID && to.Type == counterpart {
		return true
	}
	if direction != Outbound && to.ID == b.HubID && from.Type == counterpart {
		return true
	}
	return false
}

// Policy decides where a new transfer starts and which routes are closed.
type Policy struct {
	blocked []BlockedRoute
}

func NewPolicy(blocked ...BlockedRoute) (*Policy, error) {
	for _, route := range blocked {
		if err := route.Validate(); err != nil {
			return nil, err
		}
	}
	return &Policy{blocked: blocked}, nil
}

// InitialStatus is COMPLETED for a hub restocking one of its own wards,
// PENDING between two hubs and IN_TRANSIT for every other route.
func (p *Policy) InitialStatus(from, to *models.Location) metadata.TransferStatus {
	switch {
	case from.Type == metadata.LocationHub && to.Type == metadata.LocationWard && to.IsChildOf(from.ID):
		return metadata.TransferCompleted
	case from.Type == metadata.LocationHub && to.Type == metadata.LocationHub && from.ID != to.ID:
		return metadata.TransferPending
	default:
		return metadata.TransferInTransit
	}
}

func (p *Policy) RequiresApproval(status metadata.TransferStatus) bool {
	return status == metadata.TransferPending
}

// Allowed rejects routes closed by configuration.
func (p *Policy) Allowed(from, to *models.Location) error {
	for _, route := range p.blocked {
		if route.blocks(from, to) {
			return custom_error.Validation("to_location_id", fmt.Sprintf(
				"transfers from %s to %s are not permitted", from.Name, to.Name,
			))
		}
	}
	return nil
}
