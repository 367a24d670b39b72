package metadata

import (
	"fmt"
	"strings"
)

type VialStatus string

const (
	VialAvailable    VialStatus = "AVAILABLE"
	VialInTransit    VialStatus = "IN_TRANSIT"
	VialUsedClinical VialStatus = "USED_CLINICAL"
	VialDiscarded    VialStatus = "DISCARDED"
)

func NewVialStatus(value string) (VialStatus, error) {
	status := VialStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.isValid() {
		return "", fmt.Errorf("invalid vial status: %s", value)
	}
	return status, nil
}

func (s VialStatus) isValid() bool {
	switch s {
	case VialAvailable, VialInTransit, VialUsedClinical, VialDiscarded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s VialStatus) IsTerminal() bool {
	return s == VialUsedClinical || s == VialDiscarded
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferInTransit TransferStatus = "IN_TRANSIT"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferCancelled TransferStatus = "CANCELLED"
)

func NewTransferStatus(value string) (TransferStatus, error) {
	status := TransferStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.isValid() {
		return "", fmt.Errorf("invalid transfer status: %s", value)
	}
	return status, nil
}

func (s TransferStatus) isValid() bool {
	switch s {
	case TransferPending, TransferInTransit, TransferCompleted, TransferCancelled:
		return true
	default:
		return false
	}
}

func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// OpenTransferStatuses are the states in which a transfer still holds its vials.
var OpenTransferStatuses = []TransferStatus{TransferPending, TransferInTransit}
