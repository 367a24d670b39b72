package metadata

import (
	"fmt"
	"strings"
)

type DiscardReason string

const (
	DiscardExpired       DiscardReason = "Expired"
	DiscardBroken        DiscardReason = "Broken/Damaged"
	DiscardFridgeFailure DiscardReason = "Fridge Failure"
	DiscardLost          DiscardReason = "Lost"
	DiscardOther         DiscardReason = "Other"
)

var discardReasons = []DiscardReason{DiscardExpired, DiscardBroken, DiscardFridgeFailure, DiscardLost, DiscardOther}

func (r DiscardReason) IsValid() bool {
	for _, known := range discardReasons {
		if r == known {
			return true
		}
	}
	return false
}

// NewDiscardReason matches case-insensitively and returns the canonical spelling.
func NewDiscardReason(value string) (DiscardReason, error) {
	normalized := strings.Join(strings.Fields(value), " ")
	for _, known := range discardReasons {
		if strings.EqualFold(normalized, string(known)) {
			return known, nil
		}
	}

	return DiscardReason(normalized), fmt.Errorf(
		"value not valid, only valid values are: %s, %s, %s, %s, %s",
		DiscardExpired, DiscardBroken, DiscardFridgeFailure, DiscardLost, DiscardOther,
	)
}

func (r DiscardReason) String() string {
	return string(r)
}
