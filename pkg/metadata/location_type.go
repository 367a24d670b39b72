package metadata

import (
	"fmt"
	"strings"
)

type LocationType string

const (
	LocationHub    LocationType = "HUB"
	LocationWard   LocationType = "WARD"
	LocationRemote LocationType = "REMOTE"
)

func NewLocationType(value string) (LocationType, error) {
	t := LocationType(strings.ToUpper(strings.TrimSpace(value)))
	switch t {
	case LocationHub, LocationWard, LocationRemote:
		return t, nil
	}
	return "", fmt.Errorf("value not valid, only valid values are: %s, %s, %s", LocationHub, LocationWard, LocationRemote)
}

// NeedsParentHub is true for every location type that must hang off a hub.
func (t LocationType) NeedsParentHub() bool {
	return t == LocationWard || t == LocationRemote
}

func (t LocationType) String() string {
	return string(t)
}
