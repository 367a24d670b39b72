package roles

import (
	"fmt"
	"strings"
)

// Role is the clinical role a user acts under.
type Role string

const (
	Nurse        Role = "NURSE"
	PharmacyTech Role = "PHARMACY_TECH"
	Pharmacist   Role = "PHARMACIST"
)

// HierarchyLevel orders roles by the administrative actions they may take.
type HierarchyLevel int

const (
	NurseLevel        HierarchyLevel = 1
	PharmacyTechLevel HierarchyLevel = 2
	PharmacistLevel   HierarchyLevel = 3
)

func NewRole(value string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role %q, only valid values are: %s, %s, %s", value, Pharmacist, PharmacyTech, Nurse)
	}
	return r, nil
}

func (r Role) GetHierarchyLevel() HierarchyLevel {
	switch r {
	case Pharmacist:
		return PharmacistLevel
	case PharmacyTech:
		return PharmacyTechLevel
	default:
		return NurseLevel
	}
}

// HasPermission reports whether r sits at or above requiredRole.
func (r Role) HasPermission(requiredRole Role) bool {
	return r.IsValid() && r.GetHierarchyLevel() >= requiredRole.GetHierarchyLevel()
}

func (r Role) IsValid() bool {
	switch r {
	case Nurse, PharmacyTech, Pharmacist:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
