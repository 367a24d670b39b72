package models

import (
	"time"

	"github.com/Archer-177/HighCostAtWork/pkg/roles"
)

type User struct {
	ID          int        `json:"id" db:"id"`
	Username    string     `json:"username" db:"username"`
	Role        roles.Role `json:"role" db:"role"`
	LocationID  int        `json:"location_id" db:"location_id"`
	CanDelegate bool       `json:"can_delegate" db:"can_delegate"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Version     int        `json:"version" db:"version"`
}

// CanApproveTransfers reports whether the user holds delegated authority to
// release hub to hub transfers.
func (u *User) CanApproveTransfers() bool {
	return u.IsActive && u.Role == roles.Pharmacist && u.CanDelegate
}

func (u *User) CreateLogView() AuditLog {
	return AuditLog{
		EntityID:   u.ID,
		EntityType: "user",
	}
}
