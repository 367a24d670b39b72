package models

import (
	"time"

	"github.com/Archer-177/HighCostAtWork/pkg/metadata"
)

type Location struct {
	ID          int                   `json:"id" db:"id"`
	Name        string                `json:"name" db:"name"`
	Type        metadata.LocationType `json:"type" db:"type"`
	ParentHubID *int                  `json:"parent_hub_id" db:"parent_hub_id"`
	IsActive    bool                  `json:"is_active" db:"is_active"`
	CreatedAt   time.Time             `json:"created_at" db:"created_at"`
	Version     int                   `json:"version" db:"version"`
}

// IsChildOf reports whether l is a ward or remote site supervised by hubID.
func (l *Location) IsChildOf(hubID int) bool {
	return l.ParentHubID != nil && *l.ParentHubID == hubID
}

func (l *Location) CreateLogView() AuditLog {
	return AuditLog{
		EntityID:   l.ID,
		EntityType: "location",
	}
}
