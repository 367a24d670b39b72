package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Drug struct {
	ID                 int             `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	Category           string          `json:"category" db:"category"`
	StorageRequirement string          `json:"storage_requirement" db:"storage_requirement"`
	UnitPrice          decimal.Decimal `json:"unit_price" db:"unit_price"`
	IsActive           bool            `json:"is_active" db:"is_active"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	Version            int             `json:"version" db:"version"`
}

func (d *Drug) CreateLogView() AuditLog {
	return AuditLog{
		EntityID:   d.ID,
		EntityType: "drug",
	}
}
