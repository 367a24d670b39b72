package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID         int                    `json:"id" db:"id"`
	UserID     *int                   `json:"user_id,omitempty" db:"user_id"`
	Action     string                 `json:"action" db:"action"` // e.g. RECEIVE_STOCK, APPROVE_TRANSFER
	EntityType string                 `json:"entity_type" db:"entity_type"`
	EntityID   int                    `json:"entity_id" db:"entity_id"`
	DataRaw    string                 `json:"-" db:"data"` // JSON as string
	Data       map[string]interface{} `json:"data" db:"-"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

func (a *AuditLog) LoadFromDB() {
	if a.DataRaw != "" {
		_ = json.Unmarshal([]byte(a.DataRaw), &a.Data)
	}
}
