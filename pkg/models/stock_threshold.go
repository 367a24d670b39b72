package models

type StockThreshold struct {
	ID         int `json:"id" db:"id"`
	LocationID int `json:"location_id" db:"location_id"`
	DrugID     int `json:"drug_id" db:"drug_id"`
	MinStock   int `json:"min_stock" db:"min_stock"`
	Version    int `json:"version" db:"version"`
}

func (s *StockThreshold) CreateLogView() AuditLog {
	return AuditLog{
		EntityID:   s.ID,
		EntityType: "stock_threshold",
	}
}

// StockLevel is the available count of one drug at one location.
type StockLevel struct {
	LocationID       int    `json:"location_id" db:"location_id"`
	DrugID           int    `json:"drug_id" db:"drug_id"`
	DrugName         string `json:"drug_name" db:"drug_name"`
	AvailableCount   int    `json:"available_count" db:"available_count"`
	MinStock         *int   `json:"min_stock,omitempty" db:"min_stock"`
	ThresholdVersion *int   `json:"threshold_version,omitempty" db:"threshold_version"`
	BelowMinimum     bool   `json:"below_minimum" db:"-"`
}
