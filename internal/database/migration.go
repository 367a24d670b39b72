package database

import (
	"github.com/Archer-177/HighCostAtWork/internal/database/migration"

	"go.uber.org/zap"
)

// RunMigrations brings the schema at dbURL up to date before the server starts.
func RunMigrations(dbURL string, logger *zap.Logger) error {
	return migration.Migrate(dbURL, false, logger)
}
