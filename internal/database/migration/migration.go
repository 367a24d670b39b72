package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Archer-177/HighCostAtWork/internal/database/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres DB
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"   // register modernc sqlite DB
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

func Migrate(dbURL string, verbose bool, log *zap.Logger) error {
	log.Info("Running database migration")

	dir, err := sourceDir(dbURL)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("open embedded %s migrations: %w", dir, err)
	}

	dbMigrate, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	defer dbMigrate.Close()
	dbMigrate.Log = NewLogger(log, verbose)

	log.Info("Run registered migrations", zap.String("dialect", dir))
	err = dbMigrate.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Database migration: no change needed")
		} else {
			log.Error("Database migration failed", zap.Error(err))
			return err
		}
	}

	return nil
}

func sourceDir(dbURL string) (string, error) {
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		return "sqlite", nil
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres", nil
	}
	return "", fmt.Errorf("no migrations for DATABASE_URL %q", dbURL)
}

type Logger struct {
	logger  *zap.Logger
	verbose bool
}

func (l *Logger) Printf(format string, v ...any) {
	l.logger.Sugar().Infof("DB Migration: "+strings.TrimSuffix(format, "\n"), v...)
}

func (l *Logger) Verbose() bool {
	return l.verbose
}

func NewLogger(logger *zap.Logger, verbose bool) *Logger {
	return &Logger{
		logger:  logger,
		verbose: verbose,
	}
}
