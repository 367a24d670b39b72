package cmd

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/auditlog"
	"github.com/Archer-177/HighCostAtWork/internal/database"
	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/locations"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	"github.com/Archer-177/HighCostAtWork/internal/users"
	pkgauditlog "github.com/Archer-177/HighCostAtWork/pkg/auditlog"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"
	"github.com/Archer-177/HighCostAtWork/pkg/security"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// TokenCmd issues a bearer token for an existing user. Passwords live with
// the external identity provider, so operators mint tokens here.
var TokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Print a signed JWT for a user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl == 0 {
			ttl = cfg.JWTTTL
		}
		auth, err := security.NewAuth(cfg.JWTSecret, ttl)
		if err != nil {
			return err
		}

		repo, closeDB, err := openRepository(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer closeDB()

		user, err := users.NewRepository(repo).GetUserByUsername(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !user.IsActive {
			return fmt.Errorf("user %s is deactivated", user.Username)
		}

		token, err := auth.GenerateJWT(user)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// BootstrapCmd creates the first hub and its pharmacist on an empty store.
var BootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the first hub and pharmacist.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		repo, closeDB, err := openRepository(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer closeDB()

		hubName, _ := cmd.Flags().GetString("hub")
		username, _ := cmd.Flags().GetString("username")

		user, err := bootstrap(cmd.Context(), repo, log, hubName, username)
		if err != nil {
			return err
		}

		log.Info("Bootstrap complete", zap.Int("user_id", user), zap.String("username", username))
		return nil
	},
}

func bootstrap(ctx context.Context, repo *repository.Repository, log *zap.Logger, hubName, username string) (int, error) {
	existing, err := locations.NewLocationRepository(repo).GetLocations(ctx, true)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, fmt.Errorf("store already holds %d locations, bootstrap only runs on an empty store", len(existing))
	}

	lane := serializer.New(log)
	defer lane.Close()

	wallClock := clock.Real{}
	inventoryLog := inventorylog.NewInventoryLog(pkgauditlog.NewAuditLog(auditlog.NewRepository(repo), wallClock))

	hub, err := locations.NewLocationService(repo, lane, inventoryLog, wallClock).
		CreateLocation(ctx, locations.CreateLocationRequest{Name: hubName, Type: "HUB"})
	if err != nil {
		return 0, fmt.Errorf("create hub: %w", err)
	}

	user, err := users.NewUserService(repo, lane, inventoryLog, wallClock).
		CreateUser(ctx, users.CreateUserRequest{
			Username: username, Role: roles.Pharmacist.String(), LocationID: hub.ID, CanDelegate: true,
		})
	if err != nil {
		return 0, fmt.Errorf("create pharmacist: %w", err)
	}

	return user.ID, nil
}

func openRepository(dbURL string) (*repository.Repository, func(), error) {
	db, dialect, err := database.Open(dbURL)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRepository(db, dialect), func() { db.Close() }, nil
}
