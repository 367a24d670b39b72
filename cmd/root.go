package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/core/config"
	"github.com/Archer-177/HighCostAtWork/internal/core/container"
	"github.com/Archer-177/HighCostAtWork/internal/core/logger"
	"github.com/Archer-177/HighCostAtWork/internal/core/routes"
	"github.com/Archer-177/HighCostAtWork/internal/database"
	"github.com/Archer-177/HighCostAtWork/internal/database/migration"
	"github.com/Archer-177/HighCostAtWork/internal/middleware"
	"github.com/Archer-177/HighCostAtWork/internal/rate_limiter"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewLogger(cfg.LogLevel), nil
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Apply migrations and start the HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		db, dialect, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("Connected to the database", zap.String("dialect", dialect))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := container.NewAppContainer(ctx, db, dialect, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		limit, err := rate_limiter.New(cfg.RateLimit, log)
		if err != nil {
			return err
		}

		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(middleware.RecoveryMiddleware(log), limit, middleware.TimeoutMiddleware(cfg.RequestTimeout))
		routes.RegisterUtilityRoutes(router, app)
		routes.RegisterProtectedRoutes(router, app)

		server := &http.Server{Addr: cfg.AppHost, Handler: router, ReadHeaderTimeout: 10 * time.Second}
		errs := make(chan error, 1)
		go func() {
			log.Info("Starting server", zap.String("addr", cfg.AppHost))
			errs <- server.ListenAndServe()
		}()

		select {
		case err := <-errs:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run migrations manually.",
	Long:  `Applies every pending migration for the store named by DATABASE_URL.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		verbose, _ := cmd.Flags().GetBool("verbose")
		if err := migration.Migrate(cfg.DatabaseURL, verbose, log); err != nil {
			log.Error("Migration failed", zap.Error(err))
			return fmt.Errorf("migrate database: %w", err)
		}

		return nil
	},
}

func Execute(ctx context.Context) {
	rootCmd := &cobra.Command{
		Use:   "vials",
		Short: "High-cost drug vial inventory service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional config file (yaml, toml or json)")

	MigrateCmd.Flags().Bool("verbose", true, "Log every applied migration")
	TokenCmd.Flags().Duration("ttl", 0, "Token lifetime, defaults to JWT_TTL")
	BootstrapCmd.Flags().String("hub", "", "Name of the first hub")
	BootstrapCmd.Flags().String("username", "", "Username of the first pharmacist")
	_ = BootstrapCmd.MarkFlagRequired("hub")
	_ = BootstrapCmd.MarkFlagRequired("username")

	rootCmd.AddCommand(ServeCmd, MigrateCmd, TokenCmd, BootstrapCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
