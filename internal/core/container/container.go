package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/auditlog"
	"github.com/Archer-177/HighCostAtWork/internal/core/config"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/drugs"
	inventorylog "github.com/Archer-177/HighCostAtWork/internal/inventory/inventory_log"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/transfers"
	"github.com/Archer-177/HighCostAtWork/internal/inventory/vials"
	"github.com/Archer-177/HighCostAtWork/internal/locations"
	"github.com/Archer-177/HighCostAtWork/internal/middleware"
	"github.com/Archer-177/HighCostAtWork/internal/notifier"
	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/internal/serializer"
	"github.com/Archer-177/HighCostAtWork/internal/users"
	pkgauditlog "github.com/Archer-177/HighCostAtWork/pkg/auditlog"
	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	"github.com/Archer-177/HighCostAtWork/pkg/security"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type Container struct {
	Repository      *repository.Repository
	Lane            *serializer.Serializer
	Auth            *security.Auth
	Health          *middleware.Health
	Registry        *prometheus.Registry
	AuditHandler    *auditlog.AuditLogHandler
	LocationHandler *locations.LocationHandler
	UserHandler     *users.UsersHandler
	DrugHandler     *drugs.DrugHandler
	StockHandler    *stocks.StockHandler
	VialHandler     *vials.VialHandler
	TransferHandler *transfers.TransferHandler

	closers []func()
}

func NewAppContainer(ctx context.Context, db *sql.DB, dialect string, cfg *config.Config, log *zap.Logger) (*Container, error) {
	auth, err := security.NewAuth(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	policy, err := transfers.NewPolicy(cfg.TransferPolicy.BlockedRoutes...)
	if err != nil {
		return nil, fmt.Errorf("transfer policy: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Container{Auth: auth, Registry: registry}

	sink, err := c.newSink(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	repo := repository.NewRepository(db, dialect)
	lane := serializer.New(log, serializer.WithQueueSize(cfg.WriteQueueSize), serializer.WithRegisterer(registry))
	c.closers = append(c.closers, lane.Close)

	wallClock := clock.Real{}
	auditLogRepo := auditlog.NewRepository(repo)
	inventoryLog := inventorylog.NewInventoryLog(pkgauditlog.NewAuditLog(auditLogRepo, wallClock))
	monitor := stocks.NewMonitor()

	c.Repository = repo
	c.Lane = lane
	c.Health = middleware.NewHealth(db, "1.0.0")
	c.AuditHandler = auditlog.NewAuditLogHandler(auditLogRepo, log)
	c.LocationHandler = locations.NewLocationHandler(locations.NewLocationService(repo, lane, inventoryLog, wallClock), log)
	c.UserHandler = users.NewHandler(users.NewUserService(repo, lane, inventoryLog, wallClock), log)
	c.DrugHandler = drugs.NewDrugHandler(drugs.NewDrugService(repo, lane, inventoryLog, wallClock), log)
	c.StockHandler = stocks.NewStockHandler(stocks.NewStockService(repo, lane, inventoryLog, monitor), sink, log)
	c.VialHandler = vials.NewVialHandler(vials.NewVialService(repo, lane, inventoryLog, monitor, wallClock), sink, log)
	c.TransferHandler = transfers.NewTransferHandler(
		transfers.NewTransferService(repo, lane, inventoryLog, monitor, policy, wallClock), sink, log,
	)

	return c, nil
}

// newSink always logs alerts and also publishes them when REDIS_ADDR is set.
func (c *Container) newSink(ctx context.Context, cfg *config.Config, log *zap.Logger) (stocks.Sink, error) {
	notifiers := []notifier.Notifier{notifier.NewLogNotifier(log)}

	if cfg.RedisAddr != "" {
		client, err := notifier.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { client.Close() })
		notifiers = append(notifiers, notifier.NewRedisNotifier(client, cfg.RedisChannel))
		log.Info("Publishing stock alerts to redis", zap.String("addr", cfg.RedisAddr), zap.String("channel", cfg.RedisChannel))
	}

	return notifier.NewDispatcher(log, notifiers...), nil
}

// Close drains the write lane and releases external clients.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
