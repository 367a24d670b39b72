// Package notifier delivers low-stock alerts once the mutation that raised
// them has committed. Delivery failures are logged and never reach the caller.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, alert stocks.Alert) error
}

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, alert stocks.Alert) error {
	n.log.Warn("Stock below minimum",
		zap.String("drug", alert.DrugName),
		zap.String("location", alert.LocationName),
		zap.Int("available", alert.AvailableCount),
		zap.Int("min_stock", alert.MinStock),
	)
	return nil
}

// Publisher is the part of a redis client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisNotifier struct {
	client  Publisher
	channel string
}

func NewRedisNotifier(client Publisher, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

type lowStockMessage struct {
	Type string `json:"type"`
	stocks.Alert
}

func (n *RedisNotifier) Notify(ctx context.Context, alert stocks.Alert) error {
	payload, err := json.Marshal(lowStockMessage{Type: "low_stock", Alert: alert})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish alert on %s: %w", n.channel, err)
	}
	return nil
}

// NewRedisClient connects and pings the server so a bad address fails at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Dispatcher fans every alert out to each notifier. It implements stocks.Sink.
type Dispatcher struct {
	notifiers []Notifier
	log       *zap.Logger
}

func NewDispatcher(log *zap.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, alerts []stocks.Alert) {
	for _, alert := range alerts {
		for _, n := range d.notifiers {
			if err := n.Notify(ctx, alert); err != nil {
				d.log.Error("Failed to deliver stock alert",
					zap.Error(err),
					zap.String("drug", alert.DrugName),
					zap.String("location", alert.LocationName),
				)
			}
		}
	}
}
