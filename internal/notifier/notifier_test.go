package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	args := m.Called(channel, message)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, alert stocks.Alert) error {
	return m.Called(alert).Error(0)
}

var alert = stocks.Alert{
	DrugName: "Tenecteplase", LocationName: "Port Augusta Hospital", AvailableCount: 1, MinStock: 2,
}

func TestRedisNotifierPublishesJSON(t *testing.T) {
	p := new(MockPublisher)
	p.On("Publish", "vials:low-stock", mock.MatchedBy(func(message interface{}) bool {
		var decoded map[string]interface{}
		if err := json.Unmarshal(message.([]byte), &decoded); err != nil {
			return false
		}
		return decoded["type"] == "low_stock" &&
			decoded["drug_name"] == "Tenecteplase" &&
			decoded["available_count"] == float64(1) &&
			decoded["min_stock"] == float64(2)
	})).Return(1, nil)

	err := NewRedisNotifier(p, "vials:low-stock").Notify(context.Background(), alert)
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestRedisNotifierReportsPublishFailure(t *testing.T) {
	p := new(MockPublisher)
	p.On("Publish", "alerts", mock.Anything).Return(0, errors.New("connection refused"))

	err := NewRedisNotifier(p, "alerts").Notify(context.Background(), alert)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDispatcherDeliversToEveryNotifier(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	failing, working := new(MockNotifier), new(MockNotifier)
	failing.On("Notify", alert).Return(errors.New("down"))
	working.On("Notify", alert).Return(nil)

	NewDispatcher(zap.New(core), failing, working).Dispatch(context.Background(), []stocks.Alert{alert})

	failing.AssertExpectations(t)
	working.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("Failed to deliver stock alert").Len())
}

func TestDispatcherIgnoresEmptyBatch(t *testing.T) {
	n := new(MockNotifier)
	NewDispatcher(zap.NewNop(), n).Dispatch(context.Background(), []stocks.Alert{})
	n.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestLogNotifierWritesWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	require.NoError(t, NewLogNotifier(zap.New(core)).Notify(context.Background(), alert))

	entries := logs.FilterMessage("Stock below minimum").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Tenecteplase", entries[0].ContextMap()["drug"])
}
