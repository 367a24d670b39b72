package stocks

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/pkg/metadata"

	"github.com/doug-martin/goqu/v9"
)

// Snapshot is the stock position of one drug at one location right after a
// mutation changed it.
type Snapshot struct {
	LocationID     int    `json:"location_id"`
	LocationName   string `json:"location_name"`
	DrugID         int    `json:"drug_id"`
	DrugName       string `json:"drug_name"`
	AvailableCount int    `json:"available_count"`
	MinStock       int    `json:"min_stock"`
	Configured     bool   `json:"configured"`
}

type Result struct {
	BelowMinimum bool     `json:"below_minimum"`
	Snapshot     Snapshot `json:"snapshot"`
}

// Alert is the notification intent handed to a Sink.
type Alert struct {
	DrugName       string `json:"drug_name"`
	LocationName   string `json:"location_name"`
	AvailableCount int    `json:"available_count"`
	MinStock       int    `json:"min_stock"`
}

// Sink delivers alerts outside the write path. Delivery problems are the
// sink's to handle; they never undo the mutation that raised the alert.
type Sink interface {
	Dispatch(ctx context.Context, alerts []Alert)
}

// Evaluate decides whether a snapshot is below its configured minimum. A
// location/drug pair without a threshold never alerts.
func Evaluate(s Snapshot) Result {
	return Result{
		BelowMinimum: s.Configured && s.AvailableCount < s.MinStock,
		Snapshot:     s,
	}
}

func (r Result) Alert() (Alert, bool) {
	if !r.BelowMinimum {
		return Alert{}, false
	}
	return Alert{
		DrugName:       r.Snapshot.DrugName,
		LocationName:   r.Snapshot.LocationName,
		AvailableCount: r.Snapshot.AvailableCount,
		MinStock:       r.Snapshot.MinStock,
	}, true
}

// Alerts keeps the results that warrant a notification.
func Alerts(results ...Result) []Alert {
	alerts := []Alert{}
	for _, r := range results {
		if alert, ok := r.Alert(); ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Snapshot reads the current position through q. Called with the mutating
// transaction, it sees the count the mutation produced.
func (m *Monitor) Snapshot(ctx context.Context, q repository.Querier, locationID, drugID int) (Snapshot, error) {
	s := Snapshot{LocationID: locationID, DrugID: drugID}

	count, err := q.From("vials").Where(
		goqu.C("location_id").Eq(locationID),
		goqu.C("drug_id").Eq(drugID),
		goqu.C("status").Eq(metadata.VialAvailable),
	).CountContext(ctx)
	if err != nil {
		return s, fmt.Errorf("count available vials: %w", err)
	}
	s.AvailableCount = int(count)

	s.Configured, err = q.From("stock_thresholds").Select("min_stock").Where(
		goqu.C("location_id").Eq(locationID),
		goqu.C("drug_id").Eq(drugID),
	).ScanValContext(ctx, &s.MinStock)
	if err != nil {
		return s, fmt.Errorf("read stock threshold: %w", err)
	}

	if _, err := q.From("locations").Select("name").Where(goqu.C("id").Eq(locationID)).ScanValContext(ctx, &s.LocationName); err != nil {
		return s, fmt.Errorf("read location name: %w", err)
	}
	if _, err := q.From("drugs").Select("name").Where(goqu.C("id").Eq(drugID)).ScanValContext(ctx, &s.DrugName); err != nil {
		return s, fmt.Errorf("read drug name: %w", err)
	}

	return s, nil
}

// Check takes a snapshot and evaluates it.
func (m *Monitor) Check(ctx context.Context, q repository.Querier, locationID, drugID int) (Result, error) {
	s, err := m.Snapshot(ctx, q, locationID, drugID)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(s), nil
}

// Pair identifies one drug at one location.
type Pair struct {
	LocationID int
	DrugID     int
}

// CheckAll evaluates each distinct pair once, in the order first seen.
func (m *Monitor) CheckAll(ctx context.Context, q repository.Querier, pairs []Pair) ([]Result, error) {
	seen := make(map[Pair]bool, len(pairs))
	results := make([]Result, 0, len(pairs))
	for _, p := range pairs {
		if seen[p] {
			continue
		}
		seen[p] = true

		result, err := m.Check(ctx, q, p.LocationID, p.DrugID)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
