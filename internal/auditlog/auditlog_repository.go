package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/repository"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type AuditLogRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *AuditLogRepository {
	return &AuditLogRepository{repository: r}
}

// PersistLog appends one entry using the caller's transaction, so the entry
// commits or rolls back together with the mutation it describes.
func (r *AuditLogRepository) PersistLog(ctx context.Context, tx *goqu.TxDatabase, entry models.AuditLog, data interface{}) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit log data: %w", err)
	}

	_, err = tx.Insert("audit_logs").
		Rows(goqu.Record{
			"user_id":     entry.UserID,
			"action":      entry.Action,
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"data":        string(dataJSON),
			"created_at":  entry.CreatedAt,
		}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

func (r *AuditLogRepository) GetResourceLog(ctx context.Context, id int, entityType string) ([]models.AuditLog, error) {
	var auditLogs []models.AuditLog

	err := r.repository.GoquDBWrapper.
		From(goqu.T("audit_logs").As("a")).
		Select(
			goqu.I("a.id").As("id"),
			goqu.I("a.user_id").As("user_id"),
			goqu.I("a.action").As("action"),
			goqu.I("a.entity_type").As("entity_type"),
			goqu.I("a.entity_id").As("entity_id"),
			goqu.I("a.data").As("data"),
			goqu.I("a.created_at").As("created_at"),
		).
		Where(goqu.Ex{
			"a.entity_id":   id,
			"a.entity_type": entityType,
		}).
		Order(goqu.I("a.created_at").Asc(), goqu.I("a.id").Asc()).
		ScanStructsContext(ctx, &auditLogs)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	for i := range auditLogs {
		auditLogs[i].LoadFromDB()
	}

	return auditLogs, nil
}

// ListSince returns the most recent entries across all entities, newest first.
func (r *AuditLogRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]models.AuditLog, error) {
	var auditLogs []models.AuditLog

	err := r.repository.GoquDBWrapper.
		From("audit_logs").
		Where(goqu.C("created_at").Gte(since)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit)).
		ScanStructsContext(ctx, &auditLogs)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	for i := range auditLogs {
		auditLogs[i].LoadFromDB()
	}

	return auditLogs, nil
}
