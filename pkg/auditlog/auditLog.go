package auditlog

import (
	"context"
	"fmt"

	"github.com/Archer-177/HighCostAtWork/pkg/clock"
	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type Persister interface {
	PersistLog(ctx context.Context, tx *goqu.TxDatabase, entry models.AuditLog, data interface{}) error
}

type Auditlog struct {
	r     Persister
	clock clock.Clock
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

// Log writes the entry inside tx. A failure is returned so the caller's
// transaction rolls back with it.
func (a *Auditlog) Log(ctx context.Context, tx *goqu.TxDatabase, action string, userID int, data interface{}, item Auditable) error {
	auditLog := item.CreateLogView()
	auditLog.Action = action
	auditLog.CreatedAt = a.clock.Now()
	if userID != 0 {
		auditLog.UserID = &userID
	}

	if err := a.r.PersistLog(ctx, tx, auditLog, data); err != nil {
		return fmt.Errorf("audit %s for %s %d: %w", action, auditLog.EntityType, auditLog.EntityID, err)
	}

	return nil
}

func NewAuditLog(persister Persister, c clock.Clock) *Auditlog {
	a := Auditlog{r: persister, clock: c}

	return &a
}
