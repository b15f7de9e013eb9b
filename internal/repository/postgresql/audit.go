package postgresql

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paylane/payroll-engine-go/internal/domain/audit"
	"github.com/paylane/payroll-engine-go/internal/pkg/database"
)

type auditRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewAuditRepository returns a sink that persists audit events to the
// audit_logs table. Per the sink contract it swallows its own failures;
// an audit write never fails the operation that emitted it.
func NewAuditRepository(db *database.DB, logger *zap.Logger) audit.Sink {
	return &auditRepository{db: db, logger: logger}
}

func (r *auditRepository) Record(ctx context.Context, event audit.Event) {
	q := GetQuerier(ctx, r.db)

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		r.logger.Error("marshal audit payload", zap.String("action", event.Action), zap.Error(err))
		return
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, resource, resource_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := q.Exec(ctx, query,
		uuid.NewString(), event.UserID, event.Action, event.Resource,
		event.ResourceID, payload, event.CreatedAt,
	); err != nil {
		r.logger.Error("persist audit event",
			zap.String("action", event.Action),
			zap.String("resource_id", event.ResourceID),
			zap.Error(err),
		)
	}
}
