package repo

import (
	"context"
	"database/sql"

	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

// InsertReconcileTask records a flagged decrement durably, in the same
// database as the order it belongs to, so operator review survives broker
// outages.
func (r *MySQLOutboxRepo) InsertReconcileTask(ctx context.Context, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES ('inventory.reconcile.v1', ?, 'PENDING', 0, NOW(), NOW())
`, payload)
	return err
}

var _ usecase.ReconcileOutbox = (*MySQLOutboxRepo)(nil)
