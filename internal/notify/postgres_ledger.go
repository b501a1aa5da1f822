package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the ledger needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLedger persists deliveries per user so they survive restarts and reloads.
type PostgresLedger struct {
	db     DB
	userID int64
}

// NewPostgresLedger returns a ledger scoped to userID.
func NewPostgresLedger(db DB, userID int64) *PostgresLedger {
	return &PostgresLedger{db: db, userID: userID}
}

func (l *PostgresLedger) Deliver(ctx context.Context, id int64, at time.Time) (bool, error) {
	const query = `
        INSERT INTO notification_deliveries (user_id, notification_id, delivered_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, notification_id) DO NOTHING`

	cmd, err := l.db.Exec(ctx, query, l.userID, id, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
