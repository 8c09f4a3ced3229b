package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardtrack/wardtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const notifCols = `id, recipient_id, patient_id, kind, level, message,
	created_at, visible_at, read_at, acknowledged_at`

func (r *repoPG) scan(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.PatientID, &n.Kind, &n.Level,
		&n.Message, &n.CreatedAt, &n.VisibleAt, &n.ReadAt, &n.AcknowledgedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notifications (id, recipient_id, patient_id, kind, level, message, visible_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		n.ID, n.RecipientID, n.PatientID, n.Kind, n.Level, n.Message, n.VisibleAt).
		Scan(&n.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+notifCols+` FROM notifications WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, n *Notification) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET read_at=$2, acknowledged_at=$3 WHERE id = $1`,
		n.ID, n.ReadAt, n.AcknowledgedAt)
	return err
}

func (r *repoPG) DeletePendingAssignments(ctx context.Context, patientID uuid.UUID, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM notifications
		WHERE patient_id = $1 AND kind = $2 AND visible_at > $3`,
		patientID, KindAssignment, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ListVisible(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, now time.Time, limit, offset int) ([]*Notification, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND visible_at <= $2
		  AND (NOT $3 OR read_at IS NULL)`,
		recipientID, now, onlyUnread).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+notifCols+` FROM notifications
		WHERE recipient_id = $1 AND visible_at <= $2
		  AND (NOT $3 OR read_at IS NULL)
		ORDER BY (read_at IS NULL) DESC, visible_at DESC, created_at DESC
		LIMIT $4 OFFSET $5`,
		recipientID, now, onlyUnread, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Notification
	for rows.Next() {
		n, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountUnread(ctx context.Context, recipientID uuid.UUID, now time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND visible_at <= $2 AND read_at IS NULL`,
		recipientID, now).Scan(&n)
	return n, err
}

func (r *repoPG) CountUnacknowledged(ctx context.Context, recipientID uuid.UUID, now time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND visible_at <= $2 AND acknowledged_at IS NULL`,
		recipientID, now).Scan(&n)
	return n, err
}

func (r *repoPG) LatestVisible(ctx context.Context, recipientID uuid.UUID, now time.Time) (*Notification, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+notifCols+` FROM notifications
		WHERE recipient_id = $1 AND visible_at <= $2
		ORDER BY visible_at DESC, created_at DESC
		LIMIT 1`,
		recipientID, now))
}

func (r *repoPG) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET read_at = $2
		WHERE recipient_id = $1 AND visible_at <= $2 AND read_at IS NULL`,
		recipientID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ListUnacknowledged(ctx context.Context, recipientID uuid.UUID, after *Cursor, now time.Time, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notifCols + ` FROM notifications
		WHERE recipient_id = $1 AND visible_at <= $2 AND acknowledged_at IS NULL`
	args := []interface{}{recipientID, now}
	if after != nil {
		query += ` AND (visible_at, created_at) > ($3, $4)`
		args = append(args, after.VisibleAt, after.CreatedAt)
	}
	query += ` ORDER BY visible_at DESC, created_at DESC LIMIT ` + limitClause(after)
	args = append(args, limit)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Notification
	for rows.Next() {
		n, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func limitClause(after *Cursor) string {
	if after != nil {
		return "$5"
	}
	return "$3"
}
