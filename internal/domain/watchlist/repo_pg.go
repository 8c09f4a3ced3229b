package watchlist

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

const watchCols = `id, user_id, patient_id, note, created_at, archived_at`

func (r *repoPG) scan(row pgx.Row) (*Watch, error) {
	var w Watch
	err := row.Scan(&w.ID, &w.UserID, &w.PatientID, &w.Note, &w.CreatedAt, &w.ArchivedAt)
	return &w, err
}

func (r *repoPG) Create(ctx context.Context, w *Watch) error {
	w.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO watches (id, user_id, patient_id, note)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		w.ID, w.UserID, w.PatientID, w.Note).Scan(&w.CreatedAt)
}

func (r *repoPG) Update(ctx context.Context, w *Watch) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE watches SET note=$2, archived_at=$3 WHERE id = $1`,
		w.ID, w.Note, w.ArchivedAt)
	return err
}

func (r *repoPG) FindActive(ctx context.Context, userID, patientID uuid.UUID) (*Watch, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+watchCols+` FROM watches
		WHERE user_id = $1 AND patient_id = $2 AND archived_at IS NULL`,
		userID, patientID))
}

func (r *repoPG) FindLatest(ctx context.Context, userID, patientID uuid.UUID) (*Watch, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+watchCols+` FROM watches
		WHERE user_id = $1 AND patient_id = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, patientID))
}

func (r *repoPG) Archive(ctx context.Context, userID, patientID uuid.UUID, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE watches SET archived_at = $3
		WHERE user_id = $1 AND patient_id = $2 AND archived_at IS NULL`,
		userID, patientID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ListActiveByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Watch, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM watches WHERE user_id = $1 AND archived_at IS NULL`,
		userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+watchCols+` FROM watches
		WHERE user_id = $1 AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Watch
	for rows.Next() {
		w, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, rows.Err()
}
