package patient

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

// =========== Patient Repository ===========

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

const patientCols = `id, mrn, last_name, first_name, middle_name, suffix, name,
	dob, sex, location, diagnosis, patient_information,
	admission_date, admission_time, attending_id, status,
	discharged_at, archived_at, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.LastName, &p.FirstName, &p.MiddleName, &p.Suffix,
		&p.Name, &p.DOB, &p.Sex, &p.Location, &p.Diagnosis, &p.PatientInformation,
		&p.AdmissionDate, &p.AdmissionTime, &p.AttendingID, &p.Status,
		&p.DischargedAt, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, mrn, last_name, first_name, middle_name, suffix, name,
			dob, sex, location, diagnosis, patient_information,
			admission_date, admission_time, attending_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		p.ID, p.MRN, p.LastName, p.FirstName, p.MiddleName, p.Suffix, p.Name,
		p.DOB, p.Sex, p.Location, p.Diagnosis, p.PatientInformation,
		p.AdmissionDate, p.AdmissionTime, p.AttendingID, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET mrn=$2, last_name=$3, first_name=$4, middle_name=$5, suffix=$6,
			name=$7, dob=$8, sex=$9, location=$10, diagnosis=$11, patient_information=$12,
			admission_date=$13, admission_time=$14, attending_id=$15, status=$16,
			discharged_at=$17, archived_at=$18, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.MRN, p.LastName, p.FirstName, p.MiddleName, p.Suffix,
		p.Name, p.DOB, p.Sex, p.Location, p.Diagnosis, p.PatientInformation,
		p.AdmissionDate, p.AdmissionTime, p.AttendingID, p.Status,
		p.DischargedAt, p.ArchivedAt)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	const where = ` WHERE ($1::text IS NULL OR status = $1)
		AND ($2::uuid IS NULL OR attending_id = $2)
		AND ($3 = '' OR mrn = $3)`

	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where,
		status, f.AttendingID, f.MRN).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients`+where+`
		ORDER BY last_name, first_name, mrn
		LIMIT $4 OFFSET $5`,
		status, f.AttendingID, f.MRN, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ArchiveEligible(ctx context.Context, cutoff, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients
		SET status = $1, archived_at = COALESCE(archived_at, $3), updated_at = NOW()
		WHERE status = $2 AND discharged_at IS NOT NULL AND discharged_at <= $4`,
		StatusArchived, StatusDischarged, now, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =========== Signout Repository ===========

type signoutRepoPG struct{ pool *pgxpool.Pool }

func NewSignoutRepoPG(pool *pgxpool.Pool) SignoutRepository {
	return &signoutRepoPG{pool: pool}
}

func (r *signoutRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const signoutCols = `id, patient_id, entry_date, text, created_by, created_at, updated_at`

func (r *signoutRepoPG) scan(row pgx.Row) (*Signout, error) {
	var s Signout
	err := row.Scan(&s.ID, &s.PatientID, &s.EntryDate, &s.Text, &s.CreatedBy,
		&s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *signoutRepoPG) Create(ctx context.Context, s *Signout) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO signouts (id, patient_id, entry_date, text, created_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		s.ID, s.PatientID, s.EntryDate, s.Text, s.CreatedBy).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *signoutRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Signout, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+signoutCols+` FROM signouts WHERE id = $1`, id))
}

func (r *signoutRepoPG) Update(ctx context.Context, s *Signout) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE signouts SET entry_date=$2, text=$3, updated_at=NOW() WHERE id = $1`,
		s.ID, s.EntryDate, s.Text)
	return err
}

func (r *signoutRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM signouts WHERE id = $1`, id)
	return err
}

func (r *signoutRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Signout, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM signouts WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+signoutCols+` FROM signouts
		WHERE patient_id = $1 ORDER BY entry_date DESC, created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Signout
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// =========== Todo Repository ===========

type todoRepoPG struct{ pool *pgxpool.Pool }

func NewTodoRepoPG(pool *pgxpool.Pool) TodoRepository {
	return &todoRepoPG{pool: pool}
}

func (r *todoRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const todoCols = `id, patient_id, text, is_completed, expires_at, completed_at, created_at, updated_at`

func (r *todoRepoPG) scan(row pgx.Row) (*Todo, error) {
	var t Todo
	err := row.Scan(&t.ID, &t.PatientID, &t.Text, &t.IsCompleted, &t.ExpiresAt,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *todoRepoPG) Create(ctx context.Context, t *Todo) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO todos (id, patient_id, text, is_completed, expires_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		t.ID, t.PatientID, t.Text, t.IsCompleted, t.ExpiresAt, t.CompletedAt).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *todoRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Todo, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+todoCols+` FROM todos WHERE id = $1`, id))
}

func (r *todoRepoPG) Update(ctx context.Context, t *Todo) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE todos SET text=$2, is_completed=$3, expires_at=$4, completed_at=$5, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Text, t.IsCompleted, t.ExpiresAt, t.CompletedAt)
	return err
}

func (r *todoRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	return err
}

func (r *todoRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Todo, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM todos WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+todoCols+` FROM todos
		WHERE patient_id = $1 ORDER BY is_completed, created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Todo
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

// =========== Overnight Event Repository ===========

type overnightEventRepoPG struct{ pool *pgxpool.Pool }

func NewOvernightEventRepoPG(pool *pgxpool.Pool) OvernightEventRepository {
	return &overnightEventRepoPG{pool: pool}
}

func (r *overnightEventRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const eventCols = `id, patient_id, description, resolved, created_at, updated_at`

func (r *overnightEventRepoPG) scan(row pgx.Row) (*OvernightEvent, error) {
	var e OvernightEvent
	err := row.Scan(&e.ID, &e.PatientID, &e.Description, &e.Resolved, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *overnightEventRepoPG) Create(ctx context.Context, e *OvernightEvent) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO overnight_events (id, patient_id, description, resolved)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.Description, e.Resolved).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *overnightEventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*OvernightEvent, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+eventCols+` FROM overnight_events WHERE id = $1`, id))
}

func (r *overnightEventRepoPG) Update(ctx context.Context, e *OvernightEvent) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE overnight_events SET description=$2, resolved=$3, updated_at=NOW() WHERE id = $1`,
		e.ID, e.Description, e.Resolved)
	return err
}

func (r *overnightEventRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM overnight_events WHERE id = $1`, id)
	return err
}

func (r *overnightEventRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*OvernightEvent, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM overnight_events WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+eventCols+` FROM overnight_events
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*OvernightEvent
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
