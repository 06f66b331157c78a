package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"iclockd/internal/subject"
)

// Repository persists attendance events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether an event already occupies the dedup key.
// A nil window id matches rows whose window id is NULL.
func (r *Repository) Exists(ctx context.Context, kind subject.Kind, key int64, date string, windowID *int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM attendance_events
		WHERE subject_kind = $1 AND subject_key = $2 AND date = $3
		  AND window_id IS NOT DISTINCT FROM $4
		LIMIT 1
	`, string(kind), key, date, windowID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return true, nil
}

// Insert writes a new event. The unique constraint on
// (subject_kind, subject_key, date, window_id) is the dedup source of
// truth: a conflict, including one raced in by a concurrent batch,
// reports (false, nil) exactly like a dedup-check hit.
func (r *Repository) Insert(ctx context.Context, evt Event) (bool, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_events
			(id, subject_kind, subject_key, date, window_id, attendance_type,
			 authorized, check_in_time, check_out_time, device_payload, remark, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT DO NOTHING
	`, evt.ID, string(evt.SubjectKind), evt.SubjectKey, evt.Date, evt.WindowID, evt.AttendanceType,
		evt.Authorized, evt.CheckIn, evt.CheckOut, evt.DevicePayload, evt.Remark, evt.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return n == 1, nil
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subject_kind, subject_key, to_char(date, 'YYYY-MM-DD'), window_id,
		       attendance_type, authorized,
		       to_char(check_in_time, 'HH24:MI:SS'), to_char(check_out_time, 'HH24:MI:SS'),
		       device_payload, remark, created_at
		FROM attendance_events WHERE id = $1
	`, id)
	var evt Event
	var kind string
	if err := row.Scan(&evt.ID, &kind, &evt.SubjectKey, &evt.Date, &evt.WindowID,
		&evt.AttendanceType, &evt.Authorized, &evt.CheckIn, &evt.CheckOut,
		&evt.DevicePayload, &evt.Remark, &evt.CreatedAt); err != nil {
		return Event{}, err
	}
	evt.SubjectKind = subject.Kind(kind)
	return evt, nil
}

// EventView is one row of the admin listing: an event joined with the
// subject's display name and external identifier and the window name.
type EventView struct {
	ID             string    `json:"id"`
	SubjectKind    string    `json:"subject_kind"`
	ExternalID     string    `json:"external_id"`
	DisplayName    string    `json:"display_name"`
	Date           string    `json:"date"`
	WindowName     *string   `json:"window_name,omitempty"`
	AttendanceType int       `json:"attendance_type"`
	Authorized     bool      `json:"authorized"`
	CheckIn        *string   `json:"check_in,omitempty"`
	CheckOut       *string   `json:"check_out,omitempty"`
	Remark         string    `json:"remark"`
	CreatedAt      time.Time `json:"created_at"`
}

// List returns events newest-first for the admin read view.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]EventView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.subject_kind,
		       COALESCE(sf.employee_id, st.admission_no, ''),
		       COALESCE(NULLIF(TRIM(CONCAT(sf.name, ' ', sf.surname)), ''),
		                NULLIF(TRIM(CONCAT(st.first_name, ' ', st.last_name)), ''), ''),
		       to_char(e.date, 'YYYY-MM-DD'), w.name, e.attendance_type, e.authorized,
		       to_char(e.check_in_time, 'HH24:MI:SS'), to_char(e.check_out_time, 'HH24:MI:SS'),
		       e.remark, e.created_at
		FROM attendance_events e
		LEFT JOIN timing_windows w ON w.id = e.window_id
		LEFT JOIN staff sf ON e.subject_kind = 'staff' AND sf.id = e.subject_key
		LEFT JOIN student_sessions ss ON e.subject_kind = 'student' AND ss.id = e.subject_key
		LEFT JOIN students st ON st.id = ss.student_id
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventView
	for rows.Next() {
		var v EventView
		if err := rows.Scan(&v.ID, &v.SubjectKind, &v.ExternalID, &v.DisplayName,
			&v.Date, &v.WindowName, &v.AttendanceType, &v.Authorized,
			&v.CheckIn, &v.CheckOut, &v.Remark, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
