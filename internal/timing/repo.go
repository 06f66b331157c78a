package timing

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository reads window configuration from Postgres. Windows and
// assignments are mutated by administrative tooling only; everything
// here is read-only.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ActiveWindows returns all active windows ordered by priority, then start time.
func (r *Repository) ActiveWindows(ctx context.Context) ([]Window, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind, to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS'),
		       grace_minutes, attendance_type, priority
		FROM timing_windows
		WHERE is_active
		ORDER BY priority ASC, start_time ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active windows: %w", err)
	}
	defer rows.Close()

	var out []Window
	for rows.Next() {
		var w Window
		var kind, start, end string
		if err := rows.Scan(&w.ID, &w.Name, &kind, &start, &end, &w.GraceMinutes, &w.AttendanceType, &w.Priority); err != nil {
			return nil, err
		}
		w.Kind = WindowKind(kind)
		if w.Start, err = ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if w.End, err = ParseTimeOfDay(end); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AssignedWindowIDs returns the active window assignments for a subject.
// An empty set means the subject falls back to the full active window set.
func (r *Repository) AssignedWindowIDs(ctx context.Context, subjectKind string, subjectKey int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT window_id
		FROM window_assignments
		WHERE subject_kind = $1 AND subject_key = $2 AND is_active
	`, subjectKind, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("query window assignments: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
