package subject

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository implements Directory over Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindStaff looks up an active staff member by employee number.
func (r *Repository) FindStaff(ctx context.Context, externalID string) (*Subject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, employee_id, name, surname
		FROM staff
		WHERE employee_id = $1 AND is_active
	`, externalID)

	var s Subject
	var name, surname sql.NullString
	if err := row.Scan(&s.Key, &s.ExternalID, &name, &surname); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find staff %q: %w", externalID, err)
	}
	s.Kind = KindStaff
	s.DisplayName = joinName(name.String, surname.String)
	return &s, nil
}

// FindStudent looks up an active student by admission number, joined to
// the active academic session to obtain the student-session key.
func (r *Repository) FindStudent(ctx context.Context, externalID string) (*Subject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT ss.id, st.admission_no, st.first_name, st.last_name
		FROM students st
		JOIN student_sessions ss ON ss.student_id = st.id
		JOIN academic_sessions ac ON ac.id = ss.session_id
		WHERE st.admission_no = $1 AND st.is_active AND ac.is_active
	`, externalID)

	var s Subject
	var first, last sql.NullString
	if err := row.Scan(&s.Key, &s.ExternalID, &first, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student %q: %w", externalID, err)
	}
	s.Kind = KindStudent
	s.DisplayName = joinName(first.String, last.String)
	return &s, nil
}

func joinName(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
