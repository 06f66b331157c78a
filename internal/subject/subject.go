// Package subject resolves device-reported identifiers to staff members
// or students. The two populations live in independent tables whose
// internal row ids are known to overlap, so resolution always goes
// through the external identifier (employee number / admission number)
// and never through row ids.
package subject

import (
	"context"
	"log"

	"iclockd/internal/metrics"
)

// Kind tags which population a subject belongs to.
type Kind string

const (
	KindStaff   Kind = "staff"
	KindStudent Kind = "student"
)

// Subject is a resolved punch target. Key is the staff row id for
// staff, and the student-session row id for students: attendance is
// recorded against an enrollment, not against the student row.
type Subject struct {
	Kind        Kind
	Key         int64
	ExternalID  string
	DisplayName string
}

// Directory is the read-only lookup surface the resolver consumes.
// Implementations return (nil, nil) for a clean miss.
type Directory interface {
	FindStaff(ctx context.Context, externalID string) (*Subject, error)
	FindStudent(ctx context.Context, externalID string) (*Subject, error)
}

// Resolver disambiguates device identifiers across the two populations.
type Resolver struct {
	dir Directory
}

// NewResolver creates a resolver over a directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the subject a device identifier refers to, or
// (nil, nil) when neither directory knows it. Staff is always tried
// first: the populations' internal ids collide, and staff lookup
// priority is the tie-break at the protocol boundary.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (*Subject, error) {
	if s, err := r.dir.FindStaff(ctx, externalID); err != nil {
		return nil, err
	} else if s != nil {
		metrics.ResolutionsTotal.WithLabelValues("staff").Inc()
		return s, nil
	}

	if s, err := r.dir.FindStudent(ctx, externalID); err != nil {
		return nil, err
	} else if s != nil {
		metrics.ResolutionsTotal.WithLabelValues("student").Inc()
		return s, nil
	}

	metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
	log.Printf("subject: no active staff or student for identifier %q", externalID)
	return nil, nil
}
