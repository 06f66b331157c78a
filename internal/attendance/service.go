package attendance

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"iclockd/internal/iclock"
	"iclockd/internal/metrics"
	"iclockd/internal/queue"
	"iclockd/internal/subject"
	"iclockd/internal/timing"
)

// SubjectResolver resolves device identifiers; (nil, nil) is a clean miss.
type SubjectResolver interface {
	Resolve(ctx context.Context, externalID string) (*subject.Subject, error)
}

// WindowSource reads window configuration.
type WindowSource interface {
	ActiveWindows(ctx context.Context) ([]timing.Window, error)
	AssignedWindowIDs(ctx context.Context, subjectKind string, subjectKey int64) (map[int64]bool, error)
}

// EventStore persists events behind the dedup constraint.
type EventStore interface {
	Exists(ctx context.Context, kind subject.Kind, key int64, date string, windowID *int64) (bool, error)
	Insert(ctx context.Context, evt Event) (bool, error)
}

// Service is the per-batch ingestion orchestrator:
// parse, resolve, match, classify, dedup, persist, in payload order so
// an earlier line's insert is visible to a later line's dedup check.
type Service struct {
	subjects SubjectResolver
	windows  WindowSource
	store    EventStore
	q        queue.Queue
	loc      *time.Location
}

// NewService wires the orchestrator. q may be nil when realtime
// fan-out is not configured; loc is the device fleet's local zone.
func NewService(subjects SubjectResolver, windows WindowSource, store EventStore, q queue.Queue, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{subjects: subjects, windows: windows, store: store, q: q, loc: loc}
}

// ProcessBatch handles one device push. The returned count reflects
// only lines that were fully persisted; malformed lines, unknown
// subjects, and duplicates are skipped silently per the device
// contract. Any error returned here means the batch as a whole was
// aborted and nothing further should be inferred from the count.
func (s *Service) ProcessBatch(ctx context.Context, raw []byte, meta iclock.BatchMeta) (int, error) {
	metrics.BatchesTotal.WithLabelValues(meta.Table).Inc()

	parsed := iclock.ParseBatch(raw, meta, s.loc)
	if parsed.OperLog {
		metrics.PunchesTotal.WithLabelValues(metrics.OutcomeOpLog).Add(float64(parsed.OperLines))
		return parsed.OperLines, nil
	}
	if parsed.Malformed > 0 {
		metrics.PunchesTotal.WithLabelValues(metrics.OutcomeMalformed).Add(float64(parsed.Malformed))
		log.Printf("attendance: %d malformed line(s) in batch from %s", parsed.Malformed, meta.SN)
	}
	if len(parsed.Records) == 0 {
		return 0, nil
	}

	// One window read per batch; assignments vary per subject.
	windows, err := s.windows.ActiveWindows(ctx)
	if err != nil {
		return 0, err
	}

	accepted := 0
	for _, rec := range parsed.Records {
		ok, err := s.processPunch(ctx, rec, windows)
		if err != nil {
			// Storage is unusable; abort the remainder of the batch.
			return 0, err
		}
		if ok {
			accepted++
		}
	}
	return accepted, nil
}

func (s *Service) processPunch(ctx context.Context, rec iclock.PunchRecord, windows []timing.Window) (bool, error) {
	subj, err := s.subjects.Resolve(ctx, rec.SubjectID)
	if err != nil {
		return false, err
	}
	if subj == nil {
		metrics.PunchesTotal.WithLabelValues(metrics.OutcomeUnknownSubject).Inc()
		return false, nil
	}

	assigned, err := s.windows.AssignedWindowIDs(ctx, string(subj.Kind), subj.Key)
	if err != nil {
		return false, err
	}

	punch := timeOfDay(rec.Timestamp)
	var match *timing.Match
	if m, ok := timing.MatchWindow(punch, windows, assigned); ok {
		match = &m
	}
	cls := timing.Classify(match, punch, timing.TypePresent)

	date := rec.Timestamp.Format("2006-01-02")
	var windowID *int64
	if match != nil {
		id := match.Window.ID
		windowID = &id
	}

	dup, err := s.store.Exists(ctx, subj.Kind, subj.Key, date, windowID)
	if err != nil {
		return false, err
	}
	if dup {
		metrics.PunchesTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return false, nil
	}

	evt := Event{
		ID:             uuid.NewString(),
		SubjectKind:    subj.Kind,
		SubjectKey:     subj.Key,
		Date:           date,
		WindowID:       windowID,
		AttendanceType: cls.AttendanceType,
		Authorized:     cls.Authorized,
		CheckIn:        todString(cls.CheckIn),
		CheckOut:       todString(cls.CheckOut),
		DevicePayload:  encodePayload(rec),
		Remark:         cls.Remark,
	}
	inserted, err := s.store.Insert(ctx, evt)
	if err != nil {
		return false, err
	}
	if !inserted {
		// Lost the race to a concurrent batch; same outcome as the dedup hit.
		metrics.PunchesTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return false, nil
	}

	metrics.PunchesTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	if !cls.Authorized {
		metrics.UnauthorizedTotal.Inc()
		log.Printf("attendance: unauthorized punch by %s %s at %s", subj.Kind, subj.ExternalID, rec.Timestamp.Format(iclock.TimestampLayout))
	}
	if s.q != nil {
		if err := s.q.Publish(ctx, queue.Message{Type: "attendance", Body: []byte(evt.ID)}); err != nil {
			log.Printf("attendance: queue publish failed: %v", err)
		}
	}
	return true, nil
}

func timeOfDay(t time.Time) timing.TimeOfDay {
	return timing.TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func todString(t *timing.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}
