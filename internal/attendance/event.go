package attendance

import (
	"encoding/json"
	"time"

	"iclockd/internal/iclock"
	"iclockd/internal/subject"
)

// Event is one persisted attendance record: one row per accepted punch,
// keyed by (subject kind, subject key, date, window id). Corrections
// are an administrative concern; this service never updates or deletes
// events.
type Event struct {
	ID             string
	SubjectKind    subject.Kind
	SubjectKey     int64
	Date           string // YYYY-MM-DD
	WindowID       *int64
	AttendanceType int
	Authorized     bool
	CheckIn        *string // HH:MM:SS, set for checkin windows
	CheckOut       *string // HH:MM:SS, set for checkout windows
	DevicePayload  []byte  // raw punch serialized as JSON, for audit
	Remark         string
	CreatedAt      time.Time
}

// devicePayload mirrors what the terminal sent, preserved verbatim for
// audit. Absent status codes serialize as null, never 0.
type devicePayload struct {
	SN        string `json:"sn"`
	Table     string `json:"table"`
	Stamp     string `json:"stamp"`
	Timestamp string `json:"timestamp"`
	Status1   *int   `json:"status1"`
	Status2   *int   `json:"status2"`
	Status3   *int   `json:"status3"`
	Status4   *int   `json:"status4"`
	Status5   *int   `json:"status5"`
}

func encodePayload(rec iclock.PunchRecord) []byte {
	b, _ := json.Marshal(devicePayload{
		SN:        rec.Meta.SN,
		Table:     rec.Meta.Table,
		Stamp:     rec.Meta.Stamp,
		Timestamp: rec.Timestamp.Format(iclock.TimestampLayout),
		Status1:   rec.Statuses[0],
		Status2:   rec.Statuses[1],
		Status3:   rec.Statuses[2],
		Status4:   rec.Statuses[3],
		Status5:   rec.Statuses[4],
	})
	return b
}
