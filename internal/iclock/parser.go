// Package iclock implements the device-facing side of the push
// protocol: splitting raw batch payloads into punch records and
// answering the terminal's handshake probe.
package iclock

import (
	"strconv"
	"strings"
	"time"
)

// TableOperLog is the batch tag for the device keep-alive channel.
// OPERLOG lines are acknowledged but carry no attendance data.
const TableOperLog = "OPERLOG"

// TimestampLayout is the terminal's native local-time format.
const TimestampLayout = "2006-01-02 15:04:05"

// BatchMeta is the request-level metadata a terminal sends alongside
// the payload.
type BatchMeta struct {
	SN    string
	Table string
	Stamp string
}

// PunchRecord is one parsed attendance line. Statuses keeps "absent"
// distinct from zero: the terminal reports 0 as a real status code.
type PunchRecord struct {
	SubjectID string
	Timestamp time.Time
	Statuses  [5]*int
	Raw       string
	Meta      BatchMeta
}

// ParsedBatch is the outcome of splitting one pushed payload.
type ParsedBatch struct {
	Records   []PunchRecord
	OperLines int
	OperLog   bool
	Malformed int
}

// ParseBatch splits a raw payload into punch records. Lines are
// delimited by CR, LF, CRLF, or comma; fields within a line by a single
// tab. Malformed lines (fewer than two fields, unparsable timestamp)
// are dropped and counted, never fatal: one bad line must not sink the
// batch. Timestamps are wall-clock in the device's configured zone.
func ParseBatch(raw []byte, meta BatchMeta, loc *time.Location) ParsedBatch {
	if loc == nil {
		loc = time.Local
	}
	lines := strings.FieldsFunc(string(raw), func(r rune) bool {
		return r == '\r' || r == '\n' || r == ','
	})

	var out ParsedBatch
	if meta.Table == TableOperLog {
		out.OperLog = true
		out.OperLines = len(lines)
		return out
	}

	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || strings.TrimSpace(fields[0]) == "" {
			out.Malformed++
			continue
		}
		ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(fields[1]), loc)
		if err != nil {
			out.Malformed++
			continue
		}

		rec := PunchRecord{
			SubjectID: strings.TrimSpace(fields[0]),
			Timestamp: ts,
			Raw:       line,
			Meta:      meta,
		}
		for i := 0; i < 5; i++ {
			idx := i + 2
			if idx >= len(fields) {
				break
			}
			if v := strings.TrimSpace(fields[idx]); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					rec.Statuses[i] = &n
				}
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out
}
