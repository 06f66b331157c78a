// Package metrics exposes prometheus counters for the ingestion path.
// The device protocol deliberately reveals nothing about why a line was
// dropped, so these counters (plus logs) are the only place operators
// can see skips.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesTotal counts device pushes by batch table tag.
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iclockd_batches_total",
		Help: "Device push batches received, by table tag.",
	}, []string{"table"})

	// PunchesTotal counts per-line outcomes.
	PunchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iclockd_punches_total",
		Help: "Punch lines processed, by outcome.",
	}, []string{"outcome"})

	// UnauthorizedTotal counts accepted punches that fell outside every
	// eligible window.
	UnauthorizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iclockd_unauthorized_punches_total",
		Help: "Accepted punches outside any authorized window.",
	})

	// ResolutionsTotal counts subject resolution outcomes.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iclockd_subject_resolutions_total",
		Help: "Subject identifier resolutions, by outcome.",
	}, []string{"outcome"})
)

// Punch outcome labels.
const (
	OutcomeAccepted       = "accepted"
	OutcomeDuplicate      = "duplicate"
	OutcomeUnknownSubject = "unknown_subject"
	OutcomeMalformed      = "malformed"
	OutcomeOpLog          = "oplog"
)
