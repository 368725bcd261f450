// internal/app/metrics/metrics.go

// Package metrics registers the application's Prometheus collectors. The
// counters are package-level so stores, the roster engine, and the payments
// consumer can increment them without plumbing a registry around.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RosterCommits counts successful roster commits by kind.
	RosterCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retreathub_roster_commits_total",
		Help: "Successful roster reconciliation commits by roster kind.",
	}, []string{"kind"})

	// VersionConflicts counts submissions rejected with VERSION_MISMATCH,
	// whether caught at the gate or lost in the commit race.
	VersionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retreathub_roster_version_conflicts_total",
		Help: "Roster submissions rejected because of a stale version.",
	}, []string{"kind"})

	// ValidationRejections counts submissions aborted by the rule set,
	// split by whether errors or non-ignored warnings stopped them.
	ValidationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retreathub_roster_validation_rejections_total",
		Help: "Roster submissions aborted by validation, by kind and severity.",
	}, []string{"kind", "severity"})

	// PaymentEvents counts consumed payment-confirmation events by outcome.
	PaymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retreathub_payment_events_total",
		Help: "Payment-confirmation events consumed, by outcome.",
	}, []string{"outcome"})

	// AutoAssignments counts auto-assignment attempts by outcome.
	AutoAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retreathub_auto_assignments_total",
		Help: "Best-effort service space auto-assignments, by outcome.",
	}, []string{"outcome"})
)

// Payment event outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeDropped   = "dropped"
	OutcomeRequeued  = "requeued"
)

// Auto-assignment outcomes.
const (
	OutcomeAssigned = "assigned"
	OutcomeSkipped  = "skipped"
)
