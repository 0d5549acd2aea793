// Package metrics holds the Prometheus instrumentation for the identity
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the identity engine.
type Metrics struct {
	ClaimsApplied     prometheus.Counter
	ClaimsRejected    *prometheus.CounterVec
	MergesApplied     prometheus.Counter
	GroupsRewritten   prometheus.Counter
	ExpensesRewritten prometheus.Counter
	FriendsRewritten  prometheus.Counter
	VisibilityInserts prometheus.Counter
	VisibilityDeletes prometheus.Counter
	OrphansDeleted    prometheus.Counter
	IntegrityIssues   *prometheus.CounterVec
}

// New creates and registers all metrics against the given registerer. Tests
// pass a fresh registry to avoid duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ClaimsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_claims_applied_total",
			Help: "Total number of identity claims applied",
		}),
		ClaimsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payback_claims_rejected_total",
			Help: "Total number of identity claims rejected, by error code",
		}, []string{"code"}),
		MergesApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_merges_applied_total",
			Help: "Total number of manual member-id merges applied",
		}),
		GroupsRewritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_cascade_groups_rewritten_total",
			Help: "Total number of group rosters rewritten by cascades",
		}),
		ExpensesRewritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_cascade_expenses_rewritten_total",
			Help: "Total number of expenses rewritten by cascades",
		}),
		FriendsRewritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_cascade_friends_rewritten_total",
			Help: "Total number of friend records patched or collapsed by cascades",
		}),
		VisibilityInserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_visibility_rows_inserted_total",
			Help: "Total number of visibility fan-out rows inserted",
		}),
		VisibilityDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_visibility_rows_deleted_total",
			Help: "Total number of visibility fan-out rows deleted",
		}),
		OrphansDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "payback_janitor_orphans_deleted_total",
			Help: "Total number of orphaned friend records hard-deleted",
		}),
		IntegrityIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payback_integrity_issues_total",
			Help: "Total number of integrity issues found, by severity",
		}, []string{"severity"}),
	}
}
