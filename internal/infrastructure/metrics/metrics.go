// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"microloan-ledger/internal/domain/errs"
)

const namespace = "ledger"

var (
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Ledger operations by name and outcome kind.",
	}, []string{"op", "kind"})

	PartialCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_commits_total",
		Help:      "Loan writes whose dependent balance write failed.",
	}, []string{"op"})

	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_failures_total",
		Help:      "Notification and mirror deliveries that failed or panicked.",
	}, []string{"effect"})
)

// Observe counts one run of op; err == nil counts as kind "ok".
func Observe(op string, err error) {
	kind := errs.Kind(err)
	Operations.WithLabelValues(op, kind).Inc()
	if kind == "partial_commit" {
		PartialCommits.WithLabelValues(op).Inc()
	}
}

func SideEffectFailed(effect string) {
	SideEffectFailures.WithLabelValues(effect).Inc()
}

func Handler() http.Handler { return promhttp.Handler() }
