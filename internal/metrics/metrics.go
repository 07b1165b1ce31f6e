// Package metrics defines and registers the custom Prometheus metrics for the
// task board. It is the single source of truth for metric names, labels, and
// help strings; registration happens at import time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskboard"

// CacheHitsTotal counts cache hits by resource key family ("user", "task",
// "users", "tasks").
var CacheHitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits, by resource.",
	},
	[]string{"resource"},
)

// CacheMissesTotal counts cache misses by resource key family.
var CacheMissesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses, by resource.",
	},
	[]string{"resource"},
)

// AuthzDenialsTotal counts authorization denials by reason
// (NOT_AUTHENTICATED, INSUFFICIENT_ROLE, NOT_OWNER, SELF_ACTION_FORBIDDEN).
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of denied operations, by denial reason.",
	},
	[]string{"reason"},
)

// LoginsTotal counts login attempts by result ("ok" or "failed").
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
