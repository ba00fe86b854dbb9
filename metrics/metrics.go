package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CheckoutAttempts counts terminal checkout outcomes by result:
	// succeeded, failed, cancelled.
	CheckoutAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doorstep_checkout_attempts_total",
		Help: "Terminal checkout outcomes by result.",
	}, []string{"result"})

	// PartialCommits counts checkouts where payment was captured but
	// order composition did not fully commit. This should stay at zero;
	// anything above it needs manual reconciliation.
	PartialCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doorstep_checkout_partial_commits_total",
		Help: "Payments captured without full order commitment.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
