// Package metrics exposes Prometheus metrics for the comment page front-end.
//
// Metrics are registered on the registry passed to New, so tests can use a
// fresh prometheus.NewRegistry() per case.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/UkralStul/post-comments/internal/remote"
)

const namespace = "post_comments"

// Outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeRemoteError = "remote_error"
	OutcomeTransport   = "transport_error"
	OutcomeDiscarded   = "discarded"
)

// Recorder holds the front-end metrics.
type Recorder struct {
	// RemoteCalls counts blog service calls. Labels: action, outcome.
	RemoteCalls *prometheus.CounterVec

	// RemoteLatency measures blog service call duration. Labels: action.
	RemoteLatency *prometheus.HistogramVec

	// OpenPages is the number of live page sessions.
	OpenPages prometheus.Gauge
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Blog service calls by action and outcome.",
		}, []string{"action", "outcome"}),
		RemoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Blog service call duration by action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		OpenPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "open",
			Help:      "Page sessions currently open.",
		}),
	}
	reg.MustRegister(r.RemoteCalls, r.RemoteLatency, r.OpenPages)
	return r
}

// ObserveCall records one blog service call. A nil Recorder is a no-op.
func (r *Recorder) ObserveCall(action string, started time.Time, err error) {
	if r == nil {
		return
	}
	r.RemoteLatency.WithLabelValues(action).Observe(time.Since(started).Seconds())
	r.RemoteCalls.WithLabelValues(action, outcomeOf(err)).Inc()
}

// Discarded records a call whose response was dropped because its page was
// closed. It is counted under OutcomeDiscarded only, in place of ObserveCall.
func (r *Recorder) Discarded(action string, started time.Time) {
	if r == nil {
		return
	}
	r.RemoteLatency.WithLabelValues(action).Observe(time.Since(started).Seconds())
	r.RemoteCalls.WithLabelValues(action, OutcomeDiscarded).Inc()
}

// PageOpened increments the open page gauge.
func (r *Recorder) PageOpened() {
	if r == nil {
		return
	}
	r.OpenPages.Inc()
}

// PageClosed decrements the open page gauge.
func (r *Recorder) PageClosed() {
	if r == nil {
		return
	}
	r.OpenPages.Dec()
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var rerr *remote.Error
	if errors.As(err, &rerr) {
		return OutcomeRemoteError
	}
	return OutcomeTransport
}
