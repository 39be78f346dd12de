package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/assessment-finder/internal/query"
)

const namespace = "assessment_finder"

// Collector holds the application metrics. It is fed by the recommendation
// client (as a request observer) and by submitters (as a state observer).
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Requests sent to the recommendation API by path and status code (0 for transport errors).",
			},
			[]string{"path", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Latency of requests to the recommendation API.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"path"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Settled submissions by outcome.",
			},
			[]string{"outcome"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submissions_in_flight",
			Help:      "Submissions currently waiting for the recommendation API.",
		}),
	}

	for _, collector := range []prometheus.Collector{c.requests, c.requestDuration, c.submissions, c.inFlight} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveRequest implements recommend.RequestObserver.
func (c *Collector) ObserveRequest(path string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// StateObserver returns a query.Observer that counts outcomes and tracks the
// in-flight gauge for one submitter.
func (c *Collector) StateObserver() query.Observer {
	loading := false

	return func(st query.State) {
		if st.Loading() {
			if !loading {
				c.inFlight.Inc()
				loading = true
			}
			return
		}

		if loading {
			c.inFlight.Dec()
			loading = false
		}

		switch st.Phase() {
		case query.PhaseSucceeded, query.PhaseFailed, query.PhaseInvalid:
			c.submissions.WithLabelValues(st.Phase().String()).Inc()
		}
	}
}
