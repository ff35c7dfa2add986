package retry

import "github.com/prometheus/client_golang/prometheus"

// FailuresTotal is the pipeline_failures_total{step=...} counter spec §10
// (ambient observability) requires: one increment per failed task
// attempt (spec §4.8, "each retry increments a per-stage failure
// counter"), labeled by stage name — not just the terminal, exhausted
// attempt.
var FailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_failures_total",
		Help: "Count of stage task executions that ended in a failure, whether retried or terminal, by stage.",
	},
	[]string{"step", "kind"},
)

func init() {
	prometheus.MustRegister(FailuresTotal)
}

// RecordFailure increments the failures counter for one failed stage
// attempt, whether or not it will be retried.
func RecordFailure(stage string, kind Kind) {
	FailuresTotal.WithLabelValues(stage, string(kind)).Inc()
}
