package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

const (
	MetricsNamespace = "jobrunner"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of best-effort errors that did not affect the job outcome",
	}, []string{
		"error",
	})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "jobs_total",
		Help:      "Count of finished jobs by final status",
	}, []string{
		"status",
	})

	exitBitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "exit_bits_total",
		Help:      "Count of finished jobs carrying each exit code bit",
	}, []string{
		"bit",
	})

	jobTests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "job_tests",
		Help:      "Number of tests resolved by the most recent job",
	})

	jobDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "job_duration_seconds",
		Help:      "Elapsed time of the most recent job",
	})

	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of each job phase",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{
		"phase",
	})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "failures_total",
		Help:      "Count of classified failures raised inside the guarded region",
	}, []string{
		"phase",
		"class",
	})

	suiteOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_outcomes_total",
		Help:      "Count of outcome tags reported by suites",
	}, []string{
		"suite",
		"tag",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordPhase(phase string, d time.Duration) {
	phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func RecordFailure(phase string, class exitcodes.Class) {
	if Debug {
		log.Debug("metric inc",
			"m", "failures_total",
			"phase", phase,
			"class", class)
	}
	failuresTotal.WithLabelValues(phase, class.String()).Inc()
}

func RecordSuiteOutcome(suite string, tags outcome.TagSet) {
	for _, tag := range tags.Sorted() {
		suiteOutcomesTotal.WithLabelValues(suite, string(tag)).Inc()
	}
}

// RecordJob records the final state of a job.
func RecordJob(status outcome.Status, code exitcodes.Code, tests int, elapsed time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "jobs_total",
			"status", status,
			"exitcode", code)
	}
	jobsTotal.WithLabelValues(string(status)).Inc()
	for _, bit := range code.Bits() {
		exitBitsTotal.WithLabelValues(bit).Inc()
	}
	jobTests.Set(float64(tests))
	jobDuration.Set(elapsed.Seconds())
}
