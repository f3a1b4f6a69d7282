package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/metrics"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

const (
	HumanExtension   = "human"
	MetricsExtension = "metrics"
)

// Human prints the job identity on start, a results line once tests are done
// and the elapsed time on completion.
type Human struct{}

func (Human) PreJob(_ context.Context, j *job.Job) error {
	j.Log().Info(fmt.Sprintf("JOB ID     : %s", j.ID()))
	if src := j.Config().ReplaySource; src != "" {
		j.Log().Info(fmt.Sprintf("SRC JOB ID : %s", src))
	}
	j.Log().Info(fmt.Sprintf("JOB LOG    : %s", j.LogFile()))
	return nil
}

// PostTests prints how many suites reported each outcome tag.
func (Human) PostTests(_ context.Context, j *job.Job) error {
	res := j.Result()
	if res == nil {
		return nil
	}
	j.Log().Info(fmt.Sprintf("RESULTS    : %s", resultsLine(res)))
	return nil
}

func resultsLine(res *job.Result) string {
	tags := outcome.AllTags()
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		n := 0
		for _, s := range res.Suites {
			if s.Tags.Has(tag) {
				n++
			}
		}
		parts = append(parts, fmt.Sprintf("%s %d", tag, n))
	}
	return strings.Join(parts, " | ")
}

func (Human) PostJob(_ context.Context, j *job.Job) error {
	if reason := j.InterruptedReason(); reason != "" {
		j.Log().Warn(fmt.Sprintf("INTERRUPTED: %s", reason))
	}
	j.Log().Info(fmt.Sprintf("JOB TIME   : %.2f s", j.Elapsed().Seconds()))
	return nil
}

// JobMetrics records the final job status and exit code.
type JobMetrics struct{}

func (JobMetrics) PostJob(_ context.Context, j *job.Job) error {
	metrics.RecordJob(j.Status(), j.ExitCode(), j.Size(), j.Elapsed())
	return nil
}

// WithBuiltins registers the human and metrics extensions.
func WithBuiltins() Option {
	return func(cfg *dispatcherCfg) {
		WithExtension(HumanExtension, func(log.Logger) (any, error) { return Human{}, nil })(cfg)
		WithExtension(MetricsExtension, func(log.Logger) (any, error) { return JobMetrics{}, nil })(cfg)
	}
}
