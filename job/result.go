package job

import "github.com/ethereum-optimism/infra/op-jobrunner/outcome"

// SuiteOutcome is what one suite reported during execution.
type SuiteOutcome struct {
	Name string         `json:"name" yaml:"name"`
	Size int            `json:"size" yaml:"size"`
	Tags outcome.TagSet `json:"tags" yaml:"tags"`
}

// Result accumulates what execution observed for renderers and hooks.
type Result struct {
	JobID      string         `json:"job_id"`
	LogFile    string         `json:"log_file"`
	TestsTotal int            `json:"tests_total"`
	Summary    outcome.TagSet `json:"summary"`
	Suites     []SuiteOutcome `json:"suites"`
}

func newResult(jobID, logFile string) *Result {
	return &Result{
		JobID:   jobID,
		LogFile: logFile,
		Summary: outcome.NewTagSet(),
	}
}

func (r *Result) addSuite(name string, size int, tags outcome.TagSet) {
	r.Suites = append(r.Suites, SuiteOutcome{Name: name, Size: size, Tags: tags})
	r.Summary = r.Summary.Union(tags)
}
