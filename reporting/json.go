package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

// JSONFilename is written into the results directory by JSONRenderer.
const JSONFilename = "results.json"

// Report is the machine readable form of a finished job.
type Report struct {
	*job.Result
	Status            outcome.Status `json:"status"`
	ExitCode          int            `json:"exit_code"`
	ExitBits          []string       `json:"exit_bits"`
	InterruptedReason string         `json:"interrupted_reason,omitempty"`
	TimeStart         time.Time      `json:"time_start"`
	TimeEnd           time.Time      `json:"time_end"`
	ElapsedSeconds    float64        `json:"elapsed_seconds"`
}

// JSONRenderer writes results.json into the results directory.
type JSONRenderer struct{}

var _ job.Renderer = JSONRenderer{}

func NewReport(res *job.Result, j *job.Job) *Report {
	code := j.ExitCode()
	return &Report{
		Result:            res,
		Status:            j.Status(),
		ExitCode:          code.Int(),
		ExitBits:          code.Bits(),
		InterruptedReason: j.InterruptedReason(),
		TimeStart:         j.TimeStart(),
		TimeEnd:           j.TimeEnd(),
		ElapsedSeconds:    j.Elapsed().Seconds(),
	}
}

func (JSONRenderer) Render(_ context.Context, res *job.Result, j *job.Job) error {
	data, err := json.MarshalIndent(NewReport(res, j), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	path := filepath.Join(j.ResultsDir(), JSONFilename)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	j.JobLog().Info("JSON results written", "path", path)
	return nil
}
