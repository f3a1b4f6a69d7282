package execsuite

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-jobrunner/job"
)

// Factory returns a job.SuiteFactory building the suite at position index
// from defs[index-1]. Suites without a name are named after their position.
// The options come from the suite config handed in by job.FromConfig, which
// already layers the definition's options over the job's.
func Factory(defs []Definition, logger log.Logger) job.SuiteFactory {
	return func(index int, cfg job.Config) (job.Suite, error) {
		if index < 1 || index > len(defs) {
			return nil, fmt.Errorf("no suite definition at position %d", index)
		}
		def := defs[index-1]
		if def.Name == "" {
			def.Name = strconv.Itoa(index)
		}
		def.Options = cfg.Options
		s, err := New(Config{Definition: def, Log: logger})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Options returns the per-suite option overlays in definition order, as
// expected by job.FromConfig.
func Options(defs []Definition) []map[string]string {
	out := make([]map[string]string, len(defs))
	for i, d := range defs {
		out[i] = maps.Clone(d.Options)
	}
	return out
}
