// Package logging manages the per-job log: the scoped session that owns
// job.log and the level names accepted by the job log flag.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultLevel is the job log level used when none is configured.
const DefaultLevel = "debug"

// ParseLevel converts a level name into a slog level. It accepts trace,
// debug, info, warn (or warning), error and crit, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit", "critical":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
