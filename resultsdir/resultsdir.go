// Package resultsdir allocates job identities and their results directories.
//
// Layout produced under the base directory:
//
//	<base>/<id>/          results directory
//	<base>/<id>/id        identity marker (<id> + newline)
//	<base>/latest -> <id> symlink, atomically replaced
//	<base>/<category>/<id> -> ../<id> (optional)
package resultsdir

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-jobrunner/metrics"
)

const (
	IDFilename     = "id"
	LatestLinkName = "latest"
)

// DryRunID is the identity used by dry-run jobs that did not request one.
var DryRunID = fmt.Sprintf("%040d", 0)

var (
	// ErrLatestNotSymlink is returned when <base>/latest exists but is not a symlink.
	ErrLatestNotSymlink = errors.New("latest path exists and is not a symlink")
	// ErrUnsafeCategory is returned for category names that are not filesystem safe.
	ErrUnsafeCategory = errors.New("category name is not filesystem safe")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// AllocationError is returned when a results directory cannot be created.
type AllocationError struct {
	Path string
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("unable to allocate results directory %s: %v", e.Path, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *AllocationError) Unwrap() error {
	return e.Err
}

// IsAllocationError checks if the error is or wraps an AllocationError
func IsAllocationError(err error) bool {
	var allocErr *AllocationError
	return err != nil && errors.As(err, &allocErr)
}

// Dir is an allocated job identity and its results directory.
type Dir struct {
	ID   string
	Path string
}

// Config holds configuration for creating an Allocator
type Config struct {
	// BaseDir is the parent of every results directory. Empty selects DefaultBaseDir.
	BaseDir string
	// SkipLatest leaves the latest link untouched (used by dry runs).
	SkipLatest bool
	Log        log.Logger
}

// Allocator creates results directories below a single base directory.
type Allocator struct {
	baseDir    string
	skipLatest bool
	log        log.Logger
}

// NewAllocator resolves the base directory and returns an allocator for it.
func NewAllocator(cfg Config) (*Allocator, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	base := cfg.BaseDir
	if base == "" {
		var err error
		base, err = DefaultBaseDir()
		if err != nil {
			return nil, err
		}
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for results base '%s': %w", base, err)
	}
	return &Allocator{
		baseDir:    abs,
		skipLatest: cfg.SkipLatest,
		log:        cfg.Log,
	}, nil
}

// DefaultBaseDir returns the results root used when none is configured.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine default results directory: %w", err)
	}
	return filepath.Join(home, "op-jobrunner", "job-results"), nil
}

// BaseDir returns the absolute base directory.
func (a *Allocator) BaseDir() string {
	return a.baseDir
}

// NewJobID returns a fresh 40 character hex identifier.
func NewJobID() string {
	host, _ := os.Hostname()
	h := sha1.New()
	fmt.Fprintf(h, "%s-%d-%s", host, time.Now().UnixNano(), uuid.New().String())
	return hex.EncodeToString(h.Sum(nil))
}

// Allocate creates the results directory for requestedID, or for a freshly
// generated id when requestedID is empty. The id marker is on disk before
// Allocate returns. Failing to update the latest link is logged only.
func (a *Allocator) Allocate(requestedID string) (*Dir, error) {
	id := requestedID
	if id == "" {
		id = NewJobID()
	}
	if id != filepath.Base(id) || id == "." || id == ".." {
		return nil, &AllocationError{Path: filepath.Join(a.baseDir, id), Err: fmt.Errorf("invalid job id %q", id)}
	}

	if err := os.MkdirAll(a.baseDir, 0755); err != nil {
		return nil, &AllocationError{Path: a.baseDir, Err: err}
	}
	path := filepath.Join(a.baseDir, id)
	if err := os.Mkdir(path, 0755); err != nil {
		return nil, &AllocationError{Path: path, Err: err}
	}
	if err := WriteIDFile(path, id); err != nil {
		return nil, &AllocationError{Path: path, Err: err}
	}

	if !a.skipLatest {
		if err := UpdateLatest(path); err != nil {
			a.log.Warn("Unable to update the latest link", "err", err)
			metrics.RecordErrorDetails("latest_link", err)
		}
	}

	a.log.Debug("Allocated results directory", "id", id, "path", path)
	return &Dir{ID: id, Path: path}, nil
}

// WriteIDFile writes the identity marker into dir and syncs it to disk.
func WriteIDFile(dir, id string) error {
	f, err := os.OpenFile(filepath.Join(dir, IDFilename), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create id file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s\n", id); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write id file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync id file: %w", err)
	}
	return f.Close()
}

// ReadIDFile returns the raw contents of the identity marker in dir.
func ReadIDFile(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, IDFilename))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SafePath replaces every character outside [A-Za-z0-9_.-] with an underscore.
func SafePath(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}
