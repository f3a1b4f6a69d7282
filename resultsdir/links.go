package resultsdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

// stagingSeq keeps staging names unique between updates of one process.
var stagingSeq atomic.Uint64

// UpdateLatest points <base>/latest at the basename of resultsDir, where base
// is the parent of resultsDir.
//
// A staging link named after the process and a per-process sequence number is
// created first and renamed over the final path, so concurrent readers only
// ever observe the previous or the new target. No locks are taken: rename is
// atomic and staging names never clash between updates.
func UpdateLatest(resultsDir string) error {
	staging := filepath.Join(filepath.Dir(resultsDir),
		fmt.Sprintf("%s.%d.%d", LatestLinkName, os.Getpid(), stagingSeq.Add(1)))
	return updateLatest(resultsDir, staging)
}

func updateLatest(resultsDir, staging string) (err error) {
	base := filepath.Dir(resultsDir)
	target := filepath.Base(resultsDir)
	latest := filepath.Join(base, LatestLinkName)

	if fi, statErr := os.Lstat(latest); statErr == nil && fi.Mode()&fs.ModeSymlink == 0 {
		return fmt.Errorf("%s: %w", latest, ErrLatestNotSymlink)
	}

	if _, statErr := os.Lstat(staging); statErr == nil {
		if rmErr := os.Remove(staging); rmErr != nil {
			return fmt.Errorf("unable to remove stale staging link %s: %w", staging, rmErr)
		}
	}

	defer func() {
		if _, statErr := os.Lstat(staging); statErr == nil {
			if rmErr := os.Remove(staging); rmErr != nil && err == nil {
				err = fmt.Errorf("unable to remove staging link %s: %w", staging, rmErr)
			}
		}
	}()

	if err := os.Symlink(target, staging); err != nil {
		return fmt.Errorf("unable to create latest symlink: %w", err)
	}
	if err := os.Rename(staging, latest); err != nil {
		return fmt.Errorf("unable to replace latest symlink: %w", err)
	}
	return nil
}

// LinkCategory creates <base>/<category>/<id> as a relative link to
// resultsDir. The category directory is created when missing.
func LinkCategory(resultsDir, category string) error {
	if category != SafePath(category) {
		return fmt.Errorf("%q: %w", category, ErrUnsafeCategory)
	}
	categoryPath := filepath.Join(filepath.Dir(resultsDir), category)
	if err := os.Mkdir(categoryPath, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("unable to create category directory %s: %w", categoryPath, err)
	}

	rel, err := filepath.Rel(categoryPath, resultsDir)
	if err != nil {
		return fmt.Errorf("unable to link job to category %s: %w", category, err)
	}
	link := filepath.Join(categoryPath, filepath.Base(resultsDir))
	if err := os.Symlink(rel, link); err != nil {
		return fmt.Errorf("unable to link job to category %s: %w", category, err)
	}
	return nil
}
