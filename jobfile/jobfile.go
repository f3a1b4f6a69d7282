// Package jobfile loads job definitions from YAML or TOML files.
//
// A job file has an optional job section and a list of suites:
//
//	job:
//	  category: nightly
//	  timeout: 30m
//	suites:
//	  - name: unit
//	    tests:
//	      - name: build
//	        command: [make, build]
package jobfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-jobrunner/execsuite"
	"github.com/ethereum-optimism/infra/op-jobrunner/job"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported job file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// JobSection holds the job level settings of a job file.
type JobSection struct {
	ResultsDir      string            `yaml:"results_dir" toml:"results_dir"`
	UniqueID        string            `yaml:"unique_id" toml:"unique_id"`
	Category        string            `yaml:"category" toml:"category"`
	KeepTmp         bool              `yaml:"keep_tmp" toml:"keep_tmp"`
	DryRun          bool              `yaml:"dry_run" toml:"dry_run"`
	DryRunNoCleanup bool              `yaml:"dry_run_no_cleanup" toml:"dry_run_no_cleanup"`
	LogLevel        string            `yaml:"log_level" toml:"log_level"`
	Timeout         time.Duration     `yaml:"timeout" toml:"timeout"`
	ReplaySource    string            `yaml:"replay_source" toml:"replay_source"`
	Options         map[string]string `yaml:"options" toml:"options"`
}

// File is a parsed job file.
type File struct {
	Job    JobSection             `yaml:"job" toml:"job"`
	Suites []execsuite.Definition `yaml:"suites" toml:"suites"`
}

// Load reads and parses the job file at path.
func Load(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	// relative workdirs are relative to the job file
	dir := filepath.Dir(path)
	for i := range f.Suites {
		if wd := f.Suites[i].WorkDir; wd != "" && !filepath.IsAbs(wd) {
			f.Suites[i].WorkDir = filepath.Join(dir, wd)
		}
	}
	return f, nil
}

// Parse decodes data. Unknown keys are rejected.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	default:
		return nil, fmt.Errorf("unknown job file format %q", format)
	}
	return &f, nil
}

// JobConfig returns the job section as a job configuration.
func (f *File) JobConfig() job.Config {
	s := f.Job
	return job.Config{
		UniqueID:        s.UniqueID,
		ResultsDir:      s.ResultsDir,
		Category:        s.Category,
		KeepTmp:         s.KeepTmp,
		DryRun:          s.DryRun,
		DryRunNoCleanup: s.DryRunNoCleanup,
		LogLevel:        s.LogLevel,
		Timeout:         s.Timeout,
		ReplaySource:    s.ReplaySource,
		Options:         s.Options,
	}.Clone()
}
